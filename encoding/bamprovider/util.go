package bamprovider

import (
	"github.com/grailbio/hts/sam"
)

// RefByName finds a sam.Reference with the given name. It returns nil if a
// reference is not found.
func RefByName(h *sam.Header, refName string) *sam.Reference {
	for _, ref := range h.Refs() {
		if ref.Name() == refName {
			return ref
		}
	}
	return nil
}

// ForEach calls fn on every record produced by a fresh iterator of p, stopping
// at the first error returned by fn.  It returns fn's error, or the iterator's.
func ForEach(p Provider, fn func(rec *sam.Record) error) error {
	iter := p.NewIterator()
	for iter.Scan() {
		if err := fn(iter.Record()); err != nil {
			iter.Close() // nolint: errcheck
			return err
		}
	}
	return iter.Close()
}
