package pipeline

import (
	"context"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/quattro/vira-stager/encoding/fasta"
	"github.com/quattro/vira-stager/interval"
	"github.com/quattro/vira-stager/pileup"
)

// StoreExtractor extracts windows from an in-memory alignment store.  Each
// read overlapping the window by at least MinOverlap bases becomes one FASTA
// record holding the read's bases over the window, padded with '-' where the
// read does not reach.
type StoreExtractor struct {
	Store      *pileup.Store
	MinOverlap int
}

// ExtractWindow implements WindowExtractor.
func (e *StoreExtractor) ExtractWindow(ctx context.Context, iv interval.Interval, outPath string) (n int, err error) {
	out, err := file.Create(ctx, outPath)
	if err != nil {
		return 0, errors.E(err, "create", outPath)
	}
	defer func() {
		if closeErr := out.Close(ctx); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	w := fasta.NewWriter(out.Writer(ctx), 0)
	row := make([]byte, iv.Len())
	for _, r := range e.Store.Overlapping(iv) {
		start, stop := r.Start, r.End
		if start < iv.Start {
			start = iv.Start
		}
		if stop > iv.Stop {
			stop = iv.Stop
		}
		if int(stop-start) < e.MinOverlap {
			continue
		}
		for i := range row {
			row[i] = pileup.GapSymbol
		}
		copy(row[start-iv.Start:stop-iv.Start], r.Bases[start-r.Start:stop-r.Start])
		if err := w.Write(r.ID, row); err != nil {
			return n, errors.E(err, "write", outPath)
		}
		n++
	}
	if err := w.Flush(); err != nil {
		return n, errors.E(err, "write", outPath)
	}
	return n, nil
}
