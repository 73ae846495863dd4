// Package fasta contains code for parsing and writing FASTA files.  Briefly,
// FASTA files consist of a number of named sequences that may be interrupted
// by newlines.  For example:
//
// >ref
// ACGTAC
// GAGGAC
// GCG
// >other
// ACGT
//
// Note: Sequence names are defined to be the stretch of characters excluding
// spaces immediately after '>'.  Any text appear after a space are ignored.
// For example, '>HXB2 A viral sequence' becomes 'HXB2'.
package fasta

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/pkg/errors"
)

const (
	bufferInitSize = 1024 * 1024 * 300 // 300 MB
)

// Fasta represents FASTA-formatted data, consisting of a set of named
// sequences.
type Fasta interface {
	// Get returns a substring of the given sequence name at the given
	// coordinates, which are treated as a 0-based half-open interval
	// [start, end). Get is thread-safe.
	Get(seqName string, start, end uint64) (string, error)

	// Len returns the length of the given sequence.
	Len(seqName string) (uint64, error)

	// SeqNames returns the names of all sequences, in the order of appearance in
	// the FASTA file.
	SeqNames() []string
}

type opts struct {
	clean bool
}

// Opt is an option for New.
type Opt func(*opts)

// OptClean causes sequence bytes to be upper-cased, and U (uracil) to be
// rewritten as T.  Ambiguity codes are kept as they are.
func OptClean(o *opts) { o.clean = true }

var cleanTable [256]byte

func init() {
	for i := range cleanTable {
		cleanTable[i] = byte(i)
	}
	for c := 'a'; c <= 'z'; c++ {
		cleanTable[c] = byte(c - 'a' + 'A')
	}
	cleanTable['U'] = 'T'
	cleanTable['u'] = 'T'
}

func cleanSeq(line []byte) {
	for i, c := range line {
		line[i] = cleanTable[c]
	}
}

type fasta struct {
	seqs     map[string]string
	seqNames []string
}

// New creates a new Fasta that holds all the FASTA data from the given reader
// in memory.  A sequence appearing before any header line, or a header naming
// a sequence twice, is an error.
func New(r io.Reader, optList ...Opt) (Fasta, error) {
	var o opts
	for _, opt := range optList {
		opt(&o)
	}
	f := &fasta{seqs: make(map[string]string)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, bufferInitSize)
	var (
		seqName  string
		inRecord bool
		seq      strings.Builder
	)
	flush := func() error {
		if !inRecord {
			return nil
		}
		if _, ok := f.seqs[seqName]; ok {
			return errors.Errorf("duplicate sequence name %s", seqName)
		}
		f.seqs[seqName] = seq.String()
		f.seqNames = append(f.seqNames, seqName)
		seq.Reset()
		return nil
	}
	for scanner.Scan() {
		line := bytes.TrimRight(scanner.Bytes(), "\r")
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' { // Start a new sequence.
			if err := flush(); err != nil {
				return nil, err
			}
			seqName = strings.Split(string(line[1:]), " ")[0]
			inRecord = true
			continue
		}
		if !inRecord {
			return nil, errors.Errorf("malformed FASTA file: sequence data before the first header")
		}
		if o.clean {
			cleanSeq(line)
		}
		seq.Write(line)
	}
	if scanner.Err() != nil {
		return nil, errors.Wrap(scanner.Err(), "couldn't read FASTA data")
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return f, nil
}

// Get implements Fasta.Get().
func (f *fasta) Get(seqName string, start, end uint64) (string, error) {
	s, ok := f.seqs[seqName]
	if !ok {
		return "", errors.Errorf("sequence not found: %s", seqName)
	}
	if end <= start {
		return "", errors.Errorf("start must be less than end")
	}
	if end > uint64(len(s)) {
		return "", errors.Errorf("invalid query range %d - %d for sequence %s with length %d",
			start, end, seqName, len(s))
	}
	return s[start:end], nil
}

// Len implements Fasta.Len().
func (f *fasta) Len(seq string) (uint64, error) {
	s, ok := f.seqs[seq]
	if !ok {
		return 0, errors.Errorf("sequence not found: %s", seq)
	}
	return uint64(len(s)), nil
}

// SeqNames implements Fasta.SeqNames().
func (f *fasta) SeqNames() []string {
	return f.seqNames
}
