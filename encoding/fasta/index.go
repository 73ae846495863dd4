package fasta

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
)

// faiRecord is one line of a FASTA index.
type faiRecord struct {
	name      string
	length    int64
	offset    int64 // of the first base
	lineBases int
	lineWidth int // including the newline
}

func (r *faiRecord) write(w *tsv.Writer) error {
	w.WriteString(r.name)
	w.WriteInt64(r.length)
	w.WriteInt64(r.offset)
	w.WriteInt64(int64(r.lineBases))
	w.WriteInt64(int64(r.lineWidth))
	return w.EndLine()
}

// GenerateIndex writes the index (*.fai, as produced by "samtools faidx") of
// the FASTA data in "in".  Every sequence line of a record except the last
// must hold the same number of bases; b2w and other htslib-based tools seek
// by line width.
func GenerateIndex(out io.Writer, in io.Reader) error {
	var (
		w      = tsv.NewWriter(out)
		r      = bufio.NewReader(in)
		rec    *faiRecord
		offset int64
		short  bool // rec has had a line shorter than its first
	)
	for {
		raw, readErr := r.ReadBytes('\n')
		if readErr != nil && readErr != io.EOF {
			return errors.E(readErr, "read FASTA")
		}
		offset += int64(len(raw))
		line := bytes.TrimRight(raw, "\r\n")
		switch {
		case len(line) == 0:
		case line[0] == '>':
			if rec != nil {
				if err := rec.write(w); err != nil {
					return err
				}
			}
			rec = &faiRecord{name: strings.SplitN(string(line[1:]), " ", 2)[0], offset: offset}
			short = false
		case rec == nil:
			return errors.E(errors.Invalid, "malformed FASTA file: sequence data before the first header")
		default:
			if rec.lineWidth == 0 {
				rec.lineBases, rec.lineWidth = len(line), len(raw)
			} else if short || len(line) > rec.lineBases {
				return errors.E(errors.Invalid, fmt.Sprintf("FASTA sequence %s: lines of uneven length", rec.name))
			} else if len(line) < rec.lineBases {
				short = true
			}
			rec.length += int64(len(line))
		}
		if readErr == io.EOF {
			break
		}
	}
	if offset == 0 {
		return errors.E("empty FASTA file")
	}
	if rec != nil {
		if err := rec.write(w); err != nil {
			return err
		}
	}
	return w.Flush()
}
