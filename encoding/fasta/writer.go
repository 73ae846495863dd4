package fasta

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
)

// DefaultLineWidth is the number of bases per line written by Writer when no
// width is given.
const DefaultLineWidth = 60

// Writer writes named sequences in FASTA format.  Writer is not thread-safe.
type Writer struct {
	w     *bufio.Writer
	width int
	err   error
}

// NewWriter creates a Writer that wraps sequence lines at width bases.  A
// width <= 0 writes each sequence on a single line.
func NewWriter(w io.Writer, width int) *Writer {
	return &Writer{w: bufio.NewWriter(w), width: width}
}

// Write appends one record.  Errors are sticky: once a write fails, every
// later call returns the same error.
func (w *Writer) Write(name string, seq []byte) error {
	if w.err != nil {
		return w.err
	}
	w.w.WriteByte('>')
	w.w.WriteString(name)
	w.w.WriteByte('\n')
	if w.width <= 0 {
		w.w.Write(seq)
		w.err = w.w.WriteByte('\n')
	} else {
		for len(seq) > 0 {
			n := w.width
			if n > len(seq) {
				n = len(seq)
			}
			w.w.Write(seq[:n])
			w.err = w.w.WriteByte('\n')
			seq = seq[n:]
		}
	}
	if w.err != nil {
		w.err = errors.Wrapf(w.err, "fasta: write %s", name)
	}
	return w.err
}

// Flush writes buffered data to the underlying writer.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	if err := w.w.Flush(); err != nil {
		w.err = errors.Wrap(err, "fasta: flush")
	}
	return w.err
}
