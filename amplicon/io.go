package amplicon

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/klauspost/compress/gzip"
	pkgerrors "github.com/pkg/errors"
	"github.com/quattro/vira-stager/interval"
	"github.com/quattro/vira-stager/pileup"
)

// WriteIntervals writes the canonical interchange form of s: one
// "start,stop" line per interval, in ascending order, without a header.
func WriteIntervals(w io.Writer, s *Set) error {
	bw := bufio.NewWriter(w)
	var buf []byte
	for _, iv := range s.intervals {
		buf = strconv.AppendInt(buf[:0], int64(iv.Start), 10)
		buf = append(buf, ',')
		buf = strconv.AppendInt(buf, int64(iv.Stop), 10)
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadIntervals parses the form written by WriteIntervals.  Blank lines are
// ignored.  Malformed lines, and intervals that are empty, overlapping, or out
// of order, are pileup.ErrParse.  The score of the returned set is zero.
func ReadIntervals(r io.Reader) (*Set, error) {
	var p interval.Partition
	sc := bufio.NewScanner(r)
	for lineno := 1; sc.Scan(); lineno++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) != 2 {
			return nil, pkgerrors.Wrapf(pileup.ErrParse, "line %d: %q: want start,stop", lineno, line)
		}
		start, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 32)
		if err != nil {
			return nil, pkgerrors.Wrapf(pileup.ErrParse, "line %d: start: %v", lineno, err)
		}
		stop, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 32)
		if err != nil {
			return nil, pkgerrors.Wrapf(pileup.ErrParse, "line %d: stop: %v", lineno, err)
		}
		p = append(p, interval.Interval{Start: interval.PosType(start), Stop: interval.PosType(stop)})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if err := p.Validate(interval.PosTypeMax, 1); err != nil {
		return nil, pkgerrors.Wrapf(pileup.ErrParse, "intervals: %v", err)
	}
	return &Set{intervals: p}, nil
}

// WriteBED writes s as BED: reference name, start, stop, and the name
// "amplicon<i>".
func WriteBED(w io.Writer, refName string, s *Set) error {
	out := tsv.NewWriter(w)
	for i, iv := range s.intervals {
		out.WriteString(refName)
		out.WriteInt64(int64(iv.Start))
		out.WriteInt64(int64(iv.Stop))
		out.WriteString(fmt.Sprintf("amplicon%d", i))
		if err := out.EndLine(); err != nil {
			return err
		}
	}
	return out.Flush()
}

// create opens path for writing through grailbio/base/file.  If the path ends
// in ".gz", the output is gzip-compressed.  The returned function closes
// everything.
func create(ctx context.Context, path string) (io.Writer, func() error, error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return nil, nil, errors.E(err, "create", path)
	}
	if !strings.HasSuffix(path, ".gz") {
		return out.Writer(ctx), func() error { return out.Close(ctx) }, nil
	}
	gz := gzip.NewWriter(out.Writer(ctx))
	closer := func() error {
		e := errors.Once{}
		e.Set(gz.Close())
		e.Set(out.Close(ctx))
		return e.Err()
	}
	return gz, closer, nil
}

func save(ctx context.Context, path string, write func(w io.Writer) error) error {
	w, closer, err := create(ctx, path)
	if err != nil {
		return err
	}
	if err := write(w); err != nil {
		closer() // nolint: errcheck
		return errors.E(err, "write", path)
	}
	if err := closer(); err != nil {
		return errors.E(err, "close", path)
	}
	return nil
}

// Save writes s to path in the canonical form.
func Save(ctx context.Context, path string, s *Set) error {
	return save(ctx, path, func(w io.Writer) error { return WriteIntervals(w, s) })
}

// SaveBED writes s to path as BED.
func SaveBED(ctx context.Context, path, refName string, s *Set) error {
	return save(ctx, path, func(w io.Writer) error { return WriteBED(w, refName, s) })
}

// Load reads a set written by Save.  Compressed files are detected
// automatically.
func Load(ctx context.Context, path string) (s *Set, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "open", path)
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	reader, _ := compress.NewReader(in.Reader(ctx))
	defer func() {
		if e := reader.Close(); e != nil && err == nil {
			err = e
		}
	}()
	if s, err = ReadIntervals(reader); err != nil {
		return nil, pkgerrors.Wrapf(err, "%s", path)
	}
	return s, nil
}
