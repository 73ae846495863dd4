package bamprovider

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/klauspost/compress/gzip"
	"v.io/x/lib/vlog"
)

// fileProvider implements Provider for SAM and BAM files.  The path may be
// anything grailbio/base/file can open.
type fileProvider struct {
	path     string
	fileType FileType
	err      errors.Once

	mu      sync.Mutex
	nActive int
	header  *sam.Header
}

// recordReader is the part of sam.Reader and bam.Reader used here.
type recordReader interface {
	Header() *sam.Header
	Read() (*sam.Record, error)
}

type fileIterator struct {
	provider *fileProvider
	ctx      context.Context
	in       file.File
	closers  []io.Closer
	reader   recordReader

	rec  *sam.Record
	err  error
	done bool
}

// open opens the file and positions a reader after the header.  On success
// the caller owns the returned closers, innermost first.
func (b *fileProvider) open(ctx context.Context) (file.File, recordReader, []io.Closer, error) {
	in, err := file.Open(ctx, b.path)
	if err != nil {
		return nil, nil, nil, errors.E(err, "open", b.path)
	}
	var (
		r       io.Reader = in.Reader(ctx)
		closers []io.Closer
		reader  recordReader
	)
	switch b.fileType {
	case SAM:
		if strings.HasSuffix(b.path, ".gz") {
			gz, err := gzip.NewReader(r)
			if err != nil {
				in.Close(ctx) // nolint: errcheck
				return nil, nil, nil, errors.E(err, "gzip", b.path)
			}
			closers = append(closers, gz)
			r = gz
		}
		sr, err := sam.NewReader(r)
		if err != nil {
			closeAll(closers)
			in.Close(ctx) // nolint: errcheck
			return nil, nil, nil, errors.E(err, "read SAM header", b.path)
		}
		reader = sr
	default:
		br, err := bam.NewReader(r, 1)
		if err != nil {
			in.Close(ctx) // nolint: errcheck
			return nil, nil, nil, errors.E(err, "read BAM header", b.path)
		}
		closers = append(closers, br)
		reader = br
	}
	return in, reader, closers, nil
}

func closeAll(closers []io.Closer) error {
	var err error
	for i := len(closers) - 1; i >= 0; i-- {
		if e := closers[i].Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}

// GetHeader implements the Provider interface.
func (b *fileProvider) GetHeader() (*sam.Header, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.header != nil {
		return b.header, nil
	}
	ctx := vcontext.Background()
	in, reader, closers, err := b.open(ctx)
	if err != nil {
		b.err.Set(err)
		return nil, err
	}
	b.header = reader.Header()
	closeAll(closers) // nolint: errcheck
	if err := in.Close(ctx); err != nil {
		b.err.Set(err)
		return nil, err
	}
	return b.header, nil
}

// NewIterator implements the Provider interface.
func (b *fileProvider) NewIterator() Iterator {
	ctx := vcontext.Background()
	in, reader, closers, err := b.open(ctx)
	if err != nil {
		b.err.Set(err)
		return NewErrorIterator(err)
	}
	b.mu.Lock()
	b.nActive++
	if b.header == nil {
		b.header = reader.Header()
	}
	b.mu.Unlock()
	return &fileIterator{provider: b, ctx: ctx, in: in, closers: closers, reader: reader}
}

// Close implements the Provider interface.
func (b *fileProvider) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.nActive > 0 {
		vlog.Fatalf("%d iterators still active for %s", b.nActive, b.path)
	}
	return b.err.Err()
}

// Scan implements the Iterator interface.
func (i *fileIterator) Scan() bool {
	if i.done || i.err != nil {
		return false
	}
	rec, err := i.reader.Read()
	if err != nil {
		if err != io.EOF {
			i.err = errors.E(err, "read", i.provider.path)
		}
		i.done = true
		i.rec = nil
		return false
	}
	i.rec = rec
	return true
}

// Record implements the Iterator interface.
func (i *fileIterator) Record() *sam.Record {
	return i.rec
}

// Err implements the Iterator interface.
func (i *fileIterator) Err() error {
	return i.err
}

// Close implements the Iterator interface.
func (i *fileIterator) Close() error {
	if err := closeAll(i.closers); err != nil && i.err == nil {
		i.err = err
	}
	if err := i.in.Close(i.ctx); err != nil && i.err == nil {
		i.err = err
	}
	i.provider.err.Set(i.err)
	i.provider.mu.Lock()
	i.provider.nActive--
	if i.provider.nActive < 0 {
		vlog.Fatalf("Negative active count for %s", i.provider.path)
	}
	i.provider.mu.Unlock()
	return i.err
}
