package bamprovider

import (
	"bufio"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hts/sam"
	"v.io/x/lib/vlog"
)

// ProviderOpts defines options for NewProvider.
type ProviderOpts struct {
	// Type forces the file type.  If Unknown, the type is guessed from the path
	// and contents.
	Type FileType
}

// Provider allows reading a SAM or BAM file. Thread safe.
type Provider interface {
	// GetHeader returns the header for the provided alignment data.  The callee
	// must not modify the returned header object.
	//
	// REQUIRES: Close has not been called.
	GetHeader() (*sam.Header, error)

	// NewIterator returns an iterator over all the records in the file, in
	// file order.  Each call starts a fresh pass.
	//
	// REQUIRES: Close has not been called.
	NewIterator() Iterator

	// Close must be called exactly once. It returns any error encountered
	// by the provider, or any iterator created by the provider.
	//
	// REQUIRES: All the iterators created by NewIterator have been closed.
	Close() error
}

// Iterator iterates over sam.Records. Thread compatible.
type Iterator interface {
	// Scan returns where there are any records remaining in the iterator,
	// and if so, advances the iterator to the next record. If the iterator
	// reaches the end of the file, Scan() returns false.  If an error
	// occurs, Scan() returns false and the error can be retrieved by
	// calling Err().
	//
	// REQUIRES: Close has not been called.
	Scan() bool

	// Record returns the current record in the iterator. This must be
	// called only after a call to Scan() returns true.
	//
	// REQUIRES: Close has not been called.
	Record() *sam.Record

	// Err returns the error encoutered during iteration, or nil if no error
	// occurred.  An io.EOF error will be translated to nil.
	Err() error

	// Close must be called exactly once. It returns the value of Err().
	Close() error
}

// FileType represents the type of an alignment file.
type FileType int

const (
	// Unknown is a sentinel.
	Unknown FileType = iota
	// SAM text file, optionally gzip-compressed.
	SAM
	// BAM file
	BAM
)

// ParseFileType parses the file type string. "bam" returns bamprovider.BAM, for
// example. On error, it returns Unknown.
func ParseFileType(name string) FileType {
	switch strings.ToLower(name) {
	case "sam":
		return SAM
	case "bam":
		return BAM
	default:
		return Unknown
	}
}

// String returns "sam", "bam" or "unknown".
func (t FileType) String() string {
	switch t {
	case SAM:
		return "sam"
	case BAM:
		return "bam"
	}
	return "unknown"
}

// GuessFileType returns the file type from the pathname and/or
// contents. Returns Unknown on error.
func GuessFileType(path string) FileType {
	switch {
	case strings.HasSuffix(path, ".bam"):
		return BAM
	case strings.HasSuffix(path, ".sam"), strings.HasSuffix(path, ".sam.gz"):
		return SAM
	}
	ctx := vcontext.Background()
	in, err := file.Open(ctx, path)
	if err != nil {
		vlog.VI(1).Infof("%v: could not detect file type: %v", path, err)
		return Unknown
	}
	defer in.Close(ctx) // nolint: errcheck
	magic, err := bufio.NewReader(in.Reader(ctx)).Peek(2)
	if err != nil || len(magic) < 2 {
		vlog.VI(1).Infof("%v: could not detect file type.", path)
		return Unknown
	}
	if magic[0] == 0x1f && magic[1] == 0x8b {
		// BGZF is a gzip variant.  Plain gzip'ed SAM must use the .sam.gz suffix.
		return BAM
	}
	return SAM
}

// NewProvider creates a Provider object that can handle SAM or BAM file of
// "path". The file type is autodetected from the path unless opts say
// otherwise.  Unknown types are read as BAM.
func NewProvider(path string, optList ...ProviderOpts) Provider {
	opts := ProviderOpts{}
	for _, o := range optList {
		if o.Type != Unknown {
			opts.Type = o.Type
		}
	}
	if opts.Type == Unknown {
		opts.Type = GuessFileType(path)
	}
	if opts.Type == Unknown {
		opts.Type = BAM
	}
	return &fileProvider{path: path, fileType: opts.Type}
}
