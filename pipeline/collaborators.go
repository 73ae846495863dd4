package pipeline

import (
	"context"

	"github.com/quattro/vira-stager/interval"
)

// Aligner aligns the reads in readsPath to the reference, writing SAM or BAM
// to outPath.
type Aligner interface {
	Align(ctx context.Context, readsPath, referencePath, outPath string) error
}

// WindowExtractor writes the reads overlapping iv to outPath as aligned FASTA,
// and returns the number of reads written.
type WindowExtractor interface {
	ExtractWindow(ctx context.Context, iv interval.Interval, outPath string) (nReads int, err error)
}

// Reconstructor reconstructs up to k local haplotypes from the aligned reads
// in readsPath, writing them to outPath.
type Reconstructor interface {
	Reconstruct(ctx context.Context, readsPath string, k int, outPath string) error
}

// Checker is implemented by collaborators that can validate their inputs
// before any work starts.
type Checker interface {
	Check(ctx context.Context) error
}
