package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	pkgerrors "github.com/pkg/errors"
	"github.com/quattro/vira-stager/amplicon"
	"github.com/quattro/vira-stager/encoding/bamprovider"
	"github.com/quattro/vira-stager/interval"
	"github.com/quattro/vira-stager/kmer"
	"github.com/quattro/vira-stager/pileup"
)

// Names of the files written by Estimate and Run.
const (
	IntervalsFile     = "intervals.txt"
	IntervalsBEDFile  = "intervals.bed"
	StaleReadsFile    = "reads.fa"
	AlignedReadsFile  = "aligned_reads.fas"
	CorrectedFile     = "corrected.fa"
	AmpliconDirPrefix = "amplicon"
)

// Opts configures Estimate and Run.
type Opts struct {
	// ReferencePath is the reference FASTA.  Its first sequence is used.
	ReferencePath string
	// AlignmentPath is the SAM or BAM file of reads aligned to the reference.
	AlignmentPath string
	// OutputDir receives intervals.txt and the per-interval directories.
	OutputDir string

	// Iterations and Threads are passed to amplicon.EstimateParallel.
	Iterations int
	Threads    int
	Kmer       kmer.Opts
	Amplicon   amplicon.Opts
	// BED also writes the intervals as intervals.bed.
	BED bool

	// Haplotypes is the number of haplotypes requested per interval.
	Haplotypes int
	// Parallelism is the number of intervals processed concurrently by Run.
	Parallelism int
}

// DefaultOpts is the default Opts.  Threads is 1; the command line defaults it
// to the number of CPUs.
var DefaultOpts = Opts{
	OutputDir:   ".",
	Iterations:  1000,
	Threads:     1,
	Kmer:        kmer.DefaultOpts,
	Amplicon:    amplicon.DefaultOpts,
	Haplotypes:  20,
	Parallelism: 1,
}

// Estimation holds the inputs and the result of Estimate.
type Estimation struct {
	Reference  *pileup.Reference
	Store      *pileup.Store
	Dictionary *kmer.Dictionary
	Result     *amplicon.Result
	// IntervalsPath is the path of the saved intervals.
	IntervalsPath string
}

// Estimate loads the reference and the alignments, builds the k-mer
// dictionary, runs the amplicon search, and saves the intervals to
// OutputDir/intervals.txt.  Nothing is written unless the search succeeds.
func Estimate(ctx context.Context, opts Opts) (*Estimation, error) {
	if opts.Iterations <= 0 || opts.Threads <= 0 {
		return nil, pkgerrors.Wrapf(amplicon.ErrInvalidArgument, "iterations (%d) and threads (%d) must be positive",
			opts.Iterations, opts.Threads)
	}
	ref, err := pileup.ReadReference(ctx, opts.ReferencePath)
	if err != nil {
		return nil, err
	}
	store, err := pileup.IngestProvider(ref, bamprovider.NewProvider(opts.AlignmentPath))
	if err != nil {
		return nil, err
	}
	kopts := opts.Kmer
	if kopts.Parallelism <= 0 {
		kopts.Parallelism = opts.Threads
	}
	dict, err := kmer.Build(store, kopts)
	if err != nil {
		return nil, err
	}
	aopts := opts.Amplicon
	res, err := amplicon.EstimateParallel(ctx, ref, store, dict, opts.Iterations, opts.Threads, aopts)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, errors.E(err, "mkdir", opts.OutputDir)
	}
	est := &Estimation{
		Reference:     ref,
		Store:         store,
		Dictionary:    dict,
		Result:        res,
		IntervalsPath: filepath.Join(opts.OutputDir, IntervalsFile),
	}
	if err := amplicon.Save(ctx, est.IntervalsPath, res.Set); err != nil {
		return nil, err
	}
	if opts.BED {
		if err := amplicon.SaveBED(ctx, filepath.Join(opts.OutputDir, IntervalsBEDFile), ref.Name(), res.Set); err != nil {
			return nil, err
		}
	}
	log.Printf("wrote %d intervals to %s", res.Set.Len(), est.IntervalsPath)
	return est, nil
}

// AmpliconDir returns the directory of the i'th interval.
func AmpliconDir(outputDir string, i int) string {
	return filepath.Join(outputDir, fmt.Sprintf("%s%d", AmpliconDirPrefix, i))
}

// Run processes every interval of set: it creates OutputDir/amplicon<i>,
// removes a stale reads.fa, extracts the window's reads into
// aligned_reads.fas, and reconstructs haplotypes into corrected.fa.  Windows
// without reads are not reconstructed.  Up to opts.Parallelism intervals are
// processed at a time; the first error stops the run.  If extractor is a
// Checker, it is checked before any interval is processed.
func Run(ctx context.Context, opts Opts, set *amplicon.Set, extractor WindowExtractor, reconstructor Reconstructor) error {
	intervals := set.Intervals()
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}
	if parallelism > len(intervals) {
		parallelism = len(intervals)
	}
	if parallelism == 0 {
		return nil
	}
	if c, ok := extractor.(Checker); ok {
		if err := c.Check(ctx); err != nil {
			return err
		}
	}
	return traverse.Each(parallelism, func(jobIdx int) error {
		for i := jobIdx; i < len(intervals); i += parallelism {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := processInterval(ctx, opts, i, intervals[i], extractor, reconstructor); err != nil {
				return err
			}
		}
		return nil
	})
}

func processInterval(ctx context.Context, opts Opts, i int, iv interval.Interval,
	extractor WindowExtractor, reconstructor Reconstructor) error {
	dir := AmpliconDir(opts.OutputDir, i)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.E(err, "mkdir", dir)
	}
	stale := filepath.Join(dir, StaleReadsFile)
	if err := os.Remove(stale); err != nil && !os.IsNotExist(err) {
		return errors.E(err, "remove", stale)
	}
	aligned := filepath.Join(dir, AlignedReadsFile)
	n, err := extractor.ExtractWindow(ctx, iv, aligned)
	if err != nil {
		return errors.E(err, fmt.Sprintf("extract %v", iv))
	}
	if n == 0 {
		log.Printf("%s%d (%v): no reads, skipping reconstruction", AmpliconDirPrefix, i, iv)
		return nil
	}
	log.Printf("%s%d (%v): %d reads", AmpliconDirPrefix, i, iv, n)
	if err := reconstructor.Reconstruct(ctx, aligned, opts.Haplotypes, filepath.Join(dir, CorrectedFile)); err != nil {
		return errors.E(err, fmt.Sprintf("reconstruct %v", iv))
	}
	return nil
}
