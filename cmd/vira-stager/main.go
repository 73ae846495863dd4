/*
vira-stager estimates amplicon-like intervals over a viral reference from
aligned reads, and optionally drives per-interval read extraction and
haplotype reconstruction.

  vira-stager estimate -reference ref.fa -alignment reads.bam -output out
  vira-stager run -reference ref.fa -alignment reads.bam -output out -reconstructor "java -jar kgem.jar"
*/
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/quattro/vira-stager/pipeline"
	"v.io/x/lib/cmdline"
)

// estimateFlags are shared by the estimate and run subcommands.
type estimateFlags struct {
	reference, alignment, output *string
	iterations, threads          *int
	seed                         *int64
	minWindow, maxWindow         *int
	minDepth, k                  *int
	bed                          *bool
}

func addEstimateFlags(cmd *cmdline.Command) estimateFlags {
	d := pipeline.DefaultOpts
	return estimateFlags{
		reference:  cmd.Flags.String("reference", "", "Reference FASTA. Only the first sequence is used"),
		alignment:  cmd.Flags.String("alignment", "", "SAM or BAM file of reads aligned to the reference"),
		output:     cmd.Flags.String("output", d.OutputDir, "Output directory"),
		iterations: cmd.Flags.Int("n", d.Iterations, "Total number of random trials"),
		threads:    cmd.Flags.Int("p", runtime.NumCPU(), "Number of search workers"),
		seed:       cmd.Flags.Int64("seed", d.Amplicon.Seed, "Base random seed. The same seed and inputs produce the same intervals"),
		minWindow:  cmd.Flags.Int("min-window", d.Amplicon.MinWindowLength, "Minimum interval length"),
		maxWindow:  cmd.Flags.Int("max-window", d.Amplicon.MaxWindowLength, "Maximum interval length; 0 means unbounded"),
		minDepth:   cmd.Flags.Int("min-depth", d.Amplicon.MinDepth, "Positions covered by fewer reads are never placed in an interval"),
		k:          cmd.Flags.Int("k", d.Kmer.K, "k-mer length"),
		bed:        cmd.Flags.Bool("bed", false, "Also write the intervals as "+pipeline.IntervalsBEDFile),
	}
}

func (f estimateFlags) opts() (pipeline.Opts, error) {
	if *f.reference == "" || *f.alignment == "" {
		return pipeline.Opts{}, fmt.Errorf("-reference and -alignment are required")
	}
	opts := pipeline.DefaultOpts
	opts.ReferencePath = *f.reference
	opts.AlignmentPath = *f.alignment
	opts.OutputDir = *f.output
	opts.Iterations = *f.iterations
	opts.Threads = *f.threads
	opts.BED = *f.bed
	opts.Kmer.K = *f.k
	opts.Kmer.Parallelism = *f.threads
	opts.Amplicon.Seed = *f.seed
	opts.Amplicon.MinWindowLength = *f.minWindow
	opts.Amplicon.MaxWindowLength = *f.maxWindow
	opts.Amplicon.MinDepth = *f.minDepth
	return opts, nil
}

func newCmdEstimate() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "estimate",
		Short: "Estimate amplicon intervals and write them to <output>/" + pipeline.IntervalsFile,
	}
	flags := addEstimateFlags(cmd)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return fmt.Errorf("estimate takes no positional arguments, but got %v", argv)
		}
		opts, err := flags.opts()
		if err != nil {
			return err
		}
		est, err := pipeline.Estimate(vcontext.Background(), opts)
		if err != nil {
			return err
		}
		fmt.Fprintf(env.Stdout, "%d intervals, score %g, digest %016x\n",
			est.Result.Set.Len(), est.Result.Score, est.Result.Set.Digest())
		return nil
	})
	return cmd
}

func newCmdRun() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "run",
		Short: "Estimate intervals, then extract and reconstruct the reads of each interval",
	}
	flags := addEstimateFlags(cmd)
	var (
		haplotypes    = cmd.Flags.Int("haplotypes", pipeline.DefaultOpts.Haplotypes, "Number of haplotypes to reconstruct per interval")
		parallelism   = cmd.Flags.Int("parallelism", pipeline.DefaultOpts.Parallelism, "Number of intervals processed concurrently")
		extractorFlag = cmd.Flags.String("extractor", "native", `Window extractor: "native" reads the alignments in memory, "b2w" runs the b2w tool on a sorted, indexed BAM`)
		b2w           = cmd.Flags.String("b2w", "b2w", "b2w executable")
		minOverlap    = cmd.Flags.Int("min-overlap", 1, "With -extractor=native, minimum overlap of a read with a window")
		reconstructor = cmd.Flags.String("reconstructor", "java -jar kgem.jar", "Haplotype reconstruction command")
		reads         = cmd.Flags.String("reads", "", "Unaligned reads. If set, they are aligned to the reference with -aligner and the result is used instead of -alignment")
		aligner       = cmd.Flags.String("aligner", "bwa", "Aligner command; its stdout must be SAM")
	)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return fmt.Errorf("run takes no positional arguments, but got %v", argv)
		}
		ctx := vcontext.Background()
		if *reads != "" {
			if *flags.alignment == "" {
				if err := os.MkdirAll(*flags.output, 0755); err != nil {
					return err
				}
				*flags.alignment = filepath.Join(*flags.output, "aligned.sam")
			}
			a := &pipeline.CommandAligner{Command: *aligner, Args: pipeline.DefaultAlignerArgs}
			log.Printf("aligning %s to %s", *reads, *flags.reference)
			if err := a.Align(ctx, *reads, *flags.reference, *flags.alignment); err != nil {
				return err
			}
		}
		opts, err := flags.opts()
		if err != nil {
			return err
		}
		opts.Haplotypes = *haplotypes
		opts.Parallelism = *parallelism
		var b2wExt *pipeline.CommandExtractor
		switch *extractorFlag {
		case "native":
		case "b2w":
			b2wExt = &pipeline.CommandExtractor{Binary: *b2w, BAMPath: opts.AlignmentPath, ReferencePath: opts.ReferencePath}
			if err := b2wExt.Check(ctx); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown extractor %q", *extractorFlag)
		}
		est, err := pipeline.Estimate(ctx, opts)
		if err != nil {
			return err
		}
		var ext pipeline.WindowExtractor = &pipeline.StoreExtractor{Store: est.Store, MinOverlap: *minOverlap}
		if b2wExt != nil {
			ext = b2wExt
		}
		rec := &pipeline.CommandReconstructor{Command: *reconstructor, Args: pipeline.DefaultReconstructorArgs}
		if err := pipeline.Run(ctx, opts, est.Result.Set, ext, rec); err != nil {
			return err
		}
		fmt.Fprintf(env.Stdout, "processed %d intervals in %s\n", est.Result.Set.Len(), opts.OutputDir)
		return nil
	})
	return cmd
}

func main() {
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(&cmdline.Command{
		Name:     "vira-stager",
		Short:    "Amplicon interval estimation for viral read sets",
		LookPath: false,
		Children: []*cmdline.Command{
			newCmdEstimate(),
			newCmdRun(),
		},
	})
}
