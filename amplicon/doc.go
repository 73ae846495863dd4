/*Package amplicon chooses the reference intervals ("amplicons") that are
  handed, one at a time, to per-window haplotype reconstruction.

  EstimateParallel runs a randomized search: the requested number of trials is
  split across worker goroutines, each of which samples candidate partitions
  of the covered reference, scores them, and keeps its best.  The per-worker
  bests are then folded into a single Set.  The result depends only on the
  inputs, the iteration and thread counts, and Opts.Seed.
*/
package amplicon
