package amplicon

import (
	"context"
	"encoding/binary"

	farm "github.com/dgryski/go-farm"
	humanize "github.com/dustin/go-humanize"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/pkg/errors"
	"github.com/quattro/vira-stager/interval"
	"github.com/quattro/vira-stager/kmer"
	"github.com/quattro/vira-stager/pileup"
)

// WorkerStatus is the final state of one search worker.
type WorkerStatus int

const (
	// NoCandidate means the worker never produced a valid partition.  It does
	// not participate in aggregation.
	NoCandidate WorkerStatus = iota
	// LocalBest means the worker reports its best partition.
	LocalBest
)

// String returns "NO_CANDIDATE" or "LOCAL_BEST".
func (s WorkerStatus) String() string {
	if s == LocalBest {
		return "LOCAL_BEST"
	}
	return "NO_CANDIDATE"
}

// WorkerReport summarizes one worker's search.
type WorkerReport struct {
	Index int
	// Share is the number of trials assigned to the worker.
	Share int
	// Trials is the number of trials run.  It is below Share only if the
	// search was cancelled.
	Trials int
	// Rejected is the number of trials that exhausted the resampling bound.
	Rejected int
	Status   WorkerStatus
	// Best is the score of the worker's best partition, if Status==LocalBest.
	Best float64
}

// Result is the outcome of EstimateParallel.
type Result struct {
	Set   *Set
	Score float64
	// Trials and Rejected are summed over workers.
	Trials, Rejected int
	// Workers is indexed by worker.
	Workers []WorkerReport
	// Cancelled is set if the context was cancelled before every worker
	// finished its share.  Set is then the best partition seen so far.
	Cancelled bool
}

// workerResult is what a worker sends to the aggregator.
type workerResult struct {
	report WorkerReport
	best   ScoredPartition
}

// shareOf returns the number of trials of worker i: iterations are split
// evenly, and the remainder goes to the lowest-indexed workers.
func shareOf(iterations, threads, i int) int {
	share := iterations / threads
	if i < iterations%threads {
		share++
	}
	return share
}

// workerSeed derives the random seed of worker i from the base seed.
func workerSeed(seed int64, i int) int64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(i))
	return int64(farm.Hash64WithSeed(buf[:], uint64(seed)))
}

// EstimateParallel searches for the best partition of the covered parts of
// the reference.  It runs iterations trials split across threads workers and
// blocks until every worker is done.
//
// It returns ErrInvalidArgument if iterations or threads is not positive or
// opts are invalid, before any work starts, and *LowCoverageError if no worker
// found a valid partition.  ctx is checked between trials; on cancellation
// each worker stops and reports its best so far.  If no worker has a
// candidate by then, the context's error is returned.
//
// The result depends only on the inputs, iterations, threads, and opts.
func EstimateParallel(ctx context.Context, ref *pileup.Reference, store *pileup.Store, dict *kmer.Dictionary,
	iterations, threads int, opts Opts) (*Result, error) {
	if iterations <= 0 || threads <= 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "iterations (%d) and threads (%d) must be positive",
			iterations, threads)
	}
	if ref == nil || store == nil || dict == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "missing reference, store or dictionary")
	}
	if store.Len() != ref.Len() {
		return nil, errors.Wrapf(ErrInvalidArgument, "store length %d differs from reference length %d",
			store.Len(), ref.Len())
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	l := newLandscape(store, dict, opts)
	log.Printf("amplicon: %s trials on %d workers; %d segment(s), %s of %s bases eligible",
		humanize.Comma(int64(iterations)), threads, len(l.segments),
		humanize.Comma(int64(l.covered)), humanize.Comma(int64(l.refLen)))

	results := make(chan workerResult, threads)
	err := traverse.Each(threads, func(i int) error {
		results <- search(ctx, l, i, shareOf(iterations, threads, i), opts)
		return nil
	})
	close(results)
	if err != nil {
		return nil, err
	}

	// Index by worker so completion order does not matter.
	byWorker := make([]workerResult, threads)
	for r := range results {
		byWorker[r.report.Index] = r
	}
	res := &Result{Workers: make([]WorkerReport, threads)}
	var (
		best  ScoredPartition
		found bool
	)
	for i, r := range byWorker {
		res.Workers[i] = r.report
		res.Trials += r.report.Trials
		res.Rejected += r.report.Rejected
		if r.report.Trials < r.report.Share {
			res.Cancelled = true
		}
		if r.report.Status != LocalBest {
			continue
		}
		if !found || better(r.best, best) {
			best, found = r.best, true
		}
	}
	if !found {
		if res.Cancelled && ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), "amplicon search cancelled")
		}
		reason := "every trial exhausted the resampling bound"
		if len(l.segments) == 0 {
			reason = "no stretch of " + humanize.Comma(int64(opts.MinWindowLength)) +
				" or more bases has the minimum depth"
		}
		return nil, &LowCoverageError{
			Iterations: iterations,
			Threads:    threads,
			Rejected:   res.Rejected,
			Segments:   len(l.segments),
			Reason:     reason,
		}
	}
	set, err := Finalize(best, ref.Len(), opts.MinWindowLength)
	if err != nil {
		log.Panicf("amplicon: search produced an invalid partition: %v", err)
	}
	res.Set, res.Score = set, best.Score
	log.Printf("amplicon: %d intervals, score %.6g, %s bases; %s of %s trials rejected; digest %016x",
		set.Len(), best.Score, humanize.Comma(int64(set.Covered())),
		humanize.Comma(int64(res.Rejected)), humanize.Comma(int64(res.Trials)), set.Digest())
	return res, nil
}

// search runs one worker's share of trials.
func search(ctx context.Context, l *landscape, index, share int, opts Opts) workerResult {
	s := newSampler(l, workerSeed(opts.Seed, index), opts.MaxRejections)
	r := workerResult{report: WorkerReport{Index: index, Share: share}}
	for trial := 0; trial < share; trial++ {
		if ctx.Err() != nil {
			break
		}
		r.report.Trials++
		windows, cuts, ok := s.sample()
		if !ok {
			r.report.Rejected++
			continue
		}
		candidate := ScoredPartition{Partition: windows, Score: l.score(windows, cuts)}
		if r.report.Status == NoCandidate || better(candidate, r.best) {
			r.best = ScoredPartition{
				Partition: append(interval.Partition(nil), windows...),
				Score:     candidate.Score,
			}
			r.report.Status = LocalBest
			r.report.Best = candidate.Score
		}
	}
	log.Debug.Printf("amplicon: worker %d: %d/%d trials, %d rejected, %v %.6g",
		index, r.report.Trials, share, r.report.Rejected, r.report.Status, r.report.Best)
	return r
}
