package amplicon

import (
	"math"
	"math/rand"
	"sort"

	"github.com/quattro/vira-stager/interval"
	"github.com/quattro/vira-stager/kmer"
	"github.com/quattro/vira-stager/pileup"
)

// segment is a maximal run of covered positions [start, stop) that can be
// tiled by windows of the allowed lengths.  Every position in it has
// depth >= Opts.MinDepth >= 1.
type segment struct {
	start, stop int
	// Range of window counts that can tile the segment.
	nMin, nMax int
}

// landscape is the read-only summary of the inputs shared by all workers.
type landscape struct {
	refLen  int
	minLen  int
	maxLen  int // 0 = unbounded
	flank   int
	covered int // total length of segments

	coverageWeight, diversityWeight, windowCountWeight float64

	// Prefix sums over reference positions: depthSum[p] is the sum of depth[0,p).
	depthSum   []int64
	depthSqSum []float64
	// divSum is the prefix sum of the per-position diversity
	// max(0, distinct-1)/depth.
	divSum []float64

	segments []segment
}

func newLandscape(store *pileup.Store, dict *kmer.Dictionary, opts Opts) *landscape {
	refLen := store.Len()
	l := &landscape{
		refLen:     refLen,
		minLen:     opts.MinWindowLength,
		maxLen:     opts.MaxWindowLength,
		flank:      opts.FlankLength,
		depthSum:   make([]int64, refLen+1),
		depthSqSum: make([]float64, refLen+1),
		divSum:     make([]float64, refLen+1),

		coverageWeight:    opts.CoverageWeight,
		diversityWeight:   opts.DiversityWeight,
		windowCountWeight: opts.WindowCountWeight,
	}
	if l.flank == 0 {
		l.flank = dict.K()
	}
	for p := 0; p < refLen; p++ {
		d := store.DepthAt(pileup.PosType(p))
		l.depthSum[p+1] = l.depthSum[p] + int64(d)
		l.depthSqSum[p+1] = l.depthSqSum[p] + float64(d)*float64(d)
		div := 0.0
		if n := dict.DistinctAt(pileup.PosType(p)); d > 0 && n > 1 {
			div = float64(n-1) / float64(d)
		}
		l.divSum[p+1] = l.divSum[p] + div
	}

	start := -1
	for p := 0; p <= refLen; p++ {
		if p < refLen && store.DepthAt(pileup.PosType(p)) >= opts.MinDepth {
			if start < 0 {
				start = p
			}
			continue
		}
		if start >= 0 {
			l.addSegment(start, p)
			start = -1
		}
	}
	return l
}

func (l *landscape) addSegment(start, stop int) {
	length := stop - start
	nMax := length / l.minLen
	nMin := 1
	if l.maxLen > 0 {
		nMin = (length + l.maxLen - 1) / l.maxLen
	}
	if nMax == 0 || nMin > nMax {
		return
	}
	l.segments = append(l.segments, segment{start: start, stop: stop, nMin: nMin, nMax: nMax})
	l.covered += length
}

// meanDepth returns the mean depth over [start, stop).
func (l *landscape) meanDepth(start, stop int) float64 {
	return float64(l.depthSum[stop]-l.depthSum[start]) / float64(stop-start)
}

// flankDiversity returns the mean per-position diversity around boundary pos.
func (l *landscape) flankDiversity(pos int) float64 {
	start, stop := pos-l.flank, pos+l.flank
	if start < 0 {
		start = 0
	}
	if stop > l.refLen {
		stop = l.refLen
	}
	if stop <= start {
		return 0
	}
	return (l.divSum[stop] - l.divSum[start]) / float64(stop-start)
}

// drawCut picks a position in [lo, hi] with probability proportional to its
// depth.
//
// REQUIRES: lo <= hi, and [lo, hi] lies within a segment.
func (l *landscape) drawCut(rng *rand.Rand, lo, hi int) int {
	base := l.depthSum[lo]
	u := base + rng.Int63n(l.depthSum[hi+1]-base)
	return lo + sort.Search(hi+1-lo, func(i int) bool { return l.depthSum[lo+i+1] > u })
}

// score rates a candidate partition; higher is better.  cuts lists the
// boundaries between adjacent windows of the same segment.
//
// The coverage term sums, over windows, the window's share of the covered
// bases times log(1+mean depth)/(1+coefficient of variation of depth).  The
// diversity term is the mean flank diversity over cuts.  The window-count
// term sums MinWindowLength/length over windows.
func (l *landscape) score(p []interval.Interval, cuts []int) float64 {
	var coverage, count float64
	for _, iv := range p {
		start, stop := int(iv.Start), int(iv.Stop)
		n := float64(stop - start)
		mean := l.meanDepth(start, stop)
		variance := (l.depthSqSum[stop]-l.depthSqSum[start])/n - mean*mean
		if variance < 0 {
			variance = 0
		}
		cv := math.Sqrt(variance) / mean
		coverage += n / float64(l.covered) * math.Log1p(mean) / (1 + cv)
		count += float64(l.minLen) / n
	}
	diversity := 0.0
	if len(cuts) > 0 {
		for _, c := range cuts {
			diversity += l.flankDiversity(c)
		}
		diversity /= float64(len(cuts))
	}
	return l.coverageWeight*coverage - l.diversityWeight*diversity - l.windowCountWeight*count
}
