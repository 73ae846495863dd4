package amplicon

import (
	"math/rand"
	"sort"

	"github.com/quattro/vira-stager/interval"
)

// sampler draws candidate partitions for one worker.  It is not thread-safe;
// each worker owns one.
type sampler struct {
	l             *landscape
	rng           *rand.Rand
	maxRejections int

	// Scratch space, reused across trials.
	cuts       []int
	windows    []interval.Interval
	boundaries []int
}

func newSampler(l *landscape, seed int64, maxRejections int) *sampler {
	return &sampler{
		l:             l,
		rng:           rand.New(rand.NewSource(seed)),
		maxRejections: maxRejections,
	}
}

// sample draws one candidate: every segment is tiled by windows whose
// boundaries are drawn with probability proportional to depth.  A tiling
// that violates the window length bounds is redrawn; it returns ok=false once
// the trial has been redrawn more than maxRejections times.
//
// The returned slices are owned by the sampler and valid until the next call.
func (s *sampler) sample() (windows []interval.Interval, boundaries []int, ok bool) {
	if len(s.l.segments) == 0 {
		return nil, nil, false
	}
	s.windows = s.windows[:0]
	s.boundaries = s.boundaries[:0]
	rejections := 0
	for _, seg := range s.l.segments {
		for !s.tile(seg) {
			rejections++
			if rejections > s.maxRejections {
				return nil, nil, false
			}
		}
	}
	return s.windows, s.boundaries, true
}

// tile appends one tiling of seg to s.windows, or leaves s.windows unchanged
// and returns false if the drawn cuts violate the length bounds.
func (s *sampler) tile(seg segment) bool {
	l := s.l
	n := seg.nMin + s.rng.Intn(seg.nMax-seg.nMin+1)
	s.cuts = s.cuts[:0]
	for i := 0; i < n-1; i++ {
		s.cuts = append(s.cuts, l.drawCut(s.rng, seg.start+l.minLen, seg.stop-l.minLen))
	}
	sort.Ints(s.cuts)

	mark := len(s.windows)
	prev := seg.start
	for i := 0; i <= len(s.cuts); i++ {
		next := seg.stop
		if i < len(s.cuts) {
			next = s.cuts[i]
		}
		length := next - prev
		if length < l.minLen || (l.maxLen > 0 && length > l.maxLen) {
			s.windows = s.windows[:mark]
			return false
		}
		s.windows = append(s.windows, interval.Interval{Start: interval.PosType(prev), Stop: interval.PosType(next)})
		prev = next
	}
	s.boundaries = append(s.boundaries, s.cuts...)
	return true
}
