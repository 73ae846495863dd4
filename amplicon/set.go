package amplicon

import (
	"bytes"

	"blainsmith.com/go/seahash"
	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
	"github.com/quattro/vira-stager/interval"
)

// ScoredPartition is a candidate partition and its score.
type ScoredPartition struct {
	Partition interval.Partition
	Score     float64
}

// better reports whether a beats b: higher score, then fewer intervals, then
// the lexicographically smaller start sequence.
func better(a, b ScoredPartition) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if len(a.Partition) != len(b.Partition) {
		return len(a.Partition) < len(b.Partition)
	}
	return a.Partition.Less(b.Partition)
}

// Set is the final, ordered list of non-overlapping amplicon intervals.  It is
// immutable.
type Set struct {
	intervals interval.Partition
	score     float64
}

// Finalize sorts sp's intervals by start and checks that they are
// non-overlapping, at least minLen long, and within [0, refLen).  A violation
// is ErrInvalidArgument.
func Finalize(sp ScoredPartition, refLen, minLen int) (*Set, error) {
	p := make(interval.Partition, len(sp.Partition))
	copy(p, sp.Partition)
	p.Sort()
	if err := p.Validate(refLen, minLen); err != nil {
		return nil, errors.Wrapf(ErrInvalidArgument, "finalize: %v", err)
	}
	return &Set{intervals: p, score: sp.Score}, nil
}

// Len returns the number of intervals.
func (s *Set) Len() int { return len(s.intervals) }

// Score returns the score of the partition the set was built from.
func (s *Set) Score() float64 { return s.score }

// Starts returns the interval starts, in ascending order.
func (s *Set) Starts() []int {
	starts := make([]int, len(s.intervals))
	for i, iv := range s.intervals {
		starts[i] = int(iv.Start)
	}
	return starts
}

// Stops returns the interval stops, parallel to Starts.
func (s *Set) Stops() []int {
	stops := make([]int, len(s.intervals))
	for i, iv := range s.intervals {
		stops[i] = int(iv.Stop)
	}
	return stops
}

// Intervals returns a copy of the intervals.
func (s *Set) Intervals() interval.Partition {
	p := make(interval.Partition, len(s.intervals))
	copy(p, s.intervals)
	return p
}

// Covered returns the total length of the intervals.
func (s *Set) Covered() int {
	n := 0
	for _, iv := range s.intervals {
		n += iv.Len()
	}
	return n
}

// Digest returns the seahash of the canonical text form (see WriteIntervals).
// Equal sets have equal digests.
func (s *Set) Digest() uint64 {
	var buf bytes.Buffer
	if err := WriteIntervals(&buf, s); err != nil {
		log.Panicf("amplicon: digest: %v", err)
	}
	return seahash.Sum64(buf.Bytes())
}

// Scanner iterates over the intervals of a Set.  Usage:
//
//   sc := set.NewScanner()
//   for sc.Scan() {
//     iv := sc.Interval()
//   }
type Scanner struct {
	s   *Set
	idx int
}

// NewScanner creates a Scanner positioned before the first interval.
func (s *Set) NewScanner() *Scanner {
	return &Scanner{s: s, idx: -1}
}

// Scan advances to the next interval.  It returns false at the end.
func (sc *Scanner) Scan() bool {
	if sc.idx+1 >= len(sc.s.intervals) {
		sc.idx = len(sc.s.intervals)
		return false
	}
	sc.idx++
	return true
}

// Index returns the index of the current interval.
func (sc *Scanner) Index() int { return sc.idx }

// Interval returns the current interval.
//
// REQUIRES: the last call to Scan returned true.
func (sc *Scanner) Interval() interval.Interval { return sc.s.intervals[sc.idx] }
