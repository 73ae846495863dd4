package interval

import (
	"fmt"
	"sort"
)

// Interval is the 0-based half-open reference range [Start, Stop).
type Interval struct {
	Start PosType
	Stop  PosType
}

// Len returns Stop - Start.
func (iv Interval) Len() int { return int(iv.Stop - iv.Start) }

// Overlaps returns whether the two intervals share at least one position.
func (iv Interval) Overlaps(start, stop PosType) bool {
	return start < iv.Stop && iv.Start < stop
}

// String returns "start-stop".
func (iv Interval) String() string {
	return fmt.Sprintf("%d-%d", iv.Start, iv.Stop)
}

// Partition is an ordered sequence of intervals.  A valid partition (see
// Validate) is strictly increasing by start and pairwise non-overlapping.
type Partition []Interval

// Sort orders the partition by start, breaking ties by stop.
func (p Partition) Sort() {
	sort.Slice(p, func(i, j int) bool {
		if p[i].Start != p[j].Start {
			return p[i].Start < p[j].Start
		}
		return p[i].Stop < p[j].Stop
	})
}

// Validate checks that p is strictly increasing by start, pairwise
// non-overlapping, that every interval has length >= minLen, and that every
// interval lies within [0, length).
func (p Partition) Validate(length, minLen int) error {
	prevStop := PosType(0)
	for i, iv := range p {
		if iv.Start < 0 || int(iv.Stop) > length {
			return fmt.Errorf("interval.Validate: interval %d (%v) outside [0, %d)", i, iv, length)
		}
		if iv.Start >= iv.Stop {
			return fmt.Errorf("interval.Validate: interval %d (%v) is empty", i, iv)
		}
		if iv.Len() < minLen {
			return fmt.Errorf("interval.Validate: interval %d (%v) shorter than %d", i, iv, minLen)
		}
		if i > 0 && iv.Start < prevStop {
			return fmt.Errorf("interval.Validate: interval %d (%v) overlaps its predecessor (stop %d)", i, iv, prevStop)
		}
		prevStop = iv.Stop
	}
	return nil
}

// Endpoints returns the partition as {start0, stop0, start1, stop1, ...}.
//
// REQUIRES: p is sorted.
func (p Partition) Endpoints() []PosType {
	endpoints := make([]PosType, 0, 2*len(p))
	for _, iv := range p {
		endpoints = append(endpoints, iv.Start, iv.Stop)
	}
	return endpoints
}

// Find returns the index of the interval containing pos, or -1 if pos lies in
// a gap.
//
// REQUIRES: p is valid.
func (p Partition) Find(pos PosType) int {
	ei := NewEndpointIndex(pos, p.Endpoints())
	if !ei.Contained() {
		return -1
	}
	return ei.Interval()
}

// Gaps returns the uncovered stretches of [0, length), in order.
//
// REQUIRES: p is valid.
func (p Partition) Gaps(length int) []Interval {
	var gaps []Interval
	pos := PosType(0)
	for _, iv := range p {
		if iv.Start > pos {
			gaps = append(gaps, Interval{pos, iv.Start})
		}
		pos = iv.Stop
	}
	if int(pos) < length {
		gaps = append(gaps, Interval{pos, PosType(length)})
	}
	return gaps
}

// Equal returns whether p and q hold the same intervals in the same order.
func (p Partition) Equal(q Partition) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// Less orders partitions by their start sequences lexicographically; a
// proper prefix sorts first.
func (p Partition) Less(q Partition) bool {
	for i := 0; i < len(p) && i < len(q); i++ {
		if p[i].Start != q[i].Start {
			return p[i].Start < q[i].Start
		}
	}
	return len(p) < len(q)
}
