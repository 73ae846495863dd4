// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package pileup

import (
	"sort"

	"github.com/biogo/store/llrb"
	humanize "github.com/dustin/go-humanize"
	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
	"github.com/quattro/vira-stager/interval"
)

// Read is one aligned read, projected onto the reference: Bases[i] is the
// read's call at reference position Start+i, or GapSymbol when the read
// deletes that position.
type Read struct {
	ID    string
	Start PosType
	End   PosType
	Bases []byte
}

// Len returns End - Start.
func (r *Read) Len() int { return int(r.End - r.Start) }

// Interval returns [Start, End).
func (r *Read) Interval() interval.Interval { return interval.Interval{Start: r.Start, Stop: r.End} }

// Store holds the reads retained for a reference, plus the per-position read
// depth derived from them.  It is read-only after Ingest, and safe for
// concurrent use.
type Store struct {
	ref       *Reference
	reads     []Read
	depth     []int32
	maxLen    PosType
	totalSpan int64
	byStart   llrb.Tree
}

// readKey orders reads in the llrb index.  idx is the position in
// Store.reads, which breaks ties between reads with equal starts.
type readKey struct {
	start PosType
	idx   int
}

// Compare compares two key objects for use in llrb.
func (k readKey) Compare(c llrb.Comparable) int {
	k2 := c.(readKey)
	if k.start != k2.start {
		return int(k.start) - int(k2.start)
	}
	return k.idx - k2.idx
}

// Ingest builds a Store from reads.  Reads outside [0, ref.Len()), empty
// reads, and reads whose Bases do not match their span are dropped.  If no
// read survives, it returns ErrEmptyInput.
func Ingest(ref *Reference, reads []Read) (*Store, error) {
	refLen := PosType(ref.Len())
	s := &Store{ref: ref}
	nDropped := 0
	for _, r := range reads {
		if r.Start < 0 || r.End > refLen || r.Start >= r.End || len(r.Bases) != r.Len() {
			nDropped++
			continue
		}
		s.reads = append(s.reads, r)
	}
	if nDropped > 0 {
		log.Printf("reference %s: dropped %s of %s reads outside [0, %d)", ref.Name(),
			humanize.Comma(int64(nDropped)), humanize.Comma(int64(len(reads))), refLen)
	}
	if len(s.reads) == 0 {
		return nil, errors.Wrapf(ErrEmptyInput, "reference %s: no reads retained", ref.Name())
	}
	sort.Slice(s.reads, func(i, j int) bool {
		a, b := &s.reads[i], &s.reads[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		return a.ID < b.ID
	})

	// Difference array: +1 at Start, -1 at End, then a running sum.
	diff := make([]int32, refLen+1)
	for i := range s.reads {
		r := &s.reads[i]
		diff[r.Start]++
		diff[r.End]--
		s.totalSpan += int64(r.Len())
		if l := r.End - r.Start; l > s.maxLen {
			s.maxLen = l
		}
		s.byStart.Insert(readKey{r.Start, i})
	}
	s.depth = make([]int32, refLen)
	var d int32
	for p := PosType(0); p < refLen; p++ {
		d += diff[p]
		s.depth[p] = d
	}
	log.Printf("reference %s: retained %s reads, %s aligned bases", ref.Name(),
		humanize.Comma(int64(len(s.reads))), humanize.Comma(s.totalSpan))
	return s, nil
}

// Reference returns the reference the store was built against.
func (s *Store) Reference() *Reference { return s.ref }

// Reads returns the retained reads sorted by (Start, End, ID).  The caller must
// not modify them.
func (s *Store) Reads() []Read { return s.reads }

// TotalReads returns the number of retained reads.
func (s *Store) TotalReads() int { return len(s.reads) }

// Len returns the reference length.
func (s *Store) Len() int { return len(s.depth) }

// DepthAt returns the number of reads covering pos.
func (s *Store) DepthAt(pos PosType) int { return int(s.depth[pos]) }

// Depth returns the depth array.  The caller must not modify it.
func (s *Store) Depth() []int32 { return s.depth }

// TotalSpan returns the sum of End-Start over the retained reads.  It equals
// the sum of the depth array.
func (s *Store) TotalSpan() int64 { return s.totalSpan }

// Overlapping returns the reads sharing at least one position with iv, in
// store order.
func (s *Store) Overlapping(iv interval.Interval) []Read {
	var result []Read
	from := readKey{start: iv.Start - s.maxLen, idx: -1}
	to := readKey{start: iv.Stop, idx: -1}
	s.byStart.DoRange(func(c llrb.Comparable) bool {
		r := &s.reads[c.(readKey).idx]
		if r.End > iv.Start {
			result = append(result, *r)
		}
		return false
	}, from, to)
	return result
}
