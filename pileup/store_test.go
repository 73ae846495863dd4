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
package pileup_test

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/pkg/errors"
	"github.com/quattro/vira-stager/interval"
	"github.com/quattro/vira-stager/pileup"
)

func newRead(id string, start, end int) pileup.Read {
	return pileup.Read{
		ID:    id,
		Start: pileup.PosType(start),
		End:   pileup.PosType(end),
		Bases: []byte(strings.Repeat("A", end-start)),
	}
}

func TestIngest(t *testing.T) {
	ref, err := pileup.LoadReference("ref", []byte(strings.Repeat("ACGT", 5)))
	assert.NoError(t, err)
	store, err := pileup.Ingest(ref, []pileup.Read{
		newRead("c", 4, 10),
		newRead("a", 0, 6),
		newRead("b", 4, 8),
		newRead("out", 15, 21),
		newRead("neg", -1, 3),
		{ID: "empty", Start: 3, End: 3},
		{ID: "short", Start: 2, End: 5, Bases: []byte("AC")},
	})
	assert.NoError(t, err)
	expect.EQ(t, store.TotalReads(), 3)
	expect.EQ(t, store.Len(), 20)
	var ids []string
	for _, r := range store.Reads() {
		ids = append(ids, r.ID)
	}
	expect.EQ(t, ids, []string{"a", "b", "c"})

	want := []int{1, 1, 1, 1, 3, 3, 2, 2, 1, 1, 0, 0}
	for p, d := range want {
		expect.EQ(t, store.DepthAt(pileup.PosType(p)), d, "pos %d", p)
	}
	expect.EQ(t, store.TotalSpan(), int64(6+4+6))
}

func TestIngestEmpty(t *testing.T) {
	ref, err := pileup.LoadReference("ref", []byte("ACGTACGT"))
	assert.NoError(t, err)
	_, err = pileup.Ingest(ref, nil)
	expect.EQ(t, errors.Cause(err), pileup.ErrEmptyInput)
	_, err = pileup.Ingest(ref, []pileup.Read{newRead("x", 4, 12)})
	expect.EQ(t, errors.Cause(err), pileup.ErrEmptyInput)
}

// The depth array sums to the total read span.
func TestDepthConsistency(t *testing.T) {
	const refLen = 1000
	ref, err := pileup.LoadReference("ref", []byte(strings.Repeat("A", refLen)))
	assert.NoError(t, err)
	r := rand.New(rand.NewSource(0))
	var (
		reads []pileup.Read
		span  int64
	)
	for i := 0; i < 500; i++ {
		start := r.Intn(refLen - 1)
		end := start + 1 + r.Intn(refLen-start)
		reads = append(reads, newRead(fmt.Sprintf("r%d", i), start, end))
		span += int64(end - start)
	}
	store, err := pileup.Ingest(ref, reads)
	assert.NoError(t, err)
	var sum int64
	for p := 0; p < refLen; p++ {
		sum += int64(store.DepthAt(pileup.PosType(p)))
	}
	expect.EQ(t, sum, span)
	expect.EQ(t, store.TotalSpan(), span)
}

func TestOverlapping(t *testing.T) {
	ref, err := pileup.LoadReference("ref", []byte(strings.Repeat("A", 100)))
	assert.NoError(t, err)
	store, err := pileup.Ingest(ref, []pileup.Read{
		newRead("a", 0, 50),
		newRead("b", 10, 20),
		newRead("c", 20, 30),
		newRead("d", 45, 100),
		newRead("e", 60, 70),
	})
	assert.NoError(t, err)
	overlapping := func(start, stop int) []string {
		var ids []string
		for _, r := range store.Overlapping(interval.Interval{Start: pileup.PosType(start), Stop: pileup.PosType(stop)}) {
			ids = append(ids, r.ID)
		}
		return ids
	}
	expect.EQ(t, overlapping(20, 40), []string{"a", "c"})
	expect.EQ(t, overlapping(30, 45), []string{"a"})
	expect.EQ(t, overlapping(49, 61), []string{"a", "d", "e"})
	expect.EQ(t, overlapping(0, 100), []string{"a", "b", "c", "d", "e"})
	expect.EQ(t, overlapping(70, 71), []string{"d"})
}
