package amplicon

import (
	"fmt"
	"strings"
	"testing"

	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/quattro/vira-stager/interval"
	"github.com/quattro/vira-stager/kmer"
	"github.com/quattro/vira-stager/pileup"
)

func TestShareOf(t *testing.T) {
	for _, tt := range []struct{ iterations, threads int }{
		{100, 4}, {101, 4}, {3, 8}, {7, 7}, {1000, 13},
	} {
		total := 0
		for i := 0; i < tt.threads; i++ {
			share := shareOf(tt.iterations, tt.threads, i)
			expect.True(t, share == tt.iterations/tt.threads || share == tt.iterations/tt.threads+1)
			if i > 0 {
				expect.True(t, share <= shareOf(tt.iterations, tt.threads, i-1))
			}
			// Adding an iteration never shrinks a share.
			expect.True(t, shareOf(tt.iterations+1, tt.threads, i) >= share)
			total += share
		}
		expect.EQ(t, total, tt.iterations, "%+v", tt)
	}
}

func TestWorkerSeed(t *testing.T) {
	seen := map[int64]bool{}
	for i := 0; i < 64; i++ {
		s := workerSeed(1, i)
		expect.False(t, seen[s], "worker %d", i)
		seen[s] = true
		expect.EQ(t, workerSeed(1, i), s)
	}
	expect.True(t, workerSeed(1, 0) != workerSeed(2, 0))
}

func TestBetter(t *testing.T) {
	p := func(starts ...int) interval.Partition {
		var result interval.Partition
		for _, s := range starts {
			result = append(result, interval.Interval{Start: interval.PosType(s), Stop: interval.PosType(s + 10)})
		}
		return result
	}
	tests := []struct {
		a, b ScoredPartition
		want bool
	}{
		{ScoredPartition{p(0), 2}, ScoredPartition{p(0), 1}, true},
		{ScoredPartition{p(0), 1}, ScoredPartition{p(0), 2}, false},
		{ScoredPartition{p(0), 1}, ScoredPartition{p(0, 20), 1}, true},
		{ScoredPartition{p(0, 20), 1}, ScoredPartition{p(0), 1}, false},
		{ScoredPartition{p(0, 20), 1}, ScoredPartition{p(0, 30), 1}, true},
		{ScoredPartition{p(5, 20), 1}, ScoredPartition{p(0, 30), 1}, false},
		{ScoredPartition{p(0, 20), 1}, ScoredPartition{p(0, 20), 1}, false},
	}
	for i, tt := range tests {
		expect.EQ(t, better(tt.a, tt.b), tt.want, "test %d", i)
	}
}

func newTestLandscape(t *testing.T, depthRuns [][2]int, opts Opts) *landscape {
	refLen := 0
	for _, r := range depthRuns {
		if r[1] > refLen {
			refLen = r[1]
		}
	}
	ref, err := pileup.LoadReference("ref", []byte(strings.Repeat("ACGTTGCA", refLen/8+1)[:refLen]))
	assert.NoError(t, err)
	var reads []pileup.Read
	for i, r := range depthRuns {
		reads = append(reads, pileup.Read{
			ID:    fmt.Sprintf("r%d", i),
			Start: pileup.PosType(r[0]),
			End:   pileup.PosType(r[1]),
			Bases: ref.Seq()[r[0]:r[1]],
		})
	}
	store, err := pileup.Ingest(ref, reads)
	assert.NoError(t, err)
	dict, err := kmer.Build(store, kmer.DefaultOpts)
	assert.NoError(t, err)
	return newLandscape(store, dict, opts)
}

func TestSegments(t *testing.T) {
	opts := DefaultOpts
	opts.MinWindowLength = 100
	opts.MaxWindowLength = 150
	// [0,500) covered once, [600,650) too short, [700,1000) covered twice over
	// [700,800).
	l := newTestLandscape(t, [][2]int{{0, 500}, {600, 650}, {700, 1000}, {700, 800}}, opts)
	expect.EQ(t, l.segments, []segment{
		{start: 0, stop: 500, nMin: 4, nMax: 5},
		{start: 700, stop: 1000, nMin: 2, nMax: 3},
	})
	expect.EQ(t, l.covered, 800)
	expect.EQ(t, l.flank, 9)
	expect.EQ(t, l.meanDepth(700, 800), 2.0)
	expect.EQ(t, l.meanDepth(750, 850), 1.5)
}

// Every sampled candidate tiles each segment with windows of allowed length.
func TestSampler(t *testing.T) {
	opts := DefaultOpts
	opts.MinWindowLength = 100
	opts.MaxWindowLength = 250
	l := newTestLandscape(t, [][2]int{{0, 700}, {100, 300}, {900, 1400}}, opts)
	s := newSampler(l, 99, opts.MaxRejections)
	nOK := 0
	for trial := 0; trial < 200; trial++ {
		windows, cuts, ok := s.sample()
		if !ok {
			continue
		}
		nOK++
		p := interval.Partition(windows)
		assert.NoError(t, p.Validate(1400, opts.MinWindowLength))
		for _, iv := range windows {
			expect.True(t, iv.Len() <= opts.MaxWindowLength, "%v", iv)
		}
		expect.EQ(t, windows[0].Start, interval.PosType(0))
		expect.EQ(t, windows[len(windows)-1].Stop, interval.PosType(1400))
		expect.EQ(t, p.Gaps(1400), []interval.Interval{{Start: 700, Stop: 900}})
		expect.EQ(t, len(cuts), len(windows)-2)
		score := l.score(windows, cuts)
		expect.EQ(t, l.score(windows, cuts), score)
	}
	expect.True(t, nOK > 0)
}
