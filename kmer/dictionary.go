package kmer

import (
	"sort"

	farm "github.com/dgryski/go-farm"
	humanize "github.com/dustin/go-humanize"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/pkg/errors"
	"github.com/quattro/vira-stager/pileup"
)

// The dictionary is physically sharded nShard ways, using farmhash(kmer) to
// pick the shard.  Build fills per-job shards in parallel, then merges each
// shard across jobs in parallel.
const nShard = 64

// Opts controls Build.
type Opts struct {
	// K is the window length.  It must be in [1, MaxK].
	K int
	// Parallelism is the number of reads-splitting jobs.  Values <= 0 mean 1.
	// The result does not depend on it.
	Parallelism int
}

// DefaultOpts is the default Opts.
var DefaultOpts = Opts{
	K:           9,
	Parallelism: 1,
}

// Entry is the dictionary value of one k-mer.
type Entry struct {
	// Count is the number of windows equal to the k-mer, across all reads.
	Count int
	// Positions lists the reference positions the windows started at, sorted
	// and unique.
	Positions []pileup.PosType
}

// Dictionary maps each k-mer seen in a store's reads to its Entry.
type Dictionary struct {
	k        int
	shards   [nShard]map[Kmer]*Entry
	keys     []Kmer
	total    int
	distinct []int32
	nShort   int
}

func hashKmer(k Kmer) uint64 {
	return farm.Hash64WithSeed(nil, uint64(k))
}

func shardOf(k Kmer) int {
	return int(hashKmer(k) % nShard)
}

// Build creates the dictionary of store's reads.  Reads shorter than K are
// skipped.  If no window survives, Build returns pileup.ErrEmptyInput.  A K
// outside [1, MaxK] is pileup.ErrParse.
func Build(store *pileup.Store, opts Opts) (*Dictionary, error) {
	if opts.K <= 0 || opts.K > MaxK {
		return nil, errors.Wrapf(pileup.ErrParse, "kmer length %d must be in [1, %d]", opts.K, MaxK)
	}
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}
	reads := store.Reads()
	if parallelism > len(reads) && len(reads) > 0 {
		parallelism = len(reads)
	}

	type jobResult struct {
		shards [nShard]map[Kmer]*Entry
		nShort int
	}
	jobs := make([]jobResult, parallelism)
	err := traverse.Each(parallelism, func(jobIdx int) error {
		job := &jobs[jobIdx]
		for s := range job.shards {
			job.shards[s] = map[Kmer]*Entry{}
		}
		km := newKmerizer(opts.K)
		startIdx := (jobIdx * len(reads)) / parallelism
		endIdx := ((jobIdx + 1) * len(reads)) / parallelism
		for i := startIdx; i < endIdx; i++ {
			r := &reads[i]
			if len(r.Bases) < opts.K {
				job.nShort++
				continue
			}
			km.Reset(r.Bases)
			for km.Scan() {
				off, kmer := km.Get()
				shard := job.shards[shardOf(kmer)]
				ent := shard[kmer]
				if ent == nil {
					ent = &Entry{}
					shard[kmer] = ent
				}
				ent.Count++
				ent.Positions = append(ent.Positions, r.Start+pileup.PosType(off))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	d := &Dictionary{k: opts.K}
	for i := range jobs {
		d.nShort += jobs[i].nShort
	}
	// Merge shard s of every job.  Job order does not matter since positions
	// are sorted at the end.
	err = traverse.Each(nShard, func(s int) error {
		merged := map[Kmer]*Entry{}
		for j := range jobs {
			for kmer, ent := range jobs[j].shards[s] {
				m := merged[kmer]
				if m == nil {
					merged[kmer] = ent
					continue
				}
				m.Count += ent.Count
				m.Positions = append(m.Positions, ent.Positions...)
			}
			jobs[j].shards[s] = nil
		}
		for _, ent := range merged {
			ent.Positions = sortUnique(ent.Positions)
		}
		d.shards[s] = merged
		return nil
	})
	if err != nil {
		return nil, err
	}

	d.distinct = make([]int32, store.Len())
	for s := range d.shards {
		for kmer, ent := range d.shards[s] {
			d.keys = append(d.keys, kmer)
			d.total += ent.Count
			for _, pos := range ent.Positions {
				d.distinct[pos]++
			}
		}
	}
	sort.Slice(d.keys, func(i, j int) bool { return d.keys[i] < d.keys[j] })
	if d.nShort > 0 {
		log.Printf("kmer: skipped %s reads shorter than %d", humanize.Comma(int64(d.nShort)), opts.K)
	}
	if len(d.keys) == 0 {
		return nil, errors.Wrapf(pileup.ErrEmptyInput, "kmer: no %d-mers in %d reads", opts.K, len(reads))
	}
	log.Printf("kmer: %s distinct %d-mers, %s windows", humanize.Comma(int64(len(d.keys))),
		opts.K, humanize.Comma(int64(d.total)))
	return d, nil
}

func sortUnique(p []pileup.PosType) []pileup.PosType {
	sort.Slice(p, func(i, j int) bool { return p[i] < p[j] })
	n := 0
	for i := range p {
		if i == 0 || p[i] != p[n-1] {
			p[n] = p[i]
			n++
		}
	}
	return p[:n]
}

// K returns the window length.
func (d *Dictionary) K() int { return d.k }

// Lookup returns the entry for kmer.  The caller must not modify it.
func (d *Dictionary) Lookup(kmer Kmer) (Entry, bool) {
	ent, ok := d.shards[shardOf(kmer)][kmer]
	if !ok {
		return Entry{}, false
	}
	return *ent, true
}

// Len returns the number of distinct k-mers.
func (d *Dictionary) Len() int { return len(d.keys) }

// Total returns the number of windows recorded, i.e., the sum of all counts.
func (d *Dictionary) Total() int { return d.total }

// NumShortReads returns the number of reads skipped for being shorter than K.
func (d *Dictionary) NumShortReads() int { return d.nShort }

// DistinctAt returns the number of distinct k-mers with a window starting at
// pos.
func (d *Dictionary) DistinctAt(pos pileup.PosType) int { return int(d.distinct[pos]) }

// Each calls fn for every k-mer in ascending order of encoding, stopping early
// if fn returns false.
func (d *Dictionary) Each(fn func(kmer Kmer, ent Entry) bool) {
	for _, kmer := range d.keys {
		if !fn(kmer, *d.shards[shardOf(kmer)][kmer]) {
			return
		}
	}
}
