package kmer

import (
	"github.com/pkg/errors"
	"github.com/quattro/vira-stager/pileup"
)

// MaxK is the longest k-mer that fits in a Kmer.
const MaxK = 16

// Kmer is a compact encoding of a sequence of up to MaxK nucleotide symbols,
// 4 bits per symbol, using the .bam seq nibble encoding so that ambiguity
// codes are representable.  The first symbol occupies the most significant
// used nibble.
type Kmer uint64

// Encode converts s to a Kmer.  Symbols outside the IUPAC alphabet (including
// the gap symbol) are ErrParse, as is a length outside [1, MaxK].
func Encode(s string) (Kmer, error) {
	if len(s) == 0 || len(s) > MaxK {
		return 0, errors.Wrapf(pileup.ErrParse, "kmer %q: length must be in [1, %d]", s, MaxK)
	}
	var k Kmer
	for i := 0; i < len(s); i++ {
		bits := pileup.ASCIIToSeq8Table[s[i]]
		if bits == pileup.InvalidSeq8 {
			return 0, errors.Wrapf(pileup.ErrParse, "kmer %q: invalid symbol %q", s, s[i])
		}
		k = (k << 4) | Kmer(bits)
	}
	return k, nil
}

// String returns the k symbols encoded in km.
func (km Kmer) String(k int) string {
	buf := make([]byte, k)
	for i := k - 1; i >= 0; i-- {
		buf[i] = pileup.Seq8ToASCIITable[km&0xf]
		km >>= 4
	}
	return string(buf)
}

// kmerizer yields every gap-free window of a sequence, in order.  Usage:
//
//   km := newKmerizer(k)
//   km.Reset(seq)
//   for km.Scan() {
//     pos, kmer := km.Get()
//   }
type kmerizer struct {
	k    int
	mask Kmer // ~(~0 << (4*k))

	seq []byte
	si  int // start of the next window
	// cur is the window starting at si-1 when valid is set.
	cur   Kmer
	valid bool
}

func newKmerizer(k int) *kmerizer {
	return &kmerizer{
		k:    k,
		mask: ^(^Kmer(0) << uint(k*4 /*4==#bits per symbol*/)),
	}
}

// encodeWindow returns the encoding of w, or the offset of the last
// unencodable symbol in w.
func encodeWindow(w []byte) (Kmer, int) {
	var k Kmer
	bad := -1
	for i, ch := range w {
		bits := pileup.ASCIIToSeq8Table[ch]
		if bits == pileup.InvalidSeq8 {
			bad = i
			continue
		}
		k = (k << 4) | Kmer(bits)
	}
	return k, bad
}

func (km *kmerizer) Reset(seq []byte) {
	km.seq = seq
	km.si = 0
	km.valid = false
}

func (km *kmerizer) Scan() bool {
	if km.valid && km.si+km.k <= len(km.seq) {
		nextCh := km.seq[km.si+km.k-1]
		if bits := pileup.ASCIIToSeq8Table[nextCh]; bits != pileup.InvalidSeq8 {
			// Fast path. Shift the new symbol into the previous window.
			km.cur = ((km.cur << 4) | Kmer(bits)) & km.mask
			km.si++
			return true
		}
		// Fall through
	}
	km.valid = false
	for km.si+km.k <= len(km.seq) {
		kmer, bad := encodeWindow(km.seq[km.si : km.si+km.k])
		if bad >= 0 {
			km.si += bad + 1
			continue
		}
		km.cur = kmer
		km.si++
		km.valid = true
		return true
	}
	return false
}

// Get returns the offset of the current window in the sequence, and its
// encoding.
func (km *kmerizer) Get() (int, Kmer) { return km.si - 1, km.cur }
