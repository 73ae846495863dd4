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
	"context"

	humanize "github.com/dustin/go-humanize"
	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
)

// Reference is a single linear reference sequence.  It is immutable after
// load and safe for concurrent use.
type Reference struct {
	name       string
	seq        []byte
	nAmbiguous int
}

// LoadReference validates seq and returns it as a Reference.  Symbols are
// upper-cased and U is stored as T; ambiguity codes are preserved.  Empty
// input, or any byte outside the IUPAC nucleotide alphabet, is ErrParse.
func LoadReference(name string, seq []byte) (*Reference, error) {
	if len(seq) == 0 {
		return nil, errors.Wrapf(ErrParse, "reference %s: empty sequence", name)
	}
	if len(seq) > PosTypeMax {
		return nil, errors.Wrapf(ErrParse, "reference %s: length %d exceeds %d", name, len(seq), PosTypeMax)
	}
	r := &Reference{name: name, seq: make([]byte, len(seq))}
	for i, c := range seq {
		seq8 := ASCIIToSeq8Table[c]
		if seq8 == InvalidSeq8 {
			return nil, errors.Wrapf(ErrParse, "reference %s: invalid symbol %q at position %d", name, c, i)
		}
		if IsAmbiguous(seq8) {
			r.nAmbiguous++
		}
		r.seq[i] = Seq8ToASCIITable[seq8]
	}
	return r, nil
}

// ReadReference loads the first sequence of the FASTA file at path.  Any
// further sequences are ignored.
func ReadReference(ctx context.Context, path string) (*Reference, error) {
	fa, err := LoadFa(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(ErrParse, "%s: %v", path, err)
	}
	names := fa.SeqNames()
	if len(names) == 0 {
		return nil, errors.Wrapf(ErrParse, "%s: no sequences", path)
	}
	if len(names) > 1 {
		log.Printf("%s: using %s, ignoring %d other sequence(s)", path, names[0], len(names)-1)
	}
	n, err := fa.Len(names[0])
	if err != nil {
		return nil, errors.Wrapf(ErrParse, "%s: %v", path, err)
	}
	if n == 0 {
		return nil, errors.Wrapf(ErrParse, "%s: sequence %s is empty", path, names[0])
	}
	seq, err := fa.Get(names[0], 0, n)
	if err != nil {
		return nil, errors.Wrapf(ErrParse, "%s: %v", path, err)
	}
	ref, err := LoadReference(names[0], []byte(seq))
	if err != nil {
		return nil, err
	}
	log.Printf("reference %s: %s bases, %s ambiguous", ref.name,
		humanize.Comma(int64(ref.Len())), humanize.Comma(int64(ref.nAmbiguous)))
	return ref, nil
}

// Name returns the sequence name.
func (r *Reference) Name() string { return r.name }

// Len returns the sequence length.
func (r *Reference) Len() int { return len(r.seq) }

// SymbolAt returns the symbol at pos.
//
// REQUIRES: 0 <= pos < Len().
func (r *Reference) SymbolAt(pos PosType) byte { return r.seq[pos] }

// Seq returns the whole sequence.  The caller must not modify it.
func (r *Reference) Seq() []byte { return r.seq }

// NumAmbiguous returns the number of positions holding an ambiguity code.
func (r *Reference) NumAmbiguous() int { return r.nAmbiguous }

// Expand returns the bases the symbol at pos stands for, e.g. "AG" for R.
func (r *Reference) Expand(pos PosType) string { return ExpandSymbol(r.seq[pos]) }
