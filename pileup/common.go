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

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/quattro/vira-stager/encoding/fasta"
	"github.com/quattro/vira-stager/interval"
)

// Common pileup components.

// PosType is the integer type used to represent genomic positions.
type PosType = interval.PosType

// PosTypeMax is the maximum value that can be represented by a PosType.
const PosTypeMax = interval.PosTypeMax

// These constants have two relevant meanings:
// 1. In the .bam seq[] encoding (sam.BaseA, sam.BaseC, etc.), it's the
//    position of the base's set bit, so an ambiguity code's nibble is the OR
//    of the bases it stands for.
// 2. It's the natural value for A/C/G/T in a packed 2-bit representation.
const (
	// BaseA represents an A base.
	BaseA byte = iota
	// BaseC represents an C base.
	BaseC
	// BaseG represents an G base.
	BaseG
	// BaseT represents an T base.
	BaseT
	// BaseX is a catch-all.
	BaseX
)

// NBase is the number of regular base types.
const NBase = 4

// EnumToASCIITable is the A/C/G/T/X -> ASCII mapping, with X rendered as 'N'.
var EnumToASCIITable = [...]byte{'A', 'C', 'G', 'T', 'N'}

// Seq8ToASCIITable is the .bam seq nibble -> ASCII mapping.
var Seq8ToASCIITable = [...]byte{'=', 'A', 'C', 'M', 'G', 'R', 'S', 'V', 'T', 'W', 'Y', 'H', 'K', 'D', 'B', 'N'}

// GapSymbol marks a deleted reference position inside Read.Bases.  It is
// never a reference symbol and never part of a k-mer.
const GapSymbol = '-'

// InvalidSeq8 is the ASCIIToSeq8Table value of bytes outside the nucleotide
// alphabet.
const InvalidSeq8 = 0xff

// ASCIIToSeq8Table is the ASCII -> .bam seq nibble mapping.  It accepts both
// cases, maps U to T, and sends every other byte (including '=' and the gap
// symbol) to InvalidSeq8.
var ASCIIToSeq8Table [256]byte

func init() {
	for i := range ASCIIToSeq8Table {
		ASCIIToSeq8Table[i] = InvalidSeq8
	}
	for nibble, c := range Seq8ToASCIITable {
		if c == '=' {
			continue
		}
		ASCIIToSeq8Table[c] = byte(nibble)
		ASCIIToSeq8Table[c-'A'+'a'] = byte(nibble)
	}
	ASCIIToSeq8Table['U'] = ASCIIToSeq8Table['T']
	ASCIIToSeq8Table['u'] = ASCIIToSeq8Table['T']
}

// IsAmbiguous returns whether the nibble stands for more than one base.
func IsAmbiguous(seq8 byte) bool {
	return seq8&(seq8-1) != 0
}

// ExpandSymbol returns the bases an IUPAC symbol stands for, in ACGT order.
// It returns "" for bytes outside the alphabet.
func ExpandSymbol(c byte) string {
	seq8 := ASCIIToSeq8Table[c]
	if seq8 == InvalidSeq8 {
		return ""
	}
	bases := make([]byte, 0, NBase)
	for b := BaseA; b < BaseX; b++ {
		if seq8&(1<<b) != 0 {
			bases = append(bases, EnumToASCIITable[b])
		}
	}
	return string(bases)
}

// LoadFa is a thin wrapper around fasta.New().  The file is decompressed if
// needed, and sequences are upper-cased with U mapped to T.
func LoadFa(ctx context.Context, fapath string) (fa fasta.Fasta, err error) {
	var infile file.File
	if infile, err = file.Open(ctx, fapath); err != nil {
		return nil, errors.E(err, "open", fapath)
	}
	defer func() {
		if e := infile.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	reader, _ := compress.NewReader(infile.Reader(ctx))
	defer func() {
		if e := reader.Close(); e != nil && err == nil {
			err = e
		}
	}()
	return fasta.New(reader, fasta.OptClean)
}
