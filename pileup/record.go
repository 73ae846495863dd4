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
	humanize "github.com/dustin/go-humanize"
	"github.com/grailbio/base/log"
	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
	"github.com/quattro/vira-stager/encoding/bamprovider"
)

// ExcludeFlags lists the SAM flags of records that never become Reads.
const ExcludeFlags = sam.Unmapped | sam.Duplicate | sam.Secondary | sam.QCFail | sam.Supplementary

// ReadFromRecord converts a SAM record to a Read.  It returns ok=false for
// records carrying any of ExcludeFlags, and for records without a CIGAR or a
// sequence.  A CIGAR that disagrees with the sequence length, or that uses an
// unexpected operation, is ErrParse.
func ReadFromRecord(rec *sam.Record) (read Read, ok bool, err error) {
	if rec.Flags&ExcludeFlags != 0 || len(rec.Cigar) == 0 || rec.Seq.Length == 0 || rec.Pos < 0 {
		return Read{}, false, nil
	}
	seq := rec.Seq.Expand()
	span, readLen := rec.Cigar.Lengths()
	if readLen != len(seq) {
		return Read{}, false, errors.Wrapf(ErrParse, "read %s: CIGAR %v covers %d bases, sequence has %d",
			rec.Name, rec.Cigar, readLen, len(seq))
	}
	bases := make([]byte, 0, span)
	posInRead := 0
	for _, co := range rec.Cigar {
		cLen := co.Len()
		switch co.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			bases = append(bases, seq[posInRead:posInRead+cLen]...)
			posInRead += cLen
		case sam.CigarInsertion, sam.CigarSoftClipped:
			// Insertions have no reference position.
			posInRead += cLen
		case sam.CigarSkipped:
			// Same handling as deletion.
			fallthrough
		case sam.CigarDeletion:
			for i := 0; i < cLen; i++ {
				bases = append(bases, GapSymbol)
			}
		case sam.CigarHardClipped, sam.CigarPadded:
			// do nothing
		default:
			return Read{}, false, errors.Wrapf(ErrParse, "read %s: unexpected CIGAR code %v", rec.Name, co)
		}
	}
	start := PosType(rec.Pos)
	return Read{
		ID:    rec.Name,
		Start: start,
		End:   start + PosType(span),
		Bases: bases,
	}, true, nil
}

// IngestProvider reads every record of provider, converts the ones aligned to
// ref, and builds a Store from them.  When the alignment header lists a single
// reference, records are matched to ref regardless of the reference name.
// The provider is closed before returning.
func IngestProvider(ref *Reference, provider bamprovider.Provider) (store *Store, err error) {
	defer func() {
		if e := provider.Close(); e != nil && err == nil {
			err = errors.Wrapf(ErrParse, "alignments: %v", e)
		}
	}()
	header, err := provider.GetHeader()
	if err != nil {
		return nil, errors.Wrapf(ErrParse, "alignment header: %v", err)
	}
	single := len(header.Refs()) == 1
	if hr := bamprovider.RefByName(header, ref.Name()); hr != nil && hr.Len() != ref.Len() {
		log.Printf("reference %s: length %d in alignment header, %d in FASTA", ref.Name(), hr.Len(), ref.Len())
	}
	var (
		reads    []Read
		nRecords int
		nSkipped int
	)
	err = bamprovider.ForEach(provider, func(rec *sam.Record) error {
		nRecords++
		if rec.Ref == nil || (!single && rec.Ref.Name() != ref.Name()) {
			nSkipped++
			return nil
		}
		r, ok, err := ReadFromRecord(rec)
		if err != nil {
			return err
		}
		if !ok {
			nSkipped++
			return nil
		}
		reads = append(reads, r)
		return nil
	})
	if err != nil {
		if errors.Cause(err) == ErrParse {
			return nil, err
		}
		return nil, errors.Wrapf(ErrParse, "alignments: %v", err)
	}
	log.Debug.Printf("alignments: %s records, %s skipped",
		humanize.Comma(int64(nRecords)), humanize.Comma(int64(nSkipped)))
	return Ingest(ref, reads)
}
