// elPeaks: a high-performance tool for calling peaks from SAM/BAM files.
// Copyright (c) 2020 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elpeaks/blob/master/LICENSE.txt>.

// Package stitch pairs mate alignments and merges overlapping mates
// into single fragments.
package stitch

import (
	"fmt"

	"github.com/exascience/elpeaks/genome"
	"github.com/exascience/elpeaks/sam"
	"github.com/exascience/elpeaks/utils"
)

// A Mate is one alignment of a read pair, projected onto reference
// coordinates.
type Mate struct {
	Name       string
	Start, End int32
	Reverse    bool
	First      bool
	Last       bool

	// Bases and Quals are indexed by reference position minus Start.
	// Deleted and skipped reference positions hold 0. Either may be nil
	// when the record has no sequence or no qualities.
	Bases []byte
	Quals []byte

	Chrom *genome.Chrom
	Aln   *sam.Alignment
}

// Len returns the number of reference positions the mate covers.
func (m *Mate) Len() int32 {
	return m.End - m.Start
}

func (m *Mate) base(pos int32) byte {
	if m.Bases == nil {
		return 0
	}
	return m.Bases[pos-m.Start]
}

func (m *Mate) qual(pos int32) (byte, bool) {
	if m.Quals == nil {
		return 0, false
	}
	q := m.Quals[pos-m.Start]
	return q, q != 0
}

// Fragment returns the mate as a single-end fragment.
func (m *Mate) Fragment() Fragment {
	return Fragment{
		Start:   m.Start,
		End:     m.End,
		Reverse: m.Reverse,
		Name:    m.Name,
		Chrom:   m.Chrom,
	}
}

// NewMate projects an alignment onto the reference. Quality
// characters are checked against the configured offset. The mate must
// lie within chrom when chrom is not nil.
func (s *Stitcher) NewMate(aln *sam.Alignment, chrom *genome.Chrom) (*Mate, error) {
	m := &Mate{
		Name:    aln.QNAME,
		Start:   aln.Start(),
		End:     aln.End(),
		Reverse: aln.IsReversed(),
		First:   aln.IsFirst(),
		Last:    aln.IsLast(),
		Chrom:   chrom,
		Aln:     aln,
	}
	if m.Start < 0 || m.End < m.Start || (chrom != nil && m.End > chrom.Len) {
		return nil, &utils.InputError{
			Name:   aln.QNAME,
			Detail: fmt.Sprintf("alignment [%v,%v) outside of %v", m.Start, m.End, aln.RNAME),
		}
	}
	if aln.SEQ == "*" || aln.SEQ == "" {
		return m, nil
	}
	hasQuals := aln.QUAL != "*" && aln.QUAL != ""
	m.Bases = make([]byte, m.Len())
	if hasQuals {
		m.Quals = make([]byte, m.Len())
	}
	var readPos, refPos int32
	for _, op := range aln.CIGAR {
		switch {
		case sam.OperatorConsumesReadBases(op.Operation) && sam.OperatorConsumesReferenceBases(op.Operation):
			copy(m.Bases[refPos:refPos+op.Length], aln.SEQ[readPos:readPos+op.Length])
			if hasQuals {
				for i := int32(0); i < op.Length; i++ {
					c := aln.QUAL[readPos+i]
					if c < s.QualOffset {
						return nil, &utils.InputError{
							Name:   aln.QNAME,
							Detail: fmt.Sprintf("quality character %q below offset %v", c, s.QualOffset),
						}
					}
					// stored shifted by one, so that 0 means no quality
					m.Quals[refPos+i] = c - s.QualOffset + 1
				}
			}
			readPos += op.Length
			refPos += op.Length
		case sam.OperatorConsumesReadBases(op.Operation):
			readPos += op.Length
		case sam.OperatorConsumesReferenceBases(op.Operation):
			refPos += op.Length
		}
	}
	return m, nil
}
