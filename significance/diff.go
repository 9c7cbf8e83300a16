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

package significance

import (
	"github.com/willf/bitset"

	"github.com/exascience/elpeaks/genome"
	"github.com/exascience/elpeaks/intervals"
)

// A Model holds the genome-wide values needed to score a chromosome.
type Model struct {
	Scorer Scorer
	// Average is the genome-wide average treatment coverage.
	Average float64
	// Scale multiplies control coverage. It is the ratio of treatment
	// to control mass when control depth is normalized, and 1
	// otherwise.
	Scale float64
	// Floor is the genome-wide average of the scaled control coverage,
	// the lowest expected coverage where there is a control.
	Floor float64
}

/*
NewModel computes the genome-wide background of a run.

Chromosomes without a treatment track are ignored. When genomeLen is
not positive, the summed length of the remaining chromosomes is used
instead.

With normalize set, the control is scaled to the treatment mass, so a
treatment that is a uniform multiple of the control scores 0
everywhere. Without it, control coverage is compared as is.
*/
func NewModel(scorer Scorer, chroms []*genome.Chrom, genomeLen int64, normalize bool) *Model {
	average, ratio := Background(chroms, genomeLen)
	m := &Model{Scorer: scorer, Average: average}
	switch {
	case ratio == 0:
	case normalize:
		m.Scale = ratio
		m.Floor = average
	default:
		m.Scale = 1
		m.Floor = average / ratio
	}
	return m
}

// Background computes the genome-wide average treatment coverage and
// the ratio of treatment to control mass, which is 0 without control
// coverage. Chromosomes without a treatment track are ignored. When
// genomeLen is not positive, the summed length of the remaining
// chromosomes is used instead.
func Background(chroms []*genome.Chrom, genomeLen int64) (average, scale float64) {
	var treat, ctrl float64
	var length int64
	for _, chrom := range chroms {
		if chrom.Treat == nil {
			continue
		}
		treat += chrom.Treat.Mass()
		if chrom.Ctrl != nil {
			ctrl += chrom.Ctrl.Mass()
		}
		length += int64(chrom.Len)
	}
	if genomeLen > 0 {
		length = genomeLen
	}
	if length > 0 {
		average = treat / float64(length)
	}
	if ctrl > 0 {
		scale = treat / ctrl
	}
	return average, scale
}

// A Segment is a stretch of a chromosome with constant treatment and
// expected coverage.
type Segment struct {
	Start, End int32
	Treat      float64
	Expected   float64
	Score      float32
}

// Expected returns the expected coverage for a given control
// coverage: the scaled control, but never below the floor. Without a
// control, it is the genome average.
func (m *Model) Expected(ctrl float64, hasCtrl bool) float64 {
	if !hasCtrl {
		return m.Average
	}
	if e := ctrl * m.Scale; e > m.Floor {
		return e
	}
	return m.Floor
}

func (m *Model) score(observed, expected float64) float32 {
	if observed == 0 && expected == 0 {
		return 0
	}
	return float32(m.Scorer.Score(observed, expected))
}

/*
Compute fills the significance track of chrom and returns its
segments.

The run boundaries of the treatment and control tracks are merged,
each resulting segment is scored once, and the score is copied to all
of its positions. Segments are split at the boundaries of mask, and
masked segments score 0; mask may be nil.
*/
func Compute(chrom *genome.Chrom, m *Model, mask *bitset.BitSet) []Segment {
	if chrom.Treat == nil || chrom.Len == 0 {
		return nil
	}
	diff := chrom.AllocDiff()
	treat, ctrl := chrom.Treat, chrom.Ctrl
	segments := make([]Segment, 0, treat.Runs())
	var pos int32
	i, j := 0, 0
	for pos < chrom.Len {
		end := treat.End[i]
		var c float64
		if ctrl != nil {
			if ctrl.End[j] < end {
				end = ctrl.End[j]
			}
			c = float64(ctrl.Cov[j])
		}
		t := float64(treat.Cov[i])
		seg := Segment{Start: pos, End: end, Treat: t, Expected: m.Expected(c, ctrl != nil)}
		score := m.score(seg.Treat, seg.Expected)
		for seg.Start < end {
			seg.End, seg.Score = end, score
			if mask != nil {
				if mask.Test(uint(seg.Start)) {
					seg.Score = 0
					if next, ok := mask.NextClear(uint(seg.Start)); ok && int32(next) < end {
						seg.End = int32(next)
					}
				} else if next, ok := mask.NextSet(uint(seg.Start)); ok && int32(next) < end {
					seg.End = int32(next)
				}
			}
			for k := seg.Start; k < seg.End; k++ {
				diff[k] = seg.Score
			}
			segments = append(segments, seg)
			seg.Start = seg.End
		}
		pos = end
		if treat.End[i] == end {
			i++
		}
		if ctrl != nil && ctrl.End[j] == end {
			j++
		}
	}
	return segments
}

// NewMask returns a bit set with the positions of the given intervals
// within [0, length) set, or nil when there are none. ivals must be
// flattened and sorted by start.
func NewMask(length int32, ivals []intervals.Interval) *bitset.BitSet {
	ivals = intervals.Intersect(ivals, 0, length)
	if len(ivals) == 0 {
		return nil
	}
	mask := bitset.New(uint(length))
	for _, ival := range ivals {
		start, end := ival.Start, ival.End
		if start < 0 {
			start = 0
		}
		if end > length {
			end = length
		}
		for pos := start; pos < end; pos++ {
			mask.Set(uint(pos))
		}
	}
	return mask
}

// Masked returns the number of positions set in mask.
func Masked(mask *bitset.BitSet) int64 {
	if mask == nil {
		return 0
	}
	return int64(mask.Count())
}
