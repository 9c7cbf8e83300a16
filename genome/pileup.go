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

package genome

import (
	"fmt"
	"sort"
)

/*
A Pileup is a run-length encoded coverage track.

Run i covers the 0-based half-open span [End[i-1], End[i]), where the
first run starts at 0, and has coverage Cov[i]. End is strictly
increasing, coverage is never negative, adjacent runs never have the
same coverage, and the last run ends at the chromosome length.
*/
type Pileup struct {
	End []int32
	Cov []float32
}

// Runs returns the number of runs of the track.
func (p *Pileup) Runs() int {
	return len(p.End)
}

// Append adds a run ending at end, merging it into the previous run
// if the coverage is the same. Empty runs are ignored.
func (p *Pileup) Append(end int32, cov float32) {
	n := len(p.End)
	if n > 0 {
		if end <= p.End[n-1] {
			return
		}
		if p.Cov[n-1] == cov {
			p.End[n-1] = end
			return
		}
	} else if end <= 0 {
		return
	}
	p.End = append(p.End, end)
	p.Cov = append(p.Cov, cov)
}

// Start returns the start position of run i.
func (p *Pileup) Start(i int) int32 {
	if i == 0 {
		return 0
	}
	return p.End[i-1]
}

// Validate checks the invariants of the track for a chromosome of the
// given length.
func (p *Pileup) Validate(length int32) error {
	if len(p.End) != len(p.Cov) {
		return fmt.Errorf("pileup has %v run ends but %v coverage values", len(p.End), len(p.Cov))
	}
	if len(p.End) == 0 {
		if length != 0 {
			return fmt.Errorf("empty pileup for chromosome of length %v", length)
		}
		return nil
	}
	var prev int32
	for i, end := range p.End {
		if end <= prev {
			return fmt.Errorf("run %v ends at %v, not after %v", i, end, prev)
		}
		if p.Cov[i] < 0 {
			return fmt.Errorf("run %v has negative coverage %v", i, p.Cov[i])
		}
		if i > 0 && p.Cov[i] == p.Cov[i-1] {
			return fmt.Errorf("runs %v and %v both have coverage %v", i-1, i, p.Cov[i])
		}
		prev = end
	}
	if prev != length {
		return fmt.Errorf("last run ends at %v instead of chromosome length %v", prev, length)
	}
	return nil
}

// At returns the coverage at position pos, or 0 outside the track.
func (p *Pileup) At(pos int32) float32 {
	if pos < 0 {
		return 0
	}
	i := sort.Search(len(p.End), func(i int) bool { return p.End[i] > pos })
	if i == len(p.End) {
		return 0
	}
	return p.Cov[i]
}

// Mass returns the sum of coverage over all positions.
func (p *Pileup) Mass() (mass float64) {
	var start int32
	for i, end := range p.End {
		mass += float64(p.Cov[i]) * float64(end-start)
		start = end
	}
	return mass
}

// Scale multiplies all coverage values by f, which must not be
// negative. Runs that become equal are merged.
func (p *Pileup) Scale(f float32) {
	if len(p.End) == 0 {
		return
	}
	end, cov := p.End, p.Cov
	p.End, p.Cov = end[:0], cov[:0]
	for i := range end {
		p.Append(end[i], cov[i]*f)
	}
}

// Flat returns a track with a single run of the given coverage.
func Flat(length int32, cov float32) *Pileup {
	p := &Pileup{}
	p.Append(length, cov)
	return p
}
