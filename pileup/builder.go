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

// Package pileup builds run-length encoded coverage tracks from
// fragment intervals.
package pileup

import (
	"fmt"
	"sort"

	psort "github.com/exascience/pargo/sort"

	"github.com/exascience/elpeaks/genome"
	"github.com/exascience/elpeaks/utils"
)

type positionSorter []int32

func (s positionSorter) SequentialSort(i, j int) {
	sub := s[i:j]
	sort.Slice(sub, func(i, j int) bool { return sub[i] < sub[j] })
}

func (s positionSorter) NewTemp() psort.StableSorter {
	return positionSorter(make([]int32, len(s)))
}

func (s positionSorter) Len() int {
	return len(s)
}

func (s positionSorter) Less(i, j int) bool {
	return s[i] < s[j]
}

func (s positionSorter) Assign(source psort.StableSorter) func(i, j, len int) {
	dst, src := s, source.(positionSorter)
	return func(i, j, len int) {
		copy(dst[i:i+len], src[j:j+len])
	}
}

/*
A Builder collects the fragments of one chromosome and condition.

Fragments are recorded as start and end positions only. Build sorts
both position lists and converts them into a compacted track in a
single sweep, so the order in which fragments are added does not
matter.
*/
type Builder struct {
	chrom  *genome.Chrom
	starts []int32
	ends   []int32
}

// NewBuilder returns an empty builder for chrom.
func NewBuilder(chrom *genome.Chrom) *Builder {
	return &Builder{chrom: chrom}
}

// Len returns the number of fragments added so far.
func (b *Builder) Len() int {
	return len(b.starts)
}

// Add records a fragment covering [start, end). Fragments outside the
// chromosome are rejected.
func (b *Builder) Add(start, end int32) error {
	if start < 0 || end < start || end > b.chrom.Len {
		return &utils.InputError{
			Name:   b.chrom.String(),
			Detail: fmt.Sprintf("fragment [%v,%v) outside chromosome of length %v", start, end, b.chrom.Len),
		}
	}
	if start == end {
		return nil
	}
	b.starts = append(b.starts, start)
	b.ends = append(b.ends, end)
	return nil
}

// Build returns the coverage track of all fragments added so far.
func (b *Builder) Build() *genome.Pileup {
	psort.StableSort(positionSorter(b.starts))
	psort.StableSort(positionSorter(b.ends))
	p := &genome.Pileup{}
	var pos, depth int32
	starts, ends := b.starts, b.ends
	for len(starts) > 0 || len(ends) > 0 {
		// every start precedes its end, so ends are never exhausted first
		next := ends[0]
		if len(starts) > 0 && starts[0] < next {
			next = starts[0]
		}
		if next > pos {
			p.Append(next, float32(depth))
			pos = next
		}
		for len(starts) > 0 && starts[0] == next {
			depth++
			starts = starts[1:]
		}
		for len(ends) > 0 && ends[0] == next {
			depth--
			ends = ends[1:]
		}
	}
	p.Append(b.chrom.Len, float32(depth))
	return p
}
