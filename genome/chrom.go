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

// Package genome holds the per-chromosome state of a peak calling
// run: chromosome metadata, the coverage tracks of treatment and
// control, and the significance track derived from them.
package genome

import (
	"fmt"

	"github.com/exascience/elpeaks/utils"
)

// A Chrom is a reference sequence together with the data computed for
// it. A Chrom is owned by a single worker at a time.
type Chrom struct {
	Name  utils.Symbol
	Len   int32
	Index int

	// Skip excludes the chromosome from peak calling.
	Skip bool
	// Excluded is set for chromosomes excluded by name. They are also
	// left out of the genome length.
	Excluded bool

	Treat, Ctrl *Pileup
	Diff        []float32
}

func (chrom *Chrom) String() string {
	return utils.Name(chrom.Name)
}

// AllocDiff allocates the significance track, once.
func (chrom *Chrom) AllocDiff() []float32 {
	if chrom.Diff == nil {
		chrom.Diff = make([]float32, chrom.Len)
	}
	return chrom.Diff
}

// Release frees the tracks of the chromosome.
func (chrom *Chrom) Release() {
	chrom.Treat, chrom.Ctrl, chrom.Diff = nil, nil, nil
}

// A Registry holds all chromosomes of a run in header order.
type Registry struct {
	Chroms []*Chrom
	byName map[utils.Symbol]*Chrom
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[utils.Symbol]*Chrom)}
}

// Add registers a chromosome. Registering the same name twice is
// allowed when the lengths agree.
func (r *Registry) Add(name string, length int32) (*Chrom, error) {
	sym := utils.Intern(name)
	if chrom, found := r.byName[sym]; found {
		if chrom.Len != length {
			return nil, &utils.ReferenceError{
				Chrom:  name,
				Detail: fmt.Sprintf("conflicting lengths %v and %v in input headers", chrom.Len, length),
			}
		}
		return chrom, nil
	}
	if length < 0 {
		return nil, &utils.ReferenceError{Chrom: name, Detail: fmt.Sprintf("invalid length %v", length)}
	}
	chrom := &Chrom{Name: sym, Len: length, Index: len(r.Chroms)}
	r.Chroms = append(r.Chroms, chrom)
	r.byName[sym] = chrom
	return chrom, nil
}

// Lookup returns the chromosome with the given name.
func (r *Registry) Lookup(name string) (*Chrom, bool) {
	chrom, found := r.byName[utils.Intern(name)]
	return chrom, found
}

// Get returns the chromosome an alignment refers to, or a
// ReferenceError naming the alignment.
func (r *Registry) Get(name, record string) (*Chrom, error) {
	if chrom, found := r.Lookup(name); found {
		return chrom, nil
	}
	return nil, &utils.ReferenceError{Name: record, Chrom: name}
}

// Exclude marks the named chromosomes as excluded. Unknown names are
// returned.
func (r *Registry) Exclude(names []string) (unknown []string) {
	for _, name := range names {
		if chrom, found := r.Lookup(name); found {
			chrom.Excluded = true
			chrom.Skip = true
		} else {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// Length returns the summed length of all chromosomes that are not
// excluded by name.
func (r *Registry) Length() (length int64) {
	for _, chrom := range r.Chroms {
		if !chrom.Excluded {
			length += int64(chrom.Len)
		}
	}
	return length
}
