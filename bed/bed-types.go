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

package bed

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/exascience/elpeaks/utils"
)

// Bed is a struct for representing the regions of a BED file, grouped
// by chromosome. See https://genome.ucsc.edu/FAQ/FAQformat.html#format1
type Bed struct {
	RegionMap map[utils.Symbol][]*Region
}

// A Region is a struct for representing intervals as defined in a BED
// file. Start is 0-based, End is exclusive.
type Region struct {
	Chrom  utils.Symbol
	Start  int32
	End    int32
	Name   string
	Score  int
	Strand byte
}

// NewRegion allocates and initializes a new Region. The optional name,
// score, and strand fields are given in order; later fields require
// the earlier ones.
func NewRegion(chrom utils.Symbol, start, end int32, fields []string) (*Region, error) {
	if start < 0 || end < start {
		return nil, fmt.Errorf("invalid BED interval %v-%v", start, end)
	}
	region := &Region{Chrom: chrom, Start: start, End: end, Strand: '.'}
	for i, val := range fields {
		switch i {
		case 0:
			region.Name = val
		case 1:
			score, err := strconv.Atoi(val)
			if err != nil || score < 0 || score > 1000 {
				return nil, fmt.Errorf("invalid Score field: %v", val)
			}
			region.Score = score
		case 2:
			if val != "+" && val != "-" && val != "." {
				return nil, fmt.Errorf("invalid Strand field: %v", val)
			}
			region.Strand = val[0]
		default:
			// thickStart and later fields are not needed
			return region, nil
		}
	}
	return region, nil
}

// NewBed allocates and initializes an empty bed.
func NewBed() *Bed {
	return &Bed{
		RegionMap: make(map[utils.Symbol][]*Region),
	}
}

// AddRegion adds a region to the bed region map.
func (bed *Bed) AddRegion(region *Region) {
	bed.RegionMap[region.Chrom] = append(bed.RegionMap[region.Chrom], region)
}

func (bed *Bed) sortRegions() {
	for _, regions := range bed.RegionMap {
		sort.SliceStable(regions, func(i, j int) bool {
			return regions[i].Start < regions[j].Start
		})
	}
}
