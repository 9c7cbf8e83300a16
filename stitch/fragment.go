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

package stitch

import "github.com/exascience/elpeaks/genome"

// A Fragment is a sequenced fragment on a chromosome, either a
// stitched read pair or a single alignment. Start and End are
// 0-based, End is exclusive.
type Fragment struct {
	Start, End int32
	Reverse    bool
	Paired     bool
	Name       string
	Chrom      *genome.Chrom
}

// Len returns the length of the fragment.
func (f Fragment) Len() int32 {
	return f.End - f.Start
}

// Extend lengthens a single-end fragment in its read direction to the
// given length, clipped to the chromosome. Fragments that are already
// long enough, and non-positive lengths, leave the fragment unchanged.
func Extend(f Fragment, length, chromLen int32) Fragment {
	if length <= 0 || f.Len() >= length {
		return f
	}
	if f.Reverse {
		if f.Start = f.End - length; f.Start < 0 {
			f.Start = 0
		}
	} else {
		if f.End = f.Start + length; f.End > chromLen {
			f.End = chromLen
		}
	}
	return f
}
