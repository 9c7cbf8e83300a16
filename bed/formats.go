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

import "strconv"

func appendFloat(out []byte, f float64) []byte {
	return strconv.AppendFloat(out, f, 'f', 6, 64)
}

func appendInterval(out []byte, chrom string, start, end int32) []byte {
	out = append(append(out, chrom...), '\t')
	out = append(strconv.AppendInt(out, int64(start), 10), '\t')
	return strconv.AppendInt(out, int64(end), 10)
}

// AppendNarrowPeak appends a line in ENCODE narrowPeak format. The
// strand is always ".". summit is relative to start; a negative qValue
// is written as -1.
func AppendNarrowPeak(out []byte, chrom string, start, end int32, name string, score int, signal, pValue, qValue float64, summit int32) []byte {
	out = append(appendInterval(out, chrom, start, end), '\t')
	out = append(append(out, name...), '\t')
	out = append(strconv.AppendInt(out, int64(score), 10), "\t.\t"...)
	out = append(appendFloat(out, signal), '\t')
	out = append(appendFloat(out, pValue), '\t')
	if qValue < 0 {
		out = append(out, "-1"...)
	} else {
		out = appendFloat(out, qValue)
	}
	out = append(out, '\t')
	return append(strconv.AppendInt(out, int64(summit), 10), '\n')
}

// AppendBedGraph appends a bedgraph-like line with treatment
// coverage, expected coverage, and score columns.
func AppendBedGraph(out []byte, chrom string, start, end int32, treat, expected, score float64) []byte {
	out = append(appendInterval(out, chrom, start, end), '\t')
	out = append(appendFloat(out, treat), '\t')
	out = append(appendFloat(out, expected), '\t')
	return append(appendFloat(out, score), '\n')
}

// AppendRegion appends a six-column BED line.
func AppendRegion(out []byte, chrom string, start, end int32, name string, score int, strand byte) []byte {
	out = append(appendInterval(out, chrom, start, end), '\t')
	out = append(append(out, name...), '\t')
	out = append(strconv.AppendInt(out, int64(score), 10), '\t')
	return append(out, strand, '\n')
}
