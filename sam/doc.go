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

// Package sam decodes SAM and BAM files into Alignment records for the
// peak caller.
//
// Only the fields needed for pairing, stitching, and pileup
// construction are kept: read name, flags, reference name, position,
// mapping quality, CIGAR, mate reference, sequence, and base
// qualities. Optional fields are skipped while parsing.
//
// SAM files may be plain text or gzip compressed. BAM files are
// decoded with github.com/biogo/hts. In both cases, records are read
// through a pargo pipeline, so that parsing runs in parallel with the
// consumer. See https://godoc.org/github.com/ExaScience/pargo/pipeline
// for details of pargo pipelines.
package sam
