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

package caller

import (
	"fmt"
	"io"
)

// Counts are the read statistics of one condition.
type Counts struct {
	Reads      int64
	Filtered   int64
	Pairs      int64
	Stitched   int64
	Unstitched int64
	Dovetailed int64
	Unpaired   int64
	Singletons int64
	Fragments  int64
}

// Add adds other to c.
func (c *Counts) Add(other Counts) {
	c.Reads += other.Reads
	c.Filtered += other.Filtered
	c.Pairs += other.Pairs
	c.Stitched += other.Stitched
	c.Unstitched += other.Unstitched
	c.Dovetailed += other.Dovetailed
	c.Unpaired += other.Unpaired
	c.Singletons += other.Singletons
	c.Fragments += other.Fragments
}

// Summary holds the statistics of a run.
type Summary struct {
	RunID           string
	Treatment       Counts
	Control         Counts
	Chroms          int
	SkippedChroms   int
	AvgFragmentLen  float64
	AverageCoverage float64
	ControlScale    float64
	ControlFloor    float64
	GenomeLength    int64
	Peaks           int64
	PeakLength      int64
}

func (c *Counts) fprint(out io.Writer, title string) {
	fmt.Fprintf(out, "%v:\n", title)
	fmt.Fprintf(out, "  alignments read:     %v\n", c.Reads)
	fmt.Fprintf(out, "  alignments filtered: %v\n", c.Filtered)
	fmt.Fprintf(out, "  read pairs:          %v\n", c.Pairs)
	fmt.Fprintf(out, "    stitched:          %v\n", c.Stitched)
	fmt.Fprintf(out, "    not stitched:      %v\n", c.Unstitched)
	fmt.Fprintf(out, "    dovetailed:        %v\n", c.Dovetailed)
	fmt.Fprintf(out, "  unpaired alignments: %v\n", c.Unpaired)
	fmt.Fprintf(out, "  single-end reads:    %v\n", c.Singletons)
	fmt.Fprintf(out, "  fragments:           %v\n", c.Fragments)
}

// Fprint writes a human-readable summary to out.
func (s *Summary) Fprint(out io.Writer, hasControl bool) {
	fmt.Fprintf(out, "run %v\n", s.RunID)
	s.Treatment.fprint(out, "treatment")
	if hasControl {
		s.Control.fprint(out, "control")
	}
	fmt.Fprintf(out, "chromosomes analyzed: %v (%v skipped)\n", s.Chroms, s.SkippedChroms)
	fmt.Fprintf(out, "genome length:        %v\n", s.GenomeLength)
	fmt.Fprintf(out, "avg. fragment length: %.1f\n", s.AvgFragmentLen)
	fmt.Fprintf(out, "avg. coverage:        %.6f\n", s.AverageCoverage)
	if hasControl {
		fmt.Fprintf(out, "control scale:        %.6f\n", s.ControlScale)
		fmt.Fprintf(out, "control floor:        %.6f\n", s.ControlFloor)
	}
	fmt.Fprintf(out, "peaks identified:     %v (%v bp)\n", s.Peaks, s.PeakLength)
}
