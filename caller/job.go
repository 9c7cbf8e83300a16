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
	"github.com/exascience/pargo/parallel"

	"github.com/exascience/elpeaks/bed"
	"github.com/exascience/elpeaks/genome"
	"github.com/exascience/elpeaks/internal"
	"github.com/exascience/elpeaks/intervals"
	"github.com/exascience/elpeaks/peaks"
	"github.com/exascience/elpeaks/pileup"
	"github.com/exascience/elpeaks/sam"
	"github.com/exascience/elpeaks/significance"
	"github.com/exascience/elpeaks/stitch"
	"github.com/exascience/elpeaks/utils"
)

// A sample holds the data of one condition on one chromosome.
type sample struct {
	alns []*sam.Alignment
	// frags are final fragments, extend are single-end fragments that
	// still need to be extended.
	frags  []stitch.Fragment
	extend []stitch.Fragment
	counts Counts
	// summed length of the stitched fragments
	stitchedLen int64
}

// A job is the work for one chromosome. Each phase of a run handles a
// job on a single worker.
type job struct {
	chrom    *genome.Chrom
	samples  [2]sample
	segments []significance.Segment
	peaks    []peaks.Peak
}

func strand(reverse bool) byte {
	if reverse {
		return '-'
	}
	return '+'
}

// pair matches the mates of a sample and stitches them.
func (smp *sample) pair(chrom *genome.Chrom, s *stitch.Stitcher, keepUnpaired bool, sinks *Sinks) (err error) {
	unpairedBuf := internal.ReserveByteBuffer()
	dovetailBuf := internal.ReserveByteBuffer()
	defer func() {
		if err == nil {
			err = sinks.write(sinks.Unpaired, "unpaired report", unpairedBuf)
		}
		if err == nil {
			err = sinks.write(sinks.Dovetail, "dovetail report", dovetailBuf)
		}
		internal.ReleaseByteBuffer(unpairedBuf)
		internal.ReleaseByteBuffer(dovetailBuf)
	}()

	unpaired := func(m *stitch.Mate) {
		smp.counts.Unpaired++
		if sinks.Unpaired.Enabled() {
			unpairedBuf = m.Aln.Format(unpairedBuf)
		}
		if keepUnpaired {
			smp.extend = append(smp.extend, m.Fragment())
		}
	}

	table := stitch.NewMateTable()
	for _, aln := range smp.alns {
		mate, err := s.NewMate(aln, chrom)
		if err != nil {
			return err
		}
		switch {
		case !aln.IsMultiple():
			smp.counts.Singletons++
			smp.extend = append(smp.extend, mate.Fragment())
		case aln.IsNextUnmapped() || aln.MateChrom() != aln.RNAME:
			unpaired(mate)
		default:
			a, b, paired, err := table.Add(mate)
			if err != nil {
				return err
			}
			if !paired {
				continue
			}
			smp.counts.Pairs++
			r := s.Stitch(a, b)
			if r.Dovetailed {
				smp.counts.Dovetailed++
				if sinks.Dovetail.Enabled() {
					dovetailBuf = b.Aln.Format(a.Aln.Format(dovetailBuf))
				}
			}
			if r.OK() {
				smp.counts.Stitched++
				smp.stitchedLen += int64(r.Fragments[0].Len())
			} else {
				smp.counts.Unstitched++
			}
			smp.frags = append(smp.frags, r.Fragments...)
		}
	}
	for _, m := range table.Flush() {
		unpaired(m)
	}
	smp.alns = nil
	return nil
}

// build turns the fragments of a sample into a coverage track.
func (smp *sample) build(chrom *genome.Chrom, extendLen int32, sinks *Sinks) (p *genome.Pileup, err error) {
	builder := pileup.NewBuilder(chrom)
	buf := internal.ReserveByteBuffer()
	defer internal.ReleaseByteBuffer(buf)
	add := func(f stitch.Fragment) error {
		if err := builder.Add(f.Start, f.End); err != nil {
			return err
		}
		smp.counts.Fragments++
		if sinks.Alignments.Enabled() {
			buf = bed.AppendRegion(buf, chrom.String(), f.Start, f.End, f.Name, 0, strand(f.Reverse))
		}
		return nil
	}
	for _, f := range smp.frags {
		if err := add(f); err != nil {
			return nil, err
		}
	}
	for _, f := range smp.extend {
		if err := add(stitch.Extend(f, extendLen, chrom.Len)); err != nil {
			return nil, err
		}
	}
	smp.frags, smp.extend = nil, nil
	if err := sinks.write(sinks.Alignments, "alignment report", buf); err != nil {
		return nil, err
	}
	return builder.Build(), nil
}

// stitch is the first phase of a job.
func (j *job) stitch(s *stitch.Stitcher, keepUnpaired bool, sinks *Sinks) error {
	for cond := range j.samples {
		if err := j.samples[cond].pair(j.chrom, s, keepUnpaired, sinks); err != nil {
			return err
		}
	}
	return nil
}

// pileup is the second phase of a job. The control track is only
// built when the run has control inputs.
func (j *job) pileup(extendLen int32, hasControl bool, sinks *Sinks) error {
	var treatErr, ctrlErr error
	parallel.Do(
		func() {
			j.chrom.Treat, treatErr = j.samples[treatment].build(j.chrom, extendLen, sinks)
		},
		func() {
			if hasControl {
				j.chrom.Ctrl, ctrlErr = j.samples[control].build(j.chrom, extendLen, sinks)
			}
		},
	)
	if treatErr != nil {
		return treatErr
	}
	return ctrlErr
}

// call is the third phase of a job.
func (j *job) call(model *significance.Model, cfg peaks.Config, excluded map[utils.Symbol][]intervals.Interval) {
	mask := significance.NewMask(j.chrom.Len, excluded[j.chrom.Name])
	j.segments = significance.Compute(j.chrom, model, mask)
	j.peaks = peaks.Call(j.chrom.Diff, cfg)
}
