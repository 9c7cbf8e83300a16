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

// Package caller runs a complete peak calling analysis: it reads the
// treatment and control inputs, stitches read pairs, builds coverage
// tracks, scores them, and writes the peaks.
//
// Chromosomes are processed independently on a bounded number of
// workers, in three phases. Genome-wide values needed by a later
// phase, such as the average fragment length and the background
// coverage, are computed between phases.
package caller

import (
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/exascience/pargo/pipeline"
	"github.com/google/uuid"

	"github.com/exascience/elpeaks/bed"
	"github.com/exascience/elpeaks/genome"
	"github.com/exascience/elpeaks/internal"
	"github.com/exascience/elpeaks/intervals"
	"github.com/exascience/elpeaks/output"
	"github.com/exascience/elpeaks/peaks"
	"github.com/exascience/elpeaks/significance"
	"github.com/exascience/elpeaks/stitch"
	"github.com/exascience/elpeaks/utils"
)

// Sinks are the outputs of a run, each with its own lock. Only Peaks
// is required; nil sinks are not written.
type Sinks struct {
	Peaks      *output.Locked
	Log        *output.Locked
	Unpaired   *output.Locked
	Dovetail   *output.Locked
	Alignments *output.Locked
	Pileup     *output.Locked
}

func (sinks *Sinks) write(sink *output.Locked, what string, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	if _, err := sink.Write(buf); err != nil {
		return &utils.ResourceError{Path: what, Op: "write", Err: err}
	}
	return nil
}

// Close closes all sinks and returns the first error.
func (sinks *Sinks) Close() (err error) {
	for _, sink := range []*output.Locked{sinks.Peaks, sinks.Log, sinks.Unpaired, sinks.Dovetail, sinks.Alignments, sinks.Pileup} {
		if nerr := sink.Close(); err == nil {
			err = nerr
		}
	}
	return err
}

// runPhase runs f on each job, on at most threads workers. When emit
// is not nil, it is called for each job after f, one job at a time and
// in job order.
func runPhase(jobs []*job, threads int, f func(*job) error, emit func(*job) error) error {
	if len(jobs) == 0 {
		return nil
	}
	var p pipeline.Pipeline
	p.Source(jobs)
	p.NofBatches(len(jobs))
	p.Add(pipeline.LimitedPar(threads, pipeline.Receive(func(_ int, data interface{}) interface{} {
		for _, j := range data.([]*job) {
			if err := f(j); err != nil {
				p.SetErr(err)
				break
			}
		}
		return data
	})))
	if emit != nil {
		p.Add(pipeline.StrictOrd(pipeline.Receive(func(_ int, data interface{}) interface{} {
			for _, j := range data.([]*job) {
				if err := emit(j); err != nil {
					p.SetErr(err)
					break
				}
			}
			return data
		})))
	}
	return internal.RunPipeline(&p)
}

// excludedLength returns the number of positions of non-excluded
// chromosomes covered by the excluded regions.
func excludedLength(registry *genome.Registry, excluded map[utils.Symbol][]intervals.Interval) (length int64) {
	for _, chrom := range registry.Chroms {
		if chrom.Excluded {
			continue
		}
		for _, ival := range excluded[chrom.Name] {
			start, end := ival.Start, ival.End
			if start < 0 {
				start = 0
			}
			if end > chrom.Len {
				end = chrom.Len
			}
			if end > start {
				length += int64(end - start)
			}
		}
	}
	return length
}

func narrowPeakScore(max float32) int {
	if !(max < 100) {
		return 1000
	}
	if score := int(10*max + 0.5); score < 1000 {
		return score
	}
	return 1000
}

// Run calls peaks on the given treatment files, compared against the
// given control files, which may be empty. Peaks are written to
// sinks.Peaks in header order and numbered consecutively.
func Run(treatmentFiles, controlFiles []string, cfg Config, sinks *Sinks) (*Summary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(treatmentFiles) == 0 {
		return nil, &utils.ParameterError{Parameter: "treatment", Value: "", Detail: "at least one input file is required"}
	}
	if sinks.Peaks == nil {
		return nil, errors.New("no peaks output")
	}
	scorer, err := significance.NewScorer(cfg.Scoring)
	if err != nil {
		return nil, err
	}
	hasControl := len(controlFiles) > 0
	summary := &Summary{RunID: uuid.New().String()}
	log.Printf("Run %v.\n", summary.RunID)
	if err := sinks.write(sinks.Log, "log", []byte(fmt.Sprintf("# %v %v run %v\n", utils.ProgramName, utils.ProgramVersion, summary.RunID))); err != nil {
		return nil, err
	}

	registry := genome.NewRegistry()
	l := newLoader(registry, cfg.MinMapQ, cfg.Stitch.QualOffset)
	for _, name := range treatmentFiles {
		if err := l.load(name, treatment); err != nil {
			return nil, err
		}
	}
	for _, name := range controlFiles {
		if err := l.load(name, control); err != nil {
			return nil, err
		}
	}
	for _, name := range registry.Exclude(cfg.ExcludedChroms) {
		log.Printf("Warning: excluded chromosome %v not found in input headers.\n", name)
	}
	var excluded map[utils.Symbol][]intervals.Interval
	if cfg.ExcludedRegions != "" {
		if excluded, err = intervals.FromBedFile(cfg.ExcludedRegions); err != nil {
			return nil, err
		}
	}
	jobs := l.sortedJobs()
	summary.Chroms = len(jobs)
	summary.SkippedChroms = len(registry.Chroms) - len(jobs)
	summary.GenomeLength = registry.Length() - excludedLength(registry, excluded)

	stitcher := stitch.NewStitcher(cfg.Stitch)
	log.Println("Stitching read pairs.")
	if err := runPhase(jobs, cfg.Threads, func(j *job) error {
		return j.stitch(stitcher, cfg.KeepUnpaired, sinks)
	}, nil); err != nil {
		return nil, err
	}

	var stitchedLen, stitched int64
	for _, j := range jobs {
		for cond := range j.samples {
			stitchedLen += j.samples[cond].stitchedLen
			stitched += j.samples[cond].counts.Stitched
		}
	}
	if stitched > 0 {
		summary.AvgFragmentLen = float64(stitchedLen) / float64(stitched)
	}
	extendLen := cfg.ExtendLength
	if cfg.AvgExtend {
		if stitched == 0 {
			log.Println("Warning: no stitched fragments, single-end fragments are not extended.")
		}
		extendLen = int32(summary.AvgFragmentLen + 0.5)
	}

	log.Println("Building pileups.")
	if err := runPhase(jobs, cfg.Threads, func(j *job) error {
		return j.pileup(extendLen, hasControl, sinks)
	}, nil); err != nil {
		return nil, err
	}

	chroms := make([]*genome.Chrom, 0, len(jobs))
	for _, j := range jobs {
		chroms = append(chroms, j.chrom)
	}
	model := significance.NewModel(scorer, chroms, summary.GenomeLength, !cfg.NoControlScaling)
	summary.AverageCoverage, summary.ControlScale, summary.ControlFloor = model.Average, model.Scale, model.Floor

	log.Println("Calling peaks.")
	if err := runPhase(jobs, cfg.Threads, func(j *job) error {
		j.call(model, cfg.Peaks, excluded)
		return nil
	}, func(j *job) error {
		return summary.emit(j, sinks)
	}); err != nil {
		return nil, err
	}

	for _, j := range jobs {
		summary.Treatment.Add(j.samples[treatment].counts)
		summary.Control.Add(j.samples[control].counts)
	}
	summary.Treatment.Reads += l.counts[treatment].Reads
	summary.Treatment.Filtered += l.counts[treatment].Filtered
	summary.Control.Reads += l.counts[control].Reads
	summary.Control.Filtered += l.counts[control].Filtered
	if sinks.Log.Enabled() {
		summary.Fprint(sinks.Log, hasControl)
	}
	return summary, nil
}

// emit writes the results of a job. It is called in chromosome order.
func (summary *Summary) emit(j *job, sinks *Sinks) error {
	name := j.chrom.String()
	buf := internal.ReserveByteBuffer()
	defer func() { internal.ReleaseByteBuffer(buf) }()
	for _, pk := range j.peaks {
		summary.Peaks++
		summary.PeakLength += int64(pk.Length())
		buf = bed.AppendNarrowPeak(buf, name, pk.Start, pk.End,
			"peak_"+strconv.FormatInt(summary.Peaks-1, 10), narrowPeakScore(pk.Max),
			pk.Area(), float64(pk.Max), -1, pk.Summit-pk.Start)
	}
	if err := sinks.write(sinks.Peaks, "peaks output", buf); err != nil {
		return err
	}
	if sinks.Pileup.Enabled() {
		buf = buf[:0]
		for _, seg := range j.segments {
			buf = bed.AppendBedGraph(buf, name, seg.Start, seg.End, seg.Treat, seg.Expected, float64(seg.Score))
		}
		if err := sinks.write(sinks.Pileup, "pileup output", buf); err != nil {
			return err
		}
	}
	line := fmt.Sprintf("%v\t%v\t%v\t%v\n", name, j.chrom.Len, len(j.peaks), peaks.TotalLength(j.peaks))
	if err := sinks.write(sinks.Log, "log", []byte(line)); err != nil {
		return err
	}
	j.segments, j.peaks = nil, nil
	j.chrom.Release()
	return nil
}
