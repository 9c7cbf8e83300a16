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
	"log"

	"github.com/exascience/elpeaks/genome"
	"github.com/exascience/elpeaks/internal"
	"github.com/exascience/elpeaks/sam"
	"github.com/exascience/elpeaks/utils"
)

// The two conditions of a run.
const (
	treatment = iota
	control
)

var conditionNames = [2]string{"treatment", "control"}

// A loader reads the input files and groups the accepted alignments
// by chromosome.
type loader struct {
	registry   *genome.Registry
	minMapQ    byte
	qualOffset byte
	jobs       map[*genome.Chrom]*job
	counts     [2]Counts
}

func newLoader(registry *genome.Registry, minMapQ, qualOffset byte) *loader {
	return &loader{
		registry:   registry,
		minMapQ:    minMapQ,
		qualOffset: qualOffset,
		jobs:       make(map[*genome.Chrom]*job),
	}
}

func (l *loader) job(chrom *genome.Chrom) *job {
	j, found := l.jobs[chrom]
	if !found {
		j = &job{chrom: chrom}
		l.jobs[chrom] = j
	}
	return j
}

func (l *loader) accept(aln *sam.Alignment) bool {
	return !aln.IsUnmapped() &&
		!aln.IsSecondary() &&
		!aln.IsSupplementary() &&
		aln.MAPQ >= l.minMapQ
}

// load reads one input file into the given condition.
func (l *loader) load(filename string, cond int) (err error) {
	f, err := sam.Open(filename, l.qualOffset)
	if err != nil {
		return err
	}
	defer internal.Close(f, &err)
	refs, err := f.Header().References()
	if err != nil {
		return &utils.InputError{Name: filename, Detail: "invalid header", Err: err}
	}
	for _, ref := range refs {
		if _, err := l.registry.Add(ref.Name, ref.Len); err != nil {
			return err
		}
	}
	log.Printf("Reading %v alignments from %v.\n", conditionNames[cond], filename)
	counts := &l.counts[cond]
	return f.RunPipeline(func(alns []*sam.Alignment) error {
		for _, aln := range alns {
			counts.Reads++
			if !l.accept(aln) {
				counts.Filtered++
				continue
			}
			chrom, err := l.registry.Get(aln.RNAME, aln.QNAME)
			if err != nil {
				return err
			}
			smp := &l.job(chrom).samples[cond]
			smp.alns = append(smp.alns, aln)
		}
		return nil
	})
}

// sortedJobs returns the jobs of all chromosomes that have treatment
// alignments and are not excluded, in header order. All other
// chromosomes are marked to be skipped.
func (l *loader) sortedJobs() (jobs []*job) {
	for _, chrom := range l.registry.Chroms {
		j, found := l.jobs[chrom]
		switch {
		case chrom.Excluded:
			log.Printf("Skipping excluded chromosome %v.\n", chrom)
		case !found || len(j.samples[treatment].alns) == 0:
			chrom.Skip = true
		default:
			jobs = append(jobs, j)
		}
	}
	return jobs
}
