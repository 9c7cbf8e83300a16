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
	"math"

	"github.com/exascience/elpeaks/peaks"
	"github.com/exascience/elpeaks/significance"
	"github.com/exascience/elpeaks/stitch"
	"github.com/exascience/elpeaks/utils"
)

// Config holds all parameters of a peak calling run.
type Config struct {
	Stitch stitch.Config
	Peaks  peaks.Config

	// MinMapQ filters alignments with a lower mapping quality.
	MinMapQ byte
	// Scoring names the significance scorer, see significance.NewScorer.
	Scoring string
	// NoControlScaling compares control coverage without normalizing it
	// to the treatment mass.
	NoControlScaling bool
	Threads          int

	ExcludedChroms []string
	// ExcludedRegions is the name of a BED file, or empty.
	ExcludedRegions string

	// KeepUnpaired turns unpaired alignments into fragments.
	KeepUnpaired bool
	// ExtendLength extends single-end and kept unpaired fragments to a
	// fixed length. AvgExtend extends them to the average length of the
	// stitched fragments instead.
	ExtendLength int32
	AvgExtend    bool
}

// DefaultConfig returns the default parameters.
func DefaultConfig() Config {
	return Config{
		Stitch:  stitch.DefaultConfig(),
		Peaks:   peaks.DefaultConfig(),
		Scoring: significance.LLR,
		Threads: 1,
	}
}

// Validate checks the parameters and returns a ParameterError for the
// first invalid one.
func (cfg *Config) Validate() error {
	switch {
	case cfg.Stitch.MinOverlap <= 0:
		return &utils.ParameterError{Parameter: "min-overlap", Value: cfg.Stitch.MinOverlap, Detail: "must be positive"}
	case cfg.Stitch.DovetailOverlap <= 0:
		return &utils.ParameterError{Parameter: "dovetail-overlap", Value: cfg.Stitch.DovetailOverlap, Detail: "must be positive"}
	case math.IsNaN(cfg.Stitch.Mismatch) || cfg.Stitch.Mismatch < 0 || cfg.Stitch.Mismatch >= 1:
		return &utils.ParameterError{Parameter: "mismatch", Value: cfg.Stitch.Mismatch, Detail: "must be in [0, 1)"}
	case cfg.Stitch.MaxQual == 0:
		return &utils.ParameterError{Parameter: "max-quality", Value: cfg.Stitch.MaxQual, Detail: "must be positive"}
	case math.IsNaN(float64(cfg.Peaks.Cutoff)) || cfg.Peaks.Cutoff < 0:
		return &utils.ParameterError{Parameter: "cutoff", Value: cfg.Peaks.Cutoff, Detail: "must not be negative"}
	case cfg.Peaks.MaxGap < 0:
		return &utils.ParameterError{Parameter: "max-gap", Value: cfg.Peaks.MaxGap, Detail: "must not be negative"}
	case cfg.Peaks.MinLength < 0:
		return &utils.ParameterError{Parameter: "min-length", Value: cfg.Peaks.MinLength, Detail: "must not be negative"}
	case cfg.Threads < 1:
		return &utils.ParameterError{Parameter: "nr-of-threads", Value: cfg.Threads, Detail: "must be at least 1"}
	case cfg.ExtendLength < 0:
		return &utils.ParameterError{Parameter: "extend", Value: cfg.ExtendLength, Detail: "must not be negative"}
	case cfg.ExtendLength > 0 && cfg.AvgExtend:
		return &utils.ParameterError{Parameter: "extend", Value: cfg.ExtendLength, Detail: "cannot be combined with extend-average"}
	}
	if _, err := significance.NewScorer(cfg.Scoring); err != nil {
		return &utils.ParameterError{Parameter: "scoring", Value: cfg.Scoring, Detail: "must be llr or poisson"}
	}
	return nil
}
