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

// Package significance derives a per-position significance track
// from treatment and control coverage.
package significance

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mathext"
)

// A Scorer rates observed treatment coverage against the expected
// background coverage. Scores are non-negative, 0 when both are 0,
// increasing in observed and decreasing in expected coverage.
type Scorer interface {
	Score(observed, expected float64) float64
}

// LogLikelihoodRatio scores with the Poisson log-likelihood ratio of
// the observed rate against the expected rate, in log10 units. Only
// enrichment is scored; depletion scores 0.
type LogLikelihoodRatio struct{}

// Score implements the Scorer interface.
func (LogLikelihoodRatio) Score(observed, expected float64) float64 {
	if observed <= expected || observed <= 0 {
		return 0
	}
	if expected <= 0 {
		return math.Inf(1)
	}
	return (observed*math.Log(observed/expected) - (observed - expected)) / math.Ln10
}

// Poisson scores with the -log10 upper tail probability of the
// observed coverage under a Poisson distribution with the expected
// coverage as mean.
type Poisson struct{}

// Score implements the Scorer interface.
func (Poisson) Score(observed, expected float64) float64 {
	if observed <= expected || observed <= 0 {
		return 0
	}
	if expected <= 0 {
		return math.Inf(1)
	}
	// P(X >= k) for X ~ Poisson(lambda) is the regularized lower
	// incomplete gamma function P(k, lambda).
	if p := mathext.GammaIncReg(observed, expected); p > 0 {
		return -math.Log10(p)
	}
	// underflow: use the leading term of the tail
	lg, _ := math.Lgamma(observed + 1)
	return -(observed*math.Log(expected) - expected - lg) / math.Ln10
}

// Scorer names accepted by NewScorer.
const (
	LLR         = "llr"
	PoissonName = "poisson"
)

// NewScorer returns the scorer with the given name.
func NewScorer(name string) (Scorer, error) {
	switch name {
	case LLR, "":
		return LogLikelihoodRatio{}, nil
	case PoissonName:
		return Poisson{}, nil
	default:
		return nil, fmt.Errorf("unknown scoring method %v", name)
	}
}
