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

// notMatch is returned as mismatch fraction when no fraction can be
// computed. It exceeds any valid tolerance.
const notMatch = 1.5

// Config holds the stitching parameters.
type Config struct {
	// MinOverlap is the minimum overlap for stitching normally oriented
	// mates, DovetailOverlap the one for dovetailed mates.
	MinOverlap      int32
	DovetailOverlap int32
	// Dovetail enables stitching of dovetailed mates.
	Dovetail bool
	// Mismatch is the tolerated quality-weighted mismatch fraction of
	// the overlap.
	Mismatch   float64
	QualOffset byte
	MaxQual    byte
}

// Default stitching parameters.
const (
	DefaultMinOverlap      = 20
	DefaultDovetailOverlap = 50
	DefaultMismatch        = 0.1
	DefaultQualOffset      = 33
	DefaultMaxQual         = 40
)

// DefaultConfig returns the default stitching parameters.
func DefaultConfig() Config {
	return Config{
		MinOverlap:      DefaultMinOverlap,
		DovetailOverlap: DefaultDovetailOverlap,
		Mismatch:        DefaultMismatch,
		QualOffset:      DefaultQualOffset,
		MaxQual:         DefaultMaxQual,
	}
}

// A Stitcher merges read pairs. It is safe for concurrent use.
type Stitcher struct {
	Config
}

// NewStitcher returns a stitcher for the given parameters.
func NewStitcher(cfg Config) *Stitcher {
	return &Stitcher{Config: cfg}
}

// FailureKind says why a pair was not stitched.
type FailureKind int

const (
	// Stitched means no failure.
	Stitched FailureKind = iota
	SameStrand
	NoFragment
	OverlapTooShort
	Dovetailed
	TooManyMismatches
)

func (k FailureKind) String() string {
	switch k {
	case Stitched:
		return "stitched"
	case SameStrand:
		return "mates on the same strand"
	case NoFragment:
		return "reverse mate upstream of forward mate"
	case OverlapTooShort:
		return "overlap too short"
	case Dovetailed:
		return "dovetailed"
	case TooManyMismatches:
		return "too many mismatches"
	default:
		return "unknown"
	}
}

// A Result is the outcome of stitching a pair: one fragment on
// success, or the two mates as independent fragments on failure.
type Result struct {
	Fragments  []Fragment
	Failure    FailureKind
	Dovetailed bool
	Overlap    int32
	Mismatch   float64
}

// OK reports whether the pair was stitched.
func (r Result) OK() bool {
	return r.Failure == Stitched
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

func (s *Stitcher) fail(a, b *Mate, kind FailureKind, r Result) Result {
	r.Failure = kind
	r.Fragments = []Fragment{a.Fragment(), b.Fragment()}
	return r
}

// Stitch merges two mates of a pair into one fragment, spanning from
// the 5' end of the forward mate to the 5' end of the reverse mate.
func (s *Stitcher) Stitch(a, b *Mate) Result {
	if a.Reverse == b.Reverse {
		return s.fail(a, b, SameStrand, Result{Mismatch: notMatch})
	}
	fwd, rev := a, b
	if a.Reverse {
		fwd, rev = b, a
	}
	r := Result{
		Dovetailed: rev.Start < fwd.Start || fwd.End > rev.End,
		Overlap:    min32(fwd.End, rev.End) - max32(fwd.Start, rev.Start),
	}
	if r.Overlap <= 0 {
		if rev.End <= fwd.Start {
			r.Mismatch = notMatch
			return s.fail(a, b, NoFragment, r)
		}
	} else {
		required := s.MinOverlap
		if r.Dovetailed {
			required = s.DovetailOverlap
		}
		if r.Overlap < required {
			r.Mismatch = notMatch
			return s.fail(a, b, OverlapTooShort, r)
		}
		if r.Dovetailed && !s.Dovetail {
			r.Mismatch = notMatch
			return s.fail(a, b, Dovetailed, r)
		}
		r.Mismatch = s.MismatchFraction(fwd, rev)
		if r.Mismatch > s.Mismatch {
			return s.fail(a, b, TooManyMismatches, r)
		}
	}
	first := a
	if !a.First && b.First {
		first = b
	}
	r.Fragments = []Fragment{{
		Start:   fwd.Start,
		End:     rev.End,
		Reverse: first.Reverse,
		Paired:  true,
		Name:    a.Name,
		Chrom:   a.Chrom,
	}}
	return r
}

// cost returns the weight of a mismatch between bases with the given
// stored qualities. Higher qualities cost more; a mismatch where a
// quality is missing costs 1.
func (s *Stitcher) cost(qa, qb byte, okA, okB bool) float64 {
	if !okA || !okB {
		return 1
	}
	q := qa
	if qb < q {
		q = qb
	}
	q-- // stored shifted by one
	if q > s.MaxQual {
		q = s.MaxQual
	}
	return (float64(q) + 1) / (float64(s.MaxQual) + 1)
}

func isN(b byte) bool {
	return b == 'N' || b == 'n'
}

func upper(b byte) byte {
	if 'a' <= b && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}

// MismatchFraction returns the quality-weighted mismatch fraction of
// the overlap of two mates. Positions where either mate has no base,
// or an N, never mismatch. It returns notMatch for disjoint mates.
func (s *Stitcher) MismatchFraction(a, b *Mate) float64 {
	start, end := max32(a.Start, b.Start), min32(a.End, b.End)
	if end <= start {
		return notMatch
	}
	var sum float64
	for pos := start; pos < end; pos++ {
		ba, bb := a.base(pos), b.base(pos)
		if ba == 0 || bb == 0 || isN(ba) || isN(bb) || upper(ba) == upper(bb) {
			continue
		}
		qa, okA := a.qual(pos)
		qb, okB := b.qual(pos)
		sum += s.cost(qa, qb, okA, okB)
	}
	return sum / float64(end-start)
}
