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

// Package peaks calls peaks on a significance track.
package peaks

// Config holds the peak calling parameters.
type Config struct {
	// Cutoff is the minimum significance of a peak position.
	Cutoff float32
	// MaxGap is the longest stretch below the cutoff that is bridged
	// between two passing stretches.
	MaxGap int32
	// MinLength is the minimum length of a reported peak.
	MinLength int32
}

// Default peak calling parameters.
const (
	DefaultCutoff    = 2.0
	DefaultMaxGap    = 100
	DefaultMinLength = 0
)

// DefaultConfig returns the default peak calling parameters.
func DefaultConfig() Config {
	return Config{Cutoff: DefaultCutoff, MaxGap: DefaultMaxGap, MinLength: DefaultMinLength}
}

// A Peak is a region of the track. Start is 0-based, End is exclusive.
type Peak struct {
	Start, End int32
	// Max and Mean are taken over the whole region, including bridged
	// gaps.
	Max, Mean float32
	// Summit is the first position with the maximal score.
	Summit int32
}

// Length returns the length of the peak.
func (p Peak) Length() int32 {
	return p.End - p.Start
}

// Area returns the summed significance of the peak.
func (p Peak) Area() float64 {
	return float64(p.Mean) * float64(p.Length())
}

func newPeak(diff []float32, start, end int32) Peak {
	p := Peak{Start: start, End: end, Max: diff[start], Summit: start}
	var sum float64
	for pos := start; pos < end; pos++ {
		v := diff[pos]
		sum += float64(v)
		if v > p.Max {
			p.Max, p.Summit = v, pos
		}
	}
	p.Mean = float32(sum / float64(end-start))
	return p
}

/*
Call returns the peaks of a significance track in order.

Positions scoring at least the cutoff are joined into regions when
the stretch between them is at most MaxGap long. Regions shorter than
MinLength are discarded. A region still open at the end of the track
closes there. An empty track has no peaks.
*/
func Call(diff []float32, cfg Config) (peaks []Peak) {
	start, last := int32(-1), int32(-1)
	emit := func() {
		if end := last + 1; end-start >= cfg.MinLength {
			peaks = append(peaks, newPeak(diff, start, end))
		}
	}
	for i, v := range diff {
		if !(v >= cfg.Cutoff) {
			continue
		}
		pos := int32(i)
		if start >= 0 && pos-last-1 > cfg.MaxGap {
			emit()
			start = -1
		}
		if start < 0 {
			start = pos
		}
		last = pos
	}
	if start >= 0 {
		emit()
	}
	return peaks
}

// TotalLength returns the summed length of the peaks.
func TotalLength(peaks []Peak) (length int64) {
	for _, p := range peaks {
		length += int64(p.Length())
	}
	return length
}
