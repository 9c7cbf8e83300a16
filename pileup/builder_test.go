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

package pileup

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/exascience/elpeaks/genome"
	"github.com/exascience/elpeaks/utils"
)

func newChrom(length int32) *genome.Chrom {
	return &genome.Chrom{Name: utils.Intern("chrT"), Len: length}
}

type fragment struct{ start, end int32 }

func randomFragments(n int, length int32) []fragment {
	frags := make([]fragment, n)
	for i := range frags {
		start := rand.Int31n(length)
		end := start + rand.Int31n(300)
		if end > length {
			end = length
		}
		frags[i] = fragment{start, end}
	}
	return frags
}

func build(t *testing.T, chrom *genome.Chrom, frags []fragment) *genome.Pileup {
	b := NewBuilder(chrom)
	for _, f := range frags {
		if err := b.Add(f.start, f.end); err != nil {
			t.Fatal(err)
		}
	}
	return b.Build()
}

func pileupsEqual(p1, p2 *genome.Pileup) bool {
	if len(p1.End) != len(p2.End) {
		return false
	}
	for i := range p1.End {
		if p1.End[i] != p2.End[i] || p1.Cov[i] != p2.Cov[i] {
			return false
		}
	}
	return true
}

func TestBuild(t *testing.T) {
	chrom := newChrom(100)
	p := build(t, chrom, []fragment{{10, 30}, {20, 40}, {40, 50}, {60, 60}})
	expected := &genome.Pileup{
		End: []int32{10, 20, 30, 50, 100},
		Cov: []float32{0, 1, 2, 1, 0},
	}
	if !pileupsEqual(p, expected) {
		t.Error("unexpected pileup", p.End, p.Cov)
	}
	if err := p.Validate(chrom.Len); err != nil {
		t.Error(err)
	}
	if full := build(t, chrom, []fragment{{0, 100}, {0, 100}}); !pileupsEqual(full, genome.Flat(100, 2)) {
		t.Error("unexpected pileup for chromosome-wide fragments", full.End, full.Cov)
	}
	if empty := build(t, chrom, nil); !pileupsEqual(empty, genome.Flat(100, 0)) {
		t.Error("unexpected pileup without fragments", empty.End, empty.Cov)
	}
	if err := build(t, newChrom(0), nil).Validate(0); err != nil {
		t.Error(err)
	}
}

func TestAddOutOfBounds(t *testing.T) {
	b := NewBuilder(newChrom(100))
	var inputErr *utils.InputError
	for _, f := range []fragment{{-1, 10}, {90, 101}, {50, 40}} {
		if err := b.Add(f.start, f.end); !errors.As(err, &inputErr) {
			t.Errorf("fragment %v not rejected: %v", f, err)
		}
	}
	if b.Len() != 0 {
		t.Error("rejected fragments were recorded")
	}
}

func TestBuildInvariants(t *testing.T) {
	const length = 100000
	chrom := newChrom(length)
	for round := 0; round < 10; round++ {
		frags := randomFragments(5000, length)
		p := build(t, chrom, frags)
		if err := p.Validate(length); err != nil {
			t.Fatal(err)
		}
		var mass float64
		for _, f := range frags {
			mass += float64(f.end - f.start)
		}
		if p.Mass() != mass {
			t.Errorf("pileup mass %v, expected %v", p.Mass(), mass)
		}
		rand.Shuffle(len(frags), func(i, j int) { frags[i], frags[j] = frags[j], frags[i] })
		if !pileupsEqual(p, build(t, chrom, frags)) {
			t.Error("pileup depends on fragment order")
		}
	}
}

func TestBuildAgainstArray(t *testing.T) {
	const length = 2000
	chrom := newChrom(length)
	frags := randomFragments(500, length)
	depth := make([]float32, length)
	for _, f := range frags {
		for pos := f.start; pos < f.end; pos++ {
			depth[pos]++
		}
	}
	p := build(t, chrom, frags)
	for pos := int32(0); pos < length; pos++ {
		if p.At(pos) != depth[pos] {
			t.Fatalf("coverage at %v is %v, expected %v", pos, p.At(pos), depth[pos])
		}
	}
}

func BenchmarkBuild(b *testing.B) {
	const length = 10000000
	chrom := newChrom(length)
	frags := randomFragments(1000000, length)
	for i := 0; i < b.N; i++ {
		builder := NewBuilder(chrom)
		for _, f := range frags {
			_ = builder.Add(f.start, f.end)
		}
		_ = builder.Build()
	}
}
