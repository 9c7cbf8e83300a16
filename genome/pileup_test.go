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

package genome

import (
	"errors"
	"testing"

	"github.com/exascience/elpeaks/utils"
)

func TestPileupAppend(t *testing.T) {
	var p Pileup
	p.Append(0, 1)
	p.Append(10, 0)
	p.Append(20, 2)
	p.Append(20, 3)
	p.Append(30, 2)
	p.Append(40, 1)
	if err := p.Validate(40); err != nil {
		t.Error(err)
	}
	if p.Runs() != 3 {
		t.Errorf("expected 3 runs, got %v", p.Runs())
	}
	if p.End[1] != 30 || p.Cov[1] != 2 {
		t.Error("equal adjacent runs not merged")
	}
	if p.Start(0) != 0 || p.Start(2) != 30 {
		t.Error("Start failed")
	}
}

func TestPileupValidate(t *testing.T) {
	if err := (&Pileup{End: []int32{10, 5}, Cov: []float32{1, 2}}).Validate(5); err == nil {
		t.Error("decreasing run ends not detected")
	}
	if err := (&Pileup{End: []int32{5, 10}, Cov: []float32{1, 1}}).Validate(10); err == nil {
		t.Error("equal adjacent coverage not detected")
	}
	if err := (&Pileup{End: []int32{5, 10}, Cov: []float32{1, -1}}).Validate(10); err == nil {
		t.Error("negative coverage not detected")
	}
	if err := (&Pileup{End: []int32{5, 10}, Cov: []float32{1, 0}}).Validate(12); err == nil {
		t.Error("short track not detected")
	}
	if err := (&Pileup{}).Validate(0); err != nil {
		t.Error("empty track for empty chromosome rejected:", err)
	}
	if err := Flat(100, 0).Validate(100); err != nil {
		t.Error(err)
	}
}

func TestPileupAtMassScale(t *testing.T) {
	p := &Pileup{End: []int32{10, 20, 30}, Cov: []float32{0, 2, 1}}
	for _, c := range []struct {
		pos int32
		cov float32
	}{{0, 0}, {9, 0}, {10, 2}, {19, 2}, {20, 1}, {29, 1}, {30, 0}, {-1, 0}} {
		if got := p.At(c.pos); got != c.cov {
			t.Errorf("At(%v) = %v, expected %v", c.pos, got, c.cov)
		}
	}
	if m := p.Mass(); m != 30 {
		t.Errorf("Mass = %v, expected 30", m)
	}
	p.Scale(2)
	if m := p.Mass(); m != 60 {
		t.Errorf("Mass after Scale = %v, expected 60", m)
	}
	p.Scale(0)
	if p.Runs() != 1 || p.End[0] != 30 {
		t.Error("Scale(0) did not merge runs")
	}
	if err := p.Validate(30); err != nil {
		t.Error(err)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	chr1, err := r.Add("chr1", 1000)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Add("chr2", 500); err != nil {
		t.Fatal(err)
	}
	if again, err := r.Add("chr1", 1000); err != nil || again != chr1 {
		t.Error("re-adding chromosome with the same length failed")
	}
	var refErr *utils.ReferenceError
	if _, err := r.Add("chr1", 999); !errors.As(err, &refErr) {
		t.Error("conflicting length not reported as ReferenceError:", err)
	}
	if _, err := r.Get("chrX", "read1"); !errors.As(err, &refErr) {
		t.Error("unknown chromosome not reported as ReferenceError:", err)
	}
	if unknown := r.Exclude([]string{"chr2", "chrM"}); len(unknown) != 1 || unknown[0] != "chrM" {
		t.Error("Exclude returned", unknown)
	}
	if r.Length() != 1000 {
		t.Errorf("Length = %v, expected 1000", r.Length())
	}
	if chr1.Index != 0 || r.Chroms[1].Index != 1 {
		t.Error("chromosome indexes not in header order")
	}
	diff := chr1.AllocDiff()
	if len(diff) != 1000 || len(chr1.AllocDiff()) != 1000 {
		t.Error("AllocDiff failed")
	}
	chr1.Release()
	if chr1.Diff != nil {
		t.Error("Release failed")
	}
}
