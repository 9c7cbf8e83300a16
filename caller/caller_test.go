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
	"errors"
	"fmt"
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/exascience/elpeaks/genome"
	"github.com/exascience/elpeaks/output"
	"github.com/exascience/elpeaks/sam"
	"github.com/exascience/elpeaks/stitch"
	"github.com/exascience/elpeaks/utils"
)

var (
	seq60  = strings.Repeat("A", 60)
	qual60 = strings.Repeat("I", 60)
)

func pairLines(name string, pos int32) string {
	return fmt.Sprintf("%v\t99\tchr1\t%v\t60\t60M\t=\t%v\t100\t%v\t%v\n", name, pos, pos+40, seq60, qual60) +
		fmt.Sprintf("%v\t147\tchr1\t%v\t60\t60M\t=\t%v\t-100\t%v\t%v\n", name, pos+40, pos, seq60, qual60)
}

const testHeader = "@HD\tVN:1.6\n@SQ\tSN:chr1\tLN:1000\n@SQ\tSN:chr2\tLN:500\n"

func writeSam(t *testing.T, dir, name string, pairs int, extra string) string {
	var sb strings.Builder
	sb.WriteString(testHeader)
	for i := 0; i < pairs; i++ {
		sb.WriteString(pairLines(fmt.Sprintf("p%v", i), 401))
	}
	sb.WriteString(extra)
	path := filepath.Join(dir, name)
	if err := ioutil.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func parse(t *testing.T, line string) *sam.Alignment {
	aln, err := sam.ParseAlignment(line)
	if err != nil {
		t.Fatal(err)
	}
	return aln
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	var paramErr *utils.ParameterError
	for _, modify := range []func(*Config){
		func(cfg *Config) { cfg.Stitch.MinOverlap = 0 },
		func(cfg *Config) { cfg.Stitch.Mismatch = 1 },
		func(cfg *Config) { cfg.Stitch.Mismatch = math.NaN() },
		func(cfg *Config) { cfg.Peaks.Cutoff = -1 },
		func(cfg *Config) { cfg.Peaks.MaxGap = -1 },
		func(cfg *Config) { cfg.Threads = 0 },
		func(cfg *Config) { cfg.ExtendLength, cfg.AvgExtend = 200, true },
		func(cfg *Config) { cfg.Scoring = "binomial" },
	} {
		cfg := DefaultConfig()
		modify(&cfg)
		if err := cfg.Validate(); !errors.As(err, &paramErr) {
			t.Error("invalid configuration accepted:", err)
		}
	}
}

func TestNarrowPeakScore(t *testing.T) {
	for _, c := range []struct {
		max   float32
		score int
	}{{0, 0}, {2.04, 20}, {12.18, 122}, {99.9, 999}, {150, 1000}, {float32(math.Inf(1)), 1000}} {
		if score := narrowPeakScore(c.max); score != c.score {
			t.Errorf("narrowPeakScore(%v) = %v, expected %v", c.max, score, c.score)
		}
	}
}

func TestSamplePair(t *testing.T) {
	chrom := &genome.Chrom{Name: utils.Intern("chr1"), Len: 1000}
	lines := strings.Split(strings.TrimSpace(pairLines("p1", 401)), "\n")
	lines = append(lines,
		"s1\t0\tchr1\t101\t60\t50M\t*\t0\t0\t*\t*",
		"u1\t73\tchr1\t201\t60\t50M\t=\t201\t0\t*\t*",
		"o1\t99\tchr1\t801\t60\t50M\t=\t851\t0\t*\t*",
		"x1\t65\tchr1\t301\t60\t50M\tchr2\t1\t0\t*\t*",
	)
	var smp sample
	for _, line := range lines {
		smp.alns = append(smp.alns, parse(t, line))
	}
	if err := smp.pair(chrom, stitch.NewStitcher(stitch.DefaultConfig()), true, &Sinks{}); err != nil {
		t.Fatal(err)
	}
	c := smp.counts
	if c.Pairs != 1 || c.Stitched != 1 || c.Singletons != 1 || c.Unpaired != 3 {
		t.Errorf("unexpected counts %+v", c)
	}
	if smp.stitchedLen != 100 {
		t.Errorf("stitched length %v, expected 100", smp.stitchedLen)
	}
	if len(smp.frags) != 1 || len(smp.extend) != 4 {
		t.Fatalf("expected 1 final and 4 single-end fragments, got %v and %v", len(smp.frags), len(smp.extend))
	}
	p, err := smp.build(chrom, 100, &Sinks{})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Validate(chrom.Len); err != nil {
		t.Error(err)
	}
	if smp.counts.Fragments != 5 {
		t.Errorf("expected 5 fragments, got %v", smp.counts.Fragments)
	}
	if p.At(150) != 1 || p.At(199) != 1 || p.At(200) != 1 || p.At(450) != 1 || p.At(600) != 0 {
		t.Error("single-end fragments not extended")
	}
	if p.Mass() != 100+4*100 {
		t.Errorf("pileup mass %v, expected 500", p.Mass())
	}
}

func TestSamplePairErrors(t *testing.T) {
	chrom := &genome.Chrom{Name: utils.Intern("chr1"), Len: 1000}
	s := stitch.NewStitcher(stitch.DefaultConfig())
	var inputErr *utils.InputError
	smp := sample{alns: []*sam.Alignment{
		parse(t, "p1\t99\tchr1\t101\t60\t50M\t=\t151\t0\t*\t*"),
		parse(t, "p1\t99\tchr1\t151\t60\t50M\t=\t101\t0\t*\t*"),
	}}
	if err := smp.pair(chrom, s, false, &Sinks{}); !errors.As(err, &inputErr) {
		t.Error("mates with identical flags accepted:", err)
	}
	smp = sample{alns: []*sam.Alignment{parse(t, "r1\t0\tchr1\t981\t60\t50M\t*\t0\t0\t*\t*")}}
	if err := smp.pair(chrom, s, false, &Sinks{}); !errors.As(err, &inputErr) {
		t.Error("alignment beyond the chromosome end accepted:", err)
	}
}

func runFiles(t *testing.T, dir string, treat, ctrl []string, cfg Config) (*Summary, string) {
	peaksPath := filepath.Join(dir, "peaks.narrowPeak")
	peaksSink, err := output.Open(peaksPath, false)
	if err != nil {
		t.Fatal(err)
	}
	logSink, err := output.Open(filepath.Join(dir, "run.log"), false)
	if err != nil {
		t.Fatal(err)
	}
	sinks := &Sinks{Peaks: peaksSink, Log: logSink}
	summary, err := Run(treat, ctrl, cfg, sinks)
	if cerr := sinks.Close(); cerr != nil {
		t.Fatal(cerr)
	}
	if err != nil {
		t.Fatal(err)
	}
	data, err := ioutil.ReadFile(peaksPath)
	if err != nil {
		t.Fatal(err)
	}
	return summary, string(data)
}

func TestRun(t *testing.T) {
	dir, err := ioutil.TempDir("", "caller")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	treat := writeSam(t, dir, "treat.sam", 20, "u1\t4\t*\t0\t0\t*\t*\t0\t0\tACGT\tIIII\n")
	cfg := DefaultConfig()
	cfg.ExcludedChroms = []string{"chr2"}

	summary, peaks := runFiles(t, dir, []string{treat}, nil, cfg)
	if summary.Treatment.Reads != 41 || summary.Treatment.Filtered != 1 ||
		summary.Treatment.Pairs != 20 || summary.Treatment.Stitched != 20 ||
		summary.Treatment.Fragments != 20 {
		t.Errorf("unexpected treatment counts %+v", summary.Treatment)
	}
	if summary.GenomeLength != 1000 || summary.AverageCoverage != 2 || summary.AvgFragmentLen != 100 {
		t.Errorf("unexpected genome-wide values %v %v %v", summary.GenomeLength, summary.AverageCoverage, summary.AvgFragmentLen)
	}
	if summary.Chroms != 1 || summary.SkippedChroms != 1 {
		t.Errorf("unexpected chromosome counts %v %v", summary.Chroms, summary.SkippedChroms)
	}
	if summary.Peaks != 1 || summary.PeakLength != 100 {
		t.Fatalf("expected one peak of length 100, got %v peaks of %v bp", summary.Peaks, summary.PeakLength)
	}
	fields := strings.Split(strings.TrimSpace(peaks), "\t")
	if len(fields) != 10 {
		t.Fatalf("unexpected narrowPeak line %q", peaks)
	}
	if fields[0] != "chr1" || fields[1] != "400" || fields[2] != "500" || fields[3] != "peak_0" ||
		fields[4] != "122" || fields[5] != "." || fields[8] != "-1" || fields[9] != "0" {
		t.Errorf("unexpected narrowPeak line %q", peaks)
	}
	if summary.RunID == "" {
		t.Error("missing run ID")
	}

	summary, peaks = runFiles(t, dir, []string{treat}, []string{treat}, cfg)
	if summary.Peaks != 0 || peaks != "" {
		t.Error("peaks called against an identical control")
	}
	if summary.ControlScale != 1 || summary.Control.Stitched != 20 {
		t.Errorf("unexpected control values %v %+v", summary.ControlScale, summary.Control)
	}

	cfg.NoControlScaling = true
	summary, peaks = runFiles(t, dir, []string{treat}, []string{treat}, cfg)
	if summary.Peaks != 0 || peaks != "" {
		t.Error("peaks called against an identical unscaled control")
	}
	if summary.ControlScale != 1 || summary.ControlFloor != summary.AverageCoverage {
		t.Errorf("unexpected unscaled control values %v %v", summary.ControlScale, summary.ControlFloor)
	}
}

func TestRunErrors(t *testing.T) {
	dir, err := ioutil.TempDir("", "caller")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	cfg := DefaultConfig()

	sinks := &Sinks{Peaks: output.Lock(nopSink{})}
	var paramErr *utils.ParameterError
	if _, err := Run(nil, nil, cfg, sinks); !errors.As(err, &paramErr) {
		t.Error("run without treatment accepted:", err)
	}
	var resourceErr *utils.ResourceError
	if _, err := Run([]string{filepath.Join(dir, "missing.sam")}, nil, cfg, sinks); !errors.As(err, &resourceErr) {
		t.Error("missing input not reported as ResourceError:", err)
	}
	bad := writeSam(t, dir, "bad.sam", 1, "r1\t0\tchrX\t1\t60\t4M\t*\t0\t0\tACGT\tIIII\n")
	var refErr *utils.ReferenceError
	if _, err := Run([]string{bad}, nil, cfg, sinks); !errors.As(err, &refErr) {
		t.Error("unknown chromosome not reported as ReferenceError:", err)
	}
	other := filepath.Join(dir, "other.sam")
	if err := ioutil.WriteFile(other, []byte("@SQ\tSN:chr1\tLN:2000\n"), 0644); err != nil {
		t.Fatal(err)
	}
	good := writeSam(t, dir, "good.sam", 1, "")
	if _, err := Run([]string{good}, []string{other}, cfg, sinks); !errors.As(err, &refErr) {
		t.Error("conflicting chromosome lengths not reported as ReferenceError:", err)
	}
}

type nopSink struct{}

func (nopSink) Write(p []byte) (int, error) { return len(p), nil }
func (nopSink) Close() error                { return nil }
