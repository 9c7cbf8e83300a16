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

package cmd

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"runtime"
	"strings"

	"github.com/exascience/elpeaks/caller"
	"github.com/exascience/elpeaks/internal"
	"github.com/exascience/elpeaks/output"
	"github.com/exascience/elpeaks/significance"
	"github.com/exascience/elpeaks/stitch"
)

// CallHelp describes the parameters of the call command.
const CallHelp = "Call parameters:\n" +
	"elpeaks call treatment-file[,treatment-file...] peaks-file\n" +
	"[--control file[,file...]]\n" +
	"[--min-overlap nr]\n" +
	"[--dovetail]\n" +
	"[--dovetail-overlap nr]\n" +
	"[--mismatch fraction]\n" +
	"[--quality-offset nr]\n" +
	"[--max-quality nr]\n" +
	"[--min-mapq nr]\n" +
	"[--scoring [llr | poisson]]\n" +
	"[--no-control-scaling]\n" +
	"[--cutoff score]\n" +
	"[--max-gap nr]\n" +
	"[--min-length nr]\n" +
	"[--exclude-chroms name[,name...]]\n" +
	"[--exclude-regions bed-file]\n" +
	"[--keep-unpaired]\n" +
	"[--extend nr]\n" +
	"[--extend-average]\n" +
	"[--gzip]\n" +
	"[--unpaired-file file]\n" +
	"[--dovetail-file file]\n" +
	"[--alignment-file file]\n" +
	"[--pileup-file file]\n" +
	"[--log-file file]\n" +
	"[--nr-of-threads nr]\n" +
	"[--timed]\n" +
	"[--profile file]\n" +
	"[--log-path path]\n"

type sinkFiles struct {
	unpaired, dovetail, alignments, pileup, log string
}

func openSinks(peaksFile string, files sinkFiles, compress bool) (sinks *caller.Sinks, err error) {
	sinks = &caller.Sinks{}
	defer func() {
		if err != nil {
			_ = sinks.Close()
		}
	}()
	if sinks.Peaks, err = output.Open(peaksFile, compress); err != nil {
		return
	}
	if sinks.Unpaired, err = output.Open(files.unpaired, compress); err != nil {
		return
	}
	if sinks.Dovetail, err = output.Open(files.dovetail, compress); err != nil {
		return
	}
	if sinks.Alignments, err = output.Open(files.alignments, compress); err != nil {
		return
	}
	if sinks.Pileup, err = output.Open(files.pileup, compress); err != nil {
		return
	}
	sinks.Log, err = output.Open(files.log, compress)
	return
}

// Call implements the elpeaks call command.
func Call() error {
	var (
		controlFiles, scoring, excludeChroms, excludeRegions string
		profile, logPath                                     string
		files                                                sinkFiles
		minOverlap, dovetailOverlap, maxGap, minLength       int
		extend, qualityOffset, maxQuality, minMapQ           int
		nrOfThreads                                          int
		mismatch, cutoff                                     float64
		dovetail, keepUnpaired, extendAverage, compress      bool
		noControlScaling, timed                              bool
	)

	var flags flag.FlagSet

	flags.StringVar(&controlFiles, "control", "", "comma separated control files")
	flags.IntVar(&minOverlap, "min-overlap", stitch.DefaultMinOverlap, "minimum overlap for stitching mates")
	flags.BoolVar(&dovetail, "dovetail", false, "stitch dovetailed mates")
	flags.IntVar(&dovetailOverlap, "dovetail-overlap", stitch.DefaultDovetailOverlap, "minimum overlap for stitching dovetailed mates")
	flags.Float64Var(&mismatch, "mismatch", stitch.DefaultMismatch, "tolerated quality-weighted mismatch fraction of the overlap")
	flags.IntVar(&qualityOffset, "quality-offset", stitch.DefaultQualOffset, "offset of quality characters")
	flags.IntVar(&maxQuality, "max-quality", stitch.DefaultMaxQual, "maximum base quality")
	flags.IntVar(&minMapQ, "min-mapq", 0, "minimum mapping quality")
	flags.StringVar(&scoring, "scoring", significance.LLR, "significance scoring method")
	flags.BoolVar(&noControlScaling, "no-control-scaling", false, "do not normalize control coverage to the treatment depth")
	flags.Float64Var(&cutoff, "cutoff", 2, "minimum significance of peak positions")
	flags.IntVar(&maxGap, "max-gap", 100, "longest gap bridged within a peak")
	flags.IntVar(&minLength, "min-length", 0, "minimum peak length")
	flags.StringVar(&excludeChroms, "exclude-chroms", "", "comma separated chromosomes to exclude")
	flags.StringVar(&excludeRegions, "exclude-regions", "", "BED file of regions to exclude")
	flags.BoolVar(&keepUnpaired, "keep-unpaired", false, "keep unpaired alignments as fragments")
	flags.IntVar(&extend, "extend", 0, "extend single-end fragments to this length")
	flags.BoolVar(&extendAverage, "extend-average", false, "extend single-end fragments to the average fragment length")
	flags.BoolVar(&compress, "gzip", false, "gzip compress all output files")
	flags.StringVar(&files.unpaired, "unpaired-file", "", "report of unpaired alignments")
	flags.StringVar(&files.dovetail, "dovetail-file", "", "report of dovetailed alignments")
	flags.StringVar(&files.alignments, "alignment-file", "", "BED file of all fragments")
	flags.StringVar(&files.pileup, "pileup-file", "", "bedgraph-like file of coverage and scores")
	flags.StringVar(&files.log, "log-file", "", "per-chromosome log and run summary")
	flags.IntVar(&nrOfThreads, "nr-of-threads", 0, "number of worker threads")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a CPU profile to this file")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	if len(os.Args) < 4 {
		fmt.Fprintln(os.Stderr, "Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, CallHelp)
		os.Exit(1)
	}

	treatmentFiles := getFilename(os.Args[2], CallHelp)
	peaksFile := getFilename(os.Args[3], CallHelp)

	parseFlags(&flags, 4, CallHelp)

	if err := setLogOutput(logPath); err != nil {
		return err
	}

	// sanity checks

	var sanityChecksFailed bool

	treatment := internal.SplitFilenames(treatmentFiles)
	control := internal.SplitFilenames(controlFiles)
	for _, name := range treatment {
		if !checkExist("", name) {
			sanityChecksFailed = true
		}
	}
	for _, name := range control {
		if !checkExist("--control", name) {
			sanityChecksFailed = true
		}
	}
	if excludeRegions != "" && !checkExist("--exclude-regions", excludeRegions) {
		sanityChecksFailed = true
	}
	if !checkCreate("", peaksFile) {
		sanityChecksFailed = true
	}
	for _, f := range []struct{ parameter, name string }{
		{"--unpaired-file", files.unpaired},
		{"--dovetail-file", files.dovetail},
		{"--alignment-file", files.alignments},
		{"--pileup-file", files.pileup},
		{"--log-file", files.log},
	} {
		if f.name != "" && !checkCreate(f.parameter, f.name) {
			sanityChecksFailed = true
		}
	}
	if nrOfThreads < 0 {
		sanityChecksFailed = true
		log.Println("Error: Invalid nr-of-threads: ", nrOfThreads)
	}
	for _, q := range []struct {
		parameter string
		value     int
	}{
		{"--quality-offset", qualityOffset},
		{"--max-quality", maxQuality},
		{"--min-mapq", minMapQ},
	} {
		if !checkRange(q.parameter, q.value, 0, math.MaxUint8) {
			sanityChecksFailed = true
		}
	}
	for _, n := range []struct {
		parameter string
		value     int
	}{
		{"--min-overlap", minOverlap},
		{"--dovetail-overlap", dovetailOverlap},
		{"--max-gap", maxGap},
		{"--min-length", minLength},
		{"--extend", extend},
	} {
		if !checkRange(n.parameter, n.value, math.MinInt32, math.MaxInt32) {
			sanityChecksFailed = true
		}
	}

	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, CallHelp)
		os.Exit(1)
	}

	threads := nrOfThreads
	if threads == 0 {
		threads = runtime.GOMAXPROCS(0)
	} else {
		runtime.GOMAXPROCS(threads)
	}

	cfg := caller.DefaultConfig()
	cfg.Stitch.MinOverlap = int32(minOverlap)
	cfg.Stitch.DovetailOverlap = int32(dovetailOverlap)
	cfg.Stitch.Dovetail = dovetail
	cfg.Stitch.Mismatch = mismatch
	cfg.Stitch.QualOffset = byte(qualityOffset)
	cfg.Stitch.MaxQual = byte(maxQuality)
	cfg.MinMapQ = byte(minMapQ)
	cfg.Scoring = scoring
	cfg.NoControlScaling = noControlScaling
	cfg.Peaks.Cutoff = float32(cutoff)
	cfg.Peaks.MaxGap = int32(maxGap)
	cfg.Peaks.MinLength = int32(minLength)
	cfg.Threads = threads
	cfg.ExcludedChroms = internal.SplitFilenames(excludeChroms)
	cfg.ExcludedRegions = excludeRegions
	cfg.KeepUnpaired = keepUnpaired
	cfg.ExtendLength = int32(extend)
	cfg.AvgExtend = extendAverage

	if err := cfg.Validate(); err != nil {
		return err
	}

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " call ", strings.Join(treatment, ","), " ", peaksFile)
	if len(control) > 0 {
		fmt.Fprint(&command, " --control ", strings.Join(control, ","))
	}
	fmt.Fprint(&command, " --min-overlap ", minOverlap)
	if dovetail {
		fmt.Fprint(&command, " --dovetail")
	}
	fmt.Fprint(&command, " --dovetail-overlap ", dovetailOverlap)
	fmt.Fprint(&command, " --mismatch ", mismatch)
	fmt.Fprint(&command, " --quality-offset ", qualityOffset)
	fmt.Fprint(&command, " --max-quality ", maxQuality)
	fmt.Fprint(&command, " --min-mapq ", minMapQ)
	fmt.Fprint(&command, " --scoring ", scoring)
	if noControlScaling {
		fmt.Fprint(&command, " --no-control-scaling")
	}
	fmt.Fprint(&command, " --cutoff ", cutoff)
	fmt.Fprint(&command, " --max-gap ", maxGap)
	fmt.Fprint(&command, " --min-length ", minLength)
	if len(cfg.ExcludedChroms) > 0 {
		fmt.Fprint(&command, " --exclude-chroms ", strings.Join(cfg.ExcludedChroms, ","))
	}
	if excludeRegions != "" {
		fmt.Fprint(&command, " --exclude-regions ", excludeRegions)
	}
	if keepUnpaired {
		fmt.Fprint(&command, " --keep-unpaired")
	}
	if extend > 0 {
		fmt.Fprint(&command, " --extend ", extend)
	}
	if extendAverage {
		fmt.Fprint(&command, " --extend-average")
	}
	if compress {
		fmt.Fprint(&command, " --gzip")
	}
	if files.unpaired != "" {
		fmt.Fprint(&command, " --unpaired-file ", files.unpaired)
	}
	if files.dovetail != "" {
		fmt.Fprint(&command, " --dovetail-file ", files.dovetail)
	}
	if files.alignments != "" {
		fmt.Fprint(&command, " --alignment-file ", files.alignments)
	}
	if files.pileup != "" {
		fmt.Fprint(&command, " --pileup-file ", files.pileup)
	}
	if files.log != "" {
		fmt.Fprint(&command, " --log-file ", files.log)
	}
	fmt.Fprint(&command, " --nr-of-threads ", threads)
	if timed {
		fmt.Fprint(&command, " --timed")
	}
	if profile != "" {
		fmt.Fprint(&command, " --profile ", profile)
	}
	if logPath != "" {
		fmt.Fprint(&command, " --log-path ", logPath)
	}

	// executing command

	log.Println("Executing command:\n", command.String())

	sinks, err := openSinks(peaksFile, files, compress)
	if err != nil {
		return err
	}

	var summary *caller.Summary
	err = timedRun(timed, profile, "Calling peaks.", func() (err error) {
		summary, err = caller.Run(treatment, control, cfg, sinks)
		return err
	})
	if nerr := sinks.Close(); err == nil {
		err = nerr
	}
	if err != nil {
		return err
	}
	var report bytes.Buffer
	summary.Fprint(&report, len(control) > 0)
	log.Print("Summary:\n", report.String())
	return nil
}
