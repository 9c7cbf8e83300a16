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

package sam

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/exascience/pargo/pipeline"

	"github.com/exascience/elpeaks/utils"
)

type (
	// alignmentReader is a common interface for reading both SAM and BAM files.
	alignmentReader interface {
		ParseHeader() (*Header, error)
		ParseAlignments(data interface{}) ([]*Alignment, error)
		pipeline.Source
		io.Closer
	}

	// InputFile represents a SAM or BAM file for input.
	InputFile struct {
		name   string
		reader alignmentReader
		header *Header
	}
)

// File extensions recognized by Open.
const (
	SamExt  = ".sam"
	BamExt  = ".bam"
	cramExt = ".cram"
)

// Open opens a SAM or BAM file and parses its header. The format is
// chosen by file extension; SAM files may be gzip compressed. BAM base
// qualities are encoded with qualOffset; SAM quality strings are kept
// as they are.
func Open(name string, qualOffset byte) (f *InputFile, err error) {
	var file *os.File
	if name == "/dev/stdin" || name == "-" {
		file = os.Stdin
	} else if file, err = os.Open(name); err != nil {
		return nil, &utils.ResourceError{Path: name, Op: "open", Err: err}
	}
	var reader alignmentReader
	switch filepath.Ext(name) {
	case BamExt:
		reader, err = newBamReader(file, 0, qualOffset)
	case cramExt:
		err = fmt.Errorf("CRAM format not supported")
	default:
		reader, err = newSamReader(file)
	}
	if err != nil {
		_ = file.Close()
		return nil, &utils.ResourceError{Path: name, Op: "read", Err: err}
	}
	f = &InputFile{name: name, reader: reader}
	if f.header, err = reader.ParseHeader(); err != nil {
		_ = reader.Close()
		return nil, &utils.InputError{Name: name, Detail: "invalid header", Err: err}
	}
	return f, nil
}

// Name returns the file name the input was opened with.
func (f *InputFile) Name() string {
	return f.name
}

// Header returns the parsed header of the input.
func (f *InputFile) Header() *Header {
	return f.header
}

// Close closes the input.
func (f *InputFile) Close() error {
	return f.reader.Close()
}

const (
	minBatchSize = 1024
	maxBatchSize = 0x10000
)

// RunPipeline decodes all alignments of the input and hands them to
// receive in batches, in file order. Decoding of different batches
// runs in parallel. The first error returned by receive, or
// encountered while decoding, aborts the pipeline and is returned.
func (f *InputFile) RunPipeline(receive func(alns []*Alignment) error) error {
	var p pipeline.Pipeline
	p.Source(f.reader)
	p.SetVariableBatchSize(minBatchSize, maxBatchSize)
	p.Add(
		pipeline.LimitedPar(0, pipeline.Receive(func(_ int, data interface{}) interface{} {
			alns, err := f.reader.ParseAlignments(data)
			if err != nil {
				p.SetErr(fmt.Errorf("%v: %w", f.name, err))
				return nil
			}
			for _, aln := range alns {
				if err := aln.Validate(); err != nil {
					p.SetErr(fmt.Errorf("%v: %w", f.name, err))
					return nil
				}
			}
			return alns
		})),
		pipeline.StrictOrd(pipeline.Receive(func(_ int, data interface{}) interface{} {
			alns, _ := data.([]*Alignment)
			if len(alns) == 0 {
				return data
			}
			if err := receive(alns); err != nil {
				p.SetErr(err)
			}
			return data
		})),
	)
	p.Run()
	return p.Err()
}
