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

// Package output provides the sinks that peak calling results and
// diagnostic reports are written to.
package output

import (
	"bufio"
	"io"
	"os"
	"sync"

	"github.com/klauspost/compress/gzip"

	"github.com/exascience/elpeaks/utils"
)

// A Sink is a destination for output bytes. Whether the bytes are
// compressed is up to the sink.
type Sink interface {
	io.Writer
	Close() error
}

type fileSink struct {
	name string
	file *os.File
	gz   *gzip.Writer
	*bufio.Writer
}

// Create opens a sink writing to the named file, or to standard
// output for "-" and "/dev/stdout". With compress set, output is gzip
// compressed.
func Create(name string, compress bool) (Sink, error) {
	file := os.Stdout
	if name != "-" && name != "/dev/stdout" {
		var err error
		if file, err = os.Create(name); err != nil {
			return nil, &utils.ResourceError{Path: name, Op: "create", Err: err}
		}
	}
	sink := &fileSink{name: name, file: file}
	if compress {
		sink.gz = gzip.NewWriter(file)
		sink.Writer = bufio.NewWriter(sink.gz)
	} else {
		sink.Writer = bufio.NewWriter(file)
	}
	return sink, nil
}

func (sink *fileSink) Close() (err error) {
	if err = sink.Flush(); err == nil && sink.gz != nil {
		err = sink.gz.Close()
	}
	if sink.file != os.Stdout {
		if nerr := sink.file.Close(); err == nil {
			err = nerr
		}
	}
	if err != nil {
		return &utils.ResourceError{Path: sink.name, Op: "close", Err: err}
	}
	return nil
}

/*
A Locked serializes writes to a sink. Each resource gets its own
Locked, so writers of different resources never wait for each other.

A nil *Locked discards all writes, which is used for optional
reports that are not requested.
*/
type Locked struct {
	mu   sync.Mutex
	sink Sink
}

// Lock wraps a sink. A nil sink yields a nil *Locked.
func Lock(sink Sink) *Locked {
	if sink == nil {
		return nil
	}
	return &Locked{sink: sink}
}

// Open creates a locked sink for the named file, or returns nil for
// an empty name.
func Open(name string, compress bool) (*Locked, error) {
	if name == "" {
		return nil, nil
	}
	sink, err := Create(name, compress)
	if err != nil {
		return nil, err
	}
	return Lock(sink), nil
}

// Write writes p to the sink while holding its lock.
func (l *Locked) Write(p []byte) (int, error) {
	if l == nil {
		return len(p), nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sink.Write(p)
}

// WriteString writes s to the sink while holding its lock.
func (l *Locked) WriteString(s string) (int, error) {
	return l.Write([]byte(s))
}

// Enabled reports whether writes reach a sink.
func (l *Locked) Enabled() bool {
	return l != nil
}

// Close closes the sink.
func (l *Locked) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sink.Close()
}
