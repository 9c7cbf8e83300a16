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

package utils

import "fmt"

// The error kinds below are the only failures the peak caller
// reports. Each one is fatal for a run; recoverable conditions such
// as unstitched mate pairs are counted instead.

// An InputError reports a malformed or internally inconsistent
// alignment record, for example a quality string that does not match
// the sequence length.
type InputError struct {
	// Name identifies the offending record, usually its QNAME.
	Name   string
	Detail string
	Err    error
}

func (e *InputError) Error() string {
	msg := e.Detail
	if e.Err != nil {
		msg = fmt.Sprintf("%v: %v", e.Detail, e.Err)
	}
	if e.Name == "" {
		return msg
	}
	return fmt.Sprintf("%v: %v", e.Name, msg)
}

func (e *InputError) Unwrap() error { return e.Err }

// A ResourceError reports a file that cannot be opened, created,
// written, or closed.
type ResourceError struct {
	Path string
	Op   string
	Err  error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("cannot %v %v: %v", e.Op, e.Path, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// A ParameterError reports an invalid configuration value. It is
// detected before any alignments are processed.
type ParameterError struct {
	Parameter string
	Value     interface{}
	Detail    string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("invalid value %v for %v: %v", e.Value, e.Parameter, e.Detail)
}

// A ReferenceError reports an alignment that refers to a chromosome
// missing from the header, or a chromosome whose length differs
// between input files.
type ReferenceError struct {
	Name   string
	Chrom  string
	Detail string
}

func (e *ReferenceError) Error() string {
	detail := e.Detail
	if detail == "" {
		detail = "cannot find reference sequence name in header"
	}
	if e.Name == "" {
		return fmt.Sprintf("%v: %v", e.Chrom, detail)
	}
	return fmt.Sprintf("%v: %v: %v", e.Name, e.Chrom, detail)
}
