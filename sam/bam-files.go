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
	"context"
	"io"
	"os"

	"github.com/biogo/hts/bam"
	hts "github.com/biogo/hts/sam"

	"github.com/exascience/elpeaks/utils"
)

// bamReader is an alignmentReader for BAM files. BGZF decompression
// and record decoding are done by github.com/biogo/hts/bam.
type bamReader struct {
	rc         io.Closer
	reader     *bam.Reader
	qualOffset byte
	data       []*hts.Record
	err        error
}

func newBamReader(rc io.ReadCloser, threads int, qualOffset byte) (*bamReader, error) {
	reader, err := bam.NewReader(rc, threads)
	if err != nil {
		return nil, err
	}
	return &bamReader{rc: rc, reader: reader, qualOffset: qualOffset}, nil
}

func (reader *bamReader) Close() error {
	err := reader.reader.Close()
	if reader.rc == os.Stdin {
		return err
	}
	if nerr := reader.rc.Close(); err == nil {
		err = nerr
	}
	return err
}

// ParseHeader converts the BAM references into @SQ header lines.
func (reader *bamReader) ParseHeader() (*Header, error) {
	hdr := NewHeader()
	for _, ref := range reader.reader.Header().Refs() {
		hdr.AddReference(ref.Name(), int32(ref.Len()))
	}
	return hdr, nil
}

// Err implements the method of the pipeline.Source interface.
func (reader *bamReader) Err() error {
	return reader.err
}

// Prepare implements the method of the pipeline.Source interface.
func (*bamReader) Prepare(_ context.Context) int {
	return -1
}

// Fetch implements the method of the pipeline.Source interface.
func (reader *bamReader) Fetch(size int) (fetched int) {
	records := make([]*hts.Record, 0, size)
	for len(records) < size {
		record, err := reader.reader.Read()
		if err != nil {
			if err != io.EOF {
				reader.err = err
			}
			break
		}
		records = append(records, record)
	}
	reader.data = records
	return len(records)
}

// Data implements the method of the pipeline.Source interface.
func (reader *bamReader) Data() interface{} {
	return reader.data
}

func (reader *bamReader) ParseAlignments(data interface{}) ([]*Alignment, error) {
	records := data.([]*hts.Record)
	alns := make([]*Alignment, 0, len(records))
	for _, record := range records {
		aln, err := FromRecord(record, reader.qualOffset)
		if err != nil {
			return nil, err
		}
		alns = append(alns, aln)
	}
	return alns, nil
}

func refName(ref *hts.Reference) string {
	if ref == nil {
		return "*"
	}
	return ref.Name()
}

// maxQualChar is the highest printable quality character.
const maxQualChar = '~'

// FromRecord converts a decoded BAM record into an Alignment. Base
// qualities are encoded as characters with the given offset, so that
// they decode with the same offset as SAM input. Qualities that do not
// fit are capped at the highest printable character.
func FromRecord(record *hts.Record, qualOffset byte) (*Alignment, error) {
	aln := &Alignment{
		QNAME: record.Name,
		FLAG:  uint16(record.Flags),
		RNAME: refName(record.Ref),
		POS:   int32(record.Pos) + 1,
		MAPQ:  record.MapQ,
		RNEXT: refName(record.MateRef),
		PNEXT: int32(record.MatePos) + 1,
		SEQ:   "*",
		QUAL:  "*",
	}
	if record.MateRef != nil && record.MateRef == record.Ref {
		aln.RNEXT = "="
	}
	if len(record.Cigar) > 0 {
		aln.CIGAR = make([]CigarOperation, 0, len(record.Cigar))
		for _, op := range record.Cigar {
			operation := cigarOperationsTable[op.Type().String()[0]]
			if operation == 0 {
				return nil, &utils.InputError{Name: record.Name, Detail: "invalid CIGAR operation " + op.Type().String()}
			}
			aln.CIGAR = append(aln.CIGAR, CigarOperation{Length: int32(op.Len()), Operation: operation})
		}
	}
	if record.Seq.Length > 0 {
		aln.SEQ = string(record.Seq.Expand())
		if len(record.Qual) > 0 && record.Qual[0] != 0xff {
			qual := make([]byte, len(record.Qual))
			for i, q := range record.Qual {
				if c := int(q) + int(qualOffset); c <= maxQualChar {
					qual[i] = byte(c)
				} else {
					qual[i] = maxQualChar
				}
			}
			aln.QUAL = string(qual)
		}
	}
	return aln, nil
}
