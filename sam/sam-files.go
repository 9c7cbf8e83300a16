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
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/exascience/elpeaks/utils"
)

// ParseHeaderField parses a TAG:VALUE field of a header line.
func (sc *StringScanner) ParseHeaderField() (tag, value string) {
	if sc.err != nil {
		return
	}
	tag, ok := sc.readUntil(':')
	if !ok || (len(tag) != 2) {
		sc.setErr("invalid field tag %v", tag)
		return "", ""
	}
	value, _ = sc.readUntil('\t')
	return tag, value
}

// ParseHeaderLine parses the fields of a header line after its
// record type code.
func (sc *StringScanner) ParseHeaderLine() utils.StringMap {
	if sc.err != nil {
		return nil
	}
	record := make(utils.StringMap)
	for sc.Len() > 0 {
		tag, value := sc.ParseHeaderField()
		if sc.err != nil {
			break
		}
		if !record.SetUniqueEntry(tag, value) {
			sc.setErr("duplicate field tag %v in a SAM header line", tag)
			break
		}
	}
	return record
}

// ParseHeader parses the header lines at the start of a SAM file and
// leaves the reader at the first alignment line. Record types other
// than @HD and @SQ are skipped.
func ParseHeader(reader *bufio.Reader) (hdr *Header, lines int, err error) {
	hdr = NewHeader()
	var sc StringScanner
	for first := true; ; first = false {
		switch data, err := reader.Peek(1); {
		case err == io.EOF:
			return hdr, lines, nil
		case err != nil:
			return hdr, lines, err
		case data[0] != '@':
			return hdr, lines, nil
		}
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return hdr, lines, err
		}
		lines++
		line = strings.TrimRight(line, "\r\n")
		if len(line) < 4 {
			return hdr, lines, errors.New("truncated SAM header line")
		}
		sc.Reset(line[4:])
		switch line[:4] {
		case "@HD\t":
			if !first {
				return hdr, lines, errors.New("@HD line not in first line when parsing a SAM header")
			}
			hdr.HD = sc.ParseHeaderLine()
		case "@SQ\t":
			hdr.SQ = append(hdr.SQ, sc.ParseHeaderLine())
		}
		if err := sc.Err(); err != nil {
			return hdr, lines, err
		}
	}
}

func (sc *StringScanner) doString() string {
	if sc.err != nil {
		return ""
	}
	value, ok := sc.readUntil('\t')
	if !ok {
		sc.setErr("missing tabulator in SAM alignment line")
		return ""
	}
	return value
}

func (sc *StringScanner) doInt32() int32 {
	if sc.err != nil {
		return 0
	}
	value, err := strconv.ParseInt(sc.doString(), 10, 32)
	if (err != nil) && (sc.err == nil) {
		sc.err = err
	}
	return int32(value)
}

func (sc *StringScanner) doUint(bitSize int) uint64 {
	if sc.err != nil {
		return 0
	}
	value, err := strconv.ParseUint(sc.doString(), 10, bitSize)
	if (err != nil) && (sc.err == nil) {
		sc.err = err
	}
	return value
}

func (sc *StringScanner) doCigar() []CigarOperation {
	if sc.err != nil {
		return nil
	}
	cigar, err := ScanCigarString(sc.doString())
	if (err != nil) && (sc.err == nil) {
		sc.err = err
	}
	return cigar
}

// ParseAlignment parses the mandatory fields of a SAM alignment line.
// Optional fields are ignored.
func (sc *StringScanner) ParseAlignment() *Alignment {
	aln := new(Alignment)
	aln.QNAME = sc.doString()
	aln.FLAG = uint16(sc.doUint(16))
	aln.RNAME = sc.doString()
	aln.POS = sc.doInt32()
	aln.MAPQ = byte(sc.doUint(8))
	aln.CIGAR = sc.doCigar()
	aln.RNEXT = sc.doString()
	aln.PNEXT = sc.doInt32()
	sc.doString() // TLEN
	aln.SEQ = sc.doString()
	aln.QUAL, _ = sc.readUntil('\t')
	return aln
}

// ParseAlignment parses a single SAM alignment line.
func ParseAlignment(line string) (*Alignment, error) {
	var sc StringScanner
	sc.Reset(line)
	aln := sc.ParseAlignment()
	if err := sc.Err(); err != nil {
		name := aln.QNAME
		if name == "" {
			name = line
		}
		return nil, &utils.InputError{Name: name, Detail: "invalid SAM alignment line", Err: err}
	}
	return aln, nil
}

// Format appends the alignment as a SAM line to out. TLEN and
// optional fields are not preserved.
func (aln *Alignment) Format(out []byte) []byte {
	out = append(append(out, aln.QNAME...), '\t')
	out = append(strconv.AppendUint(out, uint64(aln.FLAG), 10), '\t')
	out = append(append(out, aln.RNAME...), '\t')
	out = append(strconv.AppendInt(out, int64(aln.POS), 10), '\t')
	out = append(strconv.AppendUint(out, uint64(aln.MAPQ), 10), '\t')
	out = append(AppendCigar(out, aln.CIGAR), '\t')
	out = append(append(out, aln.RNEXT...), '\t')
	out = append(strconv.AppendInt(out, int64(aln.PNEXT), 10), '\t')
	out = append(out, "0\t"...)
	out = append(append(out, aln.SEQ...), '\t')
	out = append(out, aln.QUAL...)
	return append(out, '\n')
}

// samReader is an alignmentReader for plain or gzip-compressed SAM
// files.
type samReader struct {
	rc     io.Closer
	gz     io.Closer
	reader *bufio.Reader
	data   []string
	err    error
}

func newSamReader(rc io.ReadCloser) (*samReader, error) {
	reader, gz, err := utils.HandleGzip(bufio.NewReader(rc))
	if err != nil {
		return nil, err
	}
	if buf, ok := reader.(*bufio.Reader); ok {
		return &samReader{rc: rc, gz: gz, reader: buf}, nil
	}
	return &samReader{rc: rc, gz: gz, reader: bufio.NewReader(reader)}, nil
}

func (reader *samReader) Close() error {
	err := reader.gz.Close()
	if reader.rc == os.Stdin {
		return err
	}
	if nerr := reader.rc.Close(); err == nil {
		err = nerr
	}
	return err
}

func (reader *samReader) ParseHeader() (*Header, error) {
	hdr, _, err := ParseHeader(reader.reader)
	return hdr, err
}

// Err implements the method of the pipeline.Source interface.
func (reader *samReader) Err() error {
	return reader.err
}

// Prepare implements the method of the pipeline.Source interface.
func (*samReader) Prepare(_ context.Context) int {
	return -1
}

// Fetch implements the method of the pipeline.Source interface.
func (reader *samReader) Fetch(size int) (fetched int) {
	lines := make([]string, 0, size)
	for len(lines) < size {
		line, err := reader.reader.ReadString('\n')
		if line = strings.TrimRight(line, "\r\n"); line != "" {
			lines = append(lines, line)
		}
		if err != nil {
			if err != io.EOF {
				reader.err = err
			}
			break
		}
	}
	reader.data = lines
	return len(lines)
}

// Data implements the method of the pipeline.Source interface.
func (reader *samReader) Data() interface{} {
	return reader.data
}

func (*samReader) ParseAlignments(data interface{}) ([]*Alignment, error) {
	lines := data.([]string)
	alns := make([]*Alignment, 0, len(lines))
	for _, line := range lines {
		aln, err := ParseAlignment(line)
		if err != nil {
			return nil, err
		}
		alns = append(alns, aln)
	}
	return alns, nil
}
