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
	"errors"
	"strings"
	"testing"

	hts "github.com/biogo/hts/sam"

	"github.com/exascience/elpeaks/utils"
)

const testHeader = "@HD\tVN:1.6\tSO:unsorted\n" +
	"@SQ\tSN:chr1\tLN:1000\n" +
	"@PG\tID:bwa\tPN:bwa\n" +
	"@SQ\tSN:chr2\tLN:500\n"

func TestParseHeader(t *testing.T) {
	reader := bufio.NewReader(strings.NewReader(testHeader + "r1\t0\tchr1\t1\t60\t10M\t*\t0\t0\t*\t*\n"))
	hdr, lines, err := ParseHeader(reader)
	if err != nil {
		t.Fatal(err)
	}
	if lines != 4 {
		t.Errorf("expected 4 header lines, got %v", lines)
	}
	if hdr.HD["VN"] != "1.6" {
		t.Error("unexpected @HD line", hdr.HD)
	}
	refs, err := hdr.References()
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 2 || refs[0] != (Reference{"chr1", 1000}) || refs[1] != (Reference{"chr2", 500}) {
		t.Error("unexpected references", refs)
	}
	if rest, _ := reader.ReadString('\n'); !strings.HasPrefix(rest, "r1\t") {
		t.Error("reader not left at the first alignment")
	}

	for _, bad := range []string{
		"@SQ\tSN:chr1\tLN:10\n@HD\tVN:1.6\n",
		"@SQ\tSN:chr1\tSN:chr2\n",
		"@SQ\tSNchr1\n",
	} {
		if _, _, err := ParseHeader(bufio.NewReader(strings.NewReader(bad))); err == nil {
			t.Errorf("invalid header %q accepted", bad)
		}
	}

	hdr = NewHeader()
	hdr.AddReference("chrX", 100)
	if refs, err := hdr.References(); err != nil || len(refs) != 1 || refs[0].Len != 100 {
		t.Error("AddReference failed")
	}
	hdr.SQ = append(hdr.SQ, utils.StringMap{"LN": "5"})
	if _, err := hdr.References(); err == nil {
		t.Error("@SQ line without SN accepted")
	}
}

func TestParseAlignment(t *testing.T) {
	line := "r1\t83\tchr1\t101\t37\t3S10M2I5M\t=\t51\t-70\tACGTACGTACGTACGTACGT\tIIIIIIIIIIIIIIIIIIII\tNM:i:0\tMD:Z:15"
	aln, err := ParseAlignment(line)
	if err != nil {
		t.Fatal(err)
	}
	if aln.QNAME != "r1" || aln.FLAG != 83 || aln.RNAME != "chr1" || aln.POS != 101 || aln.MAPQ != 37 {
		t.Error("unexpected mandatory fields", aln)
	}
	if !aln.IsReversed() || !aln.IsFirst() || aln.IsLast() || !aln.IsProper() {
		t.Error("unexpected flags")
	}
	if aln.Start() != 100 || aln.End() != 115 {
		t.Errorf("alignment spans [%v,%v)", aln.Start(), aln.End())
	}
	if aln.MateChrom() != "chr1" || aln.PNEXT != 51 {
		t.Error("unexpected mate fields")
	}
	if aln.QUAL != "IIIIIIIIIIIIIIIIIIII" {
		t.Error("optional fields not stripped from QUAL")
	}
	if err := aln.Validate(); err != nil {
		t.Error(err)
	}
	if formatted := string(aln.Format(nil)); formatted != "r1\t83\tchr1\t101\t37\t3S10M2I5M\t=\t51\t0\tACGTACGTACGTACGTACGT\tIIIIIIIIIIIIIIIIIIII\n" {
		t.Errorf("unexpected formatted alignment %q", formatted)
	}

	var inputErr *utils.InputError
	for _, bad := range []string{
		"r1\t83\tchr1",
		"r1\tx\tchr1\t101\t37\t10M\t=\t51\t0\t*\t*",
		"r1\t0\tchr1\t101\t37\t10Q\t=\t51\t0\t*\t*",
	} {
		if _, err := ParseAlignment(bad); !errors.As(err, &inputErr) {
			t.Errorf("invalid line %q not rejected: %v", bad, err)
		}
	}
}

func TestValidate(t *testing.T) {
	var inputErr *utils.InputError
	for _, line := range []string{
		"r1\t0\tchr1\t101\t37\t10M\t*\t0\t0\tACGTACGTAC\tIIII",
		"r1\t0\tchr1\t101\t37\t8M\t*\t0\t0\tACGTACGTAC\tIIIIIIIIII",
		"r1\t0\tchr1\t0\t37\t10M\t*\t0\t0\tACGTACGTAC\tIIIIIIIIII",
		"r1\t0\tchr1\t101\t37\t*\t*\t0\t0\tACGTACGTAC\tIIIIIIIIII",
	} {
		aln, err := ParseAlignment(line)
		if err != nil {
			t.Fatal(err)
		}
		if err := aln.Validate(); !errors.As(err, &inputErr) {
			t.Errorf("inconsistent alignment %q not rejected: %v", line, err)
		}
	}
	for _, line := range []string{
		"r1\t4\t*\t0\t0\t*\t*\t0\t0\tACGT\tIIII",
		"r1\t0\tchr1\t101\t37\t10M\t*\t0\t0\t*\t*",
		"r1\t0\tchr1\t101\t37\t4M\t*\t0\t0\tACGT\t*",
	} {
		aln, err := ParseAlignment(line)
		if err != nil {
			t.Fatal(err)
		}
		if err := aln.Validate(); err != nil {
			t.Errorf("consistent alignment %q rejected: %v", line, err)
		}
	}
}

func TestCigar(t *testing.T) {
	cigar, err := ScanCigarString("5H3S10M2D1N4I6=2X5P")
	if err != nil {
		t.Fatal(err)
	}
	if len(cigar) != 9 {
		t.Fatalf("expected 9 operations, got %v", len(cigar))
	}
	if n := ReferenceLength(cigar); n != 21 {
		t.Errorf("reference length %v, expected 21", n)
	}
	if n := ReadLength(cigar); n != 25 {
		t.Errorf("read length %v, expected 25", n)
	}
	if s := string(AppendCigar(nil, cigar)); s != "5H3S10M2D1N4I6=2X5P" {
		t.Errorf("unexpected CIGAR string %v", s)
	}
	if empty, err := ScanCigarString("*"); err != nil || len(empty) != 0 {
		t.Error("empty CIGAR not handled")
	}
	for _, bad := range []string{"10", "M", "10M5"} {
		if _, err := ScanCigarString(bad); err == nil {
			t.Errorf("invalid CIGAR %v accepted", bad)
		}
	}
}

func TestFromRecord(t *testing.T) {
	record := &hts.Record{
		Name:    "r1",
		Pos:     99,
		MapQ:    60,
		Flags:   hts.Paired | hts.Reverse,
		Cigar:   []hts.CigarOp{hts.NewCigarOp(hts.CigarSoftClipped, 1), hts.NewCigarOp(hts.CigarMatch, 3)},
		MatePos: -1,
		Seq:     hts.NewSeq([]byte("ACGT")),
		Qual:    []byte{0, 30, 40, 250},
	}
	for _, c := range []struct {
		offset byte
		qual   string
	}{{33, "!?I~"}, {64, "@^h~"}} {
		aln, err := FromRecord(record, c.offset)
		if err != nil {
			t.Fatal(err)
		}
		if aln.QUAL != c.qual {
			t.Errorf("qualities with offset %v encoded as %q, expected %q", c.offset, aln.QUAL, c.qual)
		}
		if aln.SEQ != "ACGT" || aln.POS != 100 || aln.RNAME != "*" || !aln.IsReversed() {
			t.Error("unexpected alignment", aln)
		}
		if string(AppendCigar(nil, aln.CIGAR)) != "1S3M" {
			t.Error("unexpected CIGAR", aln.CIGAR)
		}
		if err := aln.Validate(); err != nil {
			t.Error(err)
		}
	}
	record.Qual = []byte{0xff, 0xff, 0xff, 0xff}
	if aln, err := FromRecord(record, 33); err != nil || aln.QUAL != "*" {
		t.Error("missing qualities not converted to *")
	}
}
