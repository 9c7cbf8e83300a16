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
	"strconv"
	"sync"
	"unicode"

	"github.com/exascience/elpeaks/utils"
)

// Header represents the parts of a SAM file header the peak caller
// needs. Only @SQ lines are interpreted; @HD is kept for diagnostics.
type Header struct {
	HD utils.StringMap
	SQ []utils.StringMap
}

// NewHeader allocates an empty header.
func NewHeader() *Header { return &Header{} }

// A Reference is a reference sequence declared in a header.
type Reference struct {
	Name string
	Len  int32
}

// References returns the reference sequences of the header in
// declaration order.
func (hdr *Header) References() ([]Reference, error) {
	refs := make([]Reference, 0, len(hdr.SQ))
	for _, sq := range hdr.SQ {
		name, found := sq["SN"]
		if !found {
			return nil, fmt.Errorf("SN entry in a SQ header line missing")
		}
		length, err := sq.Int32("LN")
		if err != nil {
			return nil, fmt.Errorf("%v, in SQ header line for %v", err, name)
		}
		refs = append(refs, Reference{Name: name, Len: length})
	}
	return refs, nil
}

// AddReference appends an @SQ line for the given reference.
func (hdr *Header) AddReference(name string, length int32) {
	hdr.SQ = append(hdr.SQ, utils.StringMap{
		"SN": name,
		"LN": strconv.FormatInt(int64(length), 10),
	})
}

// Alignment represents a decoded SAM alignment line.
type Alignment struct {
	QNAME string
	FLAG  uint16
	RNAME string
	// POS is 1-based, as in SAM files. 0 means no position.
	POS   int32
	MAPQ  byte
	CIGAR []CigarOperation
	RNEXT string
	PNEXT int32
	SEQ   string
	QUAL  string
}

// Flag bits of the FLAG field.
const (
	Multiple      = 0x1
	Proper        = 0x2
	Unmapped      = 0x4
	NextUnmapped  = 0x8
	Reversed      = 0x10
	NextReversed  = 0x20
	First         = 0x40
	Last          = 0x80
	Secondary     = 0x100
	QCFailed      = 0x200
	Duplicate     = 0x400
	Supplementary = 0x800
)

func (aln *Alignment) IsMultiple() bool      { return (aln.FLAG & Multiple) != 0 }
func (aln *Alignment) IsProper() bool        { return (aln.FLAG & Proper) != 0 }
func (aln *Alignment) IsUnmapped() bool      { return (aln.FLAG & Unmapped) != 0 }
func (aln *Alignment) IsNextUnmapped() bool  { return (aln.FLAG & NextUnmapped) != 0 }
func (aln *Alignment) IsReversed() bool      { return (aln.FLAG & Reversed) != 0 }
func (aln *Alignment) IsNextReversed() bool  { return (aln.FLAG & NextReversed) != 0 }
func (aln *Alignment) IsFirst() bool         { return (aln.FLAG & First) != 0 }
func (aln *Alignment) IsLast() bool          { return (aln.FLAG & Last) != 0 }
func (aln *Alignment) IsSecondary() bool     { return (aln.FLAG & Secondary) != 0 }
func (aln *Alignment) IsQCFailed() bool      { return (aln.FLAG & QCFailed) != 0 }
func (aln *Alignment) IsDuplicate() bool     { return (aln.FLAG & Duplicate) != 0 }
func (aln *Alignment) IsSupplementary() bool { return (aln.FLAG & Supplementary) != 0 }

// Start returns the 0-based reference start of the alignment.
func (aln *Alignment) Start() int32 {
	return aln.POS - 1
}

// End returns the 0-based exclusive reference end of the alignment.
func (aln *Alignment) End() int32 {
	return aln.Start() + ReferenceLength(aln.CIGAR)
}

// MateChrom returns the reference name of the mate, resolving "=".
func (aln *Alignment) MateChrom() string {
	if aln.RNEXT == "=" {
		return aln.RNAME
	}
	return aln.RNEXT
}

// Validate checks that the sequence, qualities, and CIGAR string of
// a mapped alignment are consistent with each other.
func (aln *Alignment) Validate() error {
	if aln.IsUnmapped() {
		return nil
	}
	if aln.POS < 1 {
		return &utils.InputError{Name: aln.QNAME, Detail: fmt.Sprintf("invalid position %v for mapped alignment", aln.POS)}
	}
	if len(aln.CIGAR) == 0 {
		return &utils.InputError{Name: aln.QNAME, Detail: "missing CIGAR string for mapped alignment"}
	}
	if aln.SEQ == "*" {
		return nil
	}
	if aln.QUAL != "*" && len(aln.QUAL) != len(aln.SEQ) {
		return &utils.InputError{
			Name:   aln.QNAME,
			Detail: fmt.Sprintf("quality string length %v does not match sequence length %v", len(aln.QUAL), len(aln.SEQ)),
		}
	}
	if n := ReadLength(aln.CIGAR); int(n) != len(aln.SEQ) {
		return &utils.InputError{
			Name:   aln.QNAME,
			Detail: fmt.Sprintf("CIGAR read length %v does not match sequence length %v", n, len(aln.SEQ)),
		}
	}
	return nil
}

// CigarOperations lists the valid CIGAR operation characters.
const CigarOperations = "MmIiDdNnSsHhPpXx="

var cigarOperationsTable = make(map[byte]byte, len(CigarOperations))

func init() {
	for _, c := range CigarOperations {
		cigarOperationsTable[byte(c)] = byte(unicode.ToUpper(rune(c)))
	}
}

func isDigit(char byte) bool { return ('0' <= char) && (char <= '9') }

// CigarOperation represents a single operation of a CIGAR string.
type CigarOperation struct {
	Length    int32
	Operation byte
}

func newCigarOperation(cigar string, i int) (op CigarOperation, j int, err error) {
	for j = i; j < len(cigar); j++ {
		if char := cigar[j]; !isDigit(char) {
			length, nerr := strconv.ParseInt(cigar[i:j], 10, 32)
			if nerr != nil {
				err = nerr
				return
			}
			if operation := cigarOperationsTable[char]; operation != 0 {
				op = CigarOperation{int32(length), operation}
				j++
			} else {
				err = fmt.Errorf("invalid CIGAR operation %c", char)
			}
			return
		}
	}
	err = fmt.Errorf("missing CIGAR operation after length %v", cigar[i:])
	return
}

var (
	cigarSliceCache      = map[string][]CigarOperation{"*": {}}
	cigarSliceCacheMutex = sync.RWMutex{}
)

func slowScanCigarString(cigar string) (slice []CigarOperation, err error) {
	for i := 0; i < len(cigar); {
		cigarOperation, j, err := newCigarOperation(cigar, i)
		if err != nil {
			return nil, fmt.Errorf("%v, while scanning CIGAR string %v", err, cigar)
		}
		slice = append(slice, cigarOperation)
		i = j
	}
	cigarSliceCacheMutex.Lock()
	if value, found := cigarSliceCache[cigar]; found {
		slice = value
	} else {
		cigarSliceCache[cigar] = slice
	}
	cigarSliceCacheMutex.Unlock()
	return slice, nil
}

// ScanCigarString converts a CIGAR string to a slice of
// CigarOperation. Slices are cached and shared, and must not be
// modified.
func ScanCigarString(cigar string) ([]CigarOperation, error) {
	cigarSliceCacheMutex.RLock()
	value, found := cigarSliceCache[cigar]
	cigarSliceCacheMutex.RUnlock()
	if found {
		return value, nil
	}
	return slowScanCigarString(cigar)
}
