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

import "strconv"

// OperatorConsumesReadBases reports whether the CIGAR operator
// advances along the read sequence.
func OperatorConsumesReadBases(operator byte) bool {
	switch operator {
	case 'M', 'I', 'S', '=', 'X':
		return true
	default:
		return false
	}
}

// OperatorConsumesReferenceBases reports whether the CIGAR operator
// advances along the reference.
func OperatorConsumesReferenceBases(operator byte) bool {
	switch operator {
	case 'M', 'D', 'N', '=', 'X':
		return true
	default:
		return false
	}
}

// ReferenceLength returns the number of reference bases covered by
// the CIGAR operations.
func ReferenceLength(cigar []CigarOperation) (length int32) {
	for _, op := range cigar {
		if OperatorConsumesReferenceBases(op.Operation) {
			length += op.Length
		}
	}
	return length
}

// ReadLength returns the number of read bases described by the CIGAR
// operations.
func ReadLength(cigar []CigarOperation) (length int32) {
	for _, op := range cigar {
		if OperatorConsumesReadBases(op.Operation) {
			length += op.Length
		}
	}
	return length
}

// AppendCigar appends the string form of the CIGAR operations to out.
func AppendCigar(out []byte, cigar []CigarOperation) []byte {
	if len(cigar) == 0 {
		return append(out, '*')
	}
	for _, op := range cigar {
		out = append(strconv.AppendInt(out, int64(op.Length), 10), op.Operation)
	}
	return out
}
