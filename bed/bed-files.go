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

package bed

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/exascience/elpeaks/internal"
	"github.com/exascience/elpeaks/utils"
)

func lineError(filename string, lineNr int, detail string, err error) error {
	return &utils.InputError{Name: filename + ":" + strconv.Itoa(lineNr), Detail: detail, Err: err}
}

// ParseBed parses a plain or gzip-compressed BED file. See
// https://genome.ucsc.edu/FAQ/FAQformat.html#format1
func ParseBed(filename string) (bed *Bed, err error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, &utils.ResourceError{Path: filename, Op: "open", Err: err}
	}
	defer internal.Close(file, &err)

	reader, closer, err := utils.HandleGzip(bufio.NewReader(file))
	if err != nil {
		return nil, &utils.ResourceError{Path: filename, Op: "read", Err: err}
	}
	defer internal.Close(closer, &err)

	bed = NewBed()
	scanner := bufio.NewScanner(reader)
	for lineNr := 1; scanner.Scan(); lineNr++ {
		line := scanner.Text()
		if line == "" ||
			strings.HasPrefix(line, "#") ||
			strings.HasPrefix(line, "track") ||
			strings.HasPrefix(line, "browser") {
			continue
		}
		data := strings.Split(line, "\t")
		if len(data) < 3 {
			return nil, lineError(filename, lineNr, "BED line with fewer than 3 fields", nil)
		}
		start, err := strconv.ParseInt(data[1], 10, 32)
		if err != nil {
			return nil, lineError(filename, lineNr, "invalid start", err)
		}
		end, err := strconv.ParseInt(data[2], 10, 32)
		if err != nil {
			return nil, lineError(filename, lineNr, "invalid end", err)
		}
		region, err := NewRegion(utils.Intern(data[0]), int32(start), int32(end), data[3:])
		if err != nil {
			return nil, lineError(filename, lineNr, "invalid BED line", err)
		}
		bed.AddRegion(region)
	}
	if err := scanner.Err(); err != nil {
		return nil, &utils.ResourceError{Path: filename, Op: "read", Err: err}
	}
	bed.sortRegions()
	return bed, nil
}
