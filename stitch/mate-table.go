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

package stitch

import (
	"sort"

	"github.com/exascience/elpeaks/utils"
)

// A MateTable holds mates whose partner has not been seen yet. It
// belongs to a single chromosome worker.
type MateTable struct {
	pending map[string]*Mate
	done    map[string]struct{}
}

// NewMateTable returns an empty table.
func NewMateTable() *MateTable {
	return &MateTable{
		pending: make(map[string]*Mate),
		done:    make(map[string]struct{}),
	}
}

// Len returns the number of pending mates.
func (t *MateTable) Len() int {
	return len(t.pending)
}

// Add records a mate. When its partner is pending, both are removed
// from the table and returned, in arrival order. A third alignment for
// the same name, or two mates with the same first/last flags, is an
// InputError.
func (t *MateTable) Add(m *Mate) (a, b *Mate, paired bool, err error) {
	if _, found := t.done[m.Name]; found {
		return nil, nil, false, &utils.InputError{Name: m.Name, Detail: "more than two alignments for read pair"}
	}
	other, found := t.pending[m.Name]
	if !found {
		t.pending[m.Name] = m
		return nil, nil, false, nil
	}
	if other.First == m.First && other.Last == m.Last {
		return nil, nil, false, &utils.InputError{Name: m.Name, Detail: "mates with identical first/last segment flags"}
	}
	delete(t.pending, m.Name)
	t.done[m.Name] = struct{}{}
	return other, m, true, nil
}

// Flush removes and returns all pending mates, ordered by position and
// name.
func (t *MateTable) Flush() []*Mate {
	mates := make([]*Mate, 0, len(t.pending))
	for _, m := range t.pending {
		mates = append(mates, m)
	}
	sort.Slice(mates, func(i, j int) bool {
		if mates[i].Start != mates[j].Start {
			return mates[i].Start < mates[j].Start
		}
		return mates[i].Name < mates[j].Name
	})
	t.pending = make(map[string]*Mate)
	return mates
}
