// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package autom

import "slices"

// overlapRange splits the union of two overlapping ranges at
// both of their boundaries; the pieces partition the union and
// are disjoint. Returns false when the ranges do not overlap.
func overlapRange(range1, range2 symbolRangeT) ([]symbolRangeT, bool) {
	min1, max1 := range1.split()
	min2, max2 := range2.split()

	if (min1 > max2) || (max1 < min2) {
		return nil, false
	}
	r1 := min(min1, min2)
	r2 := max(min1, min2)
	r3 := min(max1, max2)
	r4 := max(max1, max2)

	result := make([]symbolRangeT, 0, 3)
	if r1 <= (r2 - 1) {
		result = append(result, newSymbolRange(r1, r2-1))
	}
	if r2 <= r3 {
		result = append(result, newSymbolRange(r2, r3))
	}
	if (r3 + 1) <= r4 {
		result = append(result, newSymbolRange(r3+1, r4))
	}
	return result, true
}

// charGroupsRange holds the disjoint symbol ranges that form the
// derived alphabet: only ranges observed in the rule set ever get
// in, and overlapping ranges are split until none overlap.
type charGroupsRange struct {
	data setT[symbolRangeT]
}

func newCharGroupsRange() charGroupsRange {
	return charGroupsRange{newSet[symbolRangeT]()}
}

func (cg *charGroupsRange) add(newRange symbolRangeT) {
	if cg.data.empty() {
		cg.data.insert(newRange)
		return
	}
	if cg.data.contains(newRange) {
		return
	}
	for existingRange := range cg.data {
		if overlap, present := overlapRange(newRange, existingRange); present {
			cg.data.erase(existingRange)
			for _, newRange2 := range overlap {
				cg.add(newRange2)
			}
			return
		}
	}
	cg.data.insert(newRange)
}

// refactor maps symbolRange onto the disjoint pieces covering it.
// Returns false when the range is already a piece itself.
func (cg *charGroupsRange) refactor(symbolRange symbolRangeT) ([]symbolRangeT, bool) {
	if cg.data.contains(symbolRange) {
		return nil, false
	}
	min1, max1 := symbolRange.split()

	var result []symbolRangeT
	for existingRange := range cg.data {
		min2, max2 := existingRange.split()
		if (min1 > max2) || (max1 < min2) {
			continue // no overlap
		}
		result = append(result, existingRange)
	}
	if len(result) == 0 {
		return nil, false
	}
	// callers splice these into edge lists; sorted order keeps
	// those lists reproducible between runs
	slices.Sort(result)
	return result, true
}
