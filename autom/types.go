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

// Package autom turns rule expressions into a single deterministic
// automaton: Combine builds one NFA with per-rule accept tags,
// ToDFA runs the subset construction, and Minimize collapses it
// without ever merging states that accept different rules.
//
// Nodes live in arena-style stores and are addressed by dense
// integer ids; edges are labeled with packed rune ranges. Nothing
// in here holds a pointer into another node.
package autom

import "cmp"

type nodeIDT int32

const notInitialized = -1

// noRule is the accept tag of a non-accepting node; accepting
// nodes carry the index of the rule they accept, and smaller
// indexes always win ties.
const noRule = -1

// MaxNodes is the default cap on automaton size. Subset
// construction can be exponential in pathological rule sets;
// the cap turns that into an error instead of a hang.
const MaxNodes = 3000

type edgeT struct {
	symbolRange symbolRangeT
	to          nodeIDT
}

func (e *edgeT) epsilon() bool {
	return e.symbolRange == edgeEpsilonRange
}

func compareEdges(a, b edgeT) int {
	if c := cmp.Compare(a.symbolRange, b.symbolRange); c != 0 {
		return c
	}
	return cmp.Compare(a.to, b.to)
}

// Transition is one outgoing DFA edge in the exported,
// renumbered view of an automaton.
type Transition struct {
	Lo, Hi rune // inclusive symbol range
	To     int  // target state
}
