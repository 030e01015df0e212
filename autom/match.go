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

import "unicode/utf8"

// Match runs the automaton over the beginning of input and
// returns the winning rule together with the length in bytes of
// the matched prefix. The longest match wins; among rules that
// match the same length the accept tags already resolve to the
// smallest rule index. Match returns (-1, 0) when no rule
// matches any prefix; rule >= 0 with length 0 means the start
// state itself accepts.
//
// This is the semantic reference for generated scanners:
// table-driven matching must agree with it exactly.
func (store *DFAStore) Match(input string) (rule, length int) {
	rule, length = -1, 0
	nodeID, err := store.startID()
	if err != nil {
		return
	}
	node, err := store.get(nodeID)
	if err != nil {
		return
	}
	if node.rule != noRule {
		rule, length = node.rule, 0
	}
	pos := 0
	for pos < len(input) {
		r, width := utf8.DecodeRuneInString(input[pos:])
		next := nodeIDT(notInitialized)
		for _, edge := range node.edges {
			min, max := edge.symbolRange.split()
			if r >= min && r <= max {
				next = edge.to
				break
			}
		}
		if next == notInitialized {
			break
		}
		node, err = store.get(next)
		if err != nil {
			return
		}
		pos += width
		if node.rule != noRule {
			rule, length = node.rule, pos
		}
	}
	return
}
