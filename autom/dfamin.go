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

import (
	"fmt"
	"slices"
	"strings"
)

// Minimize returns an equivalent automaton with the minimal
// number of states. The initial partition holds one class per
// accept tag (plus one for non-accepting states), so states
// that accept different rules are never merged and per-rule
// acceptance survives minimization. Classes are then split
// until no two members disagree, for any symbol range, on the
// target's class.
//
// The result never has more states than the input.
func Minimize(dfaStore *DFAStore, maxNodes int) (*DFAStore, error) {
	dfaStore.rebuildInternals()
	startID, err := dfaStore.startID()
	if err != nil {
		return nil, fmt.Errorf("%v::Minimize", err)
	}
	ids := dfaStore.getIDs()

	// the derived alphabet of the whole automaton
	symbolSet := newSet[symbolRangeT]()
	for _, nodeID := range ids {
		node, err := dfaStore.get(nodeID)
		if err != nil {
			return nil, fmt.Errorf("%v::Minimize", err)
		}
		for symbolRange := range node.symbolSet {
			symbolSet.insert(symbolRange)
		}
	}
	symbols := sortedVector(symbolSet)

	// initial partition: one class per accept tag, numbered in
	// first-seen order over ascending node ids
	class := newMap[nodeIDT, int]()
	ruleClass := newMap[int, int]()
	nClasses := 0
	for _, nodeID := range ids {
		node, err := dfaStore.get(nodeID)
		if err != nil {
			return nil, fmt.Errorf("%v::Minimize", err)
		}
		if !ruleClass.containsKey(node.rule) {
			ruleClass.insert(node.rule, nClasses)
			nClasses++
		}
		class.insert(nodeID, ruleClass.at(node.rule))
	}

	// refine to a fixed point. Signatures are rune-encoded
	// strings: the node's own class, then the target class per
	// symbol (0 = no transition). Class ids stay far below the
	// surrogate range, so the encoding is collision free. The
	// class count can only grow and is bounded by the state
	// count, so this terminates.
	var sb strings.Builder
	for {
		next := newMap[nodeIDT, int]()
		keys := newMap[string, int]()
		n := 0
		for _, nodeID := range ids {
			node, err := dfaStore.get(nodeID)
			if err != nil {
				return nil, fmt.Errorf("%v::Minimize", err)
			}
			sb.Reset()
			sb.WriteRune(rune(class.at(nodeID) + 1))
			for _, symbolRange := range symbols {
				c := 0
				if node.trans.containsKey(symbolRange) {
					c = class.at(node.trans.at(symbolRange)) + 1
				}
				sb.WriteRune(rune(c))
			}
			key := sb.String()
			if !keys.containsKey(key) {
				keys.insert(key, n)
				n++
			}
			next.insert(nodeID, keys.at(key))
		}
		class = next
		if n == nClasses {
			break
		}
		nClasses = n
	}
	return buildMinDfa(startID, class, nClasses, dfaStore, maxNodes)
}

// buildMinDfa rebuilds a fresh store with one node per class.
// The start class becomes node 0; the remaining classes keep
// their (deterministic) first-seen order. Each class inherits
// the accept tag and edges of its smallest member.
func buildMinDfa(startID nodeIDT, class mapT[nodeIDT, int], nClasses int, dfaStoreOld *DFAStore, maxNodes int) (*DFAStore, error) {
	ids := dfaStoreOld.getIDs()

	members := make([]vectorT[nodeIDT], nClasses)
	for _, nodeID := range ids {
		c := class.at(nodeID)
		members[c] = append(members[c], nodeID)
	}
	startClass := class.at(startID)
	classOrder := make([]int, 0, nClasses)
	classOrder = append(classOrder, startClass)
	for c := 0; c < nClasses; c++ {
		if c != startClass {
			classOrder = append(classOrder, c)
		}
	}

	dfaStoreNew := newDFAStore(maxNodes)
	newID := newMap[int, nodeIDT]()
	for _, c := range classOrder {
		nodeID, err := dfaStoreNew.newNode()
		if err != nil {
			return nil, fmt.Errorf("%v::buildMinDfa", err)
		}
		node, err := dfaStoreNew.get(nodeID)
		if err != nil {
			return nil, fmt.Errorf("%v::buildMinDfa", err)
		}
		rep, err := dfaStoreOld.get(members[c].at(0))
		if err != nil {
			return nil, fmt.Errorf("%v::buildMinDfa", err)
		}
		node.key = joinVector(members[c])
		node.rule = rep.rule
		node.start = c == startClass
		newID.insert(c, nodeID)
	}
	for _, c := range classOrder {
		rep, err := dfaStoreOld.get(members[c].at(0))
		if err != nil {
			return nil, fmt.Errorf("%v::buildMinDfa", err)
		}
		node, err := dfaStoreNew.get(newID.at(c))
		if err != nil {
			return nil, fmt.Errorf("%v::buildMinDfa", err)
		}
		edges := slices.Clone(rep.edges)
		slices.SortFunc(edges, compareEdges)
		for _, edge := range edges {
			node.addEdge(edgeT{edge.symbolRange, newID.at(class.at(edge.to))})
		}
	}
	dfaStoreNew.startIDi = newID.at(startClass)
	dfaStoreNew.rebuildInternals()
	return &dfaStoreNew, nil
}
