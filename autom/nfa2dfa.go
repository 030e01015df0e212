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
)

// joinSortSetInt encodes a node set as a canonical string key;
// node ids stay far below the surrogate range, so the rune
// encoding is collision free.
func joinSortSetInt(set *setT[nodeIDT]) string {
	vec := set.toVector()
	slices.Sort(vec)
	return joinVector(vec)
}

func joinVector(vec vectorT[nodeIDT]) string {
	return string(vec)
}

// getClosure creates the DFA node for the epsilon closure of the
// given NFA nodes. The closure's accept tag resolves to the
// smallest rule index among its accepting members, which is how
// the earliest declared rule wins conflicts.
func getClosure(nodes *vectorT[nodeIDT], nfaStore *NFAStore, dfaStore *DFAStore) (nodeIDT, error) {
	//NOTE nodes is never empty; if it is, that is an internal error
	stack := newStack()
	closure := newSet[nodeIDT]()
	symbolSet := newSet[symbolRangeT]()
	rule := noRule

	observe := func(nodeID nodeIDT) error {
		node, err := nfaStore.get(nodeID)
		if err != nil {
			return err
		}
		if node.rule != noRule && (rule == noRule || node.rule < rule) {
			rule = node.rule
		}
		return nil
	}
	for _, nodeID := range *nodes {
		stack.push(nodeID)
		if err := observe(nodeID); err != nil {
			return -1, fmt.Errorf("%v::getClosure", err)
		}
		closure.insert(nodeID)
	}
	for !stack.empty() {
		top := stack.top()
		stack.pop()
		node, err := nfaStore.get(top)
		if err != nil {
			return -1, fmt.Errorf("%v::getClosure", err)
		}
		for _, edge := range node.edges {
			if edge.epsilon() {
				if !closure.contains(edge.to) {
					stack.push(edge.to)
					if err := observe(edge.to); err != nil {
						return -1, fmt.Errorf("%v::getClosure", err)
					}
					closure.insert(edge.to)
				}
			} else {
				symbolSet.insert(edge.symbolRange)
			}
		}
	}
	resultID, err := dfaStore.newNode() //NOTE the only place where nodes are created in NFA->DFA
	if err != nil {
		return -1, fmt.Errorf("%v::getClosure", err)
	}
	result, err := dfaStore.get(resultID)
	if err != nil {
		return -1, fmt.Errorf("%v::getClosure", err)
	}
	result.key = joinSortSetInt(&closure)
	result.items = closure
	result.symbolSet = symbolSet
	result.rule = rule
	return resultID, nil
}

func getClosedMove(closureID nodeIDT, symbolRange symbolRangeT, nfaStore *NFAStore, dfaStore *DFAStore) (nodeIDT, error) {
	closure, err := dfaStore.get(closureID)
	if err != nil {
		return -1, fmt.Errorf("%v::getClosedMove", err)
	}
	nextNodes := newVector[nodeIDT]()
	for _, nodeID := range sortedVector(closure.items) {
		node, err := nfaStore.get(nodeID)
		if err != nil {
			return -1, fmt.Errorf("%v::getClosedMove", err)
		}
		for _, edge := range node.edges {
			if symbolRange == edge.symbolRange {
				nextNodes.pushBack(edge.to)
			}
		}
	}
	return getClosure(&nextNodes, nfaStore, dfaStore)
}

// ToDFA converts the provided NFA into a DFA with the classic
// worklist subset construction. Symbol ranges are refactored
// into the derived alphabet first, so per state every range
// leads to at most one target and distinct ranges never share
// a rune; input not covered by any range is an implicit reject.
func ToDFA(nfaStore *NFAStore, maxNodes int) (*DFAStore, error) {
	if err := nfaStore.refactorEdges(); err != nil {
		return nil, fmt.Errorf("%v::ToDFA", err)
	}
	dfaStore := newDFAStore(maxNodes)

	v := newVector[nodeIDT]()
	startNode, err := nfaStore.startID()
	if err != nil {
		return nil, fmt.Errorf("%v::ToDFA", err)
	}
	v.pushBack(startNode)

	startID, err := getClosure(&v, nfaStore, &dfaStore)
	if err != nil {
		return nil, fmt.Errorf("%v::ToDFA", err)
	}
	dfaStore.startIDi = startID

	first, err := dfaStore.get(startID)
	if err != nil {
		return nil, fmt.Errorf("%v::ToDFA", err)
	}
	first.start = true

	states := newMap[string, nodeIDT]()
	states.insert(first.key, startID)

	queue := newQueue()
	queue.push(startID)

	for !queue.empty() {
		topID := queue.front()
		queue.pop()
		top, err := dfaStore.get(topID)
		if err != nil {
			return nil, fmt.Errorf("%v::ToDFA", err)
		}
		// sorted so that node creation order, and with it every
		// downstream artifact, is identical between runs
		for _, symbolRange := range sortedVector(top.symbolSet) {
			closureID, err := getClosedMove(topID, symbolRange, nfaStore, &dfaStore)
			if err != nil {
				return nil, fmt.Errorf("%v::ToDFA", err)
			}
			node, err := dfaStore.get(closureID)
			if err != nil {
				return nil, fmt.Errorf("%v::ToDFA", err)
			}
			key := node.key
			if !states.containsKey(key) {
				states.insert(key, closureID)
				queue.push(closureID)
			}
			top.trans.insert(symbolRange, states.at(key))
			top.addEdge(edgeT{symbolRange, states.at(key)})
		}
	}
	if err = dfaStore.removeNonReachableNodes(); err != nil {
		return nil, fmt.Errorf("%v::ToDFA", err)
	}
	dfaStore.rebuildInternals()
	return &dfaStore, nil
}
