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

	"golang.org/x/exp/maps"
)

type dfaNode struct {
	id    nodeIDT
	key   string
	edges []edgeT
	start bool
	rule  int // resolved accept rule, or noRule

	symbolSet setT[symbolRangeT]

	// needed for closure
	items setT[nodeIDT]
	trans mapT[symbolRangeT, nodeIDT]
}

func (d *dfaNode) addEdge(e edgeT) {
	d.edges = append(d.edges, e)
}

// mergeEdgeRanges merges adjacent ranges that lead to the same
// target into the smallest equivalent edge set
func mergeEdgeRanges(edges []edgeT) []edgeT {
	var addWithMerge func(edge1 edgeT, edges *[]edgeT)
	addWithMerge = func(edge1 edgeT, edges *[]edgeT) {
		min1, max1 := edge1.symbolRange.split()
		for index2, edge2 := range *edges {
			if edge1.to == edge2.to {
				min2, max2 := edge2.symbolRange.split()
				if (min1 != min2) || (max1 != max2) {
					if (max1 + 1) == min2 {
						*edges = slices.Delete(*edges, index2, index2+1)
						addWithMerge(edgeT{newSymbolRange(min1, max2), edge1.to}, edges)
						return
					}
					if (max2 + 1) == min1 {
						*edges = slices.Delete(*edges, index2, index2+1)
						addWithMerge(edgeT{newSymbolRange(min2, max1), edge1.to}, edges)
						return
					}
				}
			}
		}
		*edges = append(*edges, edge1)
	}

	newEdges := make([]edgeT, 0, len(edges))
	for _, edge := range edges {
		addWithMerge(edge, &newEdges)
	}
	return newEdges
}

// DFAStore owns every node of one deterministic automaton.
type DFAStore struct {
	nextID   nodeIDT
	startIDi nodeIDT
	data     map[nodeIDT]*dfaNode
	maxNodes int
}

func newDFAStore(maxNodes int) DFAStore {
	return DFAStore{
		nextID:   0,
		startIDi: notInitialized,
		data:     map[nodeIDT]*dfaNode{},
		maxNodes: maxNodes,
	}
}

func (store *DFAStore) newNode() (nodeIDT, error) {
	nNodesBefore := store.NumberOfNodes()
	if nNodesBefore >= store.maxNodes {
		// the subset construction creates short-lived duplicate
		// nodes; dropping the unreachable ones may free room
		store.removeNonReachableNodes()
		nNodesAfter := store.NumberOfNodes()
		if nNodesAfter > (nNodesBefore - 10) {
			return -1, fmt.Errorf("DFA exceeds max number of nodes %v::newNode", store.maxNodes)
		}
	}
	nodeID := store.nextID
	store.nextID++
	node := new(dfaNode)
	node.id = nodeID
	node.rule = noRule
	node.symbolSet = newSet[symbolRangeT]()
	node.items = newSet[nodeIDT]()
	node.trans = newMap[symbolRangeT, nodeIDT]()
	store.data[nodeID] = node
	return nodeID, nil
}

func (store *DFAStore) get(nodeID nodeIDT) (*dfaNode, error) {
	if node, present := store.data[nodeID]; present {
		return node, nil
	}
	return nil, fmt.Errorf("DFAStore.get(%v) 51a3bd43: id not present in store", nodeID)
}

// startID returns the (sole) start nodeID
func (store *DFAStore) startID() (nodeIDT, error) {
	if store.startIDi == notInitialized {
		for nodeID, node := range store.data {
			if node.start {
				store.startIDi = nodeID
				return nodeID, nil
			}
		}
		return notInitialized, fmt.Errorf("DFAStore does not have a start node")
	}
	return store.startIDi, nil
}

// getIDs returns sorted slice of unique ids
func (store *DFAStore) getIDs() []nodeIDT {
	ids := maps.Keys(store.data)
	slices.Sort(ids)
	return ids
}

// NumberOfNodes returns the number of nodes in this automaton
func (store *DFAStore) NumberOfNodes() int {
	return len(store.data)
}

// removeNonReachableNodes removes states that are not reachable
// from the start-state
func (store *DFAStore) removeNonReachableNodes() error {
	var traverse func(nodeID nodeIDT, reachable *setT[nodeIDT])
	traverse = func(nodeID nodeIDT, reachable *setT[nodeIDT]) {
		if !reachable.contains(nodeID) {
			reachable.insert(nodeID)
			node, _ := store.get(nodeID)
			for _, edge := range node.edges {
				traverse(edge.to, reachable)
			}
		}
	}

	startID, err := store.startID()
	if err != nil {
		return fmt.Errorf("%v::removeNonReachableNodes", err)
	}
	reachable := newSet[nodeIDT]()
	traverse(startID, &reachable)

	for nodeID := range store.data {
		if !reachable.contains(nodeID) {
			delete(store.data, nodeID)
		}
	}
	return nil
}

func (store *DFAStore) rebuildInternals() {
	for _, node := range store.data {
		node.symbolSet.clear()
		node.items.clear()
		node.trans.clear()
		for _, edge := range node.edges {
			node.symbolSet.insert(edge.symbolRange)
			node.items.insert(edge.to)
			node.trans.insert(edge.symbolRange, edge.to)
		}
	}
}

// MergeEdgeRanges merges all edges into the smallest equivalent
// edge ranges; run it after Minimize so that the generated tables
// see one edge per contiguous span.
func (store *DFAStore) MergeEdgeRanges() {
	for _, node := range store.data {
		node.edges = mergeEdgeRanges(node.edges)
	}
	store.rebuildInternals()
}

// Renumber rebuilds the store so that node ids form the dense
// range 0..NumberOfNodes()-1 with the start node at 0, assigned
// in breadth-first order over edges sorted by symbol range. Two
// equal automata always end up with identical ids, which keeps
// everything generated from them byte-reproducible. Unreachable
// nodes are dropped.
func (store *DFAStore) Renumber() error {
	startID, err := store.startID()
	if err != nil {
		return fmt.Errorf("%v::Renumber", err)
	}
	order := newVector[nodeIDT]()
	seen := newSet[nodeIDT]()
	queue := newQueue()
	queue.push(startID)
	seen.insert(startID)
	for !queue.empty() {
		topID := queue.front()
		queue.pop()
		order.pushBack(topID)
		node, err := store.get(topID)
		if err != nil {
			return fmt.Errorf("%v::Renumber", err)
		}
		edges := slices.Clone(node.edges)
		slices.SortFunc(edges, compareEdges)
		for _, edge := range edges {
			if !seen.contains(edge.to) {
				seen.insert(edge.to)
				queue.push(edge.to)
			}
		}
	}
	mapping := newMap[nodeIDT, nodeIDT]()
	for i, oldID := range order {
		mapping.insert(oldID, nodeIDT(i))
	}
	data := map[nodeIDT]*dfaNode{}
	for i, oldID := range order {
		node, err := store.get(oldID)
		if err != nil {
			return fmt.Errorf("%v::Renumber", err)
		}
		node.id = nodeIDT(i)
		for j := range node.edges {
			node.edges[j].to = mapping.at(node.edges[j].to)
		}
		slices.SortFunc(node.edges, compareEdges)
		data[nodeIDT(i)] = node
	}
	store.data = data
	store.nextID = nodeIDT(len(order))
	store.startIDi = 0
	store.rebuildInternals()
	return nil
}

// StartAccept reports whether the start state itself accepts and,
// if so, which rule. A scanner built from such an automaton would
// match the empty string and never advance, so compilation rejects
// the rule set instead.
func (store *DFAStore) StartAccept() (rule int, accepts bool) {
	startID, err := store.startID()
	if err != nil {
		return noRule, false
	}
	node, err := store.get(startID)
	if err != nil {
		return noRule, false
	}
	return node.rule, node.rule != noRule
}

// AcceptRule returns the rule accepted in the given state, or -1
// when the state does not accept. States are addressed by their
// renumbered ids, so call Renumber first.
func (store *DFAStore) AcceptRule(state int) (int, error) {
	node, err := store.get(nodeIDT(state))
	if err != nil {
		return noRule, fmt.Errorf("%v::AcceptRule", err)
	}
	return node.rule, nil
}

// Transitions returns the outgoing edges of the given state
// sorted by symbol range. States are addressed by their
// renumbered ids, so call Renumber first.
func (store *DFAStore) Transitions(state int) ([]Transition, error) {
	node, err := store.get(nodeIDT(state))
	if err != nil {
		return nil, fmt.Errorf("%v::Transitions", err)
	}
	edges := slices.Clone(node.edges)
	slices.SortFunc(edges, compareEdges)
	result := make([]Transition, len(edges))
	for i, edge := range edges {
		lo, hi := edge.symbolRange.split()
		result[i] = Transition{Lo: lo, Hi: hi, To: int(edge.to)}
	}
	return result, nil
}

// Dot renders the automaton for graphviz; debugging aid.
func (store *DFAStore) Dot() *Graphviz {
	result := newGraphviz()
	for _, nodeID := range store.getIDs() {
		node, _ := store.get(nodeID)
		result.addNodeInt(nodeID, node.start, node.rule)
		for _, edge := range node.edges {
			result.addEdgeInt(nodeID, edge.to, edge.symbolRange.String())
		}
	}
	return result
}
