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

	"github.com/SnellerInc/lx/rx"
)

type nfaNode struct {
	id    nodeIDT
	edges []edgeT
	start bool
	rule  int // accepted rule index, or noRule
}

func (n *nfaNode) addEdge(symbolRange symbolRangeT, to nodeIDT) {
	n.edges = append(n.edges, edgeT{symbolRange, to})
}

func (n *nfaNode) removeEdge(symbolRange symbolRangeT, to nodeIDT) {
	for index, edge := range n.edges {
		if (edge.to == to) && (edge.symbolRange == symbolRange) {
			n.edges = slices.Delete(n.edges, index, index+1)
			return
		}
	}
}

// NFAStore owns every node of one nondeterministic automaton.
type NFAStore struct {
	nextID   nodeIDT
	startIDi nodeIDT
	data     map[nodeIDT]*nfaNode
	maxNodes int
}

func newNFAStore(maxNodes int) NFAStore {
	return NFAStore{
		nextID:   0,
		startIDi: notInitialized,
		data:     map[nodeIDT]*nfaNode{},
		maxNodes: maxNodes,
	}
}

func (store *NFAStore) newNode() (nodeIDT, error) {
	if len(store.data) >= store.maxNodes {
		return -1, fmt.Errorf("NFA exceeds max number of nodes %v::newNode", store.maxNodes)
	}
	nodeID := store.nextID
	store.nextID++
	node := new(nfaNode)
	node.id = nodeID
	node.rule = noRule
	store.data[nodeID] = node
	return nodeID, nil
}

func (store *NFAStore) get(nodeID nodeIDT) (*nfaNode, error) {
	if node, present := store.data[nodeID]; present {
		return node, nil
	}
	return nil, fmt.Errorf("NFAStore.get(%v): id not present in store", nodeID)
}

func (store *NFAStore) startID() (nodeIDT, error) {
	if store.startIDi == notInitialized {
		for nodeID, node := range store.data {
			if node.start {
				store.startIDi = nodeID
				return nodeID, nil
			}
		}
		return notInitialized, fmt.Errorf("NFAStore does not have a start node")
	}
	return store.startIDi, nil
}

// getIDs returns sorted slice of unique ids
func (store *NFAStore) getIDs() vectorT[nodeIDT] {
	ids := maps.Keys(store.data)
	slices.Sort(ids)
	return ids
}

// NumberOfNodes returns the number of nodes in this automaton
func (store *NFAStore) NumberOfNodes() int {
	return len(store.data)
}

func (store *NFAStore) addEdge(from nodeIDT, symbolRange symbolRangeT, to nodeIDT) error {
	node, err := store.get(from)
	if err != nil {
		return fmt.Errorf("%v::addEdge", err)
	}
	node.addEdge(symbolRange, to)
	return nil
}

// Combine builds one automaton recognizing every rule at once:
// a fresh shared start node gets an epsilon edge to each rule's
// fragment, in declaration order, and each fragment's accepting
// node is tagged with its rule index. The index doubles as the
// priority: lower wins when the DFA later resolves conflicts.
func Combine(exprs []rx.Expr, maxNodes int) (*NFAStore, error) {
	store := newNFAStore(maxNodes)
	startID, err := store.newNode()
	if err != nil {
		return nil, fmt.Errorf("%v::Combine", err)
	}
	start, err := store.get(startID)
	if err != nil {
		return nil, fmt.Errorf("%v::Combine", err)
	}
	start.start = true
	store.startIDi = startID

	for i, e := range exprs {
		from, to, err := store.insert(e)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %v::Combine", i, err)
		}
		if err := store.addEdge(startID, edgeEpsilonRange, from); err != nil {
			return nil, fmt.Errorf("%v::Combine", err)
		}
		accept, err := store.get(to)
		if err != nil {
			return nil, fmt.Errorf("%v::Combine", err)
		}
		accept.rule = i
	}
	return &store, nil
}

// insert adds a Thompson fragment for e and returns its entry
// and exit nodes. Exactly one exit per fragment; the exit has no
// outgoing edges yet.
func (store *NFAStore) insert(e rx.Expr) (from, to nodeIDT, err error) {
	switch e := e.(type) {
	case *rx.Empty:
		return store.insertEpsilon()
	case *rx.Class:
		if from, err = store.newNode(); err != nil {
			return
		}
		if to, err = store.newNode(); err != nil {
			return
		}
		for _, r := range e.Ranges {
			if err = store.addEdge(from, newSymbolRange(r.Lo, r.Hi), to); err != nil {
				return
			}
		}
		return
	case *rx.Cat:
		var to1, from2 nodeIDT
		if from, to1, err = store.insert(e.L); err != nil {
			return
		}
		if from2, to, err = store.insert(e.R); err != nil {
			return
		}
		err = store.addEdge(to1, edgeEpsilonRange, from2)
		return
	case *rx.Alt:
		if from, err = store.newNode(); err != nil {
			return
		}
		if to, err = store.newNode(); err != nil {
			return
		}
		for _, branch := range []rx.Expr{e.L, e.R} {
			var bf, bt nodeIDT
			if bf, bt, err = store.insert(branch); err != nil {
				return
			}
			if err = store.addEdge(from, edgeEpsilonRange, bf); err != nil {
				return
			}
			if err = store.addEdge(bt, edgeEpsilonRange, to); err != nil {
				return
			}
		}
		return
	case *rx.Rep:
		return store.insertRep(e)
	}
	return 0, 0, fmt.Errorf("unknown expression %T::insert", e)
}

func (store *NFAStore) insertEpsilon() (from, to nodeIDT, err error) {
	if from, err = store.newNode(); err != nil {
		return
	}
	if to, err = store.newNode(); err != nil {
		return
	}
	err = store.addEdge(from, edgeEpsilonRange, to)
	return
}

// insertRep expands bounded repetition structurally: Min chained
// copies, then either a loop edge on the last copy (unbounded) or
// Max-Min copies with epsilon bypasses.
func (store *NFAStore) insertRep(e *rx.Rep) (from, to nodeIDT, err error) {
	if e.Max == 0 || (e.Min == 0 && e.Max < 0 && rx.IsEmpty(e.E)) {
		return store.insertEpsilon()
	}
	if e.Min == 0 && e.Max < 0 {
		return store.insertStar(e.E)
	}
	from, to = notInitialized, notInitialized
	link := func(f, t nodeIDT) error {
		if from == notInitialized {
			from, to = f, t
			return nil
		}
		if err := store.addEdge(to, edgeEpsilonRange, f); err != nil {
			return err
		}
		to = t
		return nil
	}
	for i := 0; i < e.Min; i++ {
		f, t, err := store.insert(e.E)
		if err != nil {
			return 0, 0, err
		}
		if e.Max < 0 && i == e.Min-1 {
			// last required copy may repeat
			if err := store.addEdge(t, edgeEpsilonRange, f); err != nil {
				return 0, 0, err
			}
		}
		if err := link(f, t); err != nil {
			return 0, 0, err
		}
	}
	for i := e.Min; i < e.Max; i++ {
		f, t, err := store.insert(e.E)
		if err != nil {
			return 0, 0, err
		}
		if err := store.addEdge(f, edgeEpsilonRange, t); err != nil {
			return 0, 0, err
		}
		if err := link(f, t); err != nil {
			return 0, 0, err
		}
	}
	return from, to, nil
}

func (store *NFAStore) insertStar(e rx.Expr) (from, to nodeIDT, err error) {
	if from, err = store.newNode(); err != nil {
		return
	}
	if to, err = store.newNode(); err != nil {
		return
	}
	var bf, bt nodeIDT
	if bf, bt, err = store.insert(e); err != nil {
		return
	}
	if err = store.addEdge(from, edgeEpsilonRange, bf); err != nil {
		return
	}
	if err = store.addEdge(bt, edgeEpsilonRange, to); err != nil {
		return
	}
	if err = store.addEdge(from, edgeEpsilonRange, to); err != nil {
		return
	}
	err = store.addEdge(bt, edgeEpsilonRange, bf)
	return
}

// RefactorEdges rewrites the edges over the derived alphabet so
// that intermediate automata can be inspected; ToDFA refactors on
// its own, so calling this is never required. Idempotent.
func (store *NFAStore) RefactorEdges() error {
	return store.refactorEdges()
}

// refactorEdges rewrites symbol edges over the derived alphabet:
// the disjoint ranges produced by splitting every observed range
// at every other observed range's boundaries. Afterwards two
// edges either carry the same range or ranges that never share a
// rune, which is what the subset construction assumes.
func (store *NFAStore) refactorEdges() error {
	cg := newCharGroupsRange()
	for _, nodeID := range store.getIDs() {
		node, err := store.get(nodeID)
		if err != nil {
			return fmt.Errorf("%v::refactorEdges", err)
		}
		for _, edge := range node.edges {
			if !edge.epsilon() {
				cg.add(edge.symbolRange)
			}
		}
	}
	toRemove := newVector[edgeT]()
	for _, nodeID := range store.getIDs() {
		node, err := store.get(nodeID)
		if err != nil {
			return fmt.Errorf("%v::refactorEdges", err)
		}
		for _, edge := range node.edges {
			if !edge.epsilon() {
				if newRanges, present := cg.refactor(edge.symbolRange); present {
					toRemove.pushBack(edge)
					for _, symbolRange := range newRanges {
						node.addEdge(symbolRange, edge.to)
					}
				}
			}
		}
		for _, edge := range toRemove {
			node.removeEdge(edge.symbolRange, edge.to)
		}
		toRemove.clear()
	}
	return nil
}

func (store *NFAStore) dot() *Graphviz {
	result := newGraphviz()
	for _, nodeID := range store.getIDs() {
		node, _ := store.get(nodeID)
		fromStr := fmt.Sprintf("%v", nodeID)
		result.addNode(fromStr, node.start, node.rule)
		for _, edge := range node.edges {
			result.addEdge(fromStr, fmt.Sprintf("%v", edge.to), edge.symbolRange.String())
		}
	}
	return result
}

// Dot renders the automaton for graphviz; debugging aid.
func (store *NFAStore) Dot() *Graphviz {
	return store.dot()
}
