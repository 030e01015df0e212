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
	"testing"
	"unicode/utf8"
)

func equalEdges(edges1, edges2 []edgeT) bool {
	if len(edges1) != len(edges2) {
		return false
	}
	for _, edge1 := range edges1 {
		if !slices.Contains(edges2, edge1) {
			return false
		}
	}
	return true
}

func edgesToString(edges []edgeT) string {
	result := ""
	for _, edge := range edges {
		result += fmt.Sprintf("%v->%v;", edge.symbolRange, edge.to)
	}
	return result
}

func TestMergeEdgeRanges(t *testing.T) {
	{
		node := new(dfaNode)
		node.addEdge(edgeT{newSymbolRange('a', 'a'), 0})
		node.addEdge(edgeT{newSymbolRange('b', 'b'), 0})
		newEdges := mergeEdgeRanges(node.edges)

		expected := newVector[edgeT]()
		expected.pushBack(edgeT{newSymbolRange('a', 'b'), 0})

		if !equalEdges(newEdges, expected) {
			t.Errorf("A: Observed %v expected %v\n", edgesToString(newEdges), edgesToString(expected))
		}
	}
	{
		node := new(dfaNode)
		node.addEdge(edgeT{newSymbolRange('a', 'c'), 0})
		node.addEdge(edgeT{newSymbolRange('d', 'e'), 1})
		newEdges := mergeEdgeRanges(node.edges)

		expected := newVector[edgeT]()
		expected.pushBack(edgeT{newSymbolRange('a', 'c'), 0})
		expected.pushBack(edgeT{newSymbolRange('d', 'e'), 1})

		if !equalEdges(newEdges, expected) {
			t.Errorf("B: Observed %v expected %v\n", edgesToString(newEdges), edgesToString(expected))
		}
	}
	{
		node := new(dfaNode)
		node.addEdge(edgeT{newSymbolRange('0', '4'), 2})
		node.addEdge(edgeT{newSymbolRange('5', '9'), 2})
		newEdges := mergeEdgeRanges(node.edges)

		expected := newVector[edgeT]()
		expected.pushBack(edgeT{newSymbolRange('0', '9'), 2})

		if !equalEdges(newEdges, expected) {
			t.Errorf("C: Observed %v expected %v\n", edgesToString(newEdges), edgesToString(expected))
		}
	}
	{
		node := new(dfaNode)
		node.addEdge(edgeT{newSymbolRange('H', 'H'), 1})
		node.addEdge(edgeT{newSymbolRange('I', utf8.MaxRune), 1})
		node.addEdge(edgeT{newSymbolRange('D', 'G'), 1})
		node.addEdge(edgeT{newSymbolRange('0', '9'), 2})
		newEdges := mergeEdgeRanges(node.edges)

		expected := newVector[edgeT]()
		expected.pushBack(edgeT{newSymbolRange('D', utf8.MaxRune), 1})
		expected.pushBack(edgeT{newSymbolRange('0', '9'), 2})

		if !equalEdges(newEdges, expected) {
			t.Errorf("D: Observed %v expected %v\n", edgesToString(newEdges), edgesToString(expected))
		}
	}
}

func TestRenumber(t *testing.T) {
	store := newDFAStore(MaxNodes)
	n0, _ := store.newNode()
	n1, _ := store.newNode() // unreachable
	n2, _ := store.newNode()
	n3, _ := store.newNode()

	node2, _ := store.get(n2)
	node2.start = true
	store.startIDi = n2
	node2.addEdge(edgeT{newSymbolRange('a', 'a'), n0})

	node0, _ := store.get(n0)
	node0.addEdge(edgeT{newSymbolRange('b', 'b'), n3})

	node3, _ := store.get(n3)
	node3.rule = 5

	if err := store.Renumber(); err != nil {
		t.Fatalf("Renumber: %v", err)
	}
	if observed := store.NumberOfNodes(); observed != 3 {
		t.Errorf("A: Observed %v nodes; expected 3 (node %v is unreachable)", observed, n1)
	}
	ids := store.getIDs()
	for i, id := range ids {
		if id != nodeIDT(i) {
			t.Errorf("B: Observed ids %v; expected the dense range 0..%v", ids, len(ids)-1)
			break
		}
	}
	startID, err := store.startID()
	if err != nil {
		t.Fatalf("startID: %v", err)
	}
	if startID != 0 {
		t.Errorf("C: Observed start %v; expected 0", startID)
	}
	transitions, err := store.Transitions(0)
	if err != nil {
		t.Fatalf("Transitions: %v", err)
	}
	if expected := []Transition{{Lo: 'a', Hi: 'a', To: 1}}; !slices.Equal(transitions, expected) {
		t.Errorf("D: Observed %v; expected %v", transitions, expected)
	}
	transitions, err = store.Transitions(1)
	if err != nil {
		t.Fatalf("Transitions: %v", err)
	}
	if expected := []Transition{{Lo: 'b', Hi: 'b', To: 2}}; !slices.Equal(transitions, expected) {
		t.Errorf("E: Observed %v; expected %v", transitions, expected)
	}
	rule, err := store.AcceptRule(2)
	if err != nil {
		t.Fatalf("AcceptRule: %v", err)
	}
	if rule != 5 {
		t.Errorf("F: Observed rule %v; expected 5", rule)
	}
	if rule, _ := store.AcceptRule(0); rule != -1 {
		t.Errorf("G: Observed rule %v; expected -1", rule)
	}
}
