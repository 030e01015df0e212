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
	"testing"

	"github.com/SnellerInc/lx/rx"
)

func parseAll(t *testing.T, patterns []string) []rx.Expr {
	t.Helper()
	macros := rx.NewMacros()
	exprs := make([]rx.Expr, len(patterns))
	for i, pattern := range patterns {
		expr, err := rx.Parse(pattern, macros)
		if err != nil {
			t.Fatalf("pattern %q: %v", pattern, err)
		}
		exprs[i] = expr
	}
	return exprs
}

// compileDFA runs the full pipeline: NFA, subset construction,
// minimization, merged edges, renumbered states.
func compileDFA(t *testing.T, patterns []string) *DFAStore {
	t.Helper()
	nfaStore, err := Combine(parseAll(t, patterns), MaxNodes)
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	dfaStore, err := ToDFA(nfaStore, MaxNodes)
	if err != nil {
		t.Fatalf("ToDFA: %v", err)
	}
	minDfa, err := Minimize(dfaStore, MaxNodes)
	if err != nil {
		t.Fatalf("Minimize: %v", err)
	}
	minDfa.MergeEdgeRanges()
	if err := minDfa.Renumber(); err != nil {
		t.Fatalf("Renumber: %v", err)
	}
	return minDfa
}

func TestMatch(t *testing.T) {
	testCases := []struct {
		patterns []string
		input    string
		rule     int
		length   int
	}{
		{[]string{"a"}, "a", 0, 1},
		{[]string{"a"}, "b", -1, 0},
		{[]string{"a"}, "", -1, 0},
		{[]string{"ab|abc"}, "abd", 0, 2},
		{[]string{"ab|abc"}, "abc", 0, 3},
		{[]string{"a|abc"}, "abd", 0, 1},
		{[]string{"[0-9]+", "[a-z]+"}, "123abc", 0, 3},
		{[]string{"[0-9]+", "[a-z]+"}, "abc123", 1, 3},
		{[]string{"if", "[a-z]+"}, "if", 0, 2},
		{[]string{"if", "[a-z]+"}, "iffy", 1, 4},
		{[]string{"if", "[a-z]+"}, "i", 1, 1},
		{[]string{"[α-ω]+"}, "αβx", 0, 4}, // lengths are in bytes, not runes
		{[]string{"."}, "\n", -1, 0},
		{[]string{"."}, "π", 0, 2},
		{[]string{"a?b"}, "b", 0, 1},
		{[]string{"a?b"}, "ab", 0, 2},
		{[]string{"a?b"}, "aab", -1, 0},
		{[]string{"a{2,3}"}, "a", -1, 0},
		{[]string{"a{2,3}"}, "aaaa", 0, 3},
		{[]string{"b*"}, "", 0, 0},
		{[]string{"b*"}, "bbb", 0, 3},
		{[]string{"abc", "b*"}, "xyz", 1, 0},
		{[]string{`\+|-|\*|/`}, "*", 0, 1},
		{[]string{"0x[0-9a-fA-F]+", "0", "[0-9]+"}, "0x1F", 0, 4},
		{[]string{"0x[0-9a-fA-F]+", "0", "[0-9]+"}, "0", 1, 1},
		{[]string{"0x[0-9a-fA-F]+", "0", "[0-9]+"}, "0x", 1, 1},
		{[]string{`"[^"]*"`}, `"hi"`, 0, 4},
		{[]string{"[-+]?[0-9]+"}, "-12", 0, 3},
		{[]string{"(a|b)+"}, "abab", 0, 4},
		{[]string{"x"}, "xxxxx", 0, 1},
		{[]string{"[ \t]+"}, " \t ", 0, 3},
	}
	for i, tc := range testCases {
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			dfaStore := compileDFA(t, tc.patterns)
			rule, length := dfaStore.Match(tc.input)
			if (rule != tc.rule) || (length != tc.length) {
				t.Errorf("patterns %v input %q: Observed (%v, %v); expected (%v, %v)",
					tc.patterns, tc.input, rule, length, tc.rule, tc.length)
			}
		})
	}
}

// TestRulePriority pins the resolution order: the longest match
// wins, and among rules matching the same length the one declared
// first wins.
func TestRulePriority(t *testing.T) {
	testCases := []struct {
		patterns []string
		input    string
		rule     int
		length   int
	}{
		{[]string{"a+", "a"}, "aa", 0, 2},
		{[]string{"a+", "a"}, "a", 0, 1},
		{[]string{"a", "a+"}, "aa", 1, 2},
		{[]string{"a", "a+"}, "a", 0, 1},
	}
	for i, tc := range testCases {
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			dfaStore := compileDFA(t, tc.patterns)
			rule, length := dfaStore.Match(tc.input)
			if (rule != tc.rule) || (length != tc.length) {
				t.Errorf("patterns %v input %q: Observed (%v, %v); expected (%v, %v)",
					tc.patterns, tc.input, rule, length, tc.rule, tc.length)
			}
		})
	}
}

func TestMinimize(t *testing.T) {
	inputs := []string{"", "a", "aa", "ab", "abb", "abc", "123", "if", "iffy", "0x1F", " ", "z9", "aaab"}
	patternSets := [][]string{
		{"[0-9]+"},
		{"[0-9]+", "[a-z]+", "[ \t\n]+"},
		{"if", "else", "[a-z_][a-z0-9_]*"},
		{"a|b", "[ab]"},
		{"(a|b)*abb"},
		{"a{3}", "a+"},
	}
	for i, patterns := range patternSets {
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			nfaStore, err := Combine(parseAll(t, patterns), MaxNodes)
			if err != nil {
				t.Fatalf("Combine: %v", err)
			}
			dfaStore, err := ToDFA(nfaStore, MaxNodes)
			if err != nil {
				t.Fatalf("ToDFA: %v", err)
			}
			minDfa, err := Minimize(dfaStore, MaxNodes)
			if err != nil {
				t.Fatalf("Minimize: %v", err)
			}
			if minDfa.NumberOfNodes() > dfaStore.NumberOfNodes() {
				t.Errorf("Observed %v nodes after minimization; expected at most %v",
					minDfa.NumberOfNodes(), dfaStore.NumberOfNodes())
			}
			for _, input := range inputs {
				rule1, length1 := dfaStore.Match(input)
				rule2, length2 := minDfa.Match(input)
				if (rule1 != rule2) || (length1 != length2) {
					t.Errorf("input %q: Observed (%v, %v); expected (%v, %v)",
						input, rule2, length2, rule1, length1)
				}
			}
		})
	}
}

// TestMinimizeKeepsRulesApart: states accepting different rules
// must never be merged, even when they are otherwise equivalent.
func TestMinimizeKeepsRulesApart(t *testing.T) {
	dfaStore := compileDFA(t, []string{"ab", "cb"})
	// start, after-a, after-c, and one accept state per rule
	if observed := dfaStore.NumberOfNodes(); observed != 5 {
		t.Errorf("Observed %v nodes; expected 5", observed)
	}
	if rule, length := dfaStore.Match("ab"); (rule != 0) || (length != 2) {
		t.Errorf("Observed (%v, %v); expected (0, 2)", rule, length)
	}
	if rule, length := dfaStore.Match("cb"); (rule != 1) || (length != 2) {
		t.Errorf("Observed (%v, %v); expected (1, 2)", rule, length)
	}
}

func epsilonClosure(t *testing.T, store *NFAStore, in setT[nodeIDT]) setT[nodeIDT] {
	t.Helper()
	result := newSet[nodeIDT]()
	stack := newStack()
	for nodeID := range in {
		stack.push(nodeID)
		result.insert(nodeID)
	}
	for !stack.empty() {
		top := stack.top()
		stack.pop()
		node, err := store.get(top)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		for _, edge := range node.edges {
			if edge.epsilon() && !result.contains(edge.to) {
				result.insert(edge.to)
				stack.push(edge.to)
			}
		}
	}
	return result
}

func TestEpsilonClosureIdempotent(t *testing.T) {
	patternSets := [][]string{
		{"(a|b)*abb"},
		{"a*b*c*"},
		{"x{0,3}(y|z)+"},
		{"[0-9]+", "[a-z]+", "if"},
	}
	for i, patterns := range patternSets {
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			nfaStore, err := Combine(parseAll(t, patterns), MaxNodes)
			if err != nil {
				t.Fatalf("Combine: %v", err)
			}
			for _, nodeID := range nfaStore.getIDs() {
				seed := newSet[nodeIDT]()
				seed.insert(nodeID)
				once := epsilonClosure(t, nfaStore, seed)
				twice := epsilonClosure(t, nfaStore, once)
				if !twice.equal(&once) {
					t.Errorf("node %v: Observed %v; expected %v",
						nodeID, sortedVector(twice), sortedVector(once))
				}
			}
		})
	}
}

// TestPipelineDeterminism compiles the same rules twice and
// demands bit-identical automata; anything generated from them
// must be reproducible.
func TestPipelineDeterminism(t *testing.T) {
	patterns := []string{
		"[0-9]+",
		"[a-z_][a-z0-9_]*",
		"[ \t\n]+",
		`\+|-|\*|/`,
		"0x[0-9a-fA-F]+",
	}
	build := func() (*DFAStore, string) {
		dfaStore := compileDFA(t, patterns)
		var sb strings.Builder
		if err := dfaStore.Dot().DotContent(&sb, "dfa", "rules"); err != nil {
			t.Fatalf("DotContent: %v", err)
		}
		return dfaStore, sb.String()
	}
	dfa1, dot1 := build()
	dfa2, dot2 := build()

	if dot1 != dot2 {
		t.Errorf("Observed two different automata for the same rules:\n%v\n%v", dot1, dot2)
	}
	if dfa1.NumberOfNodes() != dfa2.NumberOfNodes() {
		t.Fatalf("Observed %v and %v nodes for the same rules", dfa1.NumberOfNodes(), dfa2.NumberOfNodes())
	}
	for state := 0; state < dfa1.NumberOfNodes(); state++ {
		transitions1, err := dfa1.Transitions(state)
		if err != nil {
			t.Fatalf("Transitions: %v", err)
		}
		transitions2, err := dfa2.Transitions(state)
		if err != nil {
			t.Fatalf("Transitions: %v", err)
		}
		if !slices.Equal(transitions1, transitions2) {
			t.Errorf("state %v: Observed %v; expected %v", state, transitions2, transitions1)
		}
		rule1, _ := dfa1.AcceptRule(state)
		rule2, _ := dfa2.AcceptRule(state)
		if rule1 != rule2 {
			t.Errorf("state %v: Observed rule %v; expected %v", state, rule2, rule1)
		}
	}
	if !strings.HasPrefix(dot1, "digraph dfa {") || !strings.Contains(dot1, "rankdir=LR") {
		t.Errorf("unexpected dot preamble:\n%v", dot1)
	}
}

func TestStartAccept(t *testing.T) {
	{
		dfaStore := compileDFA(t, []string{"a*"})
		rule, accepts := dfaStore.StartAccept()
		if !accepts || (rule != 0) {
			t.Errorf("A: Observed (%v, %v); expected (0, true)", rule, accepts)
		}
	}
	{
		dfaStore := compileDFA(t, []string{"a+"})
		if rule, accepts := dfaStore.StartAccept(); accepts {
			t.Errorf("B: Observed (%v, %v); expected (-1, false)", rule, accepts)
		}
	}
	{
		dfaStore := compileDFA(t, []string{"abc", "b*"})
		rule, accepts := dfaStore.StartAccept()
		if !accepts || (rule != 1) {
			t.Errorf("C: Observed (%v, %v); expected (1, true)", rule, accepts)
		}
	}
}

func TestMergedTransitions(t *testing.T) {
	dfaStore := compileDFA(t, []string{"[a-c]|[d-f]"})
	if observed := dfaStore.NumberOfNodes(); observed != 2 {
		t.Fatalf("Observed %v nodes; expected 2", observed)
	}
	transitions, err := dfaStore.Transitions(0)
	if err != nil {
		t.Fatalf("Transitions: %v", err)
	}
	// the derived alphabet splits a-c and d-f; merging puts the
	// adjacent pieces back together
	if expected := []Transition{{Lo: 'a', Hi: 'f', To: 1}}; !slices.Equal(transitions, expected) {
		t.Errorf("Observed %v; expected %v", transitions, expected)
	}
	rule, err := dfaStore.AcceptRule(1)
	if err != nil {
		t.Fatalf("AcceptRule: %v", err)
	}
	if rule != 0 {
		t.Errorf("Observed rule %v; expected 0", rule)
	}
}

func TestAutomatonTooLarge(t *testing.T) {
	exprs := parseAll(t, []string{"abc"})
	if _, err := Combine(exprs, 3); err == nil {
		t.Errorf("A: expected the NFA to exceed the node cap")
	}
	nfaStore, err := Combine(exprs, MaxNodes)
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	if _, err := ToDFA(nfaStore, 2); err == nil {
		t.Errorf("B: expected the DFA to exceed the node cap")
	}
}
