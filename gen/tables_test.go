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

package gen

import (
	"bytes"
	"fmt"
	"slices"
	"testing"

	"github.com/SnellerInc/lx/autom"
	"github.com/SnellerInc/lx/rx"
)

// compileTables runs patterns through the whole automaton
// pipeline and returns both the renumbered store and the tables
// built from it, so tests can compare the two matchers.
func compileTables(t *testing.T, patterns []string) (*autom.DFAStore, *Tables) {
	t.Helper()
	macros := rx.NewMacros()
	exprs := make([]rx.Expr, len(patterns))
	for i, pattern := range patterns {
		expr, err := rx.Parse(pattern, macros)
		if err != nil {
			t.Fatalf("parse %q: %v", pattern, err)
		}
		exprs[i] = expr
	}
	nfaStore, err := autom.Combine(exprs, autom.MaxNodes)
	if err != nil {
		t.Fatal(err)
	}
	dfaStore, err := autom.ToDFA(nfaStore, autom.MaxNodes)
	if err != nil {
		t.Fatal(err)
	}
	minStore, err := autom.Minimize(dfaStore, autom.MaxNodes)
	if err != nil {
		t.Fatal(err)
	}
	if err := minStore.Renumber(); err != nil {
		t.Fatal(err)
	}
	tables, err := Build(minStore)
	if err != nil {
		t.Fatal(err)
	}
	return minStore, tables
}

func TestTablesMatchAgainstSimulator(t *testing.T) {
	patternSets := [][]string{
		{"a+", "a"},
		{"a", "a+"},
		{"[0-9]+", "[a-z]+", " +"},
		{"if", "[a-z]+"},
		{"0|[1-9][0-9]*", "[0-9]+"},
		{`"[^"]*"`, "[ \t]+"},
		{"[α-ω]+", "."},
		{"a?b", "a{2,3}"},
		{"(ab)+", "a", "b*"},
		{"[_a-zA-Z][_a-zA-Z0-9]*", "[-+]?[0-9]+", "[ \t\n]+"},
	}
	inputs := []string{
		"", "a", "aa", "aaa", "b", "ab", "abab", "abc",
		"0", "00", "123", "123abc", "if", "iffy", "x y",
		"\"hi\" x", "\"\"", "αβγ", "πr", "\n", "-", "-42",
		"0x1f", " \t ", "zzz9", "_tmp1", "+",
	}
	for i, patterns := range patternSets {
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			store, tables := compileTables(t, patterns)
			for _, input := range inputs {
				obsRule, obsLength := tables.Match(input)
				expRule, expLength := store.Match(input)
				if obsRule != expRule || obsLength != expLength {
					t.Errorf("patterns %v input %q: Observed (%v, %v) expected (%v, %v)",
						patterns, input, obsRule, obsLength, expRule, expLength)
				}
			}
		})
	}
}

func TestTablesLayout(t *testing.T) {
	// "ab" alone: three automaton states plus the fail state,
	// one class for 'a' and one for 'b'
	_, tables := compileTables(t, []string{"ab"})
	if tables.NumStates != 4 {
		t.Errorf("Observed %v states expected 4", tables.NumStates)
	}
	if tables.NumClasses != 3 {
		t.Errorf("Observed %v classes expected 3", tables.NumClasses)
	}
	if tables.Start != 1 {
		t.Errorf("Observed start %v expected 1", tables.Start)
	}
	if !slices.Equal(tables.ClassLo, []rune{'a', 'b'}) ||
		!slices.Equal(tables.ClassHi, []rune{'a', 'b'}) {
		t.Errorf("Observed ranges %v..%v expected [a b]..[a b]", tables.ClassLo, tables.ClassHi)
	}
	if tables.ClassID[0] == tables.ClassID[1] {
		t.Errorf("'a' and 'b' share class %v", tables.ClassID[0])
	}
	if obs := tables.ClassOf('c'); obs != 0 {
		t.Errorf("Observed class %v for 'c' expected 0", obs)
	}
	if obs := tables.ClassOf('`'); obs != 0 {
		t.Errorf("Observed class %v for '`' expected 0", obs)
	}
	// the fail state has no way out
	for c := 0; c < tables.NumClasses; c++ {
		if tables.Next[c] != 0 {
			t.Errorf("fail state leaves through class %v", c)
		}
	}
	// class 0 leads nowhere from any state
	for s := 0; s < tables.NumStates; s++ {
		if tables.Next[s*tables.NumClasses] != 0 {
			t.Errorf("state %v has a transition on class 0", s)
		}
	}
	if tables.Accept[0] != -1 || tables.Accept[tables.Start] != -1 {
		t.Errorf("Observed accepts %v: fail and start must not accept", tables.Accept)
	}
	if n := countOf(tables.Accept, int16(0)); n != 1 {
		t.Errorf("Observed %v accepting states expected 1", n)
	}
	if rule, length := tables.Match("ab"); rule != 0 || length != 2 {
		t.Errorf("Observed (%v, %v) expected (0, 2)", rule, length)
	}
	if rule, length := tables.Match("a"); rule != -1 || length != 0 {
		t.Errorf("Observed (%v, %v) expected (-1, 0)", rule, length)
	}
	if rule, length := tables.Match("abb"); rule != 0 || length != 2 {
		t.Errorf("Observed (%v, %v) expected (0, 2)", rule, length)
	}
}

// countOf reports how many elements of s equal v; the standard
// library slices package has no Count.
func countOf[E comparable](s []E, v E) int {
	n := 0
	for _, e := range s {
		if e == v {
			n++
		}
	}
	return n
}

func TestClassCompression(t *testing.T) {
	{ // A: 'a' and 'd' behave identically and share a class,
		// but the gap at b..c keeps two lookup ranges
		_, tables := compileTables(t, []string{"[ad]x"})
		if tables.NumClasses != 3 {
			t.Errorf("Observed %v classes expected 3", tables.NumClasses)
		}
		if tables.ClassOf('a') != tables.ClassOf('d') {
			t.Errorf("Observed classes %v and %v for 'a' and 'd' expected equal",
				tables.ClassOf('a'), tables.ClassOf('d'))
		}
		if obs := tables.ClassOf('b'); obs != 0 {
			t.Errorf("Observed class %v for 'b' expected 0", obs)
		}
		if tables.ClassOf('x') == tables.ClassOf('a') {
			t.Errorf("'a' and 'x' share class %v", tables.ClassOf('a'))
		}
	}
	{ // B: adjacent ranges with one behavior collapse into a
		// single lookup range
		_, tables := compileTables(t, []string{"[a-c]|[d-f]"})
		if tables.NumClasses != 2 {
			t.Errorf("Observed %v classes expected 2", tables.NumClasses)
		}
		if !slices.Equal(tables.ClassLo, []rune{'a'}) || !slices.Equal(tables.ClassHi, []rune{'f'}) {
			t.Errorf("Observed ranges %v..%v expected a..f", tables.ClassLo, tables.ClassHi)
		}
		for r := 'a'; r <= 'f'; r++ {
			if rule, length := tables.Match(string(r)); rule != 0 || length != 1 {
				t.Errorf("Observed (%v, %v) for %q expected (0, 1)", rule, length, r)
			}
		}
		if rule, _ := tables.Match("g"); rule != -1 {
			t.Errorf("Observed rule %v for \"g\" expected -1", rule)
		}
	}
}

func TestTablesDeterministic(t *testing.T) {
	patterns := []string{"[_a-zA-Z][_a-zA-Z0-9]*", "0|[1-9][0-9]*", "[ \t\n]+", "==|=|<|>"}
	_, a := compileTables(t, patterns)
	_, b := compileTables(t, patterns)
	if a.Fingerprint != b.Fingerprint {
		t.Errorf("Observed fingerprints 0x%016x and 0x%016x expected equal",
			a.Fingerprint, b.Fingerprint)
	}
	if !bytes.Equal(a.appendTo(nil), b.appendTo(nil)) {
		t.Errorf("two builds of %v serialize differently", patterns)
	}
	_, c := compileTables(t, []string{"[_a-zA-Z][_a-zA-Z0-9]*", "0|[1-9][0-9]*"})
	if c.Fingerprint == a.Fingerprint {
		t.Errorf("different rule sets share fingerprint 0x%016x", a.Fingerprint)
	}
}

func TestTablesSerializeRoundTrip(t *testing.T) {
	_, tables := compileTables(t, []string{"[0-9]+", "[a-z]+", " +"})
	parsed, err := parseTables(tables.appendTo(nil))
	if err != nil {
		t.Fatal(err)
	}
	if parsed.NumStates != tables.NumStates ||
		parsed.NumClasses != tables.NumClasses ||
		parsed.Start != tables.Start {
		t.Errorf("Observed %vx%v start %v expected %vx%v start %v",
			parsed.NumStates, parsed.NumClasses, parsed.Start,
			tables.NumStates, tables.NumClasses, tables.Start)
	}
	if !slices.Equal(parsed.ClassLo, tables.ClassLo) ||
		!slices.Equal(parsed.ClassHi, tables.ClassHi) ||
		!slices.Equal(parsed.ClassID, tables.ClassID) {
		t.Errorf("class lookup does not round-trip")
	}
	if !slices.Equal(parsed.Next, tables.Next) || !slices.Equal(parsed.Accept, tables.Accept) {
		t.Errorf("transition tables do not round-trip")
	}
	for _, input := range []string{"", "123", "123abc", "abc 123", "?"} {
		obsRule, obsLength := parsed.Match(input)
		expRule, expLength := tables.Match(input)
		if obsRule != expRule || obsLength != expLength {
			t.Errorf("input %q: Observed (%v, %v) expected (%v, %v)",
				input, obsRule, obsLength, expRule, expLength)
		}
	}
}
