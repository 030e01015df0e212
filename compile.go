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

// Package lx compiles prioritized pattern/action rules into a
// table-driven scanner. The patterns are combined into a single
// automaton, determinized, minimized, and emitted as Go source
// whose matcher picks the longest match; among rules matching
// the same longest prefix, the one declared first wins.
package lx

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/SnellerInc/lx/autom"
	"github.com/SnellerInc/lx/gen"
	"github.com/SnellerInc/lx/rx"
)

// Rule is one pattern/action pair. Declaration order is
// priority order. Expr, when non-nil, is used as the parsed
// form of Pattern; the rules front end fills it in so that
// macro references resolve against its session table. When Expr
// is nil, Pattern is parsed with no macros in scope.
type Rule struct {
	Pattern string
	Expr    rx.Expr
	Action  string
	Line    int // 1-based source line, 0 when synthetic
}

// ErrNoRules is returned when no rule survives parsing. Rules
// matching only the empty string are dropped, so a rule set of
// nothing but epsilon patterns compiles to nothing at all.
var ErrNoRules = errors.New("no usable rules")

// ErrEmptyMatch is returned when the combined automaton accepts
// the empty string: some rule can succeed on zero input, and a
// scanner built from it would never advance.
var ErrEmptyMatch = errors.New("rule matches empty input")

// Result is a successful compilation.
type Result struct {
	Source []byte      // generated scanner source
	Tables *gen.Tables // matcher tables behind Source
}

// Compiler compiles rule sets with explicit knobs; the zero
// value works. Compile and CompileDebug cover the common cases.
type Compiler struct {
	Vars     *gen.Vars // emitter variables; nil means all defaults
	Template string    // scanner skeleton; "" means gen.DefaultTemplate
	Trailer  string    // verbatim text appended after the scanner
	DotDir   string    // when set, dump automaton dots below this directory
	MaxNodes int       // automaton size cap; 0 means autom.MaxNodes

	// Logf, when set, receives progress lines.
	Logf func(f string, args ...any)
}

func (c *Compiler) logf(f string, args ...any) {
	if c.Logf != nil {
		c.Logf(f, args...)
	}
}

func (c *Compiler) maxNodes() int {
	// the tables encode states as int16, so anything past the
	// table limit could never emit anyway
	const limit = 1 << 15
	if c.MaxNodes > 0 && c.MaxNodes < limit {
		return c.MaxNodes
	}
	if c.MaxNodes >= limit {
		return limit
	}
	return autom.MaxNodes
}

// expand parses patterns that arrived unparsed and drops rules
// that match only the empty string. Indices in the result are
// the rule tags the automaton carries, so the returned slice
// also maps tags back to source rules.
func (c *Compiler) expand(rules []Rule) ([]Rule, error) {
	macros := rx.NewMacros()
	var keep []Rule
	for i := range rules {
		r := rules[i]
		if r.Expr == nil {
			expr, err := rx.Parse(r.Pattern, macros)
			if err != nil {
				if r.Line > 0 {
					return nil, fmt.Errorf("line %d: %w", r.Line, err)
				}
				return nil, err
			}
			r.Expr = expr
		}
		if rx.IsEmpty(r.Expr) {
			c.logf("dropping rule %d: pattern %q matches only the empty string", i, r.Pattern)
			continue
		}
		keep = append(keep, r)
	}
	return keep, nil
}

// Run compiles rules into scanner source and tables. The run is
// deterministic: identical rules and settings produce identical
// bytes.
func (c *Compiler) Run(rules []Rule) (*Result, error) {
	keep, err := c.expand(rules)
	if err != nil {
		return nil, err
	}
	if len(keep) == 0 {
		return nil, ErrNoRules
	}
	exprs := make([]rx.Expr, len(keep))
	actions := make([]string, len(keep))
	for i := range keep {
		exprs[i] = keep[i].Expr
		actions[i] = keep[i].Action
	}

	maxNodes := c.maxNodes()
	nfaStore, err := autom.Combine(exprs, maxNodes)
	if err != nil {
		return nil, err
	}
	c.logf("combined %d rules into %d nfa nodes", len(keep), nfaStore.NumberOfNodes())

	dots, err := c.openDotDir()
	if err != nil {
		return nil, err
	}
	if dots != nil {
		if err := dots.writeNFA(nfaStore, "nfa"); err != nil {
			return nil, err
		}
		if err := nfaStore.RefactorEdges(); err != nil {
			return nil, err
		}
		if err := dots.writeNFA(nfaStore, "nfa_ref"); err != nil {
			return nil, err
		}
	}

	dfaStore, err := autom.ToDFA(nfaStore, maxNodes)
	if err != nil {
		return nil, err
	}
	c.logf("subset construction: %d dfa nodes", dfaStore.NumberOfNodes())
	if dots != nil {
		if err := dots.writeDFA(dfaStore, "dfa"); err != nil {
			return nil, err
		}
	}

	minStore, err := autom.Minimize(dfaStore, maxNodes)
	if err != nil {
		return nil, err
	}
	c.logf("minimized to %d nodes", minStore.NumberOfNodes())
	if rule, accepts := minStore.StartAccept(); accepts {
		r := keep[rule]
		if r.Line > 0 {
			return nil, fmt.Errorf("line %d: pattern %q: %w", r.Line, r.Pattern, ErrEmptyMatch)
		}
		return nil, fmt.Errorf("pattern %q: %w", r.Pattern, ErrEmptyMatch)
	}
	if err := minStore.Renumber(); err != nil {
		return nil, err
	}

	tables, err := gen.Build(minStore)
	if err != nil {
		return nil, err
	}
	c.logf("tables: %d states, %d classes, fingerprint 0x%016x",
		tables.NumStates, tables.NumClasses, tables.Fingerprint)
	if dots != nil {
		// merged ranges only after the tables are built; Build
		// needs the derived alphabet intact
		minStore.MergeEdgeRanges()
		if err := dots.writeDFA(minStore, "min"); err != nil {
			return nil, err
		}
	}

	template := c.Template
	if template == "" {
		template = gen.DefaultTemplate
	}
	var buf bytes.Buffer
	if err := gen.EmitTemplate(&buf, template, tables, c.Vars, actions, c.Trailer); err != nil {
		return nil, err
	}
	return &Result{Source: buf.Bytes(), Tables: tables}, nil
}

// Compile turns rules into generated scanner source with
// default settings.
func Compile(rules []Rule, vars *gen.Vars) ([]byte, error) {
	res, err := (&Compiler{Vars: vars}).Run(rules)
	if err != nil {
		return nil, err
	}
	return res.Source, nil
}

// CompileDebug is Compile with automaton snapshots: every stage
// is rendered as a graphviz dot file below dotDir.
func CompileDebug(rules []Rule, vars *gen.Vars, dotDir string) ([]byte, error) {
	res, err := (&Compiler{Vars: vars, DotDir: dotDir}).Run(rules)
	if err != nil {
		return nil, err
	}
	return res.Source, nil
}
