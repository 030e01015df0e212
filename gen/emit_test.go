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
	"strings"
	"testing"
)

func TestEmitDefault(t *testing.T) {
	_, tables := compileTables(t, []string{"[0-9]+", "[a-z]+", "[ \t]+"})
	actions := []string{"{ return NUM }", "{ return IDENT }", "{ }"}
	trailer := "const (\n\tNUM = iota + 1\n\tIDENT\n)\n"

	var buf bytes.Buffer
	if err := Emit(&buf, tables, nil, actions, trailer); err != nil {
		t.Fatal(err)
	}
	src := buf.String()

	if !strings.HasPrefix(src, "// Code generated by lx. DO NOT EDIT.") {
		t.Errorf("missing generated-code header")
	}
	for _, want := range []string{
		"package main\n",
		"func lxNewLexer(input string) *lxLexer {",
		"func (lx *lxLexer) Lex() int {",
		"func (lx *lxLexer) Text() string {",
		"func (lx *lxLexer) Err() error {",
		"func lxMatch(input string) (rule, length int) {",
		"func lxClassOf(r rune) int {",
		"var lxNext = []int16{",
		"var lxAccept = []int16{",
		"const lxNumClasses = ",
		"const lxStart = 1\n",
		fmt.Sprintf("const lxFingerprint uint64 = 0x%016x\n", tables.Fingerprint),
		"case 0:\n\t\t\t{ return NUM }",
		"case 1:\n\t\t\t{ return IDENT }",
		"case 2:\n\t\t\t{ }",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("emitted source lacks %q", want)
		}
	}
	if !strings.HasSuffix(src, trailer) {
		t.Errorf("emitted source does not end with the trailer")
	}
	if strings.Contains(src, "LX_") {
		t.Errorf("emitted source still contains a placeholder")
	}

	var again bytes.Buffer
	if err := Emit(&again, tables, nil, actions, trailer); err != nil {
		t.Fatal(err)
	}
	if again.String() != src {
		t.Errorf("two emits of the same tables differ")
	}
}

func TestEmitVars(t *testing.T) {
	_, tables := compileTables(t, []string{"[0-9]+"})
	vars := NewVars()
	for key, value := range map[string]string{
		VarPackage:  "calc",
		VarFunction: "NextTok",
		VarPrefix:   "my",
		VarReturn:   "Token",
	} {
		if err := vars.Set(key, value); err != nil {
			t.Fatal(err)
		}
	}
	var buf bytes.Buffer
	if err := Emit(&buf, tables, vars, []string{"{ return Number }"}, ""); err != nil {
		t.Fatal(err)
	}
	src := buf.String()
	for _, want := range []string{
		"package calc\n",
		"func (my *myLexer) NextTok() Token {",
		"var zero Token\n",
		"func myNewLexer(input string) *myLexer {",
		"func myMatch(input string) (rule, length int) {",
		"var myNext = []int16{",
		"const myStart = 1\n",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("emitted source lacks %q", want)
		}
	}
}

func TestEmitTemplatePassthrough(t *testing.T) {
	_, tables := compileTables(t, []string{"a"})
	var buf bytes.Buffer
	err := EmitTemplate(&buf, "AAA LX_BOGUS BBB LX_PACKAGE\n", tables, nil, []string{"{ }"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if obs, exp := buf.String(), "AAA LX_BOGUS BBB main\n"; obs != exp {
		t.Errorf("Observed %q expected %q", obs, exp)
	}
}

func TestEmitMissingAction(t *testing.T) {
	_, tables := compileTables(t, []string{"a", "b"})
	var buf bytes.Buffer
	err := Emit(&buf, tables, nil, []string{"{ return A }"}, "")
	if err == nil || !strings.Contains(err.Error(), "no action") {
		t.Errorf("Observed %v expected a missing-action error", err)
	}
}
