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
	"fmt"
	"io"
	"strings"
)

// Placeholder identifiers substituted by Emit. Anything else in
// a template passes through untouched.
const (
	PlaceholderPackage  = "LX_PACKAGE"
	PlaceholderFunction = "LX_FUNCTION"
	PlaceholderPrefix   = "LX_PREFIX"
	PlaceholderReturn   = "LX_RETURN"
	PlaceholderTables   = "LX_TABLES"
	PlaceholderActions  = "LX_ACTIONS"
)

// DefaultTemplate is the built-in scanner skeleton. The emitted
// scanner walks the tables rune by rune, remembers the last
// accepting position and runs the winning rule's action text
// verbatim; actions that do not return resume scanning. Rules
// never match empty input (compilation rejects that), so the
// scan loop always advances.
const DefaultTemplate = `// Code generated by lx. DO NOT EDIT.

package LX_PACKAGE

import (
	"fmt"
	"io"
	"unicode/utf8"
)

LX_TABLES

// LX_PREFIXLexer scans LX_RETURN tokens from an input string.
type LX_PREFIXLexer struct {
	input string
	start int
	pos   int
	err   error
}

// LX_PREFIXNewLexer returns a lexer over input.
func LX_PREFIXNewLexer(input string) *LX_PREFIXLexer {
	return &LX_PREFIXLexer{input: input}
}

// Text returns the text of the last matched token.
func (LX_PREFIX *LX_PREFIXLexer) Text() string {
	return LX_PREFIX.input[LX_PREFIX.start:LX_PREFIX.pos]
}

// Pos returns the byte offset of the last matched token.
func (LX_PREFIX *LX_PREFIXLexer) Pos() int {
	return LX_PREFIX.start
}

// Err returns io.EOF once the input is exhausted, or the scan
// error that stopped LX_FUNCTION.
func (LX_PREFIX *LX_PREFIXLexer) Err() error {
	return LX_PREFIX.err
}

// LX_FUNCTION returns the next token. It returns the zero
// LX_RETURN when scanning stops; Err reports io.EOF at clean end
// of input, or an error naming the offset of input that no rule
// matches.
func (LX_PREFIX *LX_PREFIXLexer) LX_FUNCTION() LX_RETURN {
	var zero LX_RETURN
	for LX_PREFIX.pos < len(LX_PREFIX.input) {
		rule, length := LX_PREFIXMatch(LX_PREFIX.input[LX_PREFIX.pos:])
		if rule < 0 {
			LX_PREFIX.err = fmt.Errorf("no rule matches input at offset %d", LX_PREFIX.pos)
			return zero
		}
		LX_PREFIX.start = LX_PREFIX.pos
		LX_PREFIX.pos += length
		switch rule {
LX_ACTIONS
		}
	}
	LX_PREFIX.err = io.EOF
	return zero
}

// LX_PREFIXMatch reports the longest match at the start of
// input: the rule index and the length in bytes, or (-1, 0)
// when no rule matches.
func LX_PREFIXMatch(input string) (rule, length int) {
	rule, length = -1, 0
	state := LX_PREFIXStart
	if a := LX_PREFIXAccept[state]; a >= 0 {
		rule, length = int(a), 0
	}
	pos := 0
	for pos < len(input) {
		r, width := utf8.DecodeRuneInString(input[pos:])
		state = int(LX_PREFIXNext[state*LX_PREFIXNumClasses+LX_PREFIXClassOf(r)])
		if state == 0 {
			break
		}
		pos += width
		if a := LX_PREFIXAccept[state]; a >= 0 {
			rule, length = int(a), pos
		}
	}
	return
}

// LX_PREFIXClassOf maps a rune to its character class; class 0
// means no rule mentions the rune.
func LX_PREFIXClassOf(r rune) int {
	lo, hi := 0, len(LX_PREFIXClassLo)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case r < LX_PREFIXClassLo[mid]:
			hi = mid
		case r > LX_PREFIXClassHi[mid]:
			lo = mid + 1
		default:
			return int(LX_PREFIXClassID[mid])
		}
	}
	return 0
}
`

// Emit writes the generated scanner to w using the built-in
// skeleton: tables, the table-driven matcher, and the action
// dispatch with actions[i] pasted verbatim for rule i. The
// trailer, when not empty, is appended verbatim at the end.
// Identical arguments produce identical bytes.
func Emit(w io.Writer, t *Tables, vars *Vars, actions []string, trailer string) error {
	return EmitTemplate(w, DefaultTemplate, t, vars, actions, trailer)
}

// EmitTemplate is Emit with a caller-provided skeleton replacing
// DefaultTemplate.
func EmitTemplate(w io.Writer, template string, t *Tables, vars *Vars, actions []string, trailer string) error {
	for _, a := range t.Accept {
		if int(a) >= len(actions) {
			return fmt.Errorf("gen: rule %d has no action", a)
		}
	}
	prefix := vars.Get(VarPrefix)
	src := strings.NewReplacer(
		PlaceholderPackage, vars.Get(VarPackage),
		PlaceholderFunction, vars.Get(VarFunction),
		PlaceholderPrefix, prefix,
		PlaceholderReturn, vars.Get(VarReturn),
		PlaceholderTables, renderTables(t, prefix),
		PlaceholderActions, renderActions(actions),
	).Replace(template)
	if trailer != "" {
		if !strings.HasSuffix(src, "\n") {
			src += "\n"
		}
		src += "\n" + trailer
		if !strings.HasSuffix(trailer, "\n") {
			src += "\n"
		}
	}
	_, err := io.WriteString(w, src)
	return err
}

// renderTables prints the table declarations with the prefix
// already applied, so a single replacement pass suffices.
func renderTables(t *Tables, prefix string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "// %d states, %d character classes.\n", t.NumStates, t.NumClasses)
	fmt.Fprintf(&sb, "const %sFingerprint uint64 = 0x%016x\n", prefix, t.Fingerprint)
	fmt.Fprintf(&sb, "const %sNumClasses = %d\n", prefix, t.NumClasses)
	fmt.Fprintf(&sb, "const %sStart = %d\n\n", prefix, t.Start)
	writeTable(&sb, prefix+"ClassLo", "rune", t.ClassLo, 8)
	writeTable(&sb, prefix+"ClassHi", "rune", t.ClassHi, 8)
	writeTable(&sb, prefix+"ClassID", "int16", t.ClassID, 8)
	writeTable(&sb, prefix+"Next", "int16", t.Next, t.NumClasses)
	writeTable(&sb, prefix+"Accept", "int16", t.Accept, 16)
	return strings.TrimRight(sb.String(), "\n")
}

func writeTable[T int16 | rune](sb *strings.Builder, name, elem string, values []T, perLine int) {
	fmt.Fprintf(sb, "var %s = []%s{", name, elem)
	if len(values) == 0 {
		sb.WriteString("}\n\n")
		return
	}
	for i, v := range values {
		if i%perLine == 0 {
			sb.WriteString("\n\t")
		} else {
			sb.WriteString(" ")
		}
		fmt.Fprintf(sb, "%d,", v)
	}
	sb.WriteString("\n}\n\n")
}

// renderActions prints one switch case per rule with the action
// text verbatim; text is never reformatted or interpreted.
func renderActions(actions []string) string {
	cases := make([]string, len(actions))
	for i, action := range actions {
		cases[i] = fmt.Sprintf("\t\tcase %d:\n\t\t\t%s", i, action)
	}
	return strings.Join(cases, "\n")
}
