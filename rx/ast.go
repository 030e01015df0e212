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

// Package rx implements the regular-expression surface of the lexer
// generator: the expression tree, the pattern parser, and the named
// macro table. Trees are immutable once built, so macro expansion can
// splice shared subtrees freely.
package rx

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"unicode"
)

// Expr is a parsed regular expression.
//
// The concrete types are Empty, Class, Cat, Alt and Rep.
// Macro references do not appear here: they are expanded
// while parsing, so every tree is self-contained.
type Expr interface {
	// String returns a pattern that parses back to an
	// expression matching the same language.
	String() string
	isExpr()
}

// Empty matches the empty string and nothing else.
type Empty struct{}

// Range is an inclusive range of runes.
type Range struct {
	Lo, Hi rune
}

// Class matches any single rune inside one of its ranges.
// Ranges are sorted, non-empty, non-overlapping and
// non-adjacent; a literal character is a one-rune range.
type Class struct {
	Ranges []Range
}

// Cat matches L followed by R.
type Cat struct {
	L, R Expr
}

// Alt matches either L or R.
type Alt struct {
	L, R Expr
}

// Rep matches E repeated between Min and Max times.
// Max < 0 means unbounded.
type Rep struct {
	E        Expr
	Min, Max int
}

func (*Empty) isExpr() {}
func (*Class) isExpr() {}
func (*Cat) isExpr()   {}
func (*Alt) isExpr()   {}
func (*Rep) isExpr()   {}

// Char returns a Class matching exactly the rune r.
func Char(r rune) *Class {
	return &Class{Ranges: []Range{{r, r}}}
}

// anyNoNL is what '.' denotes: any rune except newline.
var anyNoNL = []Range{{0, '\n' - 1}, {'\n' + 1, unicode.MaxRune}}

// IsEmpty reports whether e matches only the empty string,
// i.e. the expression cannot consume any input at all.
// Rules whose pattern is pure epsilon are dropped by the
// front end rather than compiled.
func IsEmpty(e Expr) bool {
	switch e := e.(type) {
	case *Empty:
		return true
	case *Cat:
		return IsEmpty(e.L) && IsEmpty(e.R)
	case *Alt:
		return IsEmpty(e.L) && IsEmpty(e.R)
	case *Rep:
		return e.Max == 0 || IsEmpty(e.E)
	}
	return false
}

// Equal reports whether a and b are structurally identical.
func Equal(a, b Expr) bool {
	switch a := a.(type) {
	case *Empty:
		_, ok := b.(*Empty)
		return ok
	case *Class:
		b, ok := b.(*Class)
		return ok && slices.Equal(a.Ranges, b.Ranges)
	case *Cat:
		b, ok := b.(*Cat)
		return ok && Equal(a.L, b.L) && Equal(a.R, b.R)
	case *Alt:
		b, ok := b.(*Alt)
		return ok && Equal(a.L, b.L) && Equal(a.R, b.R)
	case *Rep:
		b, ok := b.(*Rep)
		return ok && a.Min == b.Min && a.Max == b.Max && Equal(a.E, b.E)
	}
	return false
}

// normRanges sorts rs and merges overlapping or adjacent
// ranges into the canonical form Class requires.
func normRanges(rs []Range) []Range {
	if len(rs) <= 1 {
		return rs
	}
	slices.SortFunc(rs, func(a, b Range) int {
		if c := cmp.Compare(a.Lo, b.Lo); c != 0 {
			return c
		}
		return cmp.Compare(a.Hi, b.Hi)
	})
	out := rs[:1]
	for _, r := range rs[1:] {
		last := &out[len(out)-1]
		if r.Lo <= last.Hi+1 {
			if r.Hi > last.Hi {
				last.Hi = r.Hi
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

// negateRanges complements rs over the full rune space.
// rs must already be normalized.
func negateRanges(rs []Range) []Range {
	var out []Range
	next := rune(0)
	for _, r := range rs {
		if r.Lo > next {
			out = append(out, Range{next, r.Lo - 1})
		}
		next = r.Hi + 1
	}
	if next <= unicode.MaxRune {
		out = append(out, Range{next, unicode.MaxRune})
	}
	return out
}

func (*Empty) String() string { return "()" }

func (e *Class) String() string {
	if len(e.Ranges) == 1 && e.Ranges[0].Lo == e.Ranges[0].Hi {
		return escapeLit(e.Ranges[0].Lo)
	}
	if slices.Equal(e.Ranges, anyNoNL) {
		return "."
	}
	var sb strings.Builder
	sb.WriteByte('[')
	for _, r := range e.Ranges {
		sb.WriteString(escapeClassChar(r.Lo))
		if r.Hi > r.Lo {
			if r.Hi > r.Lo+1 {
				sb.WriteByte('-')
			}
			sb.WriteString(escapeClassChar(r.Hi))
		}
	}
	sb.WriteByte(']')
	return sb.String()
}

func (e *Cat) String() string {
	l := e.L.String()
	if _, ok := e.L.(*Alt); ok {
		l = "(" + l + ")"
	}
	// parenthesize right-nested Cat/Alt so that reparsing
	// rebuilds the identical (left-associated) shape
	r := e.R.String()
	switch e.R.(type) {
	case *Alt, *Cat:
		r = "(" + r + ")"
	}
	return l + r
}

func (e *Alt) String() string {
	r := e.R.String()
	if _, ok := e.R.(*Alt); ok {
		r = "(" + r + ")"
	}
	return e.L.String() + "|" + r
}

func (e *Rep) String() string {
	op := e.E.String()
	switch e.E.(type) {
	case *Alt, *Cat:
		op = "(" + op + ")"
	}
	switch {
	case e.Min == 0 && e.Max < 0:
		return op + "*"
	case e.Min == 1 && e.Max < 0:
		return op + "+"
	case e.Min == 0 && e.Max == 1:
		return op + "?"
	case e.Max < 0:
		return fmt.Sprintf("%s{%d,}", op, e.Min)
	case e.Min == e.Max:
		return fmt.Sprintf("%s{%d}", op, e.Min)
	default:
		return fmt.Sprintf("%s{%d,%d}", op, e.Min, e.Max)
	}
}

const litMeta = `()[]{}*+?|."\`

func escapeLit(r rune) string {
	if s, ok := namedEscape(r); ok {
		return s
	}
	if strings.ContainsRune(litMeta, r) {
		return `\` + string(r)
	}
	if r < 0x20 || r == 0x7f {
		return fmt.Sprintf(`\x%02x`, r)
	}
	return string(r)
}

func escapeClassChar(r rune) string {
	if s, ok := namedEscape(r); ok {
		return s
	}
	switch r {
	case '\\', ']', '-', '^':
		return `\` + string(r)
	}
	if r < 0x20 || r == 0x7f {
		return fmt.Sprintf(`\x%02x`, r)
	}
	return string(r)
}

func namedEscape(r rune) (string, bool) {
	switch r {
	case '\n':
		return `\n`, true
	case '\r':
		return `\r`, true
	case '\t':
		return `\t`, true
	case '\f':
		return `\f`, true
	case '\v':
		return `\v`, true
	case '\a':
		return `\a`, true
	case '\b':
		return `\b`, true
	}
	return "", false
}
