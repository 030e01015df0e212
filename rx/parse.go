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

package rx

import (
	"errors"
	"fmt"
	"unicode"
)

// ErrSyntax is the umbrella for every pattern parse failure;
// the specific sentinels below all wrap it, so callers can
// test either the broad kind or the exact cause.
var ErrSyntax = errors.New("regex syntax error")

var (
	ErrUnmatchedLParen   = fmt.Errorf("%w: unmatched '('", ErrSyntax)
	ErrUnmatchedRParen   = fmt.Errorf("%w: unmatched ')'", ErrSyntax)
	ErrUnterminatedClass = fmt.Errorf("%w: unterminated character class", ErrSyntax)
	ErrBadClassRange     = fmt.Errorf("%w: invalid character class range", ErrSyntax)
	ErrEmptyClass        = fmt.Errorf("%w: empty character class", ErrSyntax)
	ErrUnterminatedQuote = fmt.Errorf("%w: unterminated quoted literal", ErrSyntax)
	ErrUnterminatedBrace = fmt.Errorf("%w: unterminated brace expression", ErrSyntax)
	ErrBadMacroName      = fmt.Errorf("%w: invalid macro name", ErrSyntax)
	ErrTrailingBackslash = fmt.Errorf("%w: trailing backslash", ErrSyntax)
	ErrBadEscape         = fmt.Errorf("%w: invalid escape sequence", ErrSyntax)
	ErrBareClosure       = fmt.Errorf("%w: repetition operator with nothing to repeat", ErrSyntax)
	ErrBadRepeat         = fmt.Errorf("%w: invalid repetition bounds", ErrSyntax)
	ErrUndefinedMacro    = fmt.Errorf("%w: undefined macro", ErrSyntax)
)

// maxRepeat bounds {m,n} counts; larger bounds would explode
// the automaton long before MaxNodes trips.
const maxRepeat = 1000

// SyntaxError is the error type returned by Parse. Pos is the
// rune offset into the pattern where the problem begins; Err
// is one of the sentinel errors above (possibly annotated).
type SyntaxError struct {
	Pos int
	Err error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("at offset %d: %s", e.Pos, e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// Parse parses a whole pattern into an expression tree.
//
// The syntax is the lex family's: literals with backslash
// escapes, '.' for any-but-newline, character classes with
// ranges and '^' negation, quoted literals "...", grouping,
// '|' alternation, postfix '*' '+' '?' and bounds {m}, {m,}
// and {m,n}. A brace whose first character is not a digit is
// a macro reference {NAME}, looked up in macros and expanded
// in place; an unknown name is an error, never an implicit
// empty match. macros may be nil if the pattern uses none.
//
// Errors are *SyntaxError and satisfy errors.Is against the
// sentinel kinds above.
func Parse(pattern string, macros *Macros) (Expr, error) {
	p := &parser{src: []rune(pattern), macros: macros}
	e, err := p.alternate()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.src) {
		// alternate stops only at end of input or ')'
		return nil, p.errAt(p.pos, ErrUnmatchedRParen)
	}
	return e, nil
}

const eof = rune(-1)

type parser struct {
	src    []rune
	pos    int
	macros *Macros
}

func (p *parser) errAt(pos int, err error) error {
	return &SyntaxError{Pos: pos, Err: err}
}

func (p *parser) peek() rune { return p.peekAt(0) }

func (p *parser) peekAt(n int) rune {
	if p.pos+n >= len(p.src) {
		return eof
	}
	return p.src[p.pos+n]
}

func (p *parser) alternate() (Expr, error) {
	e, err := p.concat()
	if err != nil {
		return nil, err
	}
	for p.peek() == '|' {
		p.pos++
		r, err := p.concat()
		if err != nil {
			return nil, err
		}
		e = &Alt{L: e, R: r}
	}
	return e, nil
}

func (p *parser) concat() (Expr, error) {
	var e Expr
	for {
		c := p.peek()
		if c == eof || c == '|' || c == ')' {
			break
		}
		t, err := p.repeat()
		if err != nil {
			return nil, err
		}
		if e == nil {
			e = t
		} else {
			e = &Cat{L: e, R: t}
		}
	}
	if e == nil {
		// empty branch, e.g. "", "a|", "(|x)"
		return &Empty{}, nil
	}
	return e, nil
}

func (p *parser) repeat() (Expr, error) {
	e, err := p.term()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek() {
		case '*':
			p.pos++
			e = &Rep{E: e, Min: 0, Max: -1}
		case '+':
			p.pos++
			e = &Rep{E: e, Min: 1, Max: -1}
		case '?':
			p.pos++
			e = &Rep{E: e, Min: 0, Max: 1}
		case '{':
			if !p.boundAhead() {
				// macro reference; belongs to the next term
				return e, nil
			}
			min, max, err := p.bound()
			if err != nil {
				return nil, err
			}
			e = &Rep{E: e, Min: min, Max: max}
		default:
			return e, nil
		}
	}
}

func (p *parser) term() (Expr, error) {
	start := p.pos
	c := p.peek()
	switch c {
	case eof:
		return nil, p.errAt(start, ErrSyntax)
	case '(':
		p.pos++
		e, err := p.alternate()
		if err != nil {
			return nil, err
		}
		if p.peek() != ')' {
			return nil, p.errAt(start, ErrUnmatchedLParen)
		}
		p.pos++
		return e, nil
	case '[':
		return p.class()
	case '"':
		return p.quoted()
	case '.':
		p.pos++
		return &Class{Ranges: anyNoNL}, nil
	case '*', '+', '?':
		return nil, p.errAt(start, ErrBareClosure)
	case '{':
		if p.boundAhead() {
			return nil, p.errAt(start, ErrBareClosure)
		}
		return p.macroRef()
	case '\\':
		r, err := p.escape()
		if err != nil {
			return nil, err
		}
		return Char(r), nil
	}
	p.pos++
	return Char(c), nil
}

// boundAhead reports whether the '{' at the cursor opens a
// repetition bound rather than a macro reference. The two are
// distinguished by the first character inside the braces.
func (p *parser) boundAhead() bool {
	c := p.peekAt(1)
	return c >= '0' && c <= '9'
}

func (p *parser) bound() (min, max int, err error) {
	start := p.pos // at '{'
	p.pos++
	min, ok := p.number()
	if !ok || min > maxRepeat {
		return 0, 0, p.errAt(start, ErrBadRepeat)
	}
	switch p.peek() {
	case '}':
		p.pos++
		return min, min, nil
	case ',':
		p.pos++
		if p.peek() == '}' {
			p.pos++
			return min, -1, nil
		}
		max, ok = p.number()
		if !ok || max > maxRepeat || max < min || p.peek() != '}' {
			return 0, 0, p.errAt(start, ErrBadRepeat)
		}
		p.pos++
		return min, max, nil
	}
	return 0, 0, p.errAt(start, ErrBadRepeat)
}

func (p *parser) number() (int, bool) {
	begin := p.pos
	n := 0
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		n = n*10 + int(p.src[p.pos]-'0')
		if n > maxRepeat {
			n = maxRepeat + 1 // saturate; bound() rejects
		}
		p.pos++
	}
	return n, p.pos > begin
}

func (p *parser) macroRef() (Expr, error) {
	start := p.pos // at '{'
	p.pos++
	namePos := p.pos
	for p.peek() != '}' {
		if p.peek() == eof {
			return nil, p.errAt(start, ErrUnterminatedBrace)
		}
		p.pos++
	}
	name := string(p.src[namePos:p.pos])
	p.pos++
	if !validMacroName(name) {
		return nil, p.errAt(start, ErrBadMacroName)
	}
	e, ok := p.macros.Resolve(name)
	if !ok {
		return nil, p.errAt(start, fmt.Errorf("%w %q", ErrUndefinedMacro, name))
	}
	// trees are immutable, so splicing the shared subtree
	// into the surrounding expression is safe
	return e, nil
}

func validMacroName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && (r == '-' || unicode.IsDigit(r)):
		default:
			return false
		}
	}
	return true
}

func (p *parser) class() (Expr, error) {
	start := p.pos // at '['
	p.pos++
	negate := false
	if p.peek() == '^' {
		negate = true
		p.pos++
	}
	var ranges []Range
	first := true
	for {
		c := p.peek()
		if c == eof {
			return nil, p.errAt(start, ErrUnterminatedClass)
		}
		if c == ']' && !first {
			p.pos++
			break
		}
		first = false
		memberPos := p.pos
		lo, err := p.classChar()
		if err != nil {
			return nil, err
		}
		hi := lo
		if p.peek() == '-' && p.peekAt(1) != ']' && p.peekAt(1) != eof {
			p.pos++
			hi, err = p.classChar()
			if err != nil {
				return nil, err
			}
			if hi < lo {
				return nil, p.errAt(memberPos, ErrBadClassRange)
			}
		}
		ranges = append(ranges, Range{lo, hi})
	}
	ranges = normRanges(ranges)
	if negate {
		ranges = negateRanges(ranges)
		if len(ranges) == 0 {
			return nil, p.errAt(start, ErrEmptyClass)
		}
	}
	return &Class{Ranges: ranges}, nil
}

func (p *parser) classChar() (rune, error) {
	if p.peek() == '\\' {
		return p.escape()
	}
	c := p.src[p.pos]
	p.pos++
	return c, nil
}

func (p *parser) quoted() (Expr, error) {
	start := p.pos // at '"'
	p.pos++
	var e Expr
	for {
		c := p.peek()
		if c == eof {
			return nil, p.errAt(start, ErrUnterminatedQuote)
		}
		if c == '"' {
			p.pos++
			if e == nil {
				return &Empty{}, nil
			}
			return e, nil
		}
		var r rune
		if c == '\\' {
			var err error
			r, err = p.escape()
			if err != nil {
				return nil, err
			}
		} else {
			p.pos++
			r = c
		}
		if e == nil {
			e = Char(r)
		} else {
			e = &Cat{L: e, R: Char(r)}
		}
	}
}

func (p *parser) escape() (rune, error) {
	start := p.pos // at '\'
	p.pos++
	if p.pos >= len(p.src) {
		return 0, p.errAt(start, ErrTrailingBackslash)
	}
	c := p.src[p.pos]
	p.pos++
	switch c {
	case 'n':
		return '\n', nil
	case 'r':
		return '\r', nil
	case 't':
		return '\t', nil
	case 'f':
		return '\f', nil
	case 'v':
		return '\v', nil
	case 'a':
		return '\a', nil
	case 'b':
		return '\b', nil
	case 'x':
		if p.pos+1 >= len(p.src) {
			return 0, p.errAt(start, ErrBadEscape)
		}
		hi := hexVal(p.src[p.pos])
		lo := hexVal(p.src[p.pos+1])
		if hi < 0 || lo < 0 {
			return 0, p.errAt(start, ErrBadEscape)
		}
		p.pos += 2
		return rune(hi<<4 | lo), nil
	}
	if c >= '0' && c <= '7' {
		v := c - '0'
		for n := 1; n < 3 && p.pos < len(p.src); n++ {
			d := p.src[p.pos]
			if d < '0' || d > '7' {
				break
			}
			v = v<<3 | (d - '0')
			p.pos++
		}
		return v, nil
	}
	if unicode.IsLetter(c) || unicode.IsDigit(c) {
		return 0, p.errAt(start, ErrBadEscape)
	}
	return c, nil
}

func hexVal(r rune) int {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0')
	case r >= 'a' && r <= 'f':
		return int(r-'a') + 10
	case r >= 'A' && r <= 'F':
		return int(r-'A') + 10
	}
	return -1
}
