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

package rules

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/SnellerInc/lx"
	"github.com/SnellerInc/lx/gen"
	"github.com/SnellerInc/lx/rx"
)

// specs are hand-written; anything larger is a mistake
const maxSpecLine = 1 << 20

// Parse reads a scanner specification. The first error aborts
// the read; errors are positioned as file:line (the file name
// is taken from r when it is an *os.File).
func Parse(r io.Reader) (*Spec, error) {
	rd := &reader{scanner: bufio.NewScanner(r)}
	rd.scanner.Buffer(make([]byte, 0, 4096), maxSpecLine)
	if f, ok := r.(*os.File); ok {
		rd.filename = f.Name()
	}
	spec := &Spec{Vars: gen.NewVars()}
	macros := rx.NewMacros()
	if err := rd.definitions(spec, macros); err != nil {
		return nil, err
	}
	if err := rd.rules(spec, macros); err != nil {
		return nil, err
	}
	if err := rd.scanner.Err(); err != nil {
		return nil, err
	}
	return spec, nil
}

// ParseFile is Parse on the named file.
func ParseFile(path string) (*Spec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

type reader struct {
	scanner  *bufio.Scanner
	filename string
	lineno   int
	line     string
}

func (rd *reader) nextLine() bool {
	if !rd.scanner.Scan() {
		return false
	}
	rd.lineno++
	rd.line = rd.scanner.Text()
	return true
}

func (rd *reader) errAt(lineno int, err error) error {
	if rd.filename != "" {
		return fmt.Errorf("%s:%d: %w", rd.filename, lineno, err)
	}
	return fmt.Errorf("%d: %w", lineno, err)
}

func (rd *reader) errf(format string, args ...any) error {
	return rd.errAt(rd.lineno, fmt.Errorf(format, args...))
}

// sep reports whether the current line is a %% section
// separator. Trailing blanks are tolerated; anything else on
// the line makes it an ordinary line.
func (rd *reader) sep() bool {
	return strings.TrimRight(rd.line, " \t") == "%%"
}

// definitions reads macro and directive lines up to the first
// %% separator.
func (rd *reader) definitions(spec *Spec, macros *rx.Macros) error {
	for rd.nextLine() {
		if rd.sep() {
			return nil
		}
		if strings.HasPrefix(rd.line, "#") {
			continue
		}
		line := strings.TrimSpace(rd.line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "%") {
			if err := rd.directive(spec, line[1:]); err != nil {
				return err
			}
			continue
		}
		if err := rd.macro(macros, line); err != nil {
			return err
		}
	}
	return rd.errf(`missing "%%%%" separator`)
}

func (rd *reader) directive(spec *Spec, body string) error {
	key, value := splitField(body)
	if key == "" {
		return rd.errf("empty directive")
	}
	if value == "" {
		return rd.errf("missing value for directive %q", "%"+key)
	}
	if err := spec.Vars.Set(key, value); err != nil {
		if errors.Is(err, gen.ErrUnknownVar) {
			return rd.errf("unknown variable %q", key)
		}
		return rd.errAt(rd.lineno, err)
	}
	return nil
}

func (rd *reader) macro(macros *rx.Macros, line string) error {
	name, pattern := splitField(line)
	if !validMacroName(name) {
		return rd.errf("macro name expected, found %q", name)
	}
	if pattern == "" {
		return rd.errf("macro %s: pattern expected", name)
	}
	expr, err := rx.Parse(pattern, macros)
	if err != nil {
		return rd.errAt(rd.lineno, err)
	}
	if err := macros.Define(name, expr); err != nil {
		return rd.errAt(rd.lineno, err)
	}
	return nil
}

// rules reads pattern/action lines up to EOF or a second %%
// separator, after which the rest of the input is the verbatim
// trailer.
func (rd *reader) rules(spec *Spec, macros *rx.Macros) error {
	for rd.nextLine() {
		if rd.sep() {
			spec.Trailer = rd.trailer()
			return nil
		}
		if strings.TrimSpace(rd.line) == "" {
			continue
		}
		lineno := rd.lineno
		pattern, rest := splitPattern(rd.line)
		action, err := rd.action(rest)
		if err != nil {
			return err
		}
		expr, err := rx.Parse(pattern, macros)
		if err != nil {
			return rd.errAt(lineno, err)
		}
		if rx.IsEmpty(expr) {
			// matches no input at all; dropped like a blank line
			continue
		}
		spec.Rules = append(spec.Rules, lx.Rule{
			Pattern: pattern,
			Expr:    expr,
			Action:  action,
			Line:    lineno,
		})
	}
	return nil
}

func (rd *reader) trailer() string {
	var sb strings.Builder
	for rd.nextLine() {
		sb.WriteString(rd.line)
		sb.WriteString("\n")
	}
	return sb.String()
}

// splitField splits off the first blank-delimited field; the
// remainder is trimmed.
func splitField(line string) (field, rest string) {
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		return line[:i], strings.TrimSpace(line[i:])
	}
	return line, ""
}

// splitPattern finds the end of the pattern on a rule line: the
// first blank outside a character class, a quoted literal, or
// an escape.
func splitPattern(line string) (pattern, rest string) {
	s := strings.TrimLeft(line, " \t")
	esc, class, quote := false, false, false
	for i, r := range s {
		switch {
		case esc:
			esc = false
		case r == '\\':
			esc = true
		case class:
			class = r != ']'
		case quote:
			quote = r != '"'
		case r == '"':
			quote = true
		case r == '[':
			class = true
		case r == ' ' || r == '\t':
			return s[:i], s[i:]
		}
	}
	return s, ""
}

// action reads a balanced-brace action block starting in rest
// (the text after the pattern on the current line), pulling in
// further lines as needed. Braces inside Go strings, runes, and
// comments do not count.
func (rd *reader) action(rest string) (string, error) {
	s := strings.TrimLeft(rest, " \t")
	if !strings.HasPrefix(s, "{") {
		return "", rd.errf("action block expected after pattern")
	}
	start := rd.lineno

	const (
		inCode = iota
		inString
		inRune
		inRaw
		inLineComment
		inBlockComment
	)
	state, depth := inCode, 0
	esc, star, skip := false, false, false
	var sb strings.Builder

	// returns the byte offset just past the closing brace, or -1
	// when the line ends inside the block
	consume := func(line string) int {
		for i, r := range line {
			if skip {
				skip = false
				continue
			}
			if esc {
				esc = false
				continue
			}
			switch state {
			case inCode:
				switch r {
				case '{':
					depth++
				case '}':
					depth--
					if depth == 0 {
						return i + len("}")
					}
				case '"':
					state = inString
				case '\'':
					state = inRune
				case '`':
					state = inRaw
				case '/':
					if strings.HasPrefix(line[i+1:], "/") {
						state, skip = inLineComment, true
					} else if strings.HasPrefix(line[i+1:], "*") {
						state, star, skip = inBlockComment, false, true
					}
				}
			case inString:
				switch r {
				case '\\':
					esc = true
				case '"':
					state = inCode
				}
			case inRune:
				switch r {
				case '\\':
					esc = true
				case '\'':
					state = inCode
				}
			case inRaw:
				if r == '`' {
					state = inCode
				}
			case inBlockComment:
				if star && r == '/' {
					state = inCode
				} else {
					star = r == '*'
				}
			}
		}
		return -1
	}

	line := s
	for {
		if end := consume(line); end >= 0 {
			sb.WriteString(line[:end])
			if tail := strings.TrimSpace(line[end:]); tail != "" {
				return "", rd.errf("unexpected %q after action", tail)
			}
			return sb.String(), nil
		}
		sb.WriteString(line)
		sb.WriteString("\n")
		// strings and line comments do not cross lines
		if state == inString || state == inRune || state == inLineComment {
			state = inCode
		}
		esc, star = false, false
		if !rd.nextLine() {
			return "", rd.errAt(start, errors.New("unterminated action"))
		}
		line = rd.line
	}
}

// same shape rx accepts inside {...} references
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
