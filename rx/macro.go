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
	"slices"

	"golang.org/x/exp/maps"
)

// ErrMacroRedefined is returned by Macros.Define when a name
// is defined twice in the same session.
var ErrMacroRedefined = errors.New("macro redefined")

// Macros is the named-macro table for one compile session.
// Definitions are write-once; later rules see earlier macros
// by name via {NAME} references, which Parse expands inline.
//
// The zero value is not usable; call NewMacros. Tables are
// deliberately session-scoped rather than package-global so
// that concurrent compiles never observe each other.
type Macros struct {
	defs map[string]Expr
}

// NewMacros returns an empty macro table.
func NewMacros() *Macros {
	return &Macros{defs: make(map[string]Expr)}
}

// Define binds name to the expression e.
// Redefining a name fails with ErrMacroRedefined.
func (m *Macros) Define(name string, e Expr) error {
	if _, ok := m.defs[name]; ok {
		return fmt.Errorf("macro %q: %w", name, ErrMacroRedefined)
	}
	m.defs[name] = e
	return nil
}

// Resolve looks up a previously defined macro.
func (m *Macros) Resolve(name string) (Expr, bool) {
	if m == nil {
		return nil, false
	}
	e, ok := m.defs[name]
	return e, ok
}

// Names returns the defined macro names in sorted order.
func (m *Macros) Names() []string {
	if m == nil {
		return nil
	}
	names := maps.Keys(m.defs)
	slices.Sort(names)
	return names
}

// Len returns the number of defined macros.
func (m *Macros) Len() int {
	if m == nil {
		return 0
	}
	return len(m.defs)
}
