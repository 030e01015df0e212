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

// Package rules reads scanner specifications. The supported
// syntax is line-oriented:
//
//	spec       = definitions '%%' rules ['%%' trailer]
//	definition = comment | macro | directive
//	comment    = '#' <rest of line, '#' in column 0>
//	macro      = name space pattern
//	directive  = '%' key space value
//	rule       = pattern space action
//	action     = '{' <Go code, braces balanced> '}'
//
// For example:
//
//	DIGIT	[0-9]
//	%package calc
//	%%
//	{DIGIT}+	{ return NUM }
//	[ \t]+		{ }
//	%%
//	const NUM = 1
//
// Macros must be defined before they are referenced and are
// write-once. Rule order is priority order. The trailer is
// copied verbatim after the generated scanner.
package rules

import (
	"github.com/SnellerInc/lx"
	"github.com/SnellerInc/lx/gen"
)

// Spec is one parsed scanner specification.
type Spec struct {
	// Rules holds the surviving pattern/action pairs in
	// declaration order, patterns parsed against the macros in
	// scope at their line. A rule whose pattern matches only
	// the empty string is dropped while reading; its action is
	// consumed and discarded.
	Rules []lx.Rule

	// Vars holds the emitter variables collected from
	// %key value directives.
	Vars *gen.Vars

	// Trailer is the text after the second %%.
	Trailer string
}
