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
	"errors"
	"fmt"
	"slices"

	"golang.org/x/exp/maps"
)

// Variable keys understood by the emitter.
const (
	VarPackage  = "package"  // package clause of the generated file
	VarFunction = "function" // name of the scanning method
	VarPrefix   = "prefix"   // prefix of every generated identifier
	VarReturn   = "return"   // token type returned by the scanner
)

var varDefaults = map[string]string{
	VarPackage:  "main",
	VarFunction: "Lex",
	VarPrefix:   "lx",
	VarReturn:   "int",
}

// ErrUnknownVar is returned by Vars.Set for a key the emitter
// does not understand.
var ErrUnknownVar = errors.New("unknown variable")

// Vars holds the values substituted for the template variables.
// Keys are fixed; unset keys fall back to their defaults. A nil
// *Vars reads as all defaults.
type Vars struct {
	values map[string]string
}

func NewVars() *Vars {
	return &Vars{values: map[string]string{}}
}

// Set assigns a variable; the key must be one of the Var
// constants.
func (v *Vars) Set(key, value string) error {
	if _, ok := varDefaults[key]; !ok {
		return fmt.Errorf("%w %q", ErrUnknownVar, key)
	}
	if v.values == nil {
		v.values = map[string]string{}
	}
	v.values[key] = value
	return nil
}

// Get returns the value for key, or its default when unset. An
// unknown key reads as the empty string.
func (v *Vars) Get(key string) string {
	if v != nil && v.values != nil {
		if value, ok := v.values[key]; ok {
			return value
		}
	}
	return varDefaults[key]
}

// VarKeys returns the known variable keys, sorted.
func VarKeys() []string {
	keys := maps.Keys(varDefaults)
	slices.Sort(keys)
	return keys
}
