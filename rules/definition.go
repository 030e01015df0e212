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
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"golang.org/x/exp/maps"
	"sigs.k8s.io/yaml"

	"github.com/SnellerInc/lx/gen"
)

// Definition describes one scanner build.
type Definition struct {
	// Input is the path of the .lx specification.
	Input string `json:"input"`
	// Output is the path of the generated Go source.
	// The empty string means standard output.
	Output string `json:"output,omitempty"`
	// Template is the path of a replacement scanner skeleton;
	// the empty string selects the built-in one.
	Template string `json:"template,omitempty"`
	// Blob is the path where the matcher tables are written in
	// their binary form; the empty string writes no blob.
	Blob string `json:"blob,omitempty"`
	// Vars overrides emitter variables. Entries take precedence
	// over %directives in the specification.
	Vars map[string]string `json:"vars,omitempty"`
}

// just pick an upper limit to prevent a bad file from
// ballooning
const maxDefSize = 1024 * 1024

func checkDef(f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() > maxDefSize {
		return fmt.Errorf("definition of size %d beyond limit %d", info.Size(), maxDefSize)
	}
	return nil
}

// DecodeDefinition decodes a definition from src; ext selects
// the format (".json", ".yaml", or ".yml").
//
// See also: OpenDefinition
func DecodeDefinition(src io.Reader, ext string) (*Definition, error) {
	switch ext {
	case ".json", "":
		d := new(Definition)
		err := json.NewDecoder(src).Decode(d)
		return d, err
	case ".yaml", ".yml":
		buf, err := io.ReadAll(io.LimitReader(src, maxDefSize))
		if err != nil {
			return nil, err
		}
		d := new(Definition)
		err = yaml.Unmarshal(buf, d)
		return d, err
	default:
		return nil, fmt.Errorf("unsupported definition format %q", ext)
	}
}

// OpenDefinition calls DecodeDefinition on the named file,
// picking the format from the file extension.
func OpenDefinition(path string) (*Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := checkDef(f); err != nil {
		return nil, err
	}
	return DecodeDefinition(f, filepath.Ext(path))
}

// Apply copies the definition's variable overrides into vars,
// in sorted key order. An unknown key fails with a wrapped
// gen.ErrUnknownVar.
func (d *Definition) Apply(vars *gen.Vars) error {
	keys := maps.Keys(d.Vars)
	slices.Sort(keys)
	for _, key := range keys {
		if err := vars.Set(key, d.Vars[key]); err != nil {
			return err
		}
	}
	return nil
}

// Equal returns whether d and other are equivalent.
func (d *Definition) Equal(other *Definition) bool {
	if d == nil || other == nil {
		return d == nil && other == nil
	}
	return d.Input == other.Input &&
		d.Output == other.Output &&
		d.Template == other.Template &&
		d.Blob == other.Blob &&
		maps.Equal(d.Vars, other.Vars)
}
