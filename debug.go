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

package lx

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/SnellerInc/lx/autom"
)

// dotDir is one compile run's dump directory.
type dotDir struct {
	path string
	logf func(f string, args ...any)
}

// openDotDir creates a fresh dump directory below c.DotDir. The
// name embeds a uuid so concurrent runs never write over each
// other. Returns nil when dumping was not requested.
func (c *Compiler) openDotDir() (*dotDir, error) {
	if c.DotDir == "" {
		return nil, nil
	}
	path := filepath.Join(c.DotDir, "compile-"+uuid.New().String())
	if err := os.MkdirAll(path, 0750); err != nil {
		return nil, err
	}
	c.logf("writing automaton dots to %s", path)
	return &dotDir{path: path, logf: c.logf}, nil
}

func (d *dotDir) write(g *autom.Graphviz, name string) error {
	filename := filepath.Join(d.path, name+".dot")
	d.logf("writing %s", filename)
	return g.WriteToFile(filename, name, name)
}

func (d *dotDir) writeNFA(store *autom.NFAStore, name string) error {
	return d.write(store.Dot(), name)
}

func (d *dotDir) writeDFA(store *autom.DFAStore, name string) error {
	return d.write(store.Dot(), name)
}
