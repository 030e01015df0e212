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

// Package tests provides common functions used in tests.
package tests

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// Spec is a testcase file split into its parts.
type Spec struct {
	// Sections holds the lines of each `---`-separated part.
	Sections [][]string

	// Tags holds the `## key: value` annotations, with the
	// keys lowercased.
	Tags map[string]string
}

// ReadSpec reads parts of a textfile separated by `---`.
//
// Each part is a list of lines. The procedure skips empty
// lines and lines starting with `#`; lines starting with `##`
// and containing a colon are collected as key-value tags.
func ReadSpec(r io.Reader) (*Spec, error) {
	spec := &Spec{Tags: make(map[string]string)}
	spec.Sections = append(spec.Sections, []string{})

	rd := bufio.NewScanner(r)
	for rd.Scan() {
		line := rd.Text()
		if strings.HasPrefix(line, "---") {
			spec.Sections = append(spec.Sections, []string{})
			continue
		}

		if key, value, ok := tagLine(line); ok {
			spec.Tags[key] = value
			continue
		}

		// allow # line comments iff they begin the line
		if strings.HasPrefix(line, "#") {
			continue
		}

		if len(line) == 0 {
			continue
		}

		last := len(spec.Sections) - 1
		spec.Sections[last] = append(spec.Sections[last], line)
	}
	if err := rd.Err(); err != nil {
		return nil, err
	}
	return spec, nil
}

// ParseTestcase is ReadSpec on the named file.
func ParseTestcase(fname string) (*Spec, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSpec(f)
}

func tagLine(line string) (key, value string, ok bool) {
	rest, ok := strings.CutPrefix(line, "##")
	if !ok {
		return "", "", false
	}
	key, value, ok = strings.Cut(rest, ":")
	if !ok {
		return "", "", false
	}
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)
	if key == "" {
		return "", "", false
	}
	return key, value, true
}
