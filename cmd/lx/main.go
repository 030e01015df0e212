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

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/SnellerInc/lx"
	"github.com/SnellerInc/lx/gen"
	"github.com/SnellerInc/lx/rules"
)

var (
	dashv    bool
	dashh    bool
	dasho    string
	dasht    string
	dashdef  string
	dashblob string
	dashdot  string
)

func init() {
	flag.BoolVar(&dashv, "v", false, "verbose")
	flag.BoolVar(&dashh, "h", false, "show usage help")
	flag.StringVar(&dasho, "o", "-", "output file (or - for stdout)")
	flag.StringVar(&dasht, "t", "", "scanner template file (default: built-in)")
	flag.StringVar(&dashdef, "def", "", "build definition file (.json or .yaml)")
	flag.StringVar(&dashblob, "blob", "", "write the matcher tables to this file")
	flag.StringVar(&dashdot, "dot", "", "write automaton graphs into this directory")
}

func exitf(f string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, f, args...)
	os.Exit(1)
}

func logf(f string, args ...interface{}) {
	if f[len(f)-1] != '\n' {
		f += "\n"
	}
	fmt.Fprintf(os.Stderr, f, args...)
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "    %s [-o <output>] [-t <template>] [-blob <file>] <spec.lx>\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "        generate a scanner from a specification\n")
	fmt.Fprintf(os.Stderr, "    %s -def <build.json|build.yaml>\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "        generate a scanner from a build definition\n")
	fmt.Fprintf(os.Stderr, "flag usage:\n")
	flag.Usage()
	os.Exit(1)
}

func main() {
	flag.Parse()
	args := flag.Args()
	if dashh || len(args) > 1 {
		usage()
	}

	var def *rules.Definition
	if dashdef != "" {
		var err error
		def, err = rules.OpenDefinition(dashdef)
		if err != nil {
			exitf("%s\n", err)
		}
	}

	// the spec named on the command line wins over the one in
	// the definition
	input := ""
	if len(args) == 1 {
		input = args[0]
	} else if def != nil {
		input = def.Input
	}
	if input == "" {
		usage()
	}

	spec, err := rules.ParseFile(input)
	if err != nil {
		exitf("%s\n", err)
	}

	// flags beat the definition; the definition beats the
	// %directives in the spec
	output, template, blob := dasho, dasht, dashblob
	if def != nil {
		if err := def.Apply(spec.Vars); err != nil {
			exitf("%s: %s\n", dashdef, err)
		}
		if output == "-" && def.Output != "" {
			output = def.Output
		}
		if template == "" {
			template = def.Template
		}
		if blob == "" {
			blob = def.Blob
		}
	}

	c := &lx.Compiler{
		Vars:    spec.Vars,
		Trailer: spec.Trailer,
		DotDir:  dashdot,
	}
	if template != "" {
		buf, err := os.ReadFile(template)
		if err != nil {
			exitf("%s\n", err)
		}
		c.Template = string(buf)
	}
	if dashv {
		c.Logf = logf
	}

	res, err := c.Run(spec.Rules)
	if err != nil {
		exitf("%s: %s\n", input, err)
	}

	if blob != "" {
		buf, err := gen.EncodeBlob(res.Tables)
		if err != nil {
			exitf("%s\n", err)
		}
		if err := os.WriteFile(blob, buf, 0644); err != nil {
			exitf("%s\n", err)
		}
		if dashv {
			logf("wrote %d table bytes to %s", len(buf), blob)
		}
	}

	if output == "" || output == "-" {
		_, err = os.Stdout.Write(res.Source)
	} else {
		err = os.WriteFile(output, res.Source, 0644)
	}
	if err != nil {
		exitf("%s\n", err)
	}
}
