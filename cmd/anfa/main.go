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

// Command anfa builds augmented NFAs from regular
// expressions and inspects their encodings.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/SnellerInc/anfa/bytecode"
	"github.com/SnellerInc/anfa/container"
	"github.com/SnellerInc/anfa/nfa"
)

var dashv bool

var rootCmd = &cobra.Command{
	Use:   "anfa",
	Short: "Build and inspect augmented NFA bytecode",
	Long: `anfa compiles regular expressions into augmented NFAs,
writes them as bytecode (optionally inside a compressed,
checksummed container) and inspects existing files.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&dashv, "verbose", "v", false, "verbose")
	log.SetFlags(0)
	log.SetPrefix("anfa: ")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		exitf("%s\n", err)
	}
}

func exitf(f string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, f, args...)
	os.Exit(1)
}

func logf(f string, args ...interface{}) {
	if dashv {
		log.Printf(f, args...)
	}
}

// readInput reads a file, or stdin for "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// writeOutput writes buf to a file, or stdout for "-".
func writeOutput(path string, buf []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(buf)
		return err
	}
	return os.WriteFile(path, buf, 0644)
}

// loaded is an automaton read from a file along
// with the encoding it was read from.
type loaded struct {
	a      *nfa.Automaton
	code   []byte
	header *container.Header
	size   int
}

// load reads either a container or raw bytecode.
func load(path string) (*loaded, error) {
	buf, err := readInput(path)
	if err != nil {
		return nil, err
	}
	l := &loaded{code: buf, size: len(buf)}
	if container.IsContainer(buf) {
		h, code, err := container.Unwrap(buf)
		if err != nil {
			return nil, err
		}
		logf("%s: container v%d, %s, build %s", path, h.Version, h.Algorithm, h.BuildID)
		l.code, l.header = code, &h
	}
	l.a, err = bytecode.Decode(l.code)
	if err != nil {
		return nil, err
	}
	return l, nil
}
