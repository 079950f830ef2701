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
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/SnellerInc/anfa/bytecode"
	"github.com/SnellerInc/anfa/container"
	"github.com/SnellerInc/anfa/nfa"
	"github.com/SnellerInc/anfa/store"
)

var dumpCmd = &cobra.Command{
	Use:   "dump FILE",
	Short: "Print an annotated hex dump of an automaton",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDump(os.Stdout, args[0])
	},
}

var dotCmd = &cobra.Command{
	Use:   "dot FILE",
	Short: "Render an automaton as a Graphviz digraph",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := load(args[0])
		if err != nil {
			return err
		}
		return l.a.Dot().DotContent(os.Stdout, "anfa", args[0])
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify FILE...",
	Short: "Check that files hold valid automata",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bad := 0
		for _, path := range args {
			l, err := load(path)
			if err != nil {
				fmt.Fprintf(os.Stdout, "%s: %s\n", path, err)
				bad++
				continue
			}
			fmt.Fprintf(os.Stdout, "%s: ok (%d states, fingerprint %s)\n",
				path, l.a.Len(), container.FingerprintOf(l.code))
		}
		if bad > 0 {
			return errors.Newf("%d of %d file(s) failed verification", bad, len(args))
		}
		return nil
	},
}

var statCmd = &cobra.Command{
	Use:   "stat FILE",
	Short: "Print statistics about an automaton",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := load(args[0])
		if err != nil {
			return err
		}
		return runStat(os.Stdout, l)
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache DIR",
	Short: "List the entries of a build cache",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := store.Open(args[0])
		if err != nil {
			return err
		}
		entries, err := d.List()
		if err != nil {
			return err
		}
		var total int64
		for _, e := range entries {
			fmt.Fprintf(os.Stdout, "%s %8s\n", e.Key, humanize.IBytes(uint64(e.Size)))
			total += e.Size
		}
		fmt.Fprintf(os.Stdout, "%d entries, %s\n", len(entries), humanize.IBytes(uint64(total)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd, dotCmd, verifyCmd, statCmd, cacheCmd)
}

func runDump(w io.Writer, path string) error {
	l, err := load(path)
	if err != nil {
		return err
	}
	if h := l.header; h != nil {
		fmt.Fprintf(w, "container v%d %s build=%s fingerprint=%s\n", h.Version, h.Algorithm, h.BuildID, h.Fingerprint)
	}
	return bytecode.DumpDebug(w, l.code)
}

func runStat(w io.Writer, l *loaded) error {
	a := l.a
	branches := 0
	a.Each(func(_ nfa.QID, s nfa.State) {
		if s.Fanout() == 2 {
			branches++
		}
	})
	mw := bytecode.MinWidths(a)
	fmt.Fprintf(w, "states:       %s\n", humanize.Comma(int64(a.Len())))
	fmt.Fprintf(w, "q0, f:        %d, %d\n", a.Q0(), a.F())
	fmt.Fprintf(w, "branches:     %s\n", humanize.Comma(int64(branches)))
	fmt.Fprintf(w, "alphabet:     %d byte(s)\n", len(a.Alphabet()))
	fmt.Fprintf(w, "min widths:   qid=%d label=%d (%s)\n", mw.QIDWidth, mw.LabelWidth, humanize.IBytes(uint64(mw.Size(a.Len()))))
	fmt.Fprintf(w, "bytecode:     %s\n", humanize.IBytes(uint64(len(l.code))))
	if h := l.header; h != nil {
		fmt.Fprintf(w, "container:    v%d, %s, %s\n", h.Version, h.Algorithm, humanize.IBytes(uint64(h.Size)))
		fmt.Fprintf(w, "ratio:        %.2f\n", float64(h.Size)/float64(h.RawSize))
		fmt.Fprintf(w, "build id:     %s\n", h.BuildID)
		fmt.Fprintf(w, "fingerprint:  %s\n", h.Fingerprint)
	}
	return nil
}
