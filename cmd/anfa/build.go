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
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/SnellerInc/anfa/compiler"
	"github.com/SnellerInc/anfa/config"
	"github.com/SnellerInc/anfa/container"
	"github.com/SnellerInc/anfa/frontend"
	"github.com/SnellerInc/anfa/nfa"
	"github.com/SnellerInc/anfa/store"
)

var build struct {
	expr       string
	out        string
	reverse    bool
	raw        bool
	trace      bool
	qidWidth   int
	labelWidth int
	compress   string
	strategy   string
	dialect    string
	maxStates  int
	configPath string
	cacheDir   string
}

var buildCmd = &cobra.Command{
	Use:   "build -e EXPR",
	Short: "Compile a regular expression",
	Long: `build compiles EXPR and writes its automaton as a container,
or as bare bytecode with --raw. The bidirectional strategy
writes the reversed automaton to OUT.rev as well.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := buildProfile(cmd)
		if err != nil {
			return err
		}
		return runBuild(p, build.expr, build.out, build.raw)
	},
}

func init() {
	f := buildCmd.Flags()
	f.StringVarP(&build.expr, "expr", "e", "", "regular expression to compile")
	f.StringVarP(&build.out, "output", "o", "-", "output file (or - for stdout)")
	f.BoolVar(&build.reverse, "reverse", false, "build the automaton of the reversed language")
	f.BoolVar(&build.raw, "raw", false, "write bare bytecode instead of a container")
	f.BoolVar(&build.trace, "trace", false, "log every construction step (with -v)")
	f.IntVar(&build.qidWidth, "qid-width", 0, "state id width in bytes (0 picks the narrowest)")
	f.IntVar(&build.labelWidth, "label-width", 0, "label width in bytes (0 picks the narrowest)")
	f.StringVar(&build.compress, "compress", "", "container compression: none, s2, zstd, zstd-better")
	f.StringVar(&build.strategy, "strategy", "", "construction strategy: forward, reverse, bidirectional")
	f.StringVar(&build.dialect, "dialect", "", "expression dialect: exact, search, search-ci, similar-to")
	f.IntVar(&build.maxStates, "max-states", 0, "maximum number of states (0 for no limit)")
	f.StringVar(&build.configPath, "config", "", "build profile (YAML or JSON)")
	f.StringVar(&build.cacheDir, "cache", "", "build cache directory")
	buildCmd.MarkFlagRequired("expr")
	rootCmd.AddCommand(buildCmd)
}

// buildProfile loads the profile named by --config
// and applies the flags that were set explicitly.
func buildProfile(cmd *cobra.Command) (config.Profile, error) {
	p := config.Default()
	if build.configPath != "" {
		var err error
		p, err = config.Load(build.configPath)
		if err != nil {
			return p, err
		}
		logf("loaded profile %s", build.configPath)
	}
	f := cmd.Flags()
	if f.Changed("qid-width") {
		p.QIDWidth = build.qidWidth
	}
	if f.Changed("label-width") {
		p.LabelWidth = build.labelWidth
	}
	if f.Changed("compress") {
		p.Compression = build.compress
	}
	if f.Changed("strategy") {
		p.Strategy = build.strategy
	}
	if build.reverse {
		p.Strategy = compiler.StrategyReverse
	}
	if f.Changed("dialect") {
		p.Dialect = build.dialect
	}
	if f.Changed("max-states") {
		p.MaxStates = build.maxStates
	}
	if f.Changed("cache") {
		p.CacheDir = build.cacheDir
	}
	return p, p.Validate()
}

// compile returns the automata for expr: one, or the
// forward and reverse pair for the bidirectional
// strategy.
func compile(p *config.Profile, expr string) ([]*nfa.Automaton, error) {
	d, err := frontend.ParseDialect(p.Dialect)
	if err != nil {
		return nil, err
	}
	opts := p.CompilerOptions()
	if build.trace {
		opts.Logf = logf
	}
	c, err := compiler.New(p.Strategy, opts)
	if err != nil {
		return nil, err
	}
	if err := frontend.CompileDialect(expr, d, c); err != nil {
		return nil, err
	}
	if bd, ok := c.(*compiler.Bidirectional); ok {
		fwd, rev, err := bd.FinalizeBoth()
		if err != nil {
			return nil, err
		}
		return []*nfa.Automaton{fwd, rev}, nil
	}
	a, err := c.Finalize()
	if err != nil {
		return nil, err
	}
	return []*nfa.Automaton{a}, nil
}

// seal encodes and wraps every automaton.
func seal(p *config.Profile, autos []*nfa.Automaton) ([][]byte, error) {
	out := make([][]byte, len(autos))
	for i, a := range autos {
		opts := p.EncodeOptions(a)
		buf, h, err := container.Seal(nil, a, opts, container.Options{Compression: p.Compression})
		if err != nil {
			return nil, err
		}
		logf("%d states, widths %d/%d, %s %d -> %d bytes, fingerprint %s",
			a.Len(), opts.QIDWidth, opts.LabelWidth, h.Algorithm, h.RawSize, h.Size, h.Fingerprint)
		out[i] = buf
	}
	return out, nil
}

// sourceKey identifies one output of a build
// in the cache.
func sourceKey(p *config.Profile, expr string, side int) container.Fingerprint {
	return store.SourceKey(
		expr,
		p.Dialect,
		p.Strategy,
		p.Compression,
		strconv.Itoa(p.QIDWidth),
		strconv.Itoa(p.LabelWidth),
		strconv.Itoa(p.MaxStates),
		strconv.Itoa(side),
	)
}

// containers builds the containers for expr,
// consulting the cache when the profile names one.
func containers(p *config.Profile, expr string) ([][]byte, error) {
	if p.CacheDir == "" {
		autos, err := compile(p, expr)
		if err != nil {
			return nil, err
		}
		return seal(p, autos)
	}
	d, err := store.Open(p.CacheDir)
	if err != nil {
		return nil, err
	}
	d.Logger = logger{}
	sides := 1
	if p.Strategy == compiler.StrategyBidirectional {
		sides = 2
	}
	var built [][]byte
	out := make([][]byte, sides)
	for i := range out {
		buf, h, hit, err := d.GetOrFill(sourceKey(p, expr, i), func() ([]byte, error) {
			if built == nil {
				autos, err := compile(p, expr)
				if err != nil {
					return nil, err
				}
				built, err = seal(p, autos)
				if err != nil {
					return nil, err
				}
			}
			return built[i], nil
		})
		if err != nil {
			return nil, err
		}
		if hit {
			logf("cache hit %s (fingerprint %s)", sourceKey(p, expr, i), h.Fingerprint)
		}
		out[i] = buf
	}
	return out, nil
}

type logger struct{}

func (logger) Printf(f string, args ...interface{}) { logf(f, args...) }

func runBuild(p config.Profile, expr, out string, raw bool) error {
	bufs, err := containers(&p, expr)
	if err != nil {
		return errors.Wrapf(err, "building %q", expr)
	}
	if len(bufs) > 1 && out == "-" {
		return errors.New("the bidirectional strategy needs an output file")
	}
	for i, buf := range bufs {
		if raw {
			_, code, err := container.Unwrap(buf)
			if err != nil {
				return err
			}
			buf = code
		}
		path := out
		if i > 0 {
			path += ".rev"
		}
		if err := writeOutput(path, buf); err != nil {
			return err
		}
		logf("wrote %s", path)
	}
	return nil
}
