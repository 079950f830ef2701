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

// Package config defines build profiles: the options
// that control how an expression is compiled, encoded
// and stored. Profiles are read from YAML or JSON.
package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"sigs.k8s.io/yaml"

	"github.com/SnellerInc/anfa/bytecode"
	"github.com/SnellerInc/anfa/compiler"
	"github.com/SnellerInc/anfa/compr"
	"github.com/SnellerInc/anfa/frontend"
	"github.com/SnellerInc/anfa/nfa"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid profile")

// Profile is a set of build options.
//
// A zero width means the narrowest width
// that fits the automaton being encoded.
type Profile struct {
	QIDWidth    int    `json:"qidWidth,omitempty"`
	LabelWidth  int    `json:"labelWidth,omitempty"`
	Compression string `json:"compression,omitempty"`
	Strategy    string `json:"strategy,omitempty"`
	Dialect     string `json:"dialect,omitempty"`
	// MaxStates limits the size of the automaton;
	// zero means no limit beyond the id width.
	MaxStates int `json:"maxStates,omitempty"`
	// CacheDir, if set, enables the build cache.
	CacheDir string `json:"cacheDir,omitempty"`
}

// Default returns the profile used when
// none is given.
func Default() Profile {
	return Profile{
		Compression: "none",
		Strategy:    compiler.StrategyForward,
		Dialect:     "exact",
	}
}

// Validate checks every field of p.
func (p *Profile) Validate() error {
	for _, w := range []struct {
		name string
		v    int
	}{{"qidWidth", p.QIDWidth}, {"labelWidth", p.LabelWidth}} {
		if w.v < 0 || w.v > nfa.MaxWidth {
			return errors.Wrapf(ErrInvalid, "%s %d not in 0..%d", w.name, w.v, nfa.MaxWidth)
		}
	}
	if _, err := compr.Parse(p.Compression); err != nil {
		return errors.Mark(errors.Wrap(err, "compression"), ErrInvalid)
	}
	// zstd-nocrc parses but only selects a decoder
	if p.Compression == "zstd-nocrc" {
		return errors.Wrapf(ErrInvalid, "compression %q has no encoder", p.Compression)
	}
	switch p.Strategy {
	case "", compiler.StrategyForward, compiler.StrategyReverse, compiler.StrategyBidirectional:
	default:
		return errors.Wrapf(ErrInvalid, "strategy %q", p.Strategy)
	}
	if _, err := frontend.ParseDialect(p.Dialect); err != nil {
		return errors.Mark(errors.Wrap(err, "dialect"), ErrInvalid)
	}
	if p.MaxStates < 0 {
		return errors.Wrapf(ErrInvalid, "maxStates %d", p.MaxStates)
	}
	return nil
}

// Parse overlays the YAML or JSON document buf
// on the default profile and validates the result.
// Unknown fields are rejected.
func Parse(buf []byte) (Profile, error) {
	p := Default()
	if err := yaml.UnmarshalStrict(buf, &p); err != nil {
		return p, errors.Mark(errors.Wrap(err, "parsing profile"), ErrInvalid)
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// Load reads a profile from the file at path.
func Load(path string) (Profile, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return Default(), err
	}
	p, err := Parse(buf)
	if err != nil {
		return p, errors.Wrapf(err, "%s", path)
	}
	return p, nil
}

// Marshal returns p as YAML.
func (p *Profile) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}

// CompilerOptions returns the options for
// building with p.
func (p *Profile) CompilerOptions() compiler.Options {
	w := p.QIDWidth
	if w == 0 {
		w = nfa.MaxWidth
	}
	return compiler.Options{QIDWidth: w, MaxStates: p.MaxStates}
}

// EncodeOptions returns the encoding widths for a,
// filling unset widths with the narrowest that fit.
func (p *Profile) EncodeOptions(a *nfa.Automaton) bytecode.Options {
	opts := bytecode.MinWidths(a)
	if p.QIDWidth != 0 {
		opts.QIDWidth = p.QIDWidth
	}
	if p.LabelWidth != 0 {
		opts.LabelWidth = p.LabelWidth
	}
	return opts
}
