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

package compiler

import (
	"github.com/cockroachdb/errors"

	"github.com/SnellerInc/anfa/nfa"
)

// Bidirectional drives a Forward and a Reverse
// compiler with the same calls, so that one pass over
// an expression yields both the automaton and its
// reversal.
type Bidirectional struct {
	fwd *Forward
	rev *Reverse
}

// NewBidirectional returns a compiler building into
// two fresh tables configured by opts.
func NewBidirectional(opts Options) (*Bidirectional, error) {
	f, err := NewForward(opts)
	if err != nil {
		return nil, err
	}
	r, err := NewReverse(opts)
	if err != nil {
		return nil, err
	}
	return &Bidirectional{fwd: f, rev: r}, nil
}

// both applies op to the forward side and then to
// the reverse side. The stacks hold the same shapes,
// so an operand error on one side occurs on both and
// the reverse call is never reached; a capacity error
// on the reverse side alone leaves the pair out of
// step, and the compiler must be discarded.
func both(fwd, rev func() error) error {
	if err := fwd(); err != nil {
		return err
	}
	if err := rev(); err != nil {
		return errors.Wrap(err, "reverse")
	}
	return nil
}

func (c *Bidirectional) Literal(x byte) error {
	return both(
		func() error { return c.fwd.Literal(x) },
		func() error { return c.rev.Literal(x) })
}

func (c *Bidirectional) Epsilon() error { return both(c.fwd.Epsilon, c.rev.Epsilon) }

func (c *Bidirectional) Nothing() error { return both(c.fwd.Nothing, c.rev.Nothing) }

func (c *Bidirectional) Concatenate() error { return both(c.fwd.Concatenate, c.rev.Concatenate) }

func (c *Bidirectional) Union() error { return both(c.fwd.Union, c.rev.Union) }

func (c *Bidirectional) Star() error { return both(c.fwd.Star, c.rev.Star) }

// Finalize returns the forward automaton only;
// use FinalizeBoth to get the reversal as well.
func (c *Bidirectional) Finalize() (*nfa.Automaton, error) {
	f, _, err := c.FinalizeBoth()
	return f, err
}

// FinalizeBoth finalizes both sides and returns the
// forward and reverse automata.
func (c *Bidirectional) FinalizeBoth() (fwd, rev *nfa.Automaton, err error) {
	fwd, err = c.fwd.Finalize()
	if err != nil {
		return nil, nil, err
	}
	rev, err = c.rev.Finalize()
	if err != nil {
		return nil, nil, errors.Wrap(err, "reverse")
	}
	return fwd, rev, nil
}

// Depth returns the number of pending operands.
func (c *Bidirectional) Depth() int { return c.fwd.Depth() }
