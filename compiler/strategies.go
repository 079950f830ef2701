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

import "github.com/SnellerInc/anfa/nfa"

// Forward builds the automaton of the expression
// as written.
type Forward struct {
	s stack
}

// NewForward returns a Forward compiler with
// a fresh table.
func NewForward(opts Options) (*Forward, error) {
	b, err := newBuilder(opts)
	if err != nil {
		return nil, err
	}
	return &Forward{s: stack{b: b}}, nil
}

// Literal pushes an automaton accepting c.
func (c *Forward) Literal(x byte) error { return c.s.push(c.s.b.Literal(x)) }

// Epsilon pushes an automaton accepting only "".
func (c *Forward) Epsilon() error { return c.s.push(c.s.b.Epsilon()) }

// Nothing pushes an automaton accepting nothing.
func (c *Forward) Nothing() error { return c.s.push(c.s.b.Nothing()) }

// Concatenate replaces the top two operands x, y
// (y on top) with x·y.
func (c *Forward) Concatenate() error { return c.s.concatenate(false) }

// Union replaces the top two operands x, y with x|y.
func (c *Forward) Union() error { return c.s.union() }

// Star replaces the top operand x with x*.
func (c *Forward) Star() error { return c.s.star() }

// Finalize returns the automaton for the only
// remaining operand.
func (c *Forward) Finalize() (*nfa.Automaton, error) { return c.s.finalize() }

// Depth returns the number of pending operands.
func (c *Forward) Depth() int { return len(c.s.frags) }

// Reverse builds the automaton of the reversed
// language: concatenations are joined right to left
// while unions and stars keep their shape.
type Reverse struct {
	s stack
}

// NewReverse returns a Reverse compiler with
// a fresh table.
func NewReverse(opts Options) (*Reverse, error) {
	b, err := newBuilder(opts)
	if err != nil {
		return nil, err
	}
	return &Reverse{s: stack{b: b}}, nil
}

func (c *Reverse) Literal(x byte) error { return c.s.push(c.s.b.Literal(x)) }

func (c *Reverse) Epsilon() error { return c.s.push(c.s.b.Epsilon()) }

func (c *Reverse) Nothing() error { return c.s.push(c.s.b.Nothing()) }

// Concatenate replaces the top two operands x, y
// (y on top) with y·x.
func (c *Reverse) Concatenate() error { return c.s.concatenate(true) }

func (c *Reverse) Union() error { return c.s.union() }

func (c *Reverse) Star() error { return c.s.star() }

func (c *Reverse) Finalize() (*nfa.Automaton, error) { return c.s.finalize() }

// Depth returns the number of pending operands.
func (c *Reverse) Depth() int { return len(c.s.frags) }
