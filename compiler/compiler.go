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

// Package compiler provides interchangeable strategies
// that drive an nfa.Builder from a postfix stream of
// construction calls.
//
// A front end walks a regular expression and calls
// Literal, Epsilon and Nothing for leaves and
// Concatenate, Union and Star for operators; each
// operator pops its operands from the compiler's
// stack and pushes the result. Finalize returns the
// automaton for the single remaining operand.
package compiler

import (
	"github.com/cockroachdb/errors"

	"github.com/SnellerInc/anfa/nfa"
)

// ErrStackUnderflow is returned when an operator is
// applied with too few operands on the stack.
var ErrStackUnderflow = errors.New("not enough operands")

// Compiler is the construction contract shared by
// all strategies.
type Compiler interface {
	Literal(c byte) error
	Epsilon() error
	Nothing() error
	Concatenate() error
	Union() error
	Star() error
	Finalize() (*nfa.Automaton, error)
}

// Options configure the table a strategy builds into.
type Options struct {
	// QIDWidth is the byte width state ids must fit in.
	QIDWidth int
	// MaxStates, if positive, further limits the
	// number of states.
	MaxStates int
	// Logf, if set, traces builder operations.
	Logf func(format string, args ...any)
}

// DefaultOptions allow ids up to four bytes wide.
var DefaultOptions = Options{QIDWidth: 4}

func newBuilder(opts Options) (*nfa.Builder, error) {
	t, err := nfa.NewTable(opts.QIDWidth)
	if err != nil {
		return nil, err
	}
	if opts.MaxStates > 0 {
		t.Restrict(opts.MaxStates)
	}
	b := nfa.NewBuilder(t)
	b.Logf = opts.Logf
	return b, nil
}

// stack holds the pending operands of a strategy.
type stack struct {
	b     *nfa.Builder
	frags []nfa.Fragment
}

func (s *stack) push(f nfa.Fragment, err error) error {
	if err != nil {
		return err
	}
	s.frags = append(s.frags, f)
	return nil
}

// operands returns the top n fragments, deepest
// first, without popping them.
func (s *stack) operands(op string, n int) ([]nfa.Fragment, error) {
	if len(s.frags) < n {
		return nil, errors.Wrapf(ErrStackUnderflow, "%s needs %d operand(s), have %d", op, n, len(s.frags))
	}
	return s.frags[len(s.frags)-n:], nil
}

// replace pops n operands and pushes the result
// of a successful operator.
func (s *stack) replace(n int, f nfa.Fragment, err error) error {
	if err != nil {
		return err
	}
	s.frags = append(s.frags[:len(s.frags)-n], f)
	return nil
}

func (s *stack) finalize() (*nfa.Automaton, error) {
	switch len(s.frags) {
	case 0:
		return nil, errors.Wrap(ErrStackUnderflow, "finalize on an empty stack")
	case 1:
	default:
		return nil, errors.Wrapf(nfa.ErrConstruction, "%d operands left on the stack", len(s.frags))
	}
	a, err := s.b.Finalize(s.frags[0])
	if err != nil {
		return nil, err
	}
	s.frags = nil
	return a, nil
}

func (s *stack) star() error {
	ops, err := s.operands("star", 1)
	if err != nil {
		return err
	}
	f, err := s.b.Star(ops[0])
	return s.replace(1, f, err)
}

func (s *stack) union() error {
	ops, err := s.operands("union", 2)
	if err != nil {
		return err
	}
	f, err := s.b.Union(ops[0], ops[1])
	return s.replace(2, f, err)
}

// concatenate joins the top two operands; when
// reversed the top operand comes first.
func (s *stack) concatenate(reversed bool) error {
	ops, err := s.operands("concatenate", 2)
	if err != nil {
		return err
	}
	x, y := ops[0], ops[1]
	if reversed {
		x, y = y, x
	}
	f, err := s.b.Concatenate(x, y)
	return s.replace(2, f, err)
}
