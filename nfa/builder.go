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

package nfa

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slices"
)

// Fragment is an automaton under construction: a
// start state and the set of dangling finals that a
// later combinator will patch.
//
// Fragments are plain values, but each one may be
// passed to exactly one combinator; the Builder that
// produced it rejects any second use.
type Fragment struct {
	b      *Builder
	serial uint64
	start  QID
	finals []QID
}

// Start returns the start state of f.
func (f Fragment) Start() QID { return f.start }

// Finals returns a copy of the dangling finals of f.
func (f Fragment) Finals() []QID { return slices.Clone(f.finals) }

// Builder implements the construction algebra over
// a single Table. Every operation either succeeds or
// leaves the table unchanged.
//
// A Builder is not safe for concurrent use.
type Builder struct {
	table  *Table
	live   serials
	serial uint64
	done   bool

	// Logf, if non-nil, receives a trace line
	// for every successful operation.
	Logf func(format string, args ...any)
}

// NewBuilder returns a Builder that allocates
// states in t.
func NewBuilder(t *Table) *Builder {
	return &Builder{table: t, live: serials{}}
}

// Table returns the table b builds into.
func (b *Builder) Table() *Table { return b.table }

// Pending returns the number of fragments that
// have been produced but not yet consumed.
func (b *Builder) Pending() int { return b.live.count() }

func (b *Builder) logf(format string, args ...any) {
	if b.Logf != nil {
		b.Logf(format, args...)
	}
}

func (b *Builder) fragment(start QID, finals []QID) Fragment {
	b.serial++
	b.live.add(b.serial)
	return Fragment{b: b, serial: b.serial, start: start, finals: finals}
}

// claim checks that every operand is live, distinct,
// owned by b, and that its finals are still dangling.
func (b *Builder) claim(frags ...Fragment) error {
	if b.done {
		return ErrFinalized
	}
	for i, f := range frags {
		switch {
		case f.b == nil:
			return errors.Wrap(ErrInvalidFragmentReuse, "zero fragment")
		case f.b != b:
			return ErrMismatchedTable
		case !b.live.has(f.serial):
			return errors.Wrapf(ErrInvalidFragmentReuse, "fragment starting at %d already consumed", f.start)
		}
		for _, g := range frags[:i] {
			if g.serial == f.serial {
				return errors.Wrapf(ErrInvalidFragmentReuse, "fragment starting at %d used twice", f.start)
			}
		}
		for _, id := range f.finals {
			if !b.table.states[id-1].Terminal() {
				return errors.Wrapf(ErrInvalidFragmentReuse, "dangling final %d already has a transition", id)
			}
		}
	}
	return nil
}

func (b *Builder) release(frags ...Fragment) {
	for _, f := range frags {
		b.live.drop(f.serial)
	}
}

// Literal returns a fragment accepting the single byte c.
func (b *Builder) Literal(c byte) (Fragment, error) {
	return b.edge(Literal(c))
}

// Marker returns a fragment whose only transition is
// labelled with ε or one of the boundary markers.
func (b *Builder) Marker(l Label) (Fragment, error) {
	if l != Epsilon && !l.IsMarker() {
		return Fragment{}, errors.Newf("nfa: %v is not ε or a boundary marker", l)
	}
	return b.edge(l)
}

func (b *Builder) edge(l Label) (Fragment, error) {
	if b.done {
		return Fragment{}, ErrFinalized
	}
	if err := b.table.reserve(2); err != nil {
		return Fragment{}, err
	}
	s := b.table.next()
	t := s + 1
	b.table.push(State{Label: l, Left: t})
	b.table.push(State{})
	b.logf("edge %d --%v--> %d", s, l, t)
	return b.fragment(s, []QID{t}), nil
}

// Epsilon returns a fragment accepting only the
// empty string: one state that is both start
// and dangling final.
func (b *Builder) Epsilon() (Fragment, error) {
	if b.done {
		return Fragment{}, ErrFinalized
	}
	if err := b.table.reserve(1); err != nil {
		return Fragment{}, err
	}
	t := b.table.push(State{})
	b.logf("epsilon %d", t)
	return b.fragment(t, []QID{t}), nil
}

// Nothing returns a fragment accepting no string.
// Its start state loops on ε and its final is
// unreachable.
func (b *Builder) Nothing() (Fragment, error) {
	if b.done {
		return Fragment{}, ErrFinalized
	}
	if err := b.table.reserve(2); err != nil {
		return Fragment{}, err
	}
	s := b.table.next()
	b.table.push(State{Label: Epsilon, Left: s})
	t := b.table.push(State{})
	b.logf("nothing %d, %d", s, t)
	return b.fragment(s, []QID{t}), nil
}

// Concatenate joins every dangling final of x to
// the start of y with an ε transition. x and y are
// consumed.
func (b *Builder) Concatenate(x, y Fragment) (Fragment, error) {
	if err := b.claim(x, y); err != nil {
		return Fragment{}, err
	}
	for _, id := range x.finals {
		b.table.states[id-1] = State{Label: Epsilon, Left: y.start}
	}
	b.release(x, y)
	b.logf("concatenate %d . %d", x.start, y.start)
	return b.fragment(x.start, slices.Clone(y.finals)), nil
}

// Union returns a fragment whose new start state
// branches on ε to x (left) and y (right). The
// dangling finals of both are kept. x and y are
// consumed.
func (b *Builder) Union(x, y Fragment) (Fragment, error) {
	if err := b.claim(x, y); err != nil {
		return Fragment{}, err
	}
	if err := b.table.reserve(1); err != nil {
		return Fragment{}, err
	}
	u := b.table.push(State{Label: Epsilon, Left: x.start, Right: y.start})
	finals := make([]QID, 0, len(x.finals)+len(y.finals))
	finals = append(finals, x.finals...)
	finals = append(finals, y.finals...)
	b.release(x, y)
	b.logf("union %d = %d | %d", u, x.start, y.start)
	return b.fragment(u, finals), nil
}

// Star returns a fragment repeating x zero or more
// times. A new state branches on ε into the body
// (left) or to a new dangling final (right), and
// every final of x loops back to it. x is consumed.
func (b *Builder) Star(x Fragment) (Fragment, error) {
	if err := b.claim(x); err != nil {
		return Fragment{}, err
	}
	if err := b.table.reserve(2); err != nil {
		return Fragment{}, err
	}
	u := b.table.next()
	t := u + 1
	b.table.push(State{Label: Epsilon, Left: x.start, Right: t})
	b.table.push(State{})
	for _, id := range x.finals {
		b.table.states[id-1] = State{Label: Epsilon, Left: u}
	}
	b.release(x)
	b.logf("star %d = (%d)*", u, x.start)
	return b.fragment(u, []QID{t}), nil
}

// Finalize collapses the dangling finals of x into a
// single accepting state, fixes q0 to the start of x,
// and validates the result. x must be the only
// pending fragment. On success the table is frozen
// and b rejects further operations.
func (b *Builder) Finalize(x Fragment) (*Automaton, error) {
	if err := b.claim(x); err != nil {
		return nil, err
	}
	if n := b.live.count(); n != 1 {
		return nil, errors.Wrapf(ErrConstruction, "%d fragments still pending", n-1)
	}
	var f QID
	states := b.table.Snapshot()
	switch len(x.finals) {
	case 0:
		return nil, errors.Wrap(ErrConstruction, "fragment has no dangling final")
	case 1:
		f = x.finals[0]
	default:
		if err := b.table.reserve(1); err != nil {
			return nil, err
		}
		f = b.table.next()
		states = append(states, State{})
		for _, id := range x.finals {
			states[id-1] = State{Label: Epsilon, Left: f}
		}
	}
	a := &Automaton{states: states, q0: x.start, f: f}
	if err := a.validate(); err != nil {
		return nil, err
	}
	b.table.states = states
	b.table.Freeze()
	b.release(x)
	b.done = true
	b.logf("finalize q0=%d f=%d (%d states)", a.q0, a.f, len(states))
	return a, nil
}
