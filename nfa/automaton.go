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
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slices"
)

// Automaton is a finalized automaton: one start
// state q0 and one terminal accepting state f.
// It is immutable and safe to share.
type Automaton struct {
	states []State
	q0, f  QID
}

// New validates states (indexed by id-1) and
// returns the automaton they describe.
func New(states []State, q0, f QID) (*Automaton, error) {
	a := &Automaton{states: slices.Clone(states), q0: q0, f: f}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Automaton) validate() error {
	n := QID(len(a.states))
	if n == 0 {
		return errors.Wrap(ErrConstruction, "automaton has no states")
	}
	if a.q0 == None || a.q0 > n {
		return errors.Wrapf(ErrConstruction, "q0 %d not in 1..%d", a.q0, n)
	}
	if a.f == None || a.f > n {
		return errors.Wrapf(ErrConstruction, "f %d not in 1..%d", a.f, n)
	}
	for i, s := range a.states {
		id := QID(i + 1)
		if s.Right != None && s.Left == None {
			return errors.Wrapf(ErrConstruction, "state %d: right target without left target", id)
		}
		if s.Left > n || s.Right > n {
			return errors.Wrapf(ErrConstruction, "state %d: target out of range (%d, %d)", id, s.Left, s.Right)
		}
		if id == a.f {
			if !s.Terminal() {
				return errors.Wrapf(ErrConstruction, "final state %d has a transition", id)
			}
			continue
		}
		if s.Terminal() {
			return errors.Wrapf(ErrConstruction, "state %d has no transition and is not final", id)
		}
		if !s.Label.Valid() {
			return errors.Wrapf(ErrConstruction, "state %d: invalid label %v", id, s.Label)
		}
	}
	return nil
}

// Len returns the number of states; ids are 1..Len().
func (a *Automaton) Len() int { return len(a.states) }

// Q0 returns the start state.
func (a *Automaton) Q0() QID { return a.q0 }

// F returns the accepting state.
func (a *Automaton) F() QID { return a.f }

// State returns the state with the given id.
func (a *Automaton) State(id QID) (State, bool) {
	if id == None || id > QID(len(a.states)) {
		return State{}, false
	}
	return a.states[id-1], true
}

// Each calls fn for every state in ascending id order.
func (a *Automaton) Each(fn func(id QID, s State)) {
	for i, s := range a.states {
		fn(QID(i+1), s)
	}
}

// States returns a copy of the transition table,
// indexed by id-1.
func (a *Automaton) States() []State { return slices.Clone(a.states) }

// Equal reports whether a and o have identical
// ids, transitions, q0 and f.
func (a *Automaton) Equal(o *Automaton) bool {
	if a == nil || o == nil {
		return a == o
	}
	return a.q0 == o.q0 && a.f == o.f && slices.Equal(a.states, o.states)
}

// Alphabet returns the sorted set of literal bytes
// that appear on some transition.
func (a *Automaton) Alphabet() []byte {
	var seen [256]bool
	var out []byte
	for _, s := range a.states {
		if !s.Terminal() && s.Label.IsLiteral() && !seen[s.Label.Byte()] {
			seen[s.Label.Byte()] = true
			out = append(out, s.Label.Byte())
		}
	}
	slices.Sort(out)
	return out
}

// MaxLabel returns the largest label in use,
// or 0 when no state has a transition.
func (a *Automaton) MaxLabel() Label {
	var m Label
	for _, s := range a.states {
		if !s.Terminal() && s.Label > m {
			m = s.Label
		}
	}
	return m
}

// String renders the transition table, one state per line.
func (a *Automaton) String() string {
	var sb strings.Builder
	for i, s := range a.states {
		id := QID(i + 1)
		fmt.Fprintf(&sb, "%d: %v", id, s)
		if id == a.q0 {
			sb.WriteString(" (q0)")
		}
		if id == a.f {
			sb.WriteString(" (f)")
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
