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

// MaxWidth is the widest supported state id, in bytes.
const MaxWidth = 8

// Capacity returns the largest state id that fits
// in width bytes; id 0 is reserved for None.
func Capacity(width int) QID {
	if width >= MaxWidth {
		return ^QID(0)
	}
	return QID(1)<<(8*width) - 1
}

// Table owns the states of one automaton under
// construction. States are only ever appended or
// repointed; a frozen table rejects both.
//
// A Table is not safe for concurrent use.
type Table struct {
	states []State // states[id-1]
	limit  QID
	frozen bool
}

// NewTable returns an empty table whose ids
// must fit in width bytes.
func NewTable(width int) (*Table, error) {
	if width < 1 || width > MaxWidth {
		return nil, errors.Newf("nfa: invalid id width %d (want 1..%d)", width, MaxWidth)
	}
	return &Table{limit: Capacity(width)}, nil
}

// Restrict lowers the capacity of t to at most n states.
func (t *Table) Restrict(n int) {
	if n >= 0 && QID(n) < t.limit {
		t.limit = QID(n)
	}
}

// Limit is the largest id t may allocate.
func (t *Table) Limit() QID { return t.limit }

// Len is the number of allocated states.
func (t *Table) Len() int { return len(t.states) }

// Frozen reports whether t has been finalized.
func (t *Table) Frozen() bool { return t.frozen }

// Freeze makes t immutable.
func (t *Table) Freeze() { t.frozen = true }

func (t *Table) next() QID { return QID(len(t.states)) + 1 }

// reserve checks that n more states fit in t.
func (t *Table) reserve(n int) error {
	if t.frozen {
		return ErrFinalized
	}
	last := t.next() + QID(n) - 1
	if last < t.next() || last > t.limit {
		return errors.Wrapf(ErrStateOverflow, "allocating %d state(s) after id %d (limit %d)", n, len(t.states), t.limit)
	}
	return nil
}

// push appends s without checks; callers reserve first.
func (t *Table) push(s State) QID {
	t.states = append(t.states, s)
	return QID(len(t.states))
}

func (t *Table) has(id QID) bool {
	return id != None && id <= QID(len(t.states))
}

// Allocate appends a state with the given transition
// and returns its id, which is the next unused id.
// Targets may refer to the state being allocated.
func (t *Table) Allocate(label Label, left, right QID) (QID, error) {
	if err := t.reserve(1); err != nil {
		return None, err
	}
	id := t.next()
	if err := t.check(id, label, left, right, id); err != nil {
		return None, err
	}
	return t.push(State{Label: label, Left: left, Right: right}), nil
}

// Get returns the state with the given id.
func (t *Table) Get(id QID) (State, error) {
	if !t.has(id) {
		return State{}, errors.Newf("nfa: state %d not in table of %d states", id, len(t.states))
	}
	return t.states[id-1], nil
}

// SetTransition replaces the outgoing transition of id.
// Passing left == None clears the transition.
func (t *Table) SetTransition(id QID, label Label, left, right QID) error {
	if t.frozen {
		return ErrFinalized
	}
	if !t.has(id) {
		return errors.Newf("nfa: state %d not in table of %d states", id, len(t.states))
	}
	if err := t.check(id, label, left, right, QID(len(t.states))); err != nil {
		return err
	}
	if left == None {
		label = 0
	}
	t.states[id-1] = State{Label: label, Left: left, Right: right}
	return nil
}

// check validates a transition for id whose
// targets must be at most last.
func (t *Table) check(id QID, label Label, left, right, last QID) error {
	if right != None && left == None {
		return errors.Wrapf(ErrConstruction, "state %d: right target %d without left target", id, right)
	}
	if left != None && !label.Valid() {
		return errors.Wrapf(ErrConstruction, "state %d: invalid label %v", id, label)
	}
	if left > last || right > last {
		return errors.Wrapf(ErrConstruction, "state %d: target out of range (%d, %d)", id, left, right)
	}
	return nil
}

// Snapshot returns a copy of the states of t,
// indexed by id-1.
func (t *Table) Snapshot() []State {
	return slices.Clone(t.states)
}
