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

import "github.com/cockroachdb/errors"

var (
	// ErrInvalidFragmentReuse is returned when a fragment
	// is passed to a combinator after it was consumed, or
	// when one of its dangling finals already has a transition.
	ErrInvalidFragmentReuse = errors.New("invalid fragment reuse")
	// ErrStateOverflow is returned when allocating a state
	// would exceed the capacity of the table.
	ErrStateOverflow = errors.New("state overflow")
	// ErrMismatchedTable is returned when a fragment built
	// by one Builder is passed to another.
	ErrMismatchedTable = errors.New("fragment belongs to a different table")
	// ErrConstruction is returned when finalization finds
	// a violated automaton invariant.
	ErrConstruction = errors.New("construction error")
	// ErrFinalized is returned by a Builder (or Table)
	// after it has produced its automaton.
	ErrFinalized = errors.New("builder already finalized")
)
