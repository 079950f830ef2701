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

// Package nfa builds augmented non-deterministic
// finite automata with a restricted Thompson
// construction.
//
// Every state holds at most one transition: a label
// plus one or two ordered targets. The label alphabet
// is the 256 byte values, ε, and the two boundary
// markers used for bit-coded extraction.
package nfa

import "fmt"

// QID identifies a state within a Table.
// The zero value is never a valid state.
type QID uint64

// None is the "no state" sentinel.
const None QID = 0

// Label is the symbol on a transition.
// Values 0x00..0xFF are literal bytes.
type Label uint32

const (
	// Epsilon is the unlabelled transition.
	Epsilon Label = 0x100 + iota
	// Mark0 is the "0" boundary marker.
	Mark0
	// Mark1 is the "1" boundary marker.
	Mark1

	maxLabel = Mark1
)

// Literal returns the label for byte c.
func Literal(c byte) Label { return Label(c) }

// IsLiteral reports whether l consumes an input byte.
func (l Label) IsLiteral() bool { return l <= 0xff }

// IsMarker reports whether l is Mark0 or Mark1.
func (l Label) IsMarker() bool { return l == Mark0 || l == Mark1 }

// Valid reports whether l is a member of the augmented alphabet.
func (l Label) Valid() bool { return l <= maxLabel }

// Byte returns the literal byte of l.
// It is only meaningful when l.IsLiteral().
func (l Label) Byte() byte { return byte(l) }

func (l Label) String() string {
	switch {
	case l == Epsilon:
		return "ε"
	case l == Mark0:
		return "⟨0⟩"
	case l == Mark1:
		return "⟨1⟩"
	case l.IsLiteral():
		c := byte(l)
		if Printable(c) {
			return fmt.Sprintf("'%c'", c)
		}
		return fmt.Sprintf("'\\x%02x'", c)
	default:
		return fmt.Sprintf("label(%#x)", uint32(l))
	}
}

// Printable reports whether c is rendered as itself
// in debug output; other bytes are hex-escaped.
func Printable(c byte) bool { return c >= 0x21 && c <= 0x7e && c != '\'' && c != '\\' && c != '"' }

// State is one entry of the transition table.
//
// A state with Left == None has no outgoing transition
// and its Label is meaningless. Right may only be set
// when Left is set, and Left is always the branch that
// was constructed first.
type State struct {
	Label Label
	Left  QID
	Right QID
}

// Terminal reports whether s has no outgoing transition.
func (s State) Terminal() bool { return s.Left == None }

// Fanout returns the number of targets of s.
func (s State) Fanout() int {
	switch {
	case s.Left == None:
		return 0
	case s.Right == None:
		return 1
	default:
		return 2
	}
}

func (s State) String() string {
	switch s.Fanout() {
	case 0:
		return "(final)"
	case 1:
		return fmt.Sprintf("%v -> %d", s.Label, s.Left)
	default:
		return fmt.Sprintf("%v -> %d, %d", s.Label, s.Left, s.Right)
	}
}
