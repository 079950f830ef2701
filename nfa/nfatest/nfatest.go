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

// Package nfatest provides helpers for testing
// code that produces or consumes automata.
package nfatest

import (
	"github.com/SnellerInc/anfa/nfa"
)

// closure adds id and every state reachable from it
// over ε or marker transitions to set.
func closure(a *nfa.Automaton, id nfa.QID, set map[nfa.QID]bool) {
	stack := []nfa.QID{id}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if set[id] {
			continue
		}
		set[id] = true
		s, _ := a.State(id)
		if s.Terminal() || s.Label.IsLiteral() {
			continue
		}
		stack = append(stack, s.Left)
		if s.Right != nfa.None {
			stack = append(stack, s.Right)
		}
	}
}

// Accepts reports whether a matches all of input.
// Boundary markers are followed like ε.
func Accepts(a *nfa.Automaton, input []byte) bool {
	cur := map[nfa.QID]bool{}
	closure(a, a.Q0(), cur)
	for _, c := range input {
		next := map[nfa.QID]bool{}
		for id := range cur {
			s, _ := a.State(id)
			if s.Terminal() || !s.Label.IsLiteral() || s.Label.Byte() != c {
				continue
			}
			closure(a, s.Left, next)
			if s.Right != nfa.None {
				closure(a, s.Right, next)
			}
		}
		if len(next) == 0 {
			return false
		}
		cur = next
	}
	return cur[a.F()]
}

// AcceptsString is Accepts for a string input.
func AcceptsString(a *nfa.Automaton, input string) bool {
	return Accepts(a, []byte(input))
}

// MustLiteral returns the finalized automaton
// for the single byte c, or panics.
func MustLiteral(c byte) *nfa.Automaton {
	t, err := nfa.NewTable(1)
	if err != nil {
		panic(err)
	}
	b := nfa.NewBuilder(t)
	x, err := b.Literal(c)
	if err != nil {
		panic(err)
	}
	a, err := b.Finalize(x)
	if err != nil {
		panic(err)
	}
	return a
}

// LiteralABytes is the bytecode of MustLiteral('a')
// with one-byte ids and four-byte labels.
var LiteralABytes = []byte{
	0x01, 0x04, // qid_width, label_width
	0x01, 0x02, // q0, f
	0x00, 0x00, 0x00, 0x61, 0x02, 0x00, // state 1: 'a' -> 2
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // state 2: final
}
