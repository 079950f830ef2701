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

// serials holds the serial numbers of fragments
// that a builder has produced and not consumed.
type serials map[uint64]struct{}

func (s serials) add(n uint64) { s[n] = struct{}{} }

func (s serials) has(n uint64) bool {
	_, ok := s[n]
	return ok
}

func (s serials) drop(n uint64) { delete(s, n) }

// count is the number of pending fragments.
func (s serials) count() int { return len(s) }
