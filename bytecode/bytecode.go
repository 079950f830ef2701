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

// Package bytecode encodes finalized automata to
// and from their fixed-width binary representation.
//
// The stream is big-endian:
//
//	HEADER      qid_width (1 byte)  label_width (1 byte)
//	DECLARATION q0 (qid_width)      f (qid_width)
//	DELTA[1..N] label (label_width) left (qid_width) right (qid_width)
//
// The i-th delta record describes state i; 0 in any
// field means "none".
package bytecode

import (
	"github.com/cockroachdb/errors"

	"github.com/SnellerInc/anfa/nfa"
)

var (
	// ErrWidthTooSmall is returned for a zero field width.
	ErrWidthTooSmall = errors.New("field width too small")
	// ErrWidthTooLarge is returned for a field width
	// above nfa.MaxWidth bytes.
	ErrWidthTooLarge = errors.New("field width too large")
	// ErrIdOverflow is returned when a state id or
	// label does not fit its field.
	ErrIdOverflow = errors.New("value overflows field width")
	// ErrTruncatedStream is returned when the input ends
	// inside the header, the declaration or a record.
	ErrTruncatedStream = errors.New("truncated stream")
	// ErrInvalidOrdering is returned for a record with
	// a right target but no left target.
	ErrInvalidOrdering = errors.New("right target without left target")
	// ErrMissingFinal is returned when no record is terminal.
	ErrMissingFinal = errors.New("missing final state")
	// ErrIdOutOfRange is returned when q0 or a
	// transition target is not a decoded state.
	ErrIdOutOfRange = errors.New("state id out of range")
	// ErrStructuralMismatch is returned when the terminal
	// records do not agree with the declared f, or a record
	// carries a label without a target.
	ErrStructuralMismatch = errors.New("structural mismatch")
)

// Options are the field widths, in bytes, of an encoding.
type Options struct {
	QIDWidth   int
	LabelWidth int
}

// DefaultOptions uses one-byte state ids and
// four-byte labels.
var DefaultOptions = Options{QIDWidth: 1, LabelWidth: 4}

func checkWidth(w int) error {
	switch {
	case w <= 0:
		return errors.Wrapf(ErrWidthTooSmall, "width %d", w)
	case w > nfa.MaxWidth:
		return errors.Wrapf(ErrWidthTooLarge, "width %d", w)
	}
	return nil
}

// Check validates both widths.
func (o Options) Check() error {
	if err := checkWidth(o.QIDWidth); err != nil {
		return errors.Wrap(err, "qid")
	}
	if err := checkWidth(o.LabelWidth); err != nil {
		return errors.Wrap(err, "label")
	}
	return nil
}

// RecordSize is the size of one delta record.
func (o Options) RecordSize() int { return o.LabelWidth + 2*o.QIDWidth }

// Size returns the encoded size of an automaton
// with n states.
func (o Options) Size(n int) int { return 2 + 2*o.QIDWidth + n*o.RecordSize() }

// maxValue is the largest value a width-byte field holds.
func maxValue(width int) uint64 { return uint64(nfa.Capacity(width)) }

// MinWidths returns the narrowest options
// that can encode a.
func MinWidths(a *nfa.Automaton) Options {
	o := Options{QIDWidth: 1, LabelWidth: 1}
	for uint64(a.Len()) > maxValue(o.QIDWidth) {
		o.QIDWidth++
	}
	for uint64(a.MaxLabel()) > maxValue(o.LabelWidth) {
		o.LabelWidth++
	}
	return o
}
