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

package bytecode

import (
	"io"

	"github.com/cockroachdb/errors"

	"github.com/SnellerInc/anfa/nfa"
)

// writer is the output cursor of one encode call.
type writer struct {
	buf    []byte
	qw, lw int
}

func (w *writer) field(v uint64, width int) {
	for i := width - 1; i >= 0; i-- {
		w.buf = append(w.buf, byte(v>>(8*i)))
	}
}

func (w *writer) qid(id nfa.QID) { w.field(uint64(id), w.qw) }

func (w *writer) record(s nfa.State) {
	if s.Terminal() {
		w.field(0, w.lw)
		w.qid(nfa.None)
		w.qid(nfa.None)
		return
	}
	w.field(uint64(s.Label), w.lw)
	w.qid(s.Left)
	w.qid(s.Right)
}

// Append appends the encoding of a to dst.
func Append(dst []byte, a *nfa.Automaton, opts Options) ([]byte, error) {
	if err := opts.Check(); err != nil {
		return dst, err
	}
	if a == nil {
		return dst, errors.New("bytecode: nil automaton")
	}
	if n := uint64(a.Len()); n > maxValue(opts.QIDWidth) {
		return dst, errors.Wrapf(ErrIdOverflow, "%d states with %d-byte ids", n, opts.QIDWidth)
	}
	if l := uint64(a.MaxLabel()); l > maxValue(opts.LabelWidth) {
		return dst, errors.Wrapf(ErrIdOverflow, "label %v with %d-byte labels", a.MaxLabel(), opts.LabelWidth)
	}
	w := writer{buf: dst, qw: opts.QIDWidth, lw: opts.LabelWidth}
	w.buf = append(w.buf, byte(opts.QIDWidth), byte(opts.LabelWidth))
	w.qid(a.Q0())
	w.qid(a.F())
	a.Each(func(_ nfa.QID, s nfa.State) {
		w.record(s)
	})
	return w.buf, nil
}

// Encode returns the encoding of a.
func Encode(a *nfa.Automaton, opts Options) ([]byte, error) {
	if err := opts.Check(); err != nil {
		return nil, err
	}
	var dst []byte
	if a != nil {
		dst = make([]byte, 0, opts.Size(a.Len()))
	}
	return Append(dst, a, opts)
}

// WriteTo writes the encoding of a to dst.
func WriteTo(dst io.Writer, a *nfa.Automaton, opts Options) (int64, error) {
	buf, err := Encode(a, opts)
	if err != nil {
		return 0, err
	}
	n, err := dst.Write(buf)
	return int64(n), err
}
