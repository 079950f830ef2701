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

// reader is the input cursor of one decode call.
type reader struct {
	buf    []byte
	off    int
	qw, lw int
}

func (r *reader) field(width int) uint64 {
	var v uint64
	for _, b := range r.buf[r.off : r.off+width] {
		v = v<<8 | uint64(b)
	}
	r.off += width
	return v
}

func (r *reader) qid() uint64 { return r.field(r.qw) }

type record struct {
	label, left, right uint64
}

func (rec *record) terminal() bool {
	return rec.label == 0 && rec.left == 0 && rec.right == 0
}

// header reads and checks the widths and returns
// the number of delta records that follow the
// declaration.
func (r *reader) header() (int, error) {
	if len(r.buf) < 2 {
		return 0, errors.Wrapf(ErrTruncatedStream, "%d bytes, want a 2-byte header", len(r.buf))
	}
	r.qw, r.lw = int(r.buf[0]), int(r.buf[1])
	r.off = 2
	if err := (Options{QIDWidth: r.qw, LabelWidth: r.lw}).Check(); err != nil {
		return 0, err
	}
	if len(r.buf) < 2+2*r.qw {
		return 0, errors.Wrapf(ErrTruncatedStream, "%d bytes, want a %d-byte declaration", len(r.buf)-2, 2*r.qw)
	}
	body := len(r.buf) - 2 - 2*r.qw
	size := r.lw + 2*r.qw
	if body%size != 0 {
		return 0, errors.Wrapf(ErrTruncatedStream, "%d trailing bytes after %d records of %d bytes", body%size, body/size, size)
	}
	return body / size, nil
}

// Decode reconstructs the automaton encoded in buf.
// It returns no automaton unless every check passes.
func Decode(buf []byte) (*nfa.Automaton, error) {
	r := reader{buf: buf}
	n, err := r.header()
	if err != nil {
		return nil, err
	}
	q0, f := r.qid(), r.qid()
	recs := make([]record, n)
	for i := range recs {
		recs[i].label = r.field(r.lw)
		recs[i].left = r.qid()
		recs[i].right = r.qid()
	}

	for i := range recs {
		if recs[i].right != 0 && recs[i].left == 0 {
			return nil, errors.Wrapf(ErrInvalidOrdering, "state %d", i+1)
		}
	}

	terminals := 0
	var terminal uint64
	for i := range recs {
		if recs[i].terminal() {
			terminals++
			terminal = uint64(i + 1)
		}
	}
	if terminals == 0 {
		return nil, errors.Wrapf(ErrMissingFinal, "none of %d states is terminal", n)
	}
	if terminals > 1 {
		return nil, errors.Wrapf(ErrStructuralMismatch, "%d terminal states", terminals)
	}
	if terminal != f {
		return nil, errors.Wrapf(ErrStructuralMismatch, "terminal state %d is not the declared f %d", terminal, f)
	}

	last := uint64(n)
	if q0 == 0 || q0 > last {
		return nil, errors.Wrapf(ErrIdOutOfRange, "q0 %d not in 1..%d", q0, last)
	}
	for i := range recs {
		if recs[i].left > last || recs[i].right > last {
			return nil, errors.Wrapf(ErrIdOutOfRange, "state %d targets (%d, %d) not in 1..%d", i+1, recs[i].left, recs[i].right, last)
		}
	}

	states := make([]nfa.State, n)
	for i := range recs {
		rec := &recs[i]
		if rec.terminal() {
			continue
		}
		if rec.left == 0 {
			return nil, errors.Wrapf(ErrStructuralMismatch, "state %d has label %#x and no target", i+1, rec.label)
		}
		if rec.label > uint64(nfa.Mark1) {
			return nil, errors.Wrapf(ErrStructuralMismatch, "state %d has unknown label %#x", i+1, rec.label)
		}
		states[i] = nfa.State{Label: nfa.Label(rec.label), Left: nfa.QID(rec.left), Right: nfa.QID(rec.right)}
	}
	a, err := nfa.New(states, nfa.QID(q0), nfa.QID(f))
	if err != nil {
		return nil, errors.Mark(err, ErrStructuralMismatch)
	}
	return a, nil
}

// ReadFrom decodes the automaton in the remainder of src.
func ReadFrom(src io.Reader) (*nfa.Automaton, error) {
	buf, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	return Decode(buf)
}
