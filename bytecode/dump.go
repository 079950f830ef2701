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
	"fmt"
	"io"

	"github.com/SnellerInc/anfa/nfa"
)

// DumpDebug writes an annotated listing of the
// stream in buf to dst. It stops at the first
// structural problem and returns it.
func DumpDebug(dst io.Writer, buf []byte) error {
	r := reader{buf: buf}
	n, err := r.header()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(dst, "%02X %02X\t(qid_width=%d; label_width=%d)\n", r.qw, r.lw, r.qw, r.lw)
	if err != nil {
		return err
	}
	decl := buf[2 : 2+2*r.qw]
	q0, f := r.qid(), r.qid()
	_, err = fmt.Fprintf(dst, "%X %X\t(q0=%d; f=%d)\n", decl[:r.qw], decl[r.qw:], q0, f)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		start := r.off
		label, left, right := r.field(r.lw), r.qid(), r.qid()
		raw := buf[start:r.off]
		s := nfa.State{Label: nfa.Label(label), Left: nfa.QID(left), Right: nfa.QID(right)}
		desc := s.String()
		if s.Terminal() {
			desc = "final"
			if label != 0 {
				desc = fmt.Sprintf("label %#x without target", label)
			}
		}
		_, err = fmt.Fprintf(dst, "  %X %X %X\t(state %d: %s)\n",
			raw[:r.lw], raw[r.lw:r.lw+r.qw], raw[r.lw+r.qw:], i+1, desc)
		if err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(dst, "  (nStates=%d; %d bytes)\n", n, len(buf))
	return err
}
