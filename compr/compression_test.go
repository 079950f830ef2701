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

package compr

import (
	"bytes"
	"testing"

	"github.com/cockroachdb/errors"
)

func TestS2(t *testing.T) {
	comp := Compression("s2")
	if _, ok := comp.(s2Compressor); !ok {
		t.Fatalf("bad compressor for s2: %T", comp)
	} else if a := comp.Algorithm(); a != S2 {
		t.Fatalf("bad compressor algorithm %v", a)
	}
	dec := Decompression("s2")
	if _, ok := dec.(s2Compressor); !ok {
		t.Fatalf("bad decompressor for s2: %T", dec)
	}
	// test separate buffers
	ctl := bytes.Repeat([]byte("foo"), 1000)
	src := append([]byte(nil), ctl...)
	cmp := comp.Compress(src, nil)
	dst := make([]byte, len(src))
	if err := dec.Decompress(cmp, dst); err != nil {
		t.Error(err)
	} else if string(ctl) != string(dst) {
		t.Error("mismatch")
	}
	// test overlapping buffers
	cmp = comp.Compress(src[10:], src[:8])
	if err := dec.Decompress(cmp[8:], dst[10:]); err != nil {
		t.Error(err)
	} else if string(ctl[10:]) != string(dst[10:]) {
		t.Error("mismatch")
	}
	// a short destination is an error
	if err := dec.Decompress(cmp[8:], dst[11:]); err == nil {
		t.Error("expected an error decompressing into a short buffer")
	}
}

func TestRoundTrip(t *testing.T) {
	inputs := [][]byte{
		{},
		{0x01, 0x04, 0x01, 0x02, 0, 0, 0, 0x61, 0x02, 0, 0, 0, 0, 0, 0, 0},
		bytes.Repeat([]byte{0, 0, 1, 0, 7, 0}, 500),
	}
	for _, name := range []string{"none", "s2", "zstd", "zstd-better"} {
		comp := Compression(name)
		if comp == nil {
			t.Fatalf("no compressor for %q", name)
		}
		alg, err := Parse(name)
		if err != nil {
			t.Fatal(err)
		}
		if comp.Algorithm() != alg {
			t.Fatalf("%s: algorithm %v, parsed %v", name, comp.Algorithm(), alg)
		}
		dec, err := ForAlgorithm(alg)
		if err != nil {
			t.Fatal(err)
		}
		for i, in := range inputs {
			cmp := comp.Compress(in, nil)
			out := make([]byte, len(in))
			if err := dec.Decompress(cmp, out); err != nil {
				t.Fatalf("%s input %d: %s", name, i, err)
			}
			if !bytes.Equal(in, out) {
				t.Fatalf("%s input %d: mismatch", name, i)
			}
		}
	}
}

func TestParse(t *testing.T) {
	for _, a := range []Algorithm{None, S2, Zstd} {
		got, err := Parse(a.String())
		if err != nil {
			t.Fatal(err)
		}
		if got != a {
			t.Errorf("Parse(%q) = %v", a.String(), got)
		}
	}
	if _, err := Parse("lz4"); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("Parse(lz4): %v", err)
	}
	if _, err := ForAlgorithm(Algorithm(9)); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("ForAlgorithm(9): %v", err)
	}
	if Compression("lz4") != nil || Decompression("lz4") != nil {
		t.Error("expected nil for an unknown name")
	}
}

func TestOverlaps(t *testing.T) {
	// trivial case
	a := make([]byte, 10)
	b := make([]byte, 20)
	if overlaps(a, b) {
		t.Error("overlaps(a, b) should be false")
	}
	// a and b are adjacent (no overlap)
	a = make([]byte, 10, 30)
	b = a[10:]
	if overlaps(a, b) {
		t.Error("overlaps(a, b) should be false")
	} else if overlaps(b, a) {
		t.Error("overlaps(b, a) should be false")
	}
	// a and b overlap by 5
	b = a[5:]
	if !overlaps(a, b) {
		t.Error("overlaps(a, b) should be true")
	} else if !overlaps(b, a) {
		t.Error("overlaps(b, a) should be true")
	}
}
