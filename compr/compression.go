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

// Package compr names the compression algorithms an
// automaton container may use and wraps the
// klauspost/compress implementations behind them.
package compr

import (
	"runtime"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
)

// ErrUnknownAlgorithm is returned for an algorithm
// name or id that has no implementation.
var ErrUnknownAlgorithm = errors.New("unknown compression algorithm")

// Algorithm is the one-byte id of a compression
// algorithm as stored in a container header.
type Algorithm uint8

const (
	None Algorithm = iota
	S2
	Zstd
)

var names = [...]string{
	None: "none",
	S2:   "s2",
	Zstd: "zstd",
}

// Valid reports whether a is a known id.
func (a Algorithm) Valid() bool { return int(a) < len(names) }

func (a Algorithm) String() string {
	if !a.Valid() {
		return "unknown"
	}
	return names[a]
}

// Parse returns the algorithm for name. The names
// "zstd-better" and "zstd-nocrc" select encoder and
// decoder variants of Zstd and parse as Zstd.
func Parse(name string) (Algorithm, error) {
	switch name {
	case "", "none":
		return None, nil
	case "s2":
		return S2, nil
	case "zstd", "zstd-better", "zstd-nocrc":
		return Zstd, nil
	}
	return 0, errors.Wrapf(ErrUnknownAlgorithm, "%q", name)
}

// Compressor appends the compressed form of src to dst.
type Compressor interface {
	// Algorithm is the id written alongside the output.
	Algorithm() Algorithm
	// Compress appends the compressed contents
	// of src to dst and returns the result.
	Compress(src, dst []byte) []byte
}

// Decompressor expands a compressed buffer into
// a destination of exactly the original size.
type Decompressor interface {
	Algorithm() Algorithm
	// Decompress decompresses src into dst, failing
	// unless the output fills dst exactly.
	//
	// It is safe to call Decompress concurrently.
	Decompress(src, dst []byte) error
}

type noneCompressor struct{}

func (noneCompressor) Algorithm() Algorithm { return None }

func (noneCompressor) Compress(src, dst []byte) []byte { return append(dst, src...) }

func (noneCompressor) Decompress(src, dst []byte) error {
	if len(src) != len(dst) {
		return errors.Newf("expected %d bytes; got %d", len(dst), len(src))
	}
	copy(dst, src)
	return nil
}

type zstdCompressor struct {
	enc *zstd.Encoder
}

func (z zstdCompressor) Algorithm() Algorithm { return Zstd }

func (z zstdCompressor) Compress(src, dst []byte) []byte {
	return z.enc.EncodeAll(src, dst)
}

var (
	zstdDecoder     *zstd.Decoder
	zstdFastDecoder *zstd.Decoder
)

func init() {
	z, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(runtime.GOMAXPROCS(0)))
	if err != nil {
		panic(err)
	}
	zstdDecoder = z
	z, err = zstd.NewReader(nil, zstd.WithDecoderConcurrency(runtime.GOMAXPROCS(0)),
		zstd.IgnoreChecksum(true))
	if err != nil {
		panic(err)
	}
	zstdFastDecoder = z
}

type zstdDecompressor zstd.Decoder

func (z *zstdDecompressor) Algorithm() Algorithm { return Zstd }

func (z *zstdDecompressor) Decompress(src, dst []byte) error {
	ret, err := (*zstd.Decoder)(z).DecodeAll(src, dst[:0:len(dst)])
	if err != nil {
		return errors.Wrap(err, "zstd")
	}
	return filled("zstd", ret, dst)
}

// filled checks that a decoder wrote exactly
// len(dst) bytes into dst without reallocating.
func filled(name string, ret, dst []byte) error {
	if len(ret) != len(dst) {
		return errors.Newf("%s: expected %d bytes decompressed; got %d", name, len(dst), len(ret))
	}
	if len(dst) > 0 && &ret[0] != &dst[0] {
		return errors.Newf("%s: output buffer realloc'd", name)
	}
	return nil
}

type s2Compressor struct{}

func (s2Compressor) Algorithm() Algorithm { return S2 }

func (s2Compressor) Compress(src, dst []byte) []byte {
	tail := dst[len(dst):cap(dst)]
	// s2 requires non-overlapping src and dst
	if overlaps(src, tail) {
		tail = nil
	}
	got := s2.Encode(tail, src)
	if len(dst) == 0 {
		return got
	}
	if len(tail) > 0 && len(got) > 0 && &tail[0] == &got[0] {
		return dst[:len(dst)+len(got)]
	}
	return append(dst, got...)
}

func (s2Compressor) Decompress(src, dst []byte) error {
	n, err := s2.DecodedLen(src)
	if err != nil {
		return errors.Wrap(err, "s2")
	}
	if n != len(dst) {
		return errors.Newf("s2: expected %d bytes decompressed; got %d", len(dst), n)
	}
	ret, err := s2.Decode(dst, src)
	if err != nil {
		return errors.Wrap(err, "s2")
	}
	return filled("s2", ret, dst)
}

// Compression returns the compressor called name,
// or nil if there is none.
func Compression(name string) Compressor {
	switch name {
	case "", "none":
		return noneCompressor{}
	case "zstd-better":
		z, _ := zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
			zstd.WithEncoderConcurrency(1))
		return zstdCompressor{z}
	case "zstd":
		z, _ := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
		return zstdCompressor{z}
	case "s2":
		return s2Compressor{}
	default:
		return nil
	}
}

// Decompression returns the decompressor called name,
// or nil if there is none.
func Decompression(name string) Decompressor {
	switch name {
	case "", "none":
		return noneCompressor{}
	case "zstd":
		return (*zstdDecompressor)(zstdDecoder)
	case "zstd-nocrc":
		return (*zstdDecompressor)(zstdFastDecoder)
	case "s2":
		return s2Compressor{}
	default:
		return nil
	}
}

// ForAlgorithm returns the decompressor for an id
// read from a container header.
func ForAlgorithm(a Algorithm) (Decompressor, error) {
	if !a.Valid() {
		return nil, errors.Wrapf(ErrUnknownAlgorithm, "id %d", uint8(a))
	}
	return Decompression(a.String()), nil
}

func overlaps(a, b []byte) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	a0 := uintptr(unsafe.Pointer(&a[0]))
	a1 := a0 + uintptr(len(a))
	b0 := uintptr(unsafe.Pointer(&b[0]))
	b1 := b0 + uintptr(len(b))
	return a0 < b1 && b0 < a1
}
