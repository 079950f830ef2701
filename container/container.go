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

// Package container implements the storage envelope
// for encoded automata.
//
// A container is laid out as
//
//	"ANFA" | version (1) | algorithm (1) | build id (16) |
//	fingerprint (16) | raw length (4, big-endian) |
//	payload | blake2b-256 of all preceding bytes (32)
//
// The payload is the bytecode compressed with the
// named algorithm. The fingerprint is a siphash-128 of
// the uncompressed bytecode and identifies the automaton
// independently of how it was stored.
package container

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/dchest/siphash"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/SnellerInc/anfa/bytecode"
	"github.com/SnellerInc/anfa/compr"
	"github.com/SnellerInc/anfa/nfa"
)

const (
	// Version is the container version written by Wrap.
	Version = 1

	magic = "ANFA"

	headerSize  = len(magic) + 1 + 1 + 16 + 16 + 4
	trailerSize = blake2b.Size256

	// MaxRawSize bounds the uncompressed size
	// of the bytecode in a container.
	MaxRawSize = 1 << 30
)

var (
	// ErrTruncated is returned when the input is too
	// short to hold the magic, header and trailer.
	ErrTruncated = errors.New("container truncated")
	// ErrBadMagic is returned when the input does
	// not begin with the container magic.
	ErrBadMagic = errors.New("not an automaton container")
	// ErrVersion is returned when the header carries
	// any version other than Version.
	ErrVersion = errors.New("unsupported container version")
	// ErrChecksum is returned when the trailing
	// blake2b sum does not match the header and payload.
	ErrChecksum = errors.New("container checksum mismatch")
	// ErrFingerprint is returned when the unwrapped
	// bytecode does not hash to the fingerprint
	// recorded in the header.
	ErrFingerprint = errors.New("bytecode fingerprint mismatch")
	// ErrUnknownAlgorithm is returned when the header
	// names a compression algorithm this build
	// cannot decode, or Options names one it cannot
	// encode.
	ErrUnknownAlgorithm = compr.ErrUnknownAlgorithm
	// ErrCorrupt is returned when the header declares a
	// raw size above MaxRawSize or the payload fails
	// to decompress.
	ErrCorrupt = errors.New("container payload corrupt")
)

// Fingerprint identifies a bytecode stream.
type Fingerprint [16]byte

// keys for the fingerprint hash; changing them
// changes every stored fingerprint
const (
	k0 = 0x3a6f0c8d51e2b7a4
	k1 = 0xc41d9e07f2b58a63
)

// FingerprintOf returns the fingerprint of code.
func FingerprintOf(code []byte) Fingerprint {
	var fp Fingerprint
	lo, hi := siphash.Hash128(k0, k1, code)
	binary.LittleEndian.PutUint64(fp[:8], lo)
	binary.LittleEndian.PutUint64(fp[8:], hi)
	return fp
}

// String returns the URL-safe base64 form of fp.
func (fp Fingerprint) String() string {
	return base64.URLEncoding.EncodeToString(fp[:])
}

// ParseFingerprint is the inverse of Fingerprint.String.
func ParseFingerprint(s string) (Fingerprint, error) {
	var fp Fingerprint
	buf, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return fp, errors.Wrapf(err, "fingerprint %q", s)
	}
	if len(buf) != len(fp) {
		return fp, errors.Newf("fingerprint %q: %d bytes, want %d", s, len(buf), len(fp))
	}
	copy(fp[:], buf)
	return fp, nil
}

// Header describes a container.
type Header struct {
	Version     uint8
	Algorithm   compr.Algorithm
	BuildID     uuid.UUID
	Fingerprint Fingerprint
	// RawSize is the size of the uncompressed bytecode.
	RawSize uint32
	// Size is the size of the whole container.
	Size int
}

// Options control Wrap.
type Options struct {
	// Compression names the payload algorithm
	// (see compr.Compression); empty means none.
	Compression string
	// BuildID labels the container; a random id
	// is generated when it is zero.
	BuildID uuid.UUID
}

// Wrap appends a container holding code to dst.
func Wrap(dst, code []byte, opts Options) ([]byte, Header, error) {
	var h Header
	if len(code) > MaxRawSize {
		return dst, h, errors.Newf("bytecode of %d bytes exceeds %d", len(code), MaxRawSize)
	}
	comp := compr.Compression(opts.Compression)
	if comp == nil {
		return dst, h, errors.Wrapf(ErrUnknownAlgorithm, "%q", opts.Compression)
	}
	h = Header{
		Version:     Version,
		Algorithm:   comp.Algorithm(),
		BuildID:     opts.BuildID,
		Fingerprint: FingerprintOf(code),
		RawSize:     uint32(len(code)),
	}
	if h.BuildID == (uuid.UUID{}) {
		h.BuildID = uuid.New()
	}
	start := len(dst)
	dst = append(dst, magic...)
	dst = append(dst, h.Version, byte(h.Algorithm))
	dst = append(dst, h.BuildID[:]...)
	dst = append(dst, h.Fingerprint[:]...)
	dst = binary.BigEndian.AppendUint32(dst, h.RawSize)
	dst = comp.Compress(code, dst)
	sum := blake2b.Sum256(dst[start:])
	dst = append(dst, sum[:]...)
	h.Size = len(dst) - start
	return dst, h, nil
}

// ReadHeader parses and verifies the envelope of buf
// without decompressing the payload.
func ReadHeader(buf []byte) (Header, error) {
	var h Header
	if len(buf) < len(magic) {
		return h, errors.Wrapf(ErrTruncated, "%d bytes", len(buf))
	}
	if !bytes.Equal(buf[:len(magic)], []byte(magic)) {
		return h, errors.Wrapf(ErrBadMagic, "magic %x", buf[:len(magic)])
	}
	if len(buf) < headerSize+trailerSize {
		return h, errors.Wrapf(ErrTruncated, "%d bytes", len(buf))
	}
	body, trailer := buf[:len(buf)-trailerSize], buf[len(buf)-trailerSize:]
	sum := blake2b.Sum256(body)
	if !bytes.Equal(sum[:], trailer) {
		return h, ErrChecksum
	}
	p := len(magic)
	h.Version = buf[p]
	h.Algorithm = compr.Algorithm(buf[p+1])
	p += 2
	copy(h.BuildID[:], buf[p:])
	p += len(h.BuildID)
	copy(h.Fingerprint[:], buf[p:])
	p += len(h.Fingerprint)
	h.RawSize = binary.BigEndian.Uint32(buf[p:])
	h.Size = len(buf)
	if h.Version != Version {
		return h, errors.Wrapf(ErrVersion, "version %d", h.Version)
	}
	if !h.Algorithm.Valid() {
		return h, errors.Wrapf(ErrUnknownAlgorithm, "id %d", uint8(h.Algorithm))
	}
	if h.RawSize > MaxRawSize {
		return h, errors.Wrapf(ErrCorrupt, "raw size %d exceeds %d", h.RawSize, MaxRawSize)
	}
	return h, nil
}

// Unwrap verifies buf and returns its header and
// the uncompressed bytecode.
func Unwrap(buf []byte) (Header, []byte, error) {
	h, err := ReadHeader(buf)
	if err != nil {
		return h, nil, err
	}
	dec, err := compr.ForAlgorithm(h.Algorithm)
	if err != nil {
		return h, nil, err
	}
	code := make([]byte, h.RawSize)
	if err := dec.Decompress(buf[headerSize:len(buf)-trailerSize], code); err != nil {
		return h, nil, errors.Mark(errors.Wrap(err, "decompressing payload"), ErrCorrupt)
	}
	if FingerprintOf(code) != h.Fingerprint {
		return h, nil, ErrFingerprint
	}
	return h, code, nil
}

// Seal encodes a and wraps the bytecode.
func Seal(dst []byte, a *nfa.Automaton, enc bytecode.Options, opts Options) ([]byte, Header, error) {
	code, err := bytecode.Encode(a, enc)
	if err != nil {
		return dst, Header{}, err
	}
	return Wrap(dst, code, opts)
}

// Open unwraps buf and decodes the automaton in it.
func Open(buf []byte) (*nfa.Automaton, Header, error) {
	h, code, err := Unwrap(buf)
	if err != nil {
		return nil, h, err
	}
	a, err := bytecode.Decode(code)
	if err != nil {
		return nil, h, err
	}
	return a, h, nil
}

// IsContainer reports whether buf starts with
// the container magic.
func IsContainer(buf []byte) bool {
	return len(buf) >= len(magic) && string(buf[:len(magic)]) == magic
}
