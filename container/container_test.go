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

package container_test

import (
	"bytes"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"

	"github.com/SnellerInc/anfa/bytecode"
	"github.com/SnellerInc/anfa/compr"
	"github.com/SnellerInc/anfa/container"
	"github.com/SnellerInc/anfa/nfa/nfatest"
)

var algorithms = []string{"none", "s2", "zstd", "zstd-better"}

// reseal recomputes the trailer of buf after
// a header field has been changed.
func reseal(buf []byte) []byte {
	sum := blake2b.Sum256(buf[:len(buf)-blake2b.Size256])
	copy(buf[len(buf)-blake2b.Size256:], sum[:])
	return buf
}

func TestRoundTrip(t *testing.T) {
	big := bytes.Repeat(nfatest.LiteralABytes, 64)
	for _, name := range algorithms {
		for _, code := range [][]byte{nfatest.LiteralABytes, big} {
			id := uuid.New()
			prefix := []byte("xyz")
			buf, h, err := container.Wrap(prefix, code, container.Options{Compression: name, BuildID: id})
			require.NoError(t, err)
			require.Equal(t, "xyz", string(buf[:3]))
			require.Equal(t, len(buf)-3, h.Size)
			buf = buf[3:]
			require.True(t, container.IsContainer(buf))

			got, out, err := container.Unwrap(buf)
			require.NoError(t, err, name)
			require.Equal(t, code, out)
			require.Equal(t, h, got)
			require.Equal(t, id, got.BuildID)
			require.Equal(t, uint32(len(code)), got.RawSize)
			require.Equal(t, container.FingerprintOf(code), got.Fingerprint)
			alg, err := compr.Parse(name)
			require.NoError(t, err)
			require.Equal(t, alg, got.Algorithm)
		}
	}
}

func TestRandomBuildID(t *testing.T) {
	_, h1, err := container.Wrap(nil, nfatest.LiteralABytes, container.Options{})
	require.NoError(t, err)
	_, h2, err := container.Wrap(nil, nfatest.LiteralABytes, container.Options{})
	require.NoError(t, err)
	require.NotEqual(t, uuid.UUID{}, h1.BuildID)
	require.NotEqual(t, h1.BuildID, h2.BuildID)
	require.Equal(t, h1.Fingerprint, h2.Fingerprint)
}

func TestFlippedByte(t *testing.T) {
	for _, name := range algorithms {
		orig, _, err := container.Wrap(nil, nfatest.LiteralABytes, container.Options{Compression: name})
		require.NoError(t, err)
		for i := range orig {
			buf := bytes.Clone(orig)
			buf[i] ^= 0x10
			_, _, err := container.Unwrap(buf)
			if i < 4 {
				require.True(t, errors.Is(err, container.ErrBadMagic), "%s byte %d: %v", name, i, err)
				continue
			}
			require.True(t, errors.Is(err, container.ErrChecksum), "%s byte %d: %v", name, i, err)
		}
	}
}

func TestHeaderErrors(t *testing.T) {
	orig, _, err := container.Wrap(nil, nfatest.LiteralABytes, container.Options{Compression: "none"})
	require.NoError(t, err)

	_, err = container.ReadHeader(orig[:3])
	require.True(t, errors.Is(err, container.ErrTruncated), "%v", err)
	_, err = container.ReadHeader(orig[:40])
	require.True(t, errors.Is(err, container.ErrTruncated), "%v", err)
	_, err = container.ReadHeader([]byte("not a container at all, just some text that is long enough to pass the length check....."))
	require.True(t, errors.Is(err, container.ErrBadMagic), "%v", err)

	buf := bytes.Clone(orig)
	buf[4] = 2
	_, err = container.ReadHeader(reseal(buf))
	require.True(t, errors.Is(err, container.ErrVersion), "%v", err)

	buf = bytes.Clone(orig)
	buf[5] = 9
	_, err = container.ReadHeader(reseal(buf))
	require.True(t, errors.Is(err, container.ErrUnknownAlgorithm), "%v", err)

	// fingerprint field starts after magic, version,
	// algorithm and build id
	buf = bytes.Clone(orig)
	buf[4+1+1+16] ^= 1
	_, _, err = container.Unwrap(reseal(buf))
	require.True(t, errors.Is(err, container.ErrFingerprint), "%v", err)

	// a raw size that does not match the payload
	buf = bytes.Clone(orig)
	buf[4+1+1+16+16+3]++
	_, _, err = container.Unwrap(reseal(buf))
	require.True(t, errors.Is(err, container.ErrCorrupt), "%v", err)

	// a raw size above the limit is rejected before
	// any allocation
	buf = bytes.Clone(orig)
	buf[4+1+1+16+16] = 0x7f
	_, err = container.ReadHeader(reseal(buf))
	require.True(t, errors.Is(err, container.ErrCorrupt), "%v", err)
}

func TestUnknownCompression(t *testing.T) {
	_, _, err := container.Wrap(nil, nfatest.LiteralABytes, container.Options{Compression: "lz4"})
	require.True(t, errors.Is(err, container.ErrUnknownAlgorithm), "%v", err)
}

func TestSealOpen(t *testing.T) {
	a := nfatest.MustLiteral('a')
	buf, h, err := container.Seal(nil, a, bytecode.DefaultOptions, container.Options{Compression: "zstd"})
	require.NoError(t, err)
	require.Equal(t, container.FingerprintOf(nfatest.LiteralABytes), h.Fingerprint)

	got, h2, err := container.Open(buf)
	require.NoError(t, err)
	require.True(t, a.Equal(got))
	require.Equal(t, h, h2)

	_, _, err = container.Seal(nil, a, bytecode.Options{QIDWidth: 0, LabelWidth: 4}, container.Options{})
	require.True(t, errors.Is(err, bytecode.ErrWidthTooSmall), "%v", err)
}

func TestFingerprintString(t *testing.T) {
	fp := container.FingerprintOf([]byte("hello"))
	s := fp.String()
	got, err := container.ParseFingerprint(s)
	require.NoError(t, err)
	require.Equal(t, fp, got)

	_, err = container.ParseFingerprint("!!")
	require.Error(t, err)
	_, err = container.ParseFingerprint("AAAA")
	require.Error(t, err)
}
