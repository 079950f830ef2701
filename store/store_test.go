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

package store_test

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/SnellerInc/anfa/bytecode"
	"github.com/SnellerInc/anfa/container"
	"github.com/SnellerInc/anfa/nfa/nfatest"
	"github.com/SnellerInc/anfa/store"
)

func sealed(t *testing.T, c byte) []byte {
	t.Helper()
	buf, _, err := container.Seal(nil, nfatest.MustLiteral(c), bytecode.DefaultOptions, container.Options{Compression: "s2"})
	require.NoError(t, err)
	return buf
}

func TestPutGet(t *testing.T) {
	d, err := store.Open(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)

	key := store.SourceKey("a", "forward")
	_, _, err = d.Get(key)
	require.True(t, errors.Is(err, store.ErrNotFound), "%v", err)
	require.EqualValues(t, 1, d.Misses())

	buf := sealed(t, 'a')
	h, err := d.Put(key, buf)
	require.NoError(t, err)

	got, h2, err := d.Get(key)
	require.NoError(t, err)
	require.Equal(t, buf, got)
	require.Equal(t, h, h2)
	require.EqualValues(t, 1, d.Hits())

	a, _, err := d.Load(key)
	require.NoError(t, err)
	require.True(t, a.Equal(nfatest.MustLiteral('a')))

	entries, err := d.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, key, entries[0].Key)
	require.EqualValues(t, len(buf), entries[0].Size)

	require.NoError(t, d.Remove(key))
	require.True(t, errors.Is(d.Remove(key), store.ErrNotFound))
	_, _, err = d.Get(key)
	require.True(t, errors.Is(err, store.ErrNotFound))
}

func TestPutRejectsGarbage(t *testing.T) {
	d, err := store.Open(t.TempDir())
	require.NoError(t, err)
	_, err = d.Put(store.SourceKey("x"), []byte("definitely not a container"))
	require.True(t, errors.Is(err, container.ErrBadMagic), "%v", err)
	entries, err := d.List()
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestSourceKey(t *testing.T) {
	require.Equal(t, store.SourceKey("ab", "c"), store.SourceKey("ab", "c"))
	require.NotEqual(t, store.SourceKey("ab", "c"), store.SourceKey("a", "bc"))
	require.NotEqual(t, store.SourceKey("ab"), store.SourceKey("ab", ""))
}

func TestGetOrFill(t *testing.T) {
	d, err := store.Open(t.TempDir())
	require.NoError(t, err)
	key := store.SourceKey("b")

	var fills int64
	buf := sealed(t, 'b')
	fill := func() ([]byte, error) {
		atomic.AddInt64(&fills, 1)
		return buf, nil
	}
	var wg sync.WaitGroup
	hits := make([]bool, 8)
	for i := range hits {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, hit, err := d.GetOrFill(key, fill)
			if err == nil {
				hits[i] = hit
			}
		}(i)
	}
	wg.Wait()
	require.EqualValues(t, 1, atomic.LoadInt64(&fills))
	misses := 0
	for _, hit := range hits {
		if !hit {
			misses++
		}
	}
	require.Equal(t, 1, misses)

	_, _, _, err = d.GetOrFill(store.SourceKey("c"), func() ([]byte, error) {
		return nil, errors.New("build failed")
	})
	require.EqualError(t, err, "build failed")
}

func TestCorruptEntryIsRefilled(t *testing.T) {
	root := t.TempDir()
	d, err := store.Open(root)
	require.NoError(t, err)
	key := store.SourceKey("c")
	_, err = d.Put(key, sealed(t, 'c'))
	require.NoError(t, err)

	entries, err := d.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	id := key.String()
	target := filepath.Join(root, id[:1], id[1:])
	buf, err := os.ReadFile(target)
	require.NoError(t, err)
	buf[len(buf)-1] ^= 0xff
	require.NoError(t, os.WriteFile(target, buf, 0640))

	_, _, err = d.Get(key)
	require.True(t, errors.Is(err, container.ErrChecksum), "%v", err)
	require.EqualValues(t, 1, d.Failures())

	_, _, hit, err := d.GetOrFill(key, func() ([]byte, error) { return sealed(t, 'c'), nil })
	require.NoError(t, err)
	require.False(t, hit)
	a, _, err := d.Load(key)
	require.NoError(t, err)
	require.True(t, nfatest.AcceptsString(a, "c"))
}
