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

// Package store provides an on-disk cache of
// automaton containers.
//
// Entries are keyed by a container.Fingerprint: either
// the fingerprint of the bytecode itself or a source
// key derived from the inputs of a build (see SourceKey).
// Each entry is a complete container file, written to
// a temporary file and renamed into place, so readers
// never observe a partial entry.
package store

import (
	"encoding/binary"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/dchest/siphash"

	"github.com/SnellerInc/anfa/container"
	"github.com/SnellerInc/anfa/nfa"
)

// ErrNotFound is returned for a key with no entry.
var ErrNotFound = errors.New("no cache entry")

// Logger receives errors the cache recovers from.
type Logger interface {
	Printf(f string, args ...interface{})
}

// Dir is a cache of containers kept in a directory.
// It is safe for concurrent use, and concurrent fills
// of the same key are serialized.
type Dir struct {
	// Logger, if non-nil, is used
	// to log errors encountered
	// by the cache.
	Logger Logger

	dir string

	lock     sync.Mutex
	cond     sync.Cond
	inflight map[string]struct{}

	// statistics; accessed atomically
	hits, misses, failures int64
}

// Open returns a cache rooted at dir,
// creating the directory if necessary.
func Open(dir string) (*Dir, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, errors.Wrapf(err, "creating cache dir")
	}
	d := &Dir{
		dir:      dir,
		inflight: make(map[string]struct{}),
	}
	d.cond.L = &d.lock
	return d, nil
}

// Root returns the directory d keeps entries in.
func (d *Dir) Root() string { return d.dir }

func (d *Dir) errorf(f string, args ...interface{}) {
	if d.Logger != nil {
		d.Logger.Printf(f, args...)
	}
}

// Hits returns the number of lookups
// that found an entry.
func (d *Dir) Hits() int64 { return atomic.LoadInt64(&d.hits) }

// Misses returns the number of lookups
// that found no entry.
func (d *Dir) Misses() int64 { return atomic.LoadInt64(&d.misses) }

// Failures returns the number of entries that
// could not be read, verified or written.
func (d *Dir) Failures() int64 { return atomic.LoadInt64(&d.failures) }

// keys for SourceKey
const (
	k0 = 0x9f17c3fd5efd3ce4
	k1 = 0xdbf1ba5f07eee2c0
)

// SourceKey derives a key from the inputs of a build,
// such as the expression text and the options that
// affect its output.
func SourceKey(parts ...string) container.Fingerprint {
	var buf []byte
	for _, p := range parts {
		buf = binary.AppendUvarint(buf, uint64(len(p)))
		buf = append(buf, p...)
	}
	var fp container.Fingerprint
	lo, hi := siphash.Hash128(k0, k1, buf)
	binary.LittleEndian.PutUint64(fp[:8], lo)
	binary.LittleEndian.PutUint64(fp[8:], hi)
	return fp
}

// path returns the entry path for id and the
// directory holding it. One level of indirection
// on the first character keeps directories small.
func (d *Dir) path(id string) (predir, target string) {
	predir = filepath.Join(d.dir, id[:1])
	return predir, filepath.Join(predir, id[1:])
}

// lockID acquires id exclusively.
func (d *Dir) lockID(id string) {
	d.lock.Lock()
	defer d.lock.Unlock()
	for _, ok := d.inflight[id]; ok; _, ok = d.inflight[id] {
		d.cond.Wait()
	}
	d.inflight[id] = struct{}{}
}

func (d *Dir) unlockID(id string) {
	d.lock.Lock()
	defer d.lock.Unlock()
	before := len(d.inflight)
	delete(d.inflight, id)
	if after := len(d.inflight); after != before-1 {
		panic("double unlock of id " + id)
	}
	d.cond.Broadcast()
}

// read returns the verified container stored at target.
func (d *Dir) read(target string) ([]byte, container.Header, error) {
	buf, err := os.ReadFile(target)
	if errors.Is(err, fs.ErrNotExist) {
		atomic.AddInt64(&d.misses, 1)
		return nil, container.Header{}, ErrNotFound
	}
	if err != nil {
		atomic.AddInt64(&d.failures, 1)
		return nil, container.Header{}, err
	}
	h, err := container.ReadHeader(buf)
	if err != nil {
		atomic.AddInt64(&d.failures, 1)
		return nil, h, errors.Wrapf(err, "cache entry %s", target)
	}
	atomic.AddInt64(&d.hits, 1)
	return buf, h, nil
}

// write stores buf at target via a temporary
// file that is renamed into place.
func (d *Dir) write(predir, target string, buf []byte) error {
	if err := os.MkdirAll(predir, 0750); err != nil {
		return err
	}
	f, err := os.CreateTemp(predir, filepath.Base(target)+".*.tmp")
	if err != nil {
		return err
	}
	_, err = f.Write(buf)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(f.Name(), target)
	}
	if err != nil {
		if rerr := os.Remove(f.Name()); rerr != nil && !errors.Is(rerr, fs.ErrNotExist) {
			d.errorf("store: removing failed fill: %s", rerr)
		}
		return err
	}
	return nil
}

// Get returns the container stored under key,
// or ErrNotFound.
func (d *Dir) Get(key container.Fingerprint) ([]byte, container.Header, error) {
	id := key.String()
	_, target := d.path(id)
	d.lockID(id)
	defer d.unlockID(id)
	return d.read(target)
}

// Put verifies that buf is a container and
// stores it under key, replacing any entry.
func (d *Dir) Put(key container.Fingerprint, buf []byte) (container.Header, error) {
	h, err := container.ReadHeader(buf)
	if err != nil {
		return h, err
	}
	id := key.String()
	predir, target := d.path(id)
	d.lockID(id)
	defer d.unlockID(id)
	if err := d.write(predir, target, buf); err != nil {
		atomic.AddInt64(&d.failures, 1)
		return h, errors.Wrapf(err, "storing %s", id)
	}
	return h, nil
}

// GetOrFill returns the entry for key, calling fill
// to produce and store it when there is none. A stored
// entry that fails verification is replaced. Concurrent
// callers with the same key wait for the first fill.
func (d *Dir) GetOrFill(key container.Fingerprint, fill func() ([]byte, error)) (buf []byte, h container.Header, hit bool, err error) {
	id := key.String()
	predir, target := d.path(id)
	d.lockID(id)
	defer d.unlockID(id)
	buf, h, err = d.read(target)
	if err == nil {
		return buf, h, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		d.errorf("store: discarding %s: %s", id, err)
	}
	buf, err = fill()
	if err != nil {
		return nil, h, false, err
	}
	h, err = container.ReadHeader(buf)
	if err != nil {
		return nil, h, false, errors.Wrap(err, "fill produced an invalid container")
	}
	if err := d.write(predir, target, buf); err != nil {
		// the caller still gets the fresh entry
		atomic.AddInt64(&d.failures, 1)
		d.errorf("store: storing %s: %s", id, err)
	}
	return buf, h, false, nil
}

// Load returns the automaton stored under key.
func (d *Dir) Load(key container.Fingerprint) (*nfa.Automaton, container.Header, error) {
	buf, _, err := d.Get(key)
	if err != nil {
		return nil, container.Header{}, err
	}
	return container.Open(buf)
}

// Remove deletes the entry for key, if any.
func (d *Dir) Remove(key container.Fingerprint) error {
	id := key.String()
	_, target := d.path(id)
	d.lockID(id)
	defer d.unlockID(id)
	err := os.Remove(target)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

// Entry describes one cache entry.
type Entry struct {
	Key  container.Fingerprint
	Size int64
}

// List returns the entries in d sorted by key.
// Temporary files and foreign names are skipped.
func (d *Dir) List() ([]Entry, error) {
	var out []Entry
	err := filepath.WalkDir(d.dir, func(p string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if de.IsDir() || strings.HasSuffix(p, ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(d.dir, p)
		if err != nil {
			return err
		}
		key, err := container.ParseFingerprint(strings.ReplaceAll(rel, string(filepath.Separator), ""))
		if err != nil {
			return nil
		}
		info, err := de.Info()
		if err != nil {
			return err
		}
		out = append(out, Entry{Key: key, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key.String() < out[j].Key.String()
	})
	return out, nil
}
