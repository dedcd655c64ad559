// SPDX-License-Identifier: MPL-2.0

// Package store implements the content-addressed artifact cache.
//
// Artifacts are keyed by digest and laid out on disk as
// <root>/<algorithm>/<hex[:2]>/<hex>. A file exists at its final path only
// after its bytes were verified against the digest it is stored under, so
// presence is the verification marker. Entries are immutable: files are
// committed read-only via an atomic rename and no operation rewrites them.
//
// The store is a pure cache. Deleting the whole directory is always safe;
// every entry can be refetched from its provider.
package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/ffpack/ffpack/pkg/digest"
)

// ErrNotFound reports that no verified entry exists for a digest.
var ErrNotFound = errors.New("entry not found in store")

// incomingDir holds in-flight writes before they are verified and renamed
// into place.
const incomingDir = "incoming"

// Entry describes one verified artifact in the store.
type Entry struct {
	// Digest is the content digest the entry is stored under.
	Digest digest.Digest
	// Path is the absolute path of the verified file.
	Path string
	// Size is the file size in bytes.
	Size int64
}

// Store is a content-addressed cache rooted at a directory. It is safe for
// concurrent use: writes for distinct digests proceed fully in parallel,
// while the verified-commit step serializes per digest.
type Store struct {
	root string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Open opens (creating if needed) a store rooted at dir.
func Open(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve store directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(abs, incomingDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &Store{root: abs, locks: make(map[string]*sync.Mutex)}, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// entryPath maps a digest to its final on-disk location.
func (s *Store) entryPath(d digest.Digest) string {
	return filepath.Join(s.root, string(d.Algorithm), d.Hex[:2], d.Hex)
}

// lockFor returns the commit mutex for one digest.
func (s *Store) lockFor(d digest.Digest) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := d.String()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// Has reports whether a verified entry exists for d.
func (s *Store) Has(d digest.Digest) bool {
	d = d.Canonical()
	if err := d.Validate(); err != nil {
		return false
	}
	_, err := os.Stat(s.entryPath(d))
	return err == nil
}

// Stat returns the entry for d, or ErrNotFound.
func (s *Store) Stat(d digest.Digest) (Entry, error) {
	d = d.Canonical()
	if err := d.Validate(); err != nil {
		return Entry{}, err
	}
	path := s.entryPath(d)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Entry{}, fmt.Errorf("%s: %w", d, ErrNotFound)
		}
		return Entry{}, fmt.Errorf("failed to stat store entry %s: %w", d, err)
	}
	return Entry{Digest: d, Path: path, Size: info.Size()}, nil
}

// Open returns a reader over the verified bytes of d, or ErrNotFound.
func (s *Store) Open(d digest.Digest) (io.ReadCloser, error) {
	entry, err := s.Stat(d)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(entry.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store entry %s: %w", d, err)
	}
	return f, nil
}

// Put streams r into the store, verifying the bytes against declared as
// they arrive. On a hash mismatch the partial write is discarded and a
// *digest.MismatchError is returned; nothing is ever committed unverified.
//
// Concurrent Put calls for the same digest converge on a single stored
// copy: the first writer to finish verification commits, later writers
// detect the existing entry and discard their own copy. Both observe
// success.
func (s *Store) Put(r io.Reader, declared digest.Digest) (Entry, error) {
	declared = declared.Canonical()
	verifier, err := digest.NewVerifier(declared)
	if err != nil {
		return Entry{}, err
	}

	tmp, err := os.CreateTemp(filepath.Join(s.root, incomingDir), declared.Hex[:8]+"-*")
	if err != nil {
		return Entry{}, fmt.Errorf("failed to create incoming file: %w", err)
	}
	tmpPath := tmp.Name()
	discard := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	size, err := io.Copy(io.MultiWriter(tmp, verifier), r)
	if err != nil {
		discard()
		return Entry{}, fmt.Errorf("failed to stream artifact %s: %w", declared, err)
	}
	if err := verifier.Verify(); err != nil {
		discard()
		return Entry{}, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return Entry{}, fmt.Errorf("failed to flush incoming file: %w", err)
	}

	// Entries are content-immutable once committed.
	if err := os.Chmod(tmpPath, 0o444); err != nil {
		os.Remove(tmpPath)
		return Entry{}, fmt.Errorf("failed to seal incoming file: %w", err)
	}

	lock := s.lockFor(declared)
	lock.Lock()
	defer lock.Unlock()

	final := s.entryPath(declared)
	if _, err := os.Stat(final); err == nil {
		// Another writer committed the same content first.
		os.Remove(tmpPath)
		return Entry{Digest: declared, Path: final, Size: size}, nil
	}
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		os.Remove(tmpPath)
		return Entry{}, fmt.Errorf("failed to create entry directory: %w", err)
	}
	if err := os.Rename(tmpPath, final); err != nil {
		os.Remove(tmpPath)
		return Entry{}, fmt.Errorf("failed to commit store entry %s: %w", declared, err)
	}

	return Entry{Digest: declared, Path: final, Size: size}, nil
}

// Entries walks the store and returns all verified entries, ordered by
// digest.
func (s *Store) Entries() ([]Entry, error) {
	var entries []Entry

	for _, algo := range []digest.Algorithm{digest.SHA256, digest.SHA512, digest.BLAKE3} {
		algoDir := filepath.Join(s.root, string(algo))
		err := filepath.WalkDir(algoDir, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil || d.IsDir() {
				return nil
			}
			dig, err := digest.Parse(string(algo) + ":" + d.Name())
			if err != nil {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			entries = append(entries, Entry{Digest: dig, Path: path, Size: info.Size()})
			return nil
		})
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to walk store: %w", err)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Digest.String() < entries[j].Digest.String()
	})
	return entries, nil
}

// Clear removes every entry and in-flight write. The store remains usable.
func (s *Store) Clear() error {
	dir, err := os.ReadDir(s.root)
	if err != nil {
		return fmt.Errorf("failed to read store directory: %w", err)
	}
	for _, e := range dir {
		if err := os.RemoveAll(filepath.Join(s.root, e.Name())); err != nil {
			return fmt.Errorf("failed to clear store: %w", err)
		}
	}
	return os.MkdirAll(filepath.Join(s.root, incomingDir), 0o755)
}
