package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/caldera-dev/caldera/location"
	"github.com/caldera-dev/caldera/query"
	"github.com/caldera-dev/caldera/vfs"
)

// Store is the process-wide registry of interned Files. It mints one
// stable handle per canonical path, brokers every read through a
// [vfs.System], and reports per-file revisions to a [query.Engine] so the
// query graph can tell when a read dependency has gone stale.
//
// A Store is safe for concurrent use. Like internal/source.Registry, each
// entry is guarded by the Store's single mutex rather than per-entry locks:
// entries are small and reads are expected to dominate writes, so the
// simpler design wins over finer-grained locking here.
type Store struct {
	mu sync.Mutex

	fs vfs.System

	byPath  map[string]File
	entries map[File]*entry
	byID    map[string]*entry
}

// New constructs a Store backed by fs. The returned Store reports zero
// files until Intern is called.
func New(fs vfs.System) *Store {
	return &Store{
		fs:      fs,
		byPath:  make(map[string]File),
		entries: make(map[File]*entry),
		byID:    make(map[string]*entry),
	}
}

// Intern canonicalizes path through the backing vfs.System and returns the
// stable handle for it, minting a new one on first sight. Interning the
// same path twice (even via different spellings the backend considers
// equivalent) returns the same File, preserving a stable identity across
// lookups.
func (s *Store) Intern(path string, kind Kind) (File, error) {
	canonical, err := s.fs.Canonicalize(path)
	if err != nil {
		return File{}, fmt.Errorf("store: intern %q: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if f, ok := s.byPath[canonical]; ok {
		return f, nil
	}

	f := newFile()
	e := &entry{
		sourceID: location.NewSourceID(canonical),
		kind:     kind,
		revision: 1,
	}
	s.byPath[canonical] = f
	s.entries[f] = e
	s.byID[f.String()] = e
	return f, nil
}

// Read returns file's current bytes, consulting the backing vfs.System. If
// ctx carries an active query.Context (i.e. Read is called from within a
// query's compute function via FetchDep's propagated context), the access
// is recorded as a dependency at the file's current revision — this is the
// one place the file store and the query engine touch.
func (s *Store) Read(ctx context.Context, file File) ([]byte, error) {
	s.mu.Lock()
	e, ok := s.entries[file]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("store: read: %w", ErrUnknownFile)
	}
	if e.deleted {
		return nil, fmt.Errorf("store: read %s: %w", file, vfs.ErrDeleted)
	}

	path, ok := s.Path(file)
	if !ok {
		return nil, fmt.Errorf("store: read: %w", ErrUnknownFile)
	}

	content, err := s.fs.ReadFile(path.String())
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", file, err)
	}

	s.mu.Lock()
	rev := e.revision
	s.mu.Unlock()

	if rc := query.ContextFrom(ctx); rc != nil {
		rc.RecordFileAccess(file.String(), rev)
	}

	return content, nil
}

// Sync recomputes file's content hash and bumps its revision counter,
// marking every query that read it stale for the engine's next validation
// pass. It does not itself call query.Engine.Bump — that is a separate,
// coarser-grained global step the caller (the LSP session after a didChange,
// or the CLI driver between files) performs once per batch of changes.
func (s *Store) Sync(file File) error {
	s.mu.Lock()
	e, ok := s.entries[file]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("store: sync: %w", ErrUnknownFile)
	}

	path, _ := s.Path(file)
	content, err := s.fs.ReadFile(path.String())
	if err != nil {
		s.mu.Lock()
		e.deleted = true
		e.revision++
		s.mu.Unlock()
		return nil
	}

	hash := contentHash(content)

	s.mu.Lock()
	defer s.mu.Unlock()
	e.deleted = false
	e.revision++
	e.contentHash = hash
	return nil
}

// SyncAll synchronizes every interned file, in no particular order. Callers that
// just want "refresh everything and bump the engine once" should prefer
// this to looping over Sync themselves, since it takes the lock once per
// entry rather than relying on external serialization.
func (s *Store) SyncAll() error {
	s.mu.Lock()
	files := make([]File, 0, len(s.entries))
	for f := range s.entries {
		files = append(files, f)
	}
	s.mu.Unlock()

	for _, f := range files {
		if err := s.Sync(f); err != nil {
			return err
		}
	}
	return nil
}

// Remove marks file as deleted without destroying its handle: existing
// diagnostics and query results that reference it remain meaningful (they
// describe what was true before removal), but Read now fails with
// vfs.ErrDeleted and FileRevision still advances so dependents invalidate.
func (s *Store) Remove(file File) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[file]
	if !ok {
		return fmt.Errorf("store: remove: %w", ErrUnknownFile)
	}
	e.deleted = true
	e.revision++
	return nil
}

// Path returns the canonical SourceID file was interned under.
func (s *Store) Path(file File) (location.SourceID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[file]
	if !ok {
		return location.SourceID{}, false
	}
	return e.sourceID, true
}

// FileBySourceID returns the File handle interned under id, the inverse
// of Path. Used by callers that only have a location.SourceID in hand
// (e.g. a diagnostic's span) and need to read the file it names.
func (s *Store) FileBySourceID(id location.SourceID) (File, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.byPath[id.String()]
	return f, ok
}

// Kind returns the kind file was interned with.
func (s *Store) Kind(file File) (Kind, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[file]
	if !ok {
		return 0, false
	}
	return e.kind, true
}

// Deleted reports whether file has been removed since it was last synced or
// interned.
func (s *Store) Deleted(file File) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[file]
	return ok && e.deleted
}

// FileRevision implements query.FileRevisionSource, letting the query
// engine's invalidation walk ask a Store directly whether a recorded file
// dependency is still current. fileID is a File's String() identity.
func (s *Store) FileRevision(fileID string) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[fileID]
	if !ok {
		return 0, false
	}
	return e.revision, true
}

func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
