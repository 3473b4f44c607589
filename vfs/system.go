// Package vfs provides a uniform read/walk capability set over three
// backends: the real OS filesystem, an in-memory map (LSP-opened buffers
// and tests), and a read-only vendored zip archive (the bundled
// rule-catalog stub package). The interface shape follows the worldiety
// vfs capability-set design, translated into this module's
// error-handling idiom.
package vfs

import (
	"errors"
	"io/fs"
	"time"
)

// ErrDeleted is returned by System.ReadFile (and related lookups) when the
// backing entry does not exist. Backends do not distinguish an entry that
// was removed from one that never existed.
var ErrDeleted = errors.New("vfs: entry deleted")

// ErrNotSupported is returned by ReadNotebook on backends that hold no
// notebook-shaped content; every backend in this package returns it.
var ErrNotSupported = errors.New("vfs: capability not supported by this backend")

// EntryKind classifies a directory entry.
type EntryKind uint8

const (
	EntryFile EntryKind = iota
	EntryDir
	EntrySymlink
)

// Info is filesystem metadata for one path.
type Info struct {
	Kind    EntryKind
	Size    int64
	ModTime time.Time
}

// WalkErrorKind classifies a failure encountered mid-walk. The walk itself
// never aborts on these; it records the error against that entry and moves
// on.
type WalkErrorKind uint8

const (
	// WalkErrIO is a generic read/stat failure (permission denied, device
	// error).
	WalkErrIO WalkErrorKind = iota

	// WalkErrNonUTF8Path is reported when an entry's name is not valid
	// UTF-8 and therefore cannot be represented as a canonical path.
	WalkErrNonUTF8Path

	// WalkErrLoop is reported when symlink-following walk detects a cycle.
	WalkErrLoop
)

// WalkError pairs a path with the kind of failure encountered there.
type WalkError struct {
	Path string
	Kind WalkErrorKind
	Err  error
}

func (e *WalkError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

func (e *WalkError) Unwrap() error {
	return e.Err
}

// DirEntry is one result from ReadDir or WalkDir: either a successfully
// stat'd entry, or a WalkError recorded in its place.
type DirEntry struct {
	Path string
	Info Info
	Err  *WalkError
}

// WalkOptions configures a directory walk.
type WalkOptions struct {
	// FollowSymlinks enables symlink traversal; loop detection (WalkErrLoop)
	// only triggers when this is true.
	FollowSymlinks bool
}

// WalkFunc is called once per entry discovered by WalkDir. Returning
// fs.SkipDir skips the rest of a directory's children; any other non-nil
// error aborts the walk.
type WalkFunc func(entry DirEntry) error

// System is the capability set every backend implements: read access,
// metadata, canonicalization, and directory traversal. Backends that also
// support mutation additionally implement [Writable]; callers type-assert
// for it rather than having every backend carry no-op write methods.
type System interface {
	// Metadata stats path without reading its content.
	Metadata(path string) (Info, error)

	// Canonicalize resolves path to this backend's canonical form (for the
	// OS backend: absolute, symlink-resolved, NFC-normalized via
	// location.CanonicalizePathForSourceID; for Memory/Vendored: a
	// normalized in-backend path).
	Canonicalize(path string) (string, error)

	// ReadFile returns the full content of path as bytes ("read-to-string"
	// in spec terms — bytes are handed to the caller to decode, since not
	// all source is valid UTF-8 until C1 says otherwise).
	ReadFile(path string) ([]byte, error)

	// ReadNotebook returns the cell boundaries for a notebook-shaped file.
	// Backends with no notebook support return ErrNotSupported.
	ReadNotebook(path string) (*Notebook, error)

	// Exists reports whether path exists, using this backend's case
	// sensitivity rules (see CaseSensitive).
	Exists(path string) bool

	// CaseSensitive reports whether this backend distinguishes paths that
	// differ only in case.
	CaseSensitive() bool

	// CurrentDirectory returns the backend's working directory: the root
	// directory for OS, "/" for Memory, and "" for Vendored.
	CurrentDirectory() (string, error)

	// ReadDir lists the immediate children of path.
	ReadDir(path string) ([]DirEntry, error)

	// WalkDir recursively visits path and its descendants.
	WalkDir(path string, opts WalkOptions, fn WalkFunc) error

	// Glob returns paths matching a shell-style pattern, per
	// path/filepath.Match semantics extended with "**" handled by the
	// caller (walk.Walk applies "**" itself via per-segment matching).
	Glob(pattern string) ([]string, error)
}

// Writable is the optional capability set for backends that support
// mutation (OS, Memory). vfs.Vendored does not implement it.
type Writable interface {
	WriteFile(path string, content []byte) error
	CreateNewFile(path string) error
	CreateDirectoryAll(path string) error
}

// Notebook is a parsed notebook's cell layout: byte ranges into the
// notebook's single underlying content buffer, modeling a notebook as one
// composite store.File rather than N distinct Files.
type Notebook struct {
	// Source is the notebook's full underlying text, with cells
	// concatenated in document order separated by a single newline.
	Source string
	// Cells are the byte ranges of each cell within Source, in order.
	Cells []CellRange
}

// CellRange is one notebook cell's byte range within Notebook.Source.
type CellRange struct {
	ID    string
	Start int
	End   int
}
