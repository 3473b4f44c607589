// Package store implements the process-wide file registry: it interns
// canonical paths into stable [File] handles and
// brokers every byte read through a [github.com/caldera-dev/caldera/vfs.System],
// recording dependency accesses for the query engine along the way.
package store

import (
	"fmt"
	"sync/atomic"

	"github.com/caldera-dev/caldera/location"
)

// Kind classifies a File's role, affecting which rules apply to it.
type Kind uint8

const (
	// KindSource is an ordinary analyzable source module.
	KindSource Kind = iota

	// KindStub is a type-stub file (`.pyi`); rules that require executable
	// bodies skip stubs.
	KindStub

	// KindNotebook is a composite file holding multiple cells, modeled as
	// one File with internal cell ranges rather than N distinct Files.
	KindNotebook

	// KindVendored is a read-only file served from the vendored archive
	// backend (typeshed-style stubs bundled with the tool).
	KindVendored
)

// String returns a human-readable label for the kind.
func (k Kind) String() string {
	switch k {
	case KindSource:
		return "source"
	case KindStub:
		return "stub"
	case KindNotebook:
		return "notebook"
	case KindVendored:
		return "vendored"
	default:
		return "unknown"
	}
}

// File is an opaque, copyable handle for a logical source unit. Two
// distinct paths that canonicalize to the same location yield the same
// handle (see [Store.Intern]). File is a value type: comparable, safe to
// use as a map key, and cheap to pass around.
type File struct {
	id int64
}

// String returns a stable textual identity for the handle, usable as a
// query engine dependency key. It is not the file's path — use
// [Store.Path] for that — only an opaque, intern-order-based tag.
func (f File) String() string {
	return fmt.Sprintf("file#%d", f.id)
}

// IsZero reports whether f is the zero File (never interned).
func (f File) IsZero() bool {
	return f.id == 0
}

var nextFileID atomic.Int64

// newFile mints a fresh handle. Called only by Store.Intern while holding
// its write path; the atomic counter additionally makes it safe if ever
// called from more than one Store in the same process (e.g. in tests).
func newFile() File {
	return File{id: nextFileID.Add(1)}
}

// entry is a Store's bookkeeping record for one interned handle.
type entry struct {
	sourceID location.SourceID
	kind     Kind
	deleted  bool

	// revision is bumped by Sync; it is what Store.FileRevision reports to
	// the query engine's invalidation walk.
	revision uint64

	// contentHash is the SHA-256 of the content last read by Sync. Nothing
	// compares it: the revision advances on every Sync whether or not the
	// content changed.
	contentHash string
}
