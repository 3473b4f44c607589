package diag

import (
	"fmt"
	"sort"

	"github.com/caldera-dev/caldera/location"
	"github.com/caldera-dev/caldera/store"
)

// Applicability classifies how confidently a Fix's edits can be applied
// without review.
type Applicability uint8

const (
	// Safe fixes preserve program behavior with high confidence; autofix
	// applies them without prompting.
	Safe Applicability = iota

	// Unsafe fixes are plausible but may change behavior (e.g. removing a
	// call with side effects); autofix applies them only when explicitly
	// requested.
	Unsafe

	// DisplayOnly fixes are shown to the user (an editor code action) but
	// are never applied by the batch autofix path.
	DisplayOnly
)

// String returns a human-readable label.
func (a Applicability) String() string {
	switch a {
	case Safe:
		return "safe"
	case Unsafe:
		return "unsafe"
	case DisplayOnly:
		return "display-only"
	default:
		return "unknown"
	}
}

// Edit is a single textual replacement scoped to a specific file, pairing
// a store.File handle with a [location.Edit]'s byte range.
type Edit struct {
	File        store.File
	Start       int
	End         int
	Replacement string
}

// toLocationEdit strips the file identity, for use with location's
// range-overlap and ordering helpers.
func (e Edit) toLocationEdit() location.Edit {
	return location.Edit{Start: e.Start, End: e.End, Replacement: e.Replacement}
}

// overlaps reports whether e and other cover any of the same byte range in
// the same file.
func (e Edit) overlaps(other Edit) bool {
	if e.File != other.File {
		return false
	}
	return e.Start < other.End && other.Start < e.End
}

// Fix is a proposed autofix: a disjoint set of edits (spanning more than
// one file is NOT supported — all edits in one Fix apply to a single
// file) plus the confidence tag that governs whether autofix applies it
// unprompted.
type Fix struct {
	file          store.File
	edits         []Edit
	applicability Applicability
}

// NewFix validates and constructs a Fix. It returns an error if edits is
// empty, spans more than one file, or contains overlapping ranges — a Fix
// with overlapping edits has no well-defined application order, per
// Testable Property 7.
func NewFix(applicability Applicability, edits ...Edit) (Fix, error) {
	if len(edits) == 0 {
		return Fix{}, fmt.Errorf("diag: fix has no edits")
	}

	file := edits[0].File
	for _, e := range edits {
		if e.File != file {
			return Fix{}, fmt.Errorf("diag: fix edits span more than one file")
		}
	}

	sorted := append([]Edit(nil), edits...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].overlaps(sorted[i-1]) {
			return Fix{}, fmt.Errorf("diag: fix edits overlap at byte %d", sorted[i].Start)
		}
	}

	return Fix{file: file, edits: sorted, applicability: applicability}, nil
}

// File returns the file every edit in this Fix applies to.
func (f Fix) File() store.File { return f.file }

// Edits returns the fix's edits in ascending Start order.
func (f Fix) Edits() []Edit {
	return append([]Edit(nil), f.edits...)
}

// Applicability returns the fix's confidence tag.
func (f Fix) Applicability() Applicability { return f.applicability }

// IsZero reports whether f is the zero Fix (never constructed via NewFix).
func (f Fix) IsZero() bool { return len(f.edits) == 0 }

// Apply returns the result of applying f's edits to content, which must be
// the current bytes of f.File(). Edits are applied in descending offset
// order so earlier byte positions remain valid across the pass, mirroring
// [location.DiffToEdits]'s output convention.
func (f Fix) Apply(content []byte) []byte {
	out := append([]byte(nil), content...)
	for i := len(f.edits) - 1; i >= 0; i-- {
		e := f.edits[i]
		next := make([]byte, 0, len(out)-(e.End-e.Start)+len(e.Replacement))
		next = append(next, out[:e.Start]...)
		next = append(next, e.Replacement...)
		next = append(next, out[e.End:]...)
		out = next
	}
	return out
}
