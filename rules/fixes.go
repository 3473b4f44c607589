package rules

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/caldera-dev/caldera/diag"
	"github.com/caldera-dev/caldera/internal/trace"
	"github.com/caldera-dev/caldera/store"
	"github.com/caldera-dev/caldera/vfs"
)

// ApplyMode selects which Fix.Applicability tiers a fix pass will apply.
type ApplyMode uint8

const (
	// ApplySafeOnly applies only diag.Safe fixes — the default for
	// `caldera format`.
	ApplySafeOnly ApplyMode = iota

	// ApplyIncludeUnsafe additionally applies diag.Unsafe fixes, for
	// `caldera format --unsafe-fixes`. diag.DisplayOnly fixes are
	// never applied by either mode; they exist only for editor code
	// actions.
	ApplyIncludeUnsafe
)

// SkippedFix records a fix ApplyFixes declined to apply, and why.
type SkippedFix struct {
	Diagnostic diag.Diagnostic
	Reason     string
}

// ApplyResult summarizes one ApplyFixes pass.
type ApplyResult struct {
	// FilesChanged is the number of files whose content was rewritten.
	FilesChanged int
	// EditsApplied is the total number of individual edits applied across
	// all files.
	EditsApplied int
	// Skipped lists fixes that were not applied, most commonly because they
	// overlap a higher-priority fix already accepted for the same file.
	Skipped []SkippedFix
}

// ApplyFixes runs the autofix phase: it groups diagnostics by
// file, resolves conflicts among overlapping fixes with a
// severity-then-stable-order rule (an Error's fix beats a Warning's fix at
// the same byte range; among equal severity, the diagnostic that comes
// first in diagnostics wins, as the input order is kept rather than
// re-sorted), applies the surviving
// edits in descending-offset order via [diag.Fix.Apply], writes the result
// back through fs, and syncs st so the query engine observes the change on
// its next revision bump.
//
// Diagnostics with no attached fix, or whose fix's Applicability is not
// selected by mode, are ignored rather than skipped (skipped is reserved
// for fixes that lost a conflict).
func ApplyFixes(ctx context.Context, logger *slog.Logger, st *store.Store, fs vfs.System, diagnostics []diag.Diagnostic, mode ApplyMode) (ApplyResult, error) {
	writable, ok := fs.(vfs.Writable)
	if !ok {
		return ApplyResult{}, fmt.Errorf("rules: ApplyFixes requires a writable vfs.System")
	}

	byFile := make(map[store.File][]diag.Diagnostic)
	var fileOrder []store.File
	for _, d := range diagnostics {
		fix, has := d.Fix()
		if !has {
			continue
		}
		if !mode.accepts(fix.Applicability()) {
			continue
		}
		if _, seen := byFile[d.File()]; !seen {
			fileOrder = append(fileOrder, d.File())
		}
		byFile[d.File()] = append(byFile[d.File()], d)
	}

	sort.Slice(fileOrder, func(i, j int) bool {
		return fileOrder[i].String() < fileOrder[j].String()
	})

	var result ApplyResult
	for _, file := range fileOrder {
		accepted, skipped := resolveConflicts(byFile[file])
		result.Skipped = append(result.Skipped, skipped...)
		for _, s := range skipped {
			trace.Warn(ctx, logger, "autofix: skipped conflicting fix",
				slog.String("id", s.Diagnostic.ID().String()),
				slog.String("reason", s.Reason))
		}
		if len(accepted) == 0 {
			continue
		}

		content, err := st.Read(ctx, file)
		if err != nil {
			return result, fmt.Errorf("rules: ApplyFixes read %s: %w", file, err)
		}

		var edits []diag.Edit
		for _, d := range accepted {
			fix, _ := d.Fix()
			edits = append(edits, fix.Edits()...)
		}
		merged, err := diag.NewFix(diag.Safe, edits...)
		if err != nil {
			return result, fmt.Errorf("rules: ApplyFixes merge edits for %s: %w", file, err)
		}

		updated := merged.Apply(content)

		path, ok := st.Path(file)
		if !ok {
			return result, fmt.Errorf("rules: ApplyFixes: %w", store.ErrUnknownFile)
		}
		if err := writable.WriteFile(path.String(), updated); err != nil {
			return result, fmt.Errorf("rules: ApplyFixes write %s: %w", file, err)
		}
		if err := st.Sync(file); err != nil {
			return result, fmt.Errorf("rules: ApplyFixes sync %s: %w", file, err)
		}

		result.FilesChanged++
		result.EditsApplied += len(merged.Edits())
	}

	return result, nil
}

func (m ApplyMode) accepts(a diag.Applicability) bool {
	switch a {
	case diag.Safe:
		return true
	case diag.Unsafe:
		return m == ApplyIncludeUnsafe
	default:
		return false
	}
}

// resolveConflicts orders diagnostics by severity, keeping the input order
// among equal severities, greedily accepting each fix whose edits do not
// overlap any edit already accepted.
func resolveConflicts(diagnostics []diag.Diagnostic) (accepted []diag.Diagnostic, skipped []SkippedFix) {
	ordered := append([]diag.Diagnostic(nil), diagnostics...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Severity() < ordered[j].Severity()
	})

	var acceptedEdits []diag.Edit
	for _, d := range ordered {
		fix, _ := d.Fix()
		conflict := false
		for _, candidate := range fix.Edits() {
			for _, taken := range acceptedEdits {
				if editsOverlap(candidate, taken) {
					conflict = true
					break
				}
			}
			if conflict {
				break
			}
		}
		if conflict {
			skipped = append(skipped, SkippedFix{Diagnostic: d, Reason: "overlaps a higher-priority fix"})
			continue
		}
		accepted = append(accepted, d)
		acceptedEdits = append(acceptedEdits, fix.Edits()...)
	}
	return accepted, skipped
}

func editsOverlap(a, b diag.Edit) bool {
	if a.File != b.File {
		return false
	}
	return a.Start < b.End && b.Start < a.End
}
