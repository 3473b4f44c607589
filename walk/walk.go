package walk

import (
	"context"
	"io/fs"
	"path"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/caldera-dev/caldera/diag"
	"github.com/caldera-dev/caldera/store"
	"github.com/caldera-dev/caldera/vfs"
)

// candidate is a file discovered during the sequential directory descent,
// awaiting interning into the store.
type candidate struct {
	path string
}

// Walk discovers the analyzable files reachable from roots and interns each
// survivor into st. I/O failures and non-UTF-8 paths are collected into the
// returned diagnostics rather than aborting the walk; a symlink loop aborts
// only the subtree it was found in. The result is sorted by the interned
// handle's identity for deterministic output regardless of walk order.
func Walk(ctx context.Context, fsys vfs.System, st *store.Store, roots []string, opts Options) ([]store.File, []diag.Diagnostic) {
	var (
		candidates  []candidate
		diagnostics []diag.Diagnostic
	)

	for _, root := range roots {
		cs, ds := discover(ctx, fsys, root, opts)
		candidates = append(candidates, cs...)
		diagnostics = append(diagnostics, ds...)
	}

	files, ds := internAll(ctx, st, candidates, opts.concurrency())
	diagnostics = append(diagnostics, ds...)

	sort.Slice(files, func(i, j int) bool {
		return files[i].String() < files[j].String()
	})

	return files, diagnostics
}

// discover performs the sequential, ignore-aware descent of one root,
// returning every candidate file path that survives the inclusion
// predicate. Descent order matters here (a directory's ignore status must
// be known before its children are visited), so this step is not
// parallelized; see doc.go.
func discover(ctx context.Context, fsys vfs.System, root string, opts Options) ([]candidate, []diag.Diagnostic) {
	var (
		candidates  []candidate
		diagnostics []diag.Diagnostic
	)

	idx := newIgnoreIndex(fsys, opts.ignoreFileName(), root)
	walkOpts := vfs.WalkOptions{FollowSymlinks: opts.FollowSymlinks}

	// Seed the root's own scope unconditionally: vfs.Memory's WalkDir never
	// invokes the callback for the starting directory itself (only its
	// descendants), unlike vfs.OS's, so a root-level ignore file would
	// otherwise go unread on that backend.
	idx.scopeFor(root, "")

	err := fsys.WalkDir(root, walkOpts, func(entry vfs.DirEntry) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if entry.Err != nil {
			diagnostics = append(diagnostics, ioDiagnostic(entry.Path, entry.Err))
			if entry.Err.Kind == vfs.WalkErrLoop {
				return fs.SkipDir
			}
			return nil
		}

		rel, ok := relativeSegments(root, entry.Path)
		if !ok {
			diagnostics = append(diagnostics, diag.NewDiagnostic(diag.Warning, diag.IDIOError,
				"path is not valid UTF-8: "+entry.Path).
				Build())
			return nil
		}

		isDir := entry.Info.Kind == vfs.EntryDir
		parentDir := path.Dir(entry.Path)
		if parentDir == "." {
			parentDir = ""
		}

		var patterns []gitignore.Pattern
		if isDir {
			patterns = idx.scopeFor(entry.Path, parentDir)
		} else {
			patterns = idx.scopes[parentDir]
		}

		if opts.RespectGitignore && len(rel) > 0 && ignored(patterns, rel, isDir) {
			if isDir {
				return fs.SkipDir
			}
			return nil
		}

		if isDir {
			return nil
		}

		relPath := strings.Join(rel, "/")
		if !hasMatchingExtension(entry.Path, opts.Extensions) {
			return nil
		}
		if !matchesPatterns(relPath, opts.Patterns) {
			return nil
		}

		candidates = append(candidates, candidate{path: entry.Path})
		return nil
	})
	if err != nil && ctx.Err() == nil {
		diagnostics = append(diagnostics, ioDiagnostic(root, &vfs.WalkError{Path: root, Kind: vfs.WalkErrIO, Err: err}))
	}

	return candidates, diagnostics
}

// internAll canonicalizes and interns every candidate into st, bounded to
// concurrency simultaneous calls. This is the walk's actual parallel
// section: unlike directory descent, interning one candidate has no
// ordering dependency on any other.
func internAll(ctx context.Context, st *store.Store, candidates []candidate, concurrency int) ([]store.File, []diag.Diagnostic) {
	if len(candidates) == 0 {
		return nil, nil
	}

	files := make([]store.File, len(candidates))
	errs := make([]error, len(candidates))

	sem := semaphore.NewWeighted(int64(concurrency))
	g, gctx := errgroup.WithContext(ctx)

	for i, c := range candidates {
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return nil
			}
			defer sem.Release(1)

			f, err := st.Intern(c.path, kindFor(c.path))
			if err != nil {
				errs[i] = err
				return nil
			}
			files[i] = f
			return nil
		})
	}
	_ = g.Wait()

	var (
		out         []store.File
		diagnostics []diag.Diagnostic
	)
	for i, f := range files {
		if errs[i] != nil {
			diagnostics = append(diagnostics, diag.NewDiagnostic(diag.Error, diag.IDIOError,
				"failed to read "+candidates[i].path+": "+errs[i].Error()).
				Build())
			continue
		}
		out = append(out, f)
	}
	return out, diagnostics
}

func kindFor(p string) store.Kind {
	if strings.HasSuffix(p, ".pyi") {
		return store.KindStub
	}
	return store.KindSource
}

func relativeSegments(root, fullPath string) ([]string, bool) {
	if !utf8.ValidString(fullPath) {
		return nil, false
	}
	rel := strings.TrimPrefix(fullPath, root)
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" {
		return nil, true
	}
	return strings.Split(rel, "/"), true
}

func ioDiagnostic(p string, werr *vfs.WalkError) diag.Diagnostic {
	return diag.NewDiagnostic(diag.Error, diag.IDIOError,
		"failed to walk "+p+": "+werr.Err.Error()).
		WithDetail(diag.DetailKeyReason, walkErrorReason(werr.Kind)).
		Build()
}

func walkErrorReason(kind vfs.WalkErrorKind) string {
	switch kind {
	case vfs.WalkErrIO:
		return "io-error"
	case vfs.WalkErrNonUTF8Path:
		return "non-utf8-path"
	case vfs.WalkErrLoop:
		return "symlink-loop"
	default:
		return "unknown"
	}
}
