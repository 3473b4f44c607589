package walk

import (
	"path"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/caldera-dev/caldera/vfs"
)

// ignoreIndex accumulates gitignore-style patterns as a directory tree is
// descended top-down, giving a nested ignore file's patterns precedence
// over an ancestor's (deepest-file-wins): go-git's
// [gitignore.Matcher] checks patterns from last-added to first, so
// appending a directory's own patterns after its parent's is sufficient.
//
// Keyed by directory path; populated by scopeFor as each directory is
// visited, since discovery always visits a directory before its children.
type ignoreIndex struct {
	fsys     vfs.System
	fileName string
	root     string
	scopes   map[string][]gitignore.Pattern
}

func newIgnoreIndex(fsys vfs.System, fileName, root string) *ignoreIndex {
	return &ignoreIndex{fsys: fsys, fileName: fileName, root: root, scopes: map[string][]gitignore.Pattern{}}
}

// scopeFor returns the combined pattern list in effect at dir, whose parent
// is parentDir (empty for a walk root). It reads dir's own ignore file (if
// present) once and caches the merged result.
func (idx *ignoreIndex) scopeFor(dir, parentDir string) []gitignore.Pattern {
	if patterns, ok := idx.scopes[dir]; ok {
		return patterns
	}

	inherited := idx.scopes[parentDir]

	own := idx.readOwnPatterns(dir)
	var merged []gitignore.Pattern
	if len(own) == 0 {
		merged = inherited
	} else {
		merged = make([]gitignore.Pattern, 0, len(inherited)+len(own))
		merged = append(merged, inherited...)
		merged = append(merged, own...)
	}
	idx.scopes[dir] = merged
	return merged
}

func (idx *ignoreIndex) readOwnPatterns(dir string) []gitignore.Pattern {
	ignorePath := path.Join(dir, idx.fileName)
	if !idx.fsys.Exists(ignorePath) {
		return nil
	}
	content, err := idx.fsys.ReadFile(ignorePath)
	if err != nil {
		return nil
	}

	domain := domainSegments(idx.root, dir)
	var patterns []gitignore.Pattern
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, domain))
	}
	return patterns
}

// domainSegments returns dir's path segments relative to root, matching the
// relative segments Walk evaluates patterns against — ParsePattern's domain
// must agree with the candidate path's frame of reference or every
// directory-scoped pattern fails to match.
func domainSegments(root, dir string) []string {
	rel := strings.TrimPrefix(dir, root)
	rel = strings.Trim(rel, "/")
	if rel == "" {
		return nil
	}
	return strings.Split(rel, "/")
}

// ignored reports whether relPath (relative to the walk root, forward-slash
// separated, already split into segments) is excluded by the pattern set in
// effect at its containing directory.
func ignored(patterns []gitignore.Pattern, segments []string, isDir bool) bool {
	if len(patterns) == 0 {
		return false
	}
	return gitignore.NewMatcher(patterns).Match(segments, isDir)
}
