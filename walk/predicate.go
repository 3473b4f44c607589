package walk

import (
	"path"
	"strings"
)

// matchesPatterns reports whether relPath is included, applying rules in
// order and letting the last matching rule decide (pattern-index
// precedence). A path matched by no rule is included.
func matchesPatterns(relPath string, rules []PatternRule) bool {
	included := true
	for _, rule := range rules {
		if globMatch(rule.Pattern, relPath) {
			included = rule.Include
		}
	}
	return included
}

// globMatch matches pattern against path using path/filepath.Match
// semantics per path segment, additionally treating a "**" segment as
// matching any number of path segments (including zero) — the extension
// [vfs.System.Glob]'s doc comment assigns to its caller, since filepath.Match
// itself has no multi-segment wildcard.
func globMatch(pattern, candidate string) bool {
	patternSegs := strings.Split(pattern, "/")
	candidateSegs := strings.Split(candidate, "/")
	return matchSegments(patternSegs, candidateSegs)
}

func matchSegments(pattern, candidate []string) bool {
	if len(pattern) == 0 {
		return len(candidate) == 0
	}
	if pattern[0] == "**" {
		if matchSegments(pattern[1:], candidate) {
			return true
		}
		if len(candidate) == 0 {
			return false
		}
		return matchSegments(pattern, candidate[1:])
	}
	if len(candidate) == 0 {
		return false
	}
	ok, err := path.Match(pattern[0], candidate[0])
	if err != nil || !ok {
		return false
	}
	return matchSegments(pattern[1:], candidate[1:])
}
