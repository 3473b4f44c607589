// Package cachefile reads and writes the optional on-disk diagnostics
// cache: a side file keyed by (content-hash, rule-set-hash) that lets a
// CLI invocation skip re-running rules against files whose content and
// active rule set have not changed since the last run.
//
// The format is a small header (magic, version, rule-set hash) followed
// by a sequence of (file-hash, serialized-diagnostics) entries. Nothing
// about the format is meant to be portable across caldera versions or
// rule sets: any mismatch in magic, version, or rule-set hash causes the
// whole cache to be discarded and rebuilt from scratch, never partially
// trusted.
package cachefile
