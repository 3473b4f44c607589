// Package walk implements workspace discovery: finding the set of
// analyzable files under a list of root paths, honoring gitignore-style
// ignore files and an include/exclude pattern predicate, and interning the
// survivors into the file store.
//
// Discovery itself — descending directories and deciding whether to prune
// a subtree for an ignore match — is inherently sequential: whether a
// directory's children are visited at all depends on whether that
// directory matched an ignore pattern accumulated from its ancestors, so
// the calling goroutine walks each root's tree in turn to produce a
// candidate path list.
// The expensive per-candidate work (canonicalizing through the backing
// [github.com/caldera-dev/caldera/vfs.System] and interning into the
// [github.com/caldera-dev/caldera/store.Store]) is what actually benefits
// from concurrency, and is where Walk applies its bounded worker pool.
package walk
