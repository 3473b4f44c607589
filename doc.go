// Package yammm is the root of the caldera module, an incremental analysis
// core for Python source. It holds no code; the functionality lives in the
// subpackages:
//
//   - [github.com/caldera-dev/caldera/location]: byte offsets, positions in
//     UTF-8/UTF-16/UTF-32 columns, spans, canonical paths, text edits
//   - [github.com/caldera-dev/caldera/store]: interned file handles
//   - [github.com/caldera-dev/caldera/vfs]: file system abstraction (OS,
//     in-memory, vendored archive)
//   - [github.com/caldera-dev/caldera/query]: memoizing query engine
//   - [github.com/caldera-dev/caldera/diag]: diagnostics, collection, rendering
//   - [github.com/caldera-dev/caldera/rules]: rule registry, selection, checking,
//     autofix application
//   - [github.com/caldera-dev/caldera/walk]: workspace file discovery
//   - [github.com/caldera-dev/caldera/config]: caldera.toml settings
//   - [github.com/caldera-dev/caldera/cachefile]: on-disk diagnostics cache
//   - [github.com/caldera-dev/caldera/lsp]: Language Server Protocol session
//
// The commands cmd/caldera (check and format) and cmd/caldera-lsp wire these
// packages together.
package yammm
