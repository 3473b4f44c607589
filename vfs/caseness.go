package vfs

import "runtime"

// runtimeCaseSensitive reports whether the host OS's default filesystem
// distinguishes paths by case. This is a coarse, platform-based heuristic
// (Linux: yes, Darwin/Windows: no) rather than a per-volume probe; callers
// needing precision should prefer System.Exists with both casings.
var runtimeCaseSensitive = runtime.GOOS != "windows" && runtime.GOOS != "darwin"
