package query

import "context"

type stackKeyType struct{}
type contextKeyType struct{}

var stackKey = stackKeyType{}
var ctxValueKey = contextKeyType{}

// stackFrom returns the in-flight key stack carried on ctx, or nil.
func stackFrom(ctx context.Context) []Key {
	v, _ := ctx.Value(stackKey).([]Key)
	return v
}

// ContextFrom recovers the running query's *Context from a context.Context
// derived from Context.Go, or nil if ctx was not produced by a query
// execution (e.g. a CLI invocation reading a file outside any query).
// store.Store.Read uses this to record file-access dependencies without
// requiring every caller to thread a *query.Context explicitly.
func ContextFrom(ctx context.Context) *Context {
	c, _ := ctx.Value(ctxValueKey).(*Context)
	return c
}

func pushStack(ctx context.Context, k Key) context.Context {
	existing := stackFrom(ctx)
	next := make([]Key, len(existing)+1)
	copy(next, existing)
	next[len(existing)] = k
	return context.WithValue(ctx, stackKey, next)
}

// Context is passed to every query's compute function. It records the
// dependency set the computation reads: nested Fetch calls and direct file
// accesses (via RecordFileAccess), the two dependency varieties a cached
// query result can depend on.
type Context struct {
	engine   *Engine
	ctx      context.Context
	key      Key
	deps     []Key
	fileDeps map[string]uint64
}

// Go returns the underlying context.Context, for passing to blocking I/O
// (e.g. store.Store.Read) that should observe cancellation.
func (c *Context) Go() context.Context {
	return c.ctx
}

// Err reports the underlying context's error, nil if still live. Compute
// functions that perform long scans should check this periodically;
// Fetch itself checks it at entry and after every nested call.
func (c *Context) Err() error {
	return c.ctx.Err()
}

// RecordFileAccess records that the running query consulted a file's
// content or existence, identified by fileID (typically a store.File's
// String() handle) at the given revision. The recorded revision is
// compared against the file's current revision (via the engine's
// FileRevisionSource) on the next validation pass: a mismatch forces
// re-execution, exactly like a changed upstream query output.
func (c *Context) RecordFileAccess(fileID string, revision uint64) {
	if c.fileDeps == nil {
		c.fileDeps = make(map[string]uint64)
	}
	c.fileDeps[fileID] = revision
}

// recordDep appends key to the dependency list if not already present.
func (c *Context) recordDep(key Key) {
	for _, d := range c.deps {
		if d == key {
			return
		}
	}
	c.deps = append(c.deps, key)
}

// FetchDep runs a nested query from within a running compute function,
// recording key as a dependency of the caller and propagating the caller's
// cancellation and cycle-detection stack. This is how one query reads
// another.
func FetchDep[T any](c *Context, key Key, compute func(*Context) (T, error)) (T, error) {
	c.recordDep(key)
	return Fetch[T](c.ctx, c.engine, key, compute)
}
