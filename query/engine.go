package query

import (
	"context"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/caldera-dev/caldera/internal/trace"
)

// FileRevisionSource lets the engine validate file-access dependencies
// without importing the store package: store.Store implements this,
// reporting the current revision counter for one of its handles by its
// String() identity. This is the one seam where the file store and the
// query engine touch — modeled as a narrow interface rather than an
// import, so query has no dependency on store.
type FileRevisionSource interface {
	FileRevision(fileID string) (revision uint64, ok bool)
}

// cacheEntry is one memoized result, guarded by its own mutex so distinct
// keys never contend.
type cacheEntry struct {
	mu sync.Mutex

	value any
	err   error

	deps     []Key
	fileDeps map[string]uint64

	computedAt uint64
	verifiedAt uint64

	// recompute is the last compute function supplied for this key,
	// type-erased. It is retained so a dependent query's validation pass
	// can re-invoke this entry's computation without requiring its
	// original caller to still be on the stack.
	recompute func(*Context) (any, error)
}

// Engine is a memoized, revision-stamped computation graph. The
// zero value is not usable; construct with NewEngine.
type Engine struct {
	revision atomic.Uint64
	entries  sync.Map // Key -> *cacheEntry
	group    singleflight.Group

	fileRevSource FileRevisionSource
	logger        *slog.Logger

	events chan Event
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithLogger attaches a logger for trace.Op instrumentation spans. A nil
// logger (the default) makes tracing a no-op, per internal/trace's
// nil-safe design.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithEventBuffer sets the buffer size of the channel returned by Events.
// A size of 0 disables instrumentation events entirely (WillExecute,
// DidValidate, DidExecute are still traced via internal/trace regardless).
func WithEventBuffer(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.events = make(chan Event, n)
		} else {
			e.events = nil
		}
	}
}

// NewEngine constructs an Engine at revision 1. Revision 0 is never
// current, so a cache entry whose computedAt is 0 has not run yet.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{events: make(chan Event, 256)}
	e.revision.Store(1)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetFileRevisionSource wires the store backing this engine's file-access
// dependencies. Must be called before any query that calls
// Context.RecordFileAccess is fetched, or file changes will never be
// observed.
func (e *Engine) SetFileRevisionSource(src FileRevisionSource) {
	e.fileRevSource = src
}

// Revision returns the current global revision.
func (e *Engine) Revision() uint64 {
	return e.revision.Load()
}

// Bump advances the global revision by one and returns the new value. The
// file store calls this (indirectly, via whatever wiring owns both)
// whenever a File's content changes.
func (e *Engine) Bump() uint64 {
	return e.revision.Add(1)
}

// Events returns the channel instrumentation events are published to. Test
// harnesses drain it to assert Testable Properties 4/5 (early cutoff and
// invalidation). Publishing is non-blocking: if the buffer is full, the
// event is dropped rather than stalling query execution.
func (e *Engine) Events() <-chan Event {
	return e.events
}

func (e *Engine) emit(kind EventKind, key Key, elapsed time.Duration) {
	select {
	case e.events <- Event{Kind: kind, Key: key, Elapsed: elapsed}:
	default:
	}
}

func (e *Engine) entryFor(key Key) *cacheEntry {
	actual, _ := e.entries.LoadOrStore(key, &cacheEntry{})
	return actual.(*cacheEntry)
}

// Fetch runs (or replays the memoized result of) the query identified by
// key, using compute if the cache is missing or stale. Concurrent Fetch
// calls for the same key coalesce onto a single execution via
// singleflight; a goroutine that re-enters a key already on its own
// call stack gets a *CycleError instead of deadlocking.
func Fetch[T any](ctx context.Context, e *Engine, key Key, compute func(*Context) (T, error)) (T, error) {
	var zero T

	if err := ctx.Err(); err != nil {
		return zero, ErrCancelled
	}
	for _, k := range stackFrom(ctx) {
		if k == key {
			return zero, newCycleError(stackFrom(ctx), key)
		}
	}

	erased := func(qctx *Context) (any, error) {
		return compute(qctx)
	}

	entry := e.entryFor(key)
	entry.mu.Lock()
	entry.recompute = erased
	entry.mu.Unlock()

	result, err, _ := e.group.Do(key.String(), func() (any, error) {
		entry.mu.Lock()
		defer entry.mu.Unlock()
		return e.resolveLocked(ctx, key, entry)
	})
	if err != nil {
		return zero, err
	}
	typed, _ := result.(T)
	return typed, nil
}

// resolveLocked returns key's current value, computing or validating as
// needed. Caller must hold entry.mu.
func (e *Engine) resolveLocked(ctx context.Context, key Key, entry *cacheEntry) (any, error) {
	rev := e.revision.Load()

	if entry.computedAt != 0 && entry.verifiedAt == rev {
		e.emit(DidValidate, key, 0)
		return entry.value, entry.err
	}

	if entry.computedAt != 0 && e.validateDepsLocked(ctx, entry) {
		entry.verifiedAt = rev
		e.emit(DidValidate, key, 0)
		return entry.value, entry.err
	}

	return e.executeLocked(ctx, key, entry)
}

func (e *Engine) executeLocked(ctx context.Context, key Key, entry *cacheEntry) (any, error) {
	e.emit(WillExecute, key, 0)
	op := trace.Begin(ctx, e.logger, "caldera.query.execute", slog.String("key", key.String()))

	qctx := &Context{engine: e, key: key}
	qctx.ctx = context.WithValue(pushStack(ctx, key), ctxValueKey, qctx)
	start := time.Now()
	value, err := entry.recompute(qctx)
	elapsed := time.Since(start)

	e.emit(DidExecute, key, elapsed)
	op.End(err, slog.Duration("elapsed", elapsed))

	if qctx.ctx.Err() != nil {
		return nil, ErrCancelled
	}

	rev := e.revision.Load()
	entry.value = value
	entry.err = wrapComputeError(key, err)
	entry.deps = qctx.deps
	entry.fileDeps = qctx.fileDeps
	entry.computedAt = rev
	entry.verifiedAt = rev
	return value, entry.err
}

// validateDepsLocked reports whether every dependency recorded the last
// time entry executed is still structurally unchanged at the current
// revision. Caller must hold entry.mu; dependency entries are locked one
// at a time as they are visited.
func (e *Engine) validateDepsLocked(ctx context.Context, entry *cacheEntry) bool {
	if ctx.Err() != nil {
		return false
	}

	for fileID, recordedRev := range entry.fileDeps {
		if e.fileRevSource == nil {
			continue
		}
		cur, ok := e.fileRevSource.FileRevision(fileID)
		if !ok || cur != recordedRev {
			return false
		}
	}

	for _, depKey := range entry.deps {
		depEntryAny, ok := e.entries.Load(depKey)
		if !ok {
			return false
		}
		depEntry := depEntryAny.(*cacheEntry)

		depEntry.mu.Lock()
		oldValue := depEntry.value
		newValue, _ := e.resolveLocked(ctx, depKey, depEntry)
		changed := !reflect.DeepEqual(oldValue, newValue)
		depEntry.mu.Unlock()

		if changed {
			return false
		}
	}
	return true
}
