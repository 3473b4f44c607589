// Package query implements a memoized, revision-stamped computation
// graph: queries are pure functions over engine inputs, memoized by
// key, invalidated precisely on input change, with early cutoff when a
// revalidated dependency recomputes to an unchanged value. It uses a mutex
// per cached entry, golang.org/x/sync/singleflight for "exactly one
// executor, others block", and internal/trace's Op spans for
// instrumentation.
package query

// Key identifies one memoized computation: a query identifier plus an
// argument. Arguments must be cheaply hashable and carry enough identity
// to distinguish semantically distinct invocations — callers typically
// derive Arg from a store.File's String() handle or a config fingerprint.
type Key struct {
	QueryID string
	Arg     string
}

// String returns a stable textual encoding used both as a map key and as
// the singleflight.Group key, so concurrent Fetch calls for the same Key
// coalesce onto one execution.
func (k Key) String() string {
	return k.QueryID + "\x00" + k.Arg
}

// NewKey constructs a Key from a query identifier and argument.
func NewKey(queryID, arg string) Key {
	return Key{QueryID: queryID, Arg: arg}
}
