package query

import (
	"errors"
	"fmt"
)

// ErrCancelled is returned by Fetch when the supplied context is cancelled
// while a query is executing or being validated. Cancelled results are
// never cached; callers (chiefly an LSP session) treat this as "retry
// after the write completes" rather than a failure.
var ErrCancelled = errors.New("query: fetch cancelled")

// CycleError is returned when a query re-enters its own in-flight key,
// directly or transitively. It is a fatal programming bug, not a
// recoverable condition: rules.Checker.Check returns it as its own error
// instead of turning it into a diagnostic, which aborts the run, and its
// message enumerates the cycle path.
type CycleError struct {
	Path []Key
}

func (e *CycleError) Error() string {
	msg := "query: cycle detected: "
	for i, k := range e.Path {
		if i > 0 {
			msg += " -> "
		}
		msg += k.String()
	}
	return msg
}

// IsCycle reports whether err is (or wraps) a *CycleError.
func IsCycle(err error) bool {
	var ce *CycleError
	return errors.As(err, &ce)
}

func newCycleError(stack []Key, reentered Key) *CycleError {
	path := make([]Key, 0, len(stack)+1)
	path = append(path, stack...)
	path = append(path, reentered)
	return &CycleError{Path: path}
}

// wrapComputeError adds the failing key to a compute function's error for
// easier diagnosis, without discarding the original error for errors.Is/As.
func wrapComputeError(key Key, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("query %s: %w", key, err)
}
