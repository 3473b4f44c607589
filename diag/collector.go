package diag

import (
	"fmt"
	"slices"
	"sync"

	"github.com/caldera-dev/caldera/location"
)

// Collector provides concurrent diagnostic collection with precomputed
// severity counts.
//
// Collector is thread-safe and can be used from multiple goroutines. It
// provides O(1) severity queries via precomputed counts that are updated
// during collection.
//
// Limit behavior: when the limit is reached, additional diagnostics are
// dropped but [Collector.OK] is not affected. Use [Collector.LimitReached]
// to detect truncated results, and report an [IDLimitReached] diagnostic
// separately if the caller wants that surfaced to the user.
type Collector struct {
	mu           sync.RWMutex
	diagnostics  []Diagnostic
	limit        int
	limitReached bool
	droppedCount int

	errorCount   int
	warningCount int
	infoCount    int
	hintCount    int

	cachedResult *Result
}

// NoLimit is the sentinel value indicating unlimited diagnostic collection.
const NoLimit = 0

// NewCollector creates a collector with an optional diagnostic limit. A
// limit of 0 means no limit; negative values are normalized to 0.
func NewCollector(limit int) *Collector {
	if limit < 0 {
		limit = 0
	}
	return &Collector{limit: limit}
}

// NewCollectorUnlimited creates a collector with no diagnostic limit.
func NewCollectorUnlimited() *Collector {
	return NewCollector(NoLimit)
}

// Collect adds a diagnostic to the collector. It panics if the diagnostic
// is zero-value or invalid — see [Diagnostic.IsValid] — to catch direct
// struct-literal construction rather than deferring failure to a later
// pipeline stage.
func (c *Collector) Collect(d Diagnostic) {
	c.validate(d)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.collectLocked(d)
}

// CollectAll adds multiple diagnostics under a single lock.
func (c *Collector) CollectAll(diagnostics []Diagnostic) {
	for _, d := range diagnostics {
		c.validate(d)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range diagnostics {
		c.collectLocked(d)
	}
}

// Merge incorporates all diagnostics from a Result under a single lock.
// Results are structurally guaranteed to contain only valid diagnostics, so
// Merge does not re-validate.
func (c *Collector) Merge(res Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for d := range res.Diagnostics() {
		c.collectLocked(d)
	}
}

func (c *Collector) validate(d Diagnostic) {
	if d.IsZero() {
		panic("diag.Collector.Collect: zero-value Diagnostic")
	}
	if !d.IsValid() {
		panic(fmt.Sprintf("diag.Collector.Collect: invalid Diagnostic (id=%s, message=%q)",
			d.ID().String(), d.Message()))
	}
}

func (c *Collector) collectLocked(d Diagnostic) {
	c.cachedResult = nil

	if c.limit > 0 && len(c.diagnostics) >= c.limit {
		c.limitReached = true
		c.droppedCount++
		return
	}

	c.diagnostics = append(c.diagnostics, d)

	switch d.Severity() {
	case Error:
		c.errorCount++
	case Warning:
		c.warningCount++
	case Info:
		c.infoCount++
	case Hint:
		c.hintCount++
	}
}

// Result produces a sorted, immutable snapshot, cached until the next
// Collect call. Diagnostics are sorted by span, file, and id for
// deterministic output (Testable Property 6).
func (c *Collector) Result() Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cachedResult != nil {
		return *c.cachedResult
	}

	sorted := make([]Diagnostic, len(c.diagnostics))
	copy(sorted, c.diagnostics)
	slices.SortFunc(sorted, compareDiagnostics)

	result := newResult(sorted, c.limit, c.limitReached, c.droppedCount)
	c.cachedResult = &result
	return result
}

// compareDiagnostics implements a total order over diagnostics: distinct
// diagnostics never compare equal, so Collector.Result is fully
// deterministic regardless of collection order or concurrency.
//
// Span leads the comparison, not the File handle: [location.Compare] sorts
// by the span's source path, which is what a user expects an ordered
// diagnostic list to read top-to-bottom by; File is an opaque
// intern-order tag (see [store.File.String]) and would produce an
// arbitrary, non-path-based order if compared first. File only
// tie-breaks diagnostics that share a span (typically both zero, as for
// file-level I/O errors with no position).
func compareDiagnostics(a, b Diagnostic) int {
	if cmp := location.Compare(a.span, b.span); cmp != 0 {
		return cmp
	}

	if a.file != b.file {
		if a.file.String() < b.file.String() {
			return -1
		}
		return 1
	}

	if a.id.String() != b.id.String() {
		if a.id.String() < b.id.String() {
			return -1
		}
		return 1
	}

	if a.severity != b.severity {
		if a.severity < b.severity {
			return -1
		}
		return 1
	}

	if a.message != b.message {
		if a.message < b.message {
			return -1
		}
		return 1
	}

	if a.hint != b.hint {
		if a.hint < b.hint {
			return -1
		}
		return 1
	}

	if cmp := compareDetails(a.details, b.details); cmp != 0 {
		return cmp
	}

	return compareRelated(a.related, b.related)
}

func compareDetails(a, b []Detail) int {
	minLen := min(len(a), len(b))
	for i := range minLen {
		if a[i].Key != b[i].Key {
			if a[i].Key < b[i].Key {
				return -1
			}
			return 1
		}
		if a[i].Value != b[i].Value {
			if a[i].Value < b[i].Value {
				return -1
			}
			return 1
		}
	}
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return 0
}

func compareRelated(a, b []location.RelatedInfo) int {
	minLen := min(len(a), len(b))
	for i := range minLen {
		if cmp := location.Compare(a[i].Span, b[i].Span); cmp != 0 {
			return cmp
		}
		if a[i].Message != b[i].Message {
			if a[i].Message < b[i].Message {
				return -1
			}
			return 1
		}
	}
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return 0
}

// HasErrors reports whether any Error-severity diagnostic has been
// collected. O(1) via precomputed counts.
func (c *Collector) HasErrors() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.errorCount > 0
}

// OK reports whether no Error-severity diagnostics have been collected.
func (c *Collector) OK() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.errorCount == 0
}

// Len returns the number of collected diagnostics.
func (c *Collector) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.diagnostics)
}

// LimitReached reports whether the limit was reached.
func (c *Collector) LimitReached() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.limitReached
}

// DroppedCount returns how many diagnostics were dropped after hitting the
// limit.
func (c *Collector) DroppedCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.droppedCount
}
