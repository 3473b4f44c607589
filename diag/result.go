package diag

import (
	"fmt"
	"iter"
	"strings"
)

// SeverityCounts provides counts by severity level without map allocation.
type SeverityCounts struct {
	Errors   int
	Warnings int
	Info     int
	Hints    int
}

// Result is an immutable snapshot of diagnostics with precomputed counts.
//
// Results are obtained via [Collector.Result] or [OK] for an empty success
// result. There is no public constructor accepting arbitrary diagnostics,
// so every diagnostic in a Result is guaranteed valid.
type Result struct {
	diagnostics  []Diagnostic
	limit        int
	limitReached bool
	droppedCount int

	errorCount   int
	warningCount int
	infoCount    int
	hintCount    int
}

// newResult creates a Result with precomputed counts. diagnostics is owned
// by the Result and must be a fresh, unshared slice.
func newResult(diagnostics []Diagnostic, limit int, limitReached bool, droppedCount int) Result {
	var errorCount, warningCount, infoCount, hintCount int
	for _, d := range diagnostics {
		switch d.Severity() {
		case Error:
			errorCount++
		case Warning:
			warningCount++
		case Info:
			infoCount++
		case Hint:
			hintCount++
		}
	}

	return Result{
		diagnostics:  diagnostics,
		limit:        limit,
		limitReached: limitReached,
		droppedCount: droppedCount,
		errorCount:   errorCount,
		warningCount: warningCount,
		infoCount:    infoCount,
		hintCount:    hintCount,
	}
}

// OK returns a Result representing success (no diagnostics).
func OK() Result {
	return newResult(nil, 0, false, 0)
}

// OK reports whether no Error-severity diagnostics are present.
func (r Result) OK() bool {
	return r.errorCount == 0
}

// HasErrors reports whether any Error-severity diagnostic is present.
func (r Result) HasErrors() bool {
	return r.errorCount > 0
}

// HasWarnings reports whether any Warning diagnostic is present.
func (r Result) HasWarnings() bool {
	return r.warningCount > 0
}

// HasInfo reports whether any Info diagnostic is present.
func (r Result) HasInfo() bool {
	return r.infoCount > 0
}

// HasHints reports whether any Hint diagnostic is present.
func (r Result) HasHints() bool {
	return r.hintCount > 0
}

// Len returns the number of diagnostics.
func (r Result) Len() int {
	return len(r.diagnostics)
}

// LimitReached reports whether the collection limit was reached.
func (r Result) LimitReached() bool {
	return r.limitReached
}

// DroppedCount returns how many diagnostics were dropped after hitting the
// limit.
func (r Result) DroppedCount() int {
	return r.droppedCount
}

// Limit returns the configured diagnostic limit (0 means unlimited).
func (r Result) Limit() int {
	return r.limit
}

// SeverityCounts returns counts by severity level.
func (r Result) SeverityCounts() SeverityCounts {
	return SeverityCounts{
		Errors:   r.errorCount,
		Warnings: r.warningCount,
		Info:     r.infoCount,
		Hints:    r.hintCount,
	}
}

// Diagnostics returns an iterator over all diagnostics without copying. The
// yielded values must not be mutated; use [DiagnosticsSlice] for a mutable
// copy.
func (r Result) Diagnostics() iter.Seq[Diagnostic] {
	return func(yield func(Diagnostic) bool) {
		for _, d := range r.diagnostics {
			if !yield(d) {
				return
			}
		}
	}
}

// DiagnosticsSlice returns a deep copy of all diagnostics.
func (r Result) DiagnosticsSlice() []Diagnostic {
	if len(r.diagnostics) == 0 {
		return nil
	}
	result := make([]Diagnostic, len(r.diagnostics))
	for i, d := range r.diagnostics {
		result[i] = d.Clone()
	}
	return result
}

// Errors returns an iterator over Error-severity diagnostics.
func (r Result) Errors() iter.Seq[Diagnostic] {
	return r.BySeverity(Error)
}

// ErrorsSlice returns only Error-severity diagnostics (deep copy).
func (r Result) ErrorsSlice() []Diagnostic {
	return r.BySeveritySlice(Error)
}

// Warnings returns an iterator over Warning-severity diagnostics.
func (r Result) Warnings() iter.Seq[Diagnostic] {
	return r.BySeverity(Warning)
}

// WarningsSlice returns only Warning-severity diagnostics (deep copy).
func (r Result) WarningsSlice() []Diagnostic {
	return r.BySeveritySlice(Warning)
}

// BySeverity returns an iterator over diagnostics at exactly the given
// severity.
func (r Result) BySeverity(severity Severity) iter.Seq[Diagnostic] {
	return func(yield func(Diagnostic) bool) {
		for _, d := range r.diagnostics {
			if d.Severity() == severity {
				if !yield(d) {
					return
				}
			}
		}
	}
}

// BySeveritySlice returns diagnostics at exactly the given severity (deep
// copy).
func (r Result) BySeveritySlice(severity Severity) []Diagnostic {
	count := r.countBySeverity(severity)
	if count == 0 {
		return nil
	}
	result := make([]Diagnostic, 0, count)
	for _, d := range r.diagnostics {
		if d.Severity() == severity {
			result = append(result, d.Clone())
		}
	}
	return result
}

func (r Result) countBySeverity(severity Severity) int {
	switch severity {
	case Error:
		return r.errorCount
	case Warning:
		return r.warningCount
	case Info:
		return r.infoCount
	case Hint:
		return r.hintCount
	default:
		return 0
	}
}

// DiagnosticsAtLeastAsSevereAs returns an iterator over diagnostics at least
// as severe as threshold. Example: DiagnosticsAtLeastAsSevereAs(Warning)
// yields Error and Warning diagnostics.
func (r Result) DiagnosticsAtLeastAsSevereAs(threshold Severity) iter.Seq[Diagnostic] {
	return func(yield func(Diagnostic) bool) {
		for _, d := range r.diagnostics {
			if d.Severity().IsAtLeastAsSevereAs(threshold) {
				if !yield(d) {
					return
				}
			}
		}
	}
}

// DiagnosticsAtLeastAsSevereAsSlice returns diagnostics at least as severe
// as threshold (deep copy).
func (r Result) DiagnosticsAtLeastAsSevereAsSlice(threshold Severity) []Diagnostic {
	var count int
	switch {
	case threshold > Hint:
		count = len(r.diagnostics)
	case threshold == Error:
		count = r.errorCount
	case threshold == Warning:
		count = r.errorCount + r.warningCount
	case threshold == Info:
		count = r.errorCount + r.warningCount + r.infoCount
	case threshold == Hint:
		count = len(r.diagnostics)
	}

	if count == 0 {
		return nil
	}

	result := make([]Diagnostic, 0, count)
	for _, d := range r.diagnostics {
		if d.Severity().IsAtLeastAsSevereAs(threshold) {
			result = append(result, d.Clone())
		}
	}
	return result
}

// Messages returns message strings from Error-severity diagnostics.
func (r Result) Messages() []string {
	if r.errorCount == 0 {
		return nil
	}
	result := make([]string, 0, r.errorCount)
	for _, d := range r.diagnostics {
		if d.Severity().IsFailure() {
			result = append(result, d.Message())
		}
	}
	return result
}

// MessagesAtOrAbove returns message strings from diagnostics at or above
// the given severity threshold ("above" meaning more severe).
func (r Result) MessagesAtOrAbove(threshold Severity) []string {
	var result []string
	for _, d := range r.diagnostics {
		if d.Severity().IsAtLeastAsSevereAs(threshold) {
			result = append(result, d.Message())
		}
	}
	return result
}

// String returns a minimal multi-line representation suitable for quick
// debugging. Use a [Renderer] for formatted terminal or JSON output.
func (r Result) String() string {
	if r.OK() {
		return "OK"
	}

	var sb strings.Builder
	counts := r.SeverityCounts()

	fmt.Fprintf(&sb, "%d error(s)", counts.Errors)
	if counts.Warnings > 0 {
		fmt.Fprintf(&sb, ", %d warning(s)", counts.Warnings)
	}
	if r.limitReached {
		fmt.Fprintf(&sb, " [limit reached, %d dropped]", r.droppedCount)
	}
	sb.WriteString("\n")

	for _, d := range r.diagnostics {
		if d.Severity().IsFailure() {
			fmt.Fprintf(&sb, "  %s: %s\n", d.ID(), d.Message())
		}
	}

	return sb.String()
}
