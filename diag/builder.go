package diag

import (
	"fmt"

	"github.com/caldera-dev/caldera/location"
	"github.com/caldera-dev/caldera/store"
)

// DiagnosticBuilder provides fluent construction of [Diagnostic] values.
//
// DiagnosticBuilder is the only valid construction path for Diagnostic
// values in production code. Direct struct literal construction bypasses
// validity checks and will panic when the diagnostic is collected.
//
// Example:
//
//	d := diag.NewDiagnostic(diag.Error, diag.Lint("unused-import"), `"os" imported but unused`).
//	    In(file).
//	    WithSpan(span).
//	    WithHint("remove the import").
//	    Build()
type DiagnosticBuilder struct {
	d Diagnostic
}

// NewDiagnostic starts building a diagnostic with its required fields.
//
// NewDiagnostic panics if any required field is invalid: severity must be
// in range, id must not be zero, and message must not be empty. These
// panics catch programmer errors at construction time.
func NewDiagnostic(severity Severity, id ID, message string) *DiagnosticBuilder {
	if severity > Hint {
		panic(fmt.Sprintf("diag.NewDiagnostic: invalid severity %d (must be 0-%d)", severity, Hint))
	}
	if id.IsZero() {
		panic("diag.NewDiagnostic: zero ID")
	}
	if message == "" {
		panic("diag.NewDiagnostic: empty message")
	}
	return &DiagnosticBuilder{
		d: Diagnostic{severity: severity, id: id, message: message},
	}
}

// In sets the file this diagnostic concerns.
func (b *DiagnosticBuilder) In(file store.File) *DiagnosticBuilder {
	b.d.file = file
	return b
}

// WithSpan sets the primary source span.
func (b *DiagnosticBuilder) WithSpan(span location.Span) *DiagnosticBuilder {
	b.d.span = span
	return b
}

// WithHint sets the resolution suggestion.
func (b *DiagnosticBuilder) WithHint(hint string) *DiagnosticBuilder {
	b.d.hint = hint
	return b
}

// WithRelated appends related-location information (e.g. "previous
// definition here"). Entries that form an ordered chain (an import cycle's
// hops) should be added in chain order: they are compared lexicographically
// during sorting, so a consistent order keeps output deterministic.
func (b *DiagnosticBuilder) WithRelated(related ...location.RelatedInfo) *DiagnosticBuilder {
	b.d.related = append(b.d.related, related...)
	return b
}

// WithDetail adds a single key-value detail.
func (b *DiagnosticBuilder) WithDetail(key, value string) *DiagnosticBuilder {
	b.d.details = append(b.d.details, Detail{Key: key, Value: value})
	return b
}

// WithDetails appends key-value context.
func (b *DiagnosticBuilder) WithDetails(details ...Detail) *DiagnosticBuilder {
	b.d.details = append(b.d.details, details...)
	return b
}

// WithExpectedGot is a convenience for type/value mismatch diagnostics.
func (b *DiagnosticBuilder) WithExpectedGot(expected, got string) *DiagnosticBuilder {
	return b.WithDetails(ExpectedGot(expected, got)...)
}

// WithAnnotation appends a span annotation. Build panics if more than one
// annotation is marked primary: at most one annotation may be primary.
func (b *DiagnosticBuilder) WithAnnotation(a Annotation) *DiagnosticBuilder {
	b.d.annotations = append(b.d.annotations, a)
	return b
}

// WithSubDiagnostic appends a nested diagnostic (e.g. one hop of an import
// cycle, or one frame contributing to a composite finding).
func (b *DiagnosticBuilder) WithSubDiagnostic(sub Diagnostic) *DiagnosticBuilder {
	b.d.subDiagnostics = append(b.d.subDiagnostics, sub)
	return b
}

// WithFix attaches a proposed autofix.
func (b *DiagnosticBuilder) WithFix(fix Fix) *DiagnosticBuilder {
	f := fix
	b.d.fix = &f
	return b
}

// Build returns the constructed diagnostic, deep-copying its slices so
// builder reuse cannot mutate a previously built value.
//
// Build panics if the annotation set has more than one primary annotation.
func (b *DiagnosticBuilder) Build() Diagnostic {
	if !validateAnnotations(b.d.annotations) {
		panic("diag.DiagnosticBuilder.Build: more than one primary annotation")
	}

	result := b.d
	if len(b.d.related) > 0 {
		result.related = append([]location.RelatedInfo(nil), b.d.related...)
	}
	if len(b.d.details) > 0 {
		result.details = append([]Detail(nil), b.d.details...)
	}
	if len(b.d.annotations) > 0 {
		result.annotations = append([]Annotation(nil), b.d.annotations...)
	}
	if len(b.d.subDiagnostics) > 0 {
		result.subDiagnostics = append([]Diagnostic(nil), b.d.subDiagnostics...)
	}
	return result
}
