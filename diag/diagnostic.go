package diag

import (
	"github.com/caldera-dev/caldera/location"
	"github.com/caldera-dev/caldera/store"
)

// Diagnostic represents a single reported problem: a severity, a
// stable identifier, a human-readable message, and the location(s) it
// concerns. Diagnostic is immutable after construction; use
// [DiagnosticBuilder] to build one.
//
// Direct struct literal construction bypasses validity checks and will
// panic when the diagnostic is collected via [Collector.Collect].
type Diagnostic struct {
	file     store.File
	span     location.Span
	severity Severity
	id       ID
	message  string
	hint     string

	related        []location.RelatedInfo
	details        []Detail
	annotations    []Annotation
	subDiagnostics []Diagnostic
	fix            *Fix
}

// File returns the file this diagnostic concerns.
func (d Diagnostic) File() store.File { return d.file }

// Span returns the diagnostic's primary source span.
func (d Diagnostic) Span() location.Span { return d.span }

// Severity returns the diagnostic's severity level.
func (d Diagnostic) Severity() Severity { return d.severity }

// ID returns the diagnostic's stable identifier.
func (d Diagnostic) ID() ID { return d.id }

// Message returns the human-readable description. Messages should not
// contain embedded locations; use Span and Annotations for that.
func (d Diagnostic) Message() string { return d.message }

// Hint returns the optional resolution suggestion.
func (d Diagnostic) Hint() string { return d.hint }

// HasSpan reports whether the diagnostic has a non-zero primary span.
func (d Diagnostic) HasSpan() bool { return !d.span.IsZero() }

// IsZero reports whether the diagnostic is a zero value.
func (d Diagnostic) IsZero() bool {
	return d.id.IsZero() && d.message == "" && d.span.IsZero() && d.file.IsZero()
}

// IsValid reports whether the diagnostic has the minimum required fields
// and satisfies the single-primary-annotation invariant.
// Production code using [DiagnosticBuilder] never needs to call this
// directly; it exists so [Collector.Collect] can catch diagnostics built
// by direct struct literal.
func (d Diagnostic) IsValid() bool {
	if d.id.IsZero() || d.message == "" || d.severity > Hint {
		return false
	}
	if !validateAnnotations(d.annotations) {
		return false
	}
	for _, sub := range d.subDiagnostics {
		if !sub.IsValid() {
			return false
		}
	}
	return true
}

// Related returns a copy of the related-location information.
func (d Diagnostic) Related() []location.RelatedInfo {
	if len(d.related) == 0 {
		return nil
	}
	cp := make([]location.RelatedInfo, len(d.related))
	copy(cp, d.related)
	return cp
}

// Details returns a copy of the detail key-value pairs.
func (d Diagnostic) Details() []Detail {
	if len(d.details) == 0 {
		return nil
	}
	cp := make([]Detail, len(d.details))
	copy(cp, d.details)
	return cp
}

// Annotations returns a copy of the diagnostic's span annotations. At most
// one annotation is marked primary; see [Annotation.Primary].
func (d Diagnostic) Annotations() []Annotation {
	if len(d.annotations) == 0 {
		return nil
	}
	cp := make([]Annotation, len(d.annotations))
	copy(cp, d.annotations)
	return cp
}

// SubDiagnostics returns a copy of this diagnostic's nested diagnostics
// (e.g. each frame of an import cycle, reported as one sub-diagnostic per
// hop under a single parent).
func (d Diagnostic) SubDiagnostics() []Diagnostic {
	if len(d.subDiagnostics) == 0 {
		return nil
	}
	cp := make([]Diagnostic, len(d.subDiagnostics))
	copy(cp, d.subDiagnostics)
	return cp
}

// Fix returns the diagnostic's proposed autofix, and whether one is
// present.
func (d Diagnostic) Fix() (Fix, bool) {
	if d.fix == nil {
		return Fix{}, false
	}
	return *d.fix, true
}

// Clone returns a deep copy of the diagnostic.
func (d Diagnostic) Clone() Diagnostic {
	clone := d
	if len(d.related) > 0 {
		clone.related = append([]location.RelatedInfo(nil), d.related...)
	}
	if len(d.details) > 0 {
		clone.details = append([]Detail(nil), d.details...)
	}
	if len(d.annotations) > 0 {
		clone.annotations = append([]Annotation(nil), d.annotations...)
	}
	if len(d.subDiagnostics) > 0 {
		clone.subDiagnostics = make([]Diagnostic, len(d.subDiagnostics))
		for i, sub := range d.subDiagnostics {
			clone.subDiagnostics[i] = sub.Clone()
		}
	}
	if d.fix != nil {
		f := *d.fix
		clone.fix = &f
	}
	return clone
}
