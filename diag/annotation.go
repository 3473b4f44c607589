package diag

import "github.com/caldera-dev/caldera/location"

// Annotation attaches a message to a span within a Diagnostic. At most one
// annotation in a Diagnostic's list is flagged primary; when present it
// anchors the diagnostic's reported position. The remaining annotations behave like the
// teacher's [location.RelatedInfo] — "previous definition here", "imported
// from here" — but travel with the Diagnostic instead of a bare Issue.
type Annotation struct {
	span    location.Span
	message string
	primary bool
}

// NewAnnotation constructs a non-primary annotation.
func NewAnnotation(span location.Span, message string) Annotation {
	return Annotation{span: span, message: message}
}

// NewPrimaryAnnotation constructs the primary annotation for a Diagnostic.
func NewPrimaryAnnotation(span location.Span, message string) Annotation {
	return Annotation{span: span, message: message, primary: true}
}

// Span returns the annotation's source location.
func (a Annotation) Span() location.Span {
	return a.span
}

// Message returns the annotation's text.
func (a Annotation) Message() string {
	return a.message
}

// Primary reports whether this annotation anchors the diagnostic's position.
func (a Annotation) Primary() bool {
	return a.primary
}

// validateAnnotations reports whether at most one annotation in the slice is
// primary (an empty slice, or a slice with no primary annotation, is valid).
func validateAnnotations(annotations []Annotation) bool {
	if len(annotations) == 0 {
		return true
	}
	primaryCount := 0
	for _, a := range annotations {
		if a.primary {
			primaryCount++
		}
	}
	return primaryCount <= 1
}

// primaryAnnotation returns the primary annotation and true, or the zero
// Annotation and false if none is marked primary.
func primaryAnnotation(annotations []Annotation) (Annotation, bool) {
	for _, a := range annotations {
		if a.primary {
			return a, true
		}
	}
	return Annotation{}, false
}
