package diag

import (
	"testing"

	"github.com/caldera-dev/caldera/location"
)

func TestNewDiagnostic_Basic(t *testing.T) {
	d := NewDiagnostic(Error, Lint("unused-import"), "unused import").Build()

	if d.Severity() != Error {
		t.Errorf("Severity() = %v; want Error", d.Severity())
	}
	if d.ID().String() != "lint:unused-import" {
		t.Errorf("ID() = %v", d.ID())
	}
	if d.Message() != "unused import" {
		t.Errorf("Message() = %q", d.Message())
	}
	if d.HasSpan() {
		t.Error("HasSpan() should be false for a diagnostic with no span")
	}
}

func TestNewDiagnostic_PanicsOnInvalidSeverity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for invalid severity")
		}
	}()
	NewDiagnostic(Severity(99), Lint("x"), "msg")
}

func TestNewDiagnostic_PanicsOnZeroID(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for zero ID")
		}
	}()
	NewDiagnostic(Error, ID{}, "msg")
}

func TestNewDiagnostic_PanicsOnEmptyMessage(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for empty message")
		}
	}()
	NewDiagnostic(Error, Lint("x"), "")
}

func TestDiagnosticBuilder_In(t *testing.T) {
	f := testFile(t, "/a.py")
	d := NewDiagnostic(Error, Lint("x"), "msg").In(f).Build()

	if d.File() != f {
		t.Error("File() should match the file passed to In")
	}
}

func TestDiagnosticBuilder_Build_PanicsOnTwoPrimaryAnnotations(t *testing.T) {
	source := location.MustNewSourceID("test://a.py")
	defer func() {
		if recover() == nil {
			t.Error("expected panic for two primary annotations")
		}
	}()
	NewDiagnostic(Error, Lint("x"), "msg").
		WithAnnotation(NewPrimaryAnnotation(location.Point(source, 1, 1), "a")).
		WithAnnotation(NewPrimaryAnnotation(location.Point(source, 2, 1), "b")).
		Build()
}

func TestDiagnosticBuilder_WithExpectedGot(t *testing.T) {
	d := NewDiagnostic(Error, Lint("x"), "type mismatch").
		WithExpectedGot("str", "int").
		Build()

	details := d.Details()
	if len(details) != 2 {
		t.Fatalf("len(Details()) = %d; want 2", len(details))
	}
	if details[0].Key != DetailKeyExpected || details[0].Value != "str" {
		t.Errorf("details[0] = %+v", details[0])
	}
	if details[1].Key != DetailKeyGot || details[1].Value != "int" {
		t.Errorf("details[1] = %+v", details[1])
	}
}

func TestDiagnosticBuilder_ReuseDoesNotMutatePreviousBuild(t *testing.T) {
	b := NewDiagnostic(Error, Lint("x"), "msg").WithDetail("a", "1")
	first := b.Build()

	b.WithDetail("b", "2")
	second := b.Build()

	if len(first.Details()) != 1 {
		t.Errorf("first.Details() mutated by later builder calls: %+v", first.Details())
	}
	if len(second.Details()) != 2 {
		t.Errorf("len(second.Details()) = %d; want 2", len(second.Details()))
	}
}

func TestDiagnostic_IsZero(t *testing.T) {
	var zero Diagnostic
	if !zero.IsZero() {
		t.Error("zero Diagnostic should report IsZero() = true")
	}

	d := NewDiagnostic(Error, Lint("x"), "msg").Build()
	if d.IsZero() {
		t.Error("constructed Diagnostic should not be zero")
	}
}

func TestDiagnostic_IsValid(t *testing.T) {
	valid := NewDiagnostic(Error, Lint("x"), "msg").Build()
	if !valid.IsValid() {
		t.Error("diagnostic built via DiagnosticBuilder should be valid")
	}

	var zero Diagnostic
	if zero.IsValid() {
		t.Error("zero Diagnostic should not be valid")
	}
}

func TestDiagnostic_IsValid_RecursesIntoSubDiagnostics(t *testing.T) {
	validSub := NewDiagnostic(Error, Lint("x"), "sub").Build()
	d := NewDiagnostic(Error, Lint("x"), "parent").
		WithSubDiagnostic(validSub).
		Build()

	if !d.IsValid() {
		t.Error("diagnostic with valid sub-diagnostics should be valid")
	}

	// Force an invalid sub-diagnostic in without going through the builder.
	invalidSub := Diagnostic{}
	d2 := d
	d2.subDiagnostics = []Diagnostic{invalidSub}
	if d2.IsValid() {
		t.Error("diagnostic with an invalid sub-diagnostic should not be valid")
	}
}

func TestDiagnostic_Clone_DeepCopiesSlices(t *testing.T) {
	source := location.MustNewSourceID("test://a.py")
	original := NewDiagnostic(Error, Lint("x"), "msg").
		WithDetail("k", "v").
		WithRelated(location.RelatedInfo{Message: "note", Span: location.Point(source, 1, 1)}).
		WithAnnotation(NewAnnotation(location.Point(source, 1, 1), "ann")).
		WithSubDiagnostic(NewDiagnostic(Error, Lint("y"), "sub").Build()).
		Build()

	clone := original.Clone()

	clone.details[0].Value = "mutated"
	if original.details[0].Value == "mutated" {
		t.Error("mutating clone's Details should not affect original")
	}

	clone.related[0].Message = "mutated"
	if original.related[0].Message == "mutated" {
		t.Error("mutating clone's Related should not affect original")
	}

	clone.subDiagnostics[0] = NewDiagnostic(Error, Lint("z"), "other").Build()
	if original.subDiagnostics[0].Message() == "other" {
		t.Error("mutating clone's SubDiagnostics should not affect original")
	}
}

func TestDiagnostic_Fix(t *testing.T) {
	f := testFile(t, "/a.py")
	fix, err := NewFix(Safe, Edit{File: f, Start: 0, End: 1, Replacement: "x"})
	if err != nil {
		t.Fatalf("NewFix failed: %v", err)
	}

	d := NewDiagnostic(Error, Lint("x"), "msg").In(f).WithFix(fix).Build()

	got, ok := d.Fix()
	if !ok {
		t.Fatal("Fix() should report ok=true")
	}
	if got.Applicability() != Safe {
		t.Errorf("Fix().Applicability() = %v; want Safe", got.Applicability())
	}

	noFix := NewDiagnostic(Error, Lint("x"), "msg").Build()
	if _, ok := noFix.Fix(); ok {
		t.Error("Fix() should report ok=false when no fix was attached")
	}
}
