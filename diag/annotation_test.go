package diag

import (
	"testing"

	"github.com/caldera-dev/caldera/location"
)

func TestNewAnnotation(t *testing.T) {
	source := location.MustNewSourceID("test://a.py")
	a := NewAnnotation(location.Point(source, 1, 1), "imported from here")

	if a.Primary() {
		t.Error("NewAnnotation should not be primary")
	}
	if a.Message() != "imported from here" {
		t.Errorf("Message() = %q", a.Message())
	}
}

func TestNewPrimaryAnnotation(t *testing.T) {
	source := location.MustNewSourceID("test://a.py")
	a := NewPrimaryAnnotation(location.Point(source, 1, 1), "here")

	if !a.Primary() {
		t.Error("NewPrimaryAnnotation should be primary")
	}
}

func TestValidateAnnotations(t *testing.T) {
	source := location.MustNewSourceID("test://a.py")
	p1 := location.Point(source, 1, 1)
	p2 := location.Point(source, 2, 1)

	tests := []struct {
		name        string
		annotations []Annotation
		want        bool
	}{
		{"empty", nil, true},
		{"single non-primary", []Annotation{NewAnnotation(p1, "x")}, true},
		{"single primary", []Annotation{NewPrimaryAnnotation(p1, "x")}, true},
		{
			"one primary, one not",
			[]Annotation{NewPrimaryAnnotation(p1, "x"), NewAnnotation(p2, "y")},
			true,
		},
		{
			"two primary",
			[]Annotation{NewPrimaryAnnotation(p1, "x"), NewPrimaryAnnotation(p2, "y")},
			false,
		},
		{
			"no primary among multiple",
			[]Annotation{NewAnnotation(p1, "x"), NewAnnotation(p2, "y")},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := validateAnnotations(tt.annotations); got != tt.want {
				t.Errorf("validateAnnotations() = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestPrimaryAnnotation(t *testing.T) {
	source := location.MustNewSourceID("test://a.py")
	p1 := location.Point(source, 1, 1)
	p2 := location.Point(source, 2, 1)

	t.Run("found", func(t *testing.T) {
		annotations := []Annotation{NewAnnotation(p1, "x"), NewPrimaryAnnotation(p2, "y")}
		a, ok := primaryAnnotation(annotations)
		if !ok {
			t.Fatal("expected primary annotation to be found")
		}
		if a.Message() != "y" {
			t.Errorf("Message() = %q; want %q", a.Message(), "y")
		}
	})

	t.Run("not found", func(t *testing.T) {
		annotations := []Annotation{NewAnnotation(p1, "x")}
		_, ok := primaryAnnotation(annotations)
		if ok {
			t.Error("expected no primary annotation")
		}
	})
}
