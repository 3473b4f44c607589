package lsp

import (
	"testing"

	"github.com/caldera-dev/caldera/location"
)

func TestPositionFromLSPASCII(t *testing.T) {
	content := []byte("abc\ndef\n")
	offset, ok := PositionFromLSP(content, location.UTF8, 1, 1)
	if !ok {
		t.Fatal("expected ok")
	}
	if want := 5; offset != want {
		t.Errorf("offset = %d, want %d", offset, want)
	}
}

func TestPositionFromLSPSurrogatePair(t *testing.T) {
	// U+1F600 (grinning face) is one UTF-16 surrogate pair (2 code units)
	// but four UTF-8 bytes; a position just past it, measured in UTF-16,
	// must land at byte offset 4, not 2.
	content := []byte("\U0001F600x")
	offset, ok := PositionFromLSP(content, location.UTF16, 0, 2)
	if !ok {
		t.Fatal("expected ok")
	}
	if want := 4; offset != want {
		t.Errorf("offset = %d, want %d", offset, want)
	}
}

func TestPositionFromLSPOutOfRangeLine(t *testing.T) {
	content := []byte("abc\n")
	if _, ok := PositionFromLSP(content, location.UTF16, 5, 0); ok {
		t.Error("expected line out of range to report not ok")
	}
}

func TestCoordinateSystemFromClient(t *testing.T) {
	cases := map[string]location.CoordinateSystem{
		"utf-8":  location.UTF8,
		"UTF-8":  location.UTF8,
		"utf-32": location.UTF32,
		"utf-16": location.UTF16,
		"":       location.UTF16,
		"bogus":  location.UTF16,
	}
	for input, want := range cases {
		if got := coordinateSystemFromClient(input); got != want {
			t.Errorf("coordinateSystemFromClient(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestMergeIncrementalChangesFullReplacement(t *testing.T) {
	got := mergeIncrementalChanges("old text", location.UTF16, []rangeChange{
		{hasRange: false, text: "new text"},
	}, nil)
	if got != "new text" {
		t.Errorf("got %q, want %q", got, "new text")
	}
}

func TestMergeIncrementalChangesRangeReplacement(t *testing.T) {
	got := mergeIncrementalChanges("abc\ndef\n", location.UTF16, []rangeChange{
		{hasRange: true, startLine: 0, startChar: 1, endLine: 0, endChar: 2, text: "X"},
	}, nil)
	if want := "aXc\ndef\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestMergeIncrementalChangesInvalidRangeFallsBackToFullText(t *testing.T) {
	got := mergeIncrementalChanges("abc\n", location.UTF16, []rangeChange{
		{hasRange: true, startLine: 99, startChar: 0, endLine: 99, endChar: 0, text: "replacement"},
	}, nil)
	if got != "replacement" {
		t.Errorf("got %q, want %q", got, "replacement")
	}
}

func TestMergeIncrementalChangesNormalizesLineEndings(t *testing.T) {
	got := mergeIncrementalChanges("abc\r\ndef\r\n", location.UTF16, []rangeChange{
		{hasRange: true, startLine: 0, startChar: 3, endLine: 1, endChar: 0, text: "\n"},
	}, nil)
	if want := "abc\ndef\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
