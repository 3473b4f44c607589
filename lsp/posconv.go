package lsp

import (
	"log/slog"
	"strings"

	"github.com/caldera-dev/caldera/location"
)

// PositionFromLSP converts a 0-based LSP (line, character) pair, measured
// in sys, to a byte offset into content. Returns (0, false) if line is out
// of range; an out-of-range character is clamped to the end of the line by
// [location.LineIndex.ToOffset].
func PositionFromLSP(content []byte, sys location.CoordinateSystem, lspLine, lspChar int) (int, bool) {
	idx := location.NewLineIndex(content)
	return idx.ToOffset(lspLine+1, lspChar+1, sys)
}

// mergeIncrementalChanges applies a sequence of possibly-incremental
// content changes to currentText and returns the merged result. Each
// change is either a whole-document replacement (no range) or a range
// replacement measured in sys. This is a pure function with no side
// effects, used as a fallback when a client sends incremental changes
// despite the server negotiating full-document sync.
func mergeIncrementalChanges(currentText string, sys location.CoordinateSystem, changes []rangeChange, logger *slog.Logger) string {
	text := normalizeLineEndings(currentText)

	for _, change := range changes {
		if !change.hasRange {
			text = normalizeLineEndings(change.text)
			continue
		}

		content := []byte(text)
		startOffset, startOK := PositionFromLSP(content, sys, change.startLine, change.startChar)
		endOffset, endOK := PositionFromLSP(content, sys, change.endLine, change.endChar)

		if startOK && endOK && startOffset <= len(text) && endOffset <= len(text) && startOffset <= endOffset {
			text = text[:startOffset] + normalizeLineEndings(change.text) + text[endOffset:]
			continue
		}

		if logger != nil {
			logger.Warn("incremental change has invalid range, using full-text fallback",
				slog.Int("start_offset", startOffset),
				slog.Int("end_offset", endOffset),
				slog.Int("text_len", len(text)),
			)
		}
		text = normalizeLineEndings(change.text)
	}
	return text
}

// rangeChange is a transport-agnostic view of one TextDocumentContentChangeEvent,
// populated by the glsp-facing code in server.go so that mergeIncrementalChanges
// itself has no dependency on the protocol package.
type rangeChange struct {
	hasRange              bool
	startLine, startChar  int
	endLine, endChar      int
	text                  string
}

// coordinateSystemFromClient maps an LSP position encoding kind name
// ("utf-8", "utf-16", "utf-32", case-insensitive) to the internal
// [location.CoordinateSystem]. Unknown or empty values fall back to UTF16,
// the LSP protocol default.
func coordinateSystemFromClient(kind string) location.CoordinateSystem {
	switch strings.ToLower(kind) {
	case "utf-8":
		return location.UTF8
	case "utf-32":
		return location.UTF32
	default:
		return location.UTF16
	}
}
