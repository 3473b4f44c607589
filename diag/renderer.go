package diag

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/caldera-dev/caldera/location"
)

// SourceProvider provides source content for excerpt rendering.
//
// Implementations should return the content of the source file containing
// the span, if available. Return (nil, false) if the content is not
// available.
type SourceProvider interface {
	Content(span location.Span) ([]byte, bool)
}

// LineIndexProvider is an optional extension for efficient LSP UTF-16
// offset computation. Registry-backed SourceProviders implement this.
type LineIndexProvider interface {
	LineStartByte(source location.SourceID, line int) (int, bool)
}

// LSPByteFallback controls behavior when byte offsets are unknown for LSP
// output.
type LSPByteFallback uint8

const (
	// LSPByteFallbackOmit omits diagnostics with unknown byte offsets from
	// LSP output. This is the default and ensures correctness.
	LSPByteFallbackOmit LSPByteFallback = iota

	// LSPByteFallbackApproximate uses Column-1 as the UTF-16 offset when
	// byte offset is unknown. Correct for ASCII/BMP text, incorrect for
	// non-BMP characters.
	LSPByteFallbackApproximate
)

type rendererConfig struct {
	provider            SourceProvider
	excerpts            bool
	maxCols             int
	moduleRoot          string
	colorize            bool
	truncationIndicator string
	lspByteFallback     LSPByteFallback
}

// RendererOption configures Renderer behavior.
type RendererOption func(*rendererConfig)

// WithSourceProvider sets the source content provider for excerpt
// rendering. A nil provider silently omits excerpts.
func WithSourceProvider(p SourceProvider) RendererOption {
	return func(c *rendererConfig) { c.provider = p }
}

// WithExcerpts enables or disables source excerpts in output. Excerpts
// require a SourceProvider; without one they are silently omitted.
func WithExcerpts(on bool) RendererOption {
	return func(c *rendererConfig) { c.excerpts = on }
}

// WithMaxLineColumns sets the maximum line length before truncation.
// Default is 120.
func WithMaxLineColumns(n int) RendererOption {
	return func(c *rendererConfig) { c.maxCols = n }
}

// WithModuleRoot sets the module root for path relativization.
func WithModuleRoot(root string) RendererOption {
	return func(c *rendererConfig) { c.moduleRoot = root }
}

// WithColors enables or disables ANSI color output.
func WithColors(on bool) RendererOption {
	return func(c *rendererConfig) { c.colorize = on }
}

// WithTruncationIndicator sets the indicator for truncated lines. Default
// is "...".
func WithTruncationIndicator(s string) RendererOption {
	return func(c *rendererConfig) { c.truncationIndicator = s }
}

// WithLSPByteFallback sets the behavior when byte offsets are unknown for
// LSP output.
func WithLSPByteFallback(mode LSPByteFallback) RendererOption {
	return func(c *rendererConfig) { c.lspByteFallback = mode }
}

// Renderer formats diagnostics as text or JSON. Create with [NewRenderer].
type Renderer struct {
	provider            SourceProvider
	excerpts            bool
	maxCols             int
	moduleRoot          string
	colorize            bool
	truncationIndicator string
	lspByteFallback     LSPByteFallback
}

// NewRenderer creates a renderer with the given options.
func NewRenderer(opts ...RendererOption) *Renderer {
	cfg := &rendererConfig{
		maxCols:             120,
		truncationIndicator: "...",
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Renderer{
		provider:            cfg.provider,
		excerpts:            cfg.excerpts,
		maxCols:             cfg.maxCols,
		moduleRoot:          cfg.moduleRoot,
		colorize:            cfg.colorize,
		truncationIndicator: cfg.truncationIndicator,
		lspByteFallback:     cfg.lspByteFallback,
	}
}

// FormatDiagnostic formats a single diagnostic as text.
func (r *Renderer) FormatDiagnostic(d Diagnostic) string {
	var sb strings.Builder
	r.formatDiagnosticToBuilder(&sb, d, 0)
	return sb.String()
}

// FormatResult formats every diagnostic in a result as text.
func (r *Renderer) FormatResult(res Result) string {
	var sb strings.Builder
	first := true
	for d := range res.Diagnostics() {
		if !first {
			sb.WriteString("\n")
		}
		r.formatDiagnosticToBuilder(&sb, d, 0)
		first = false
	}
	return sb.String()
}

// FormatDiagnostics formats a slice of diagnostics as text.
func (r *Renderer) FormatDiagnostics(diagnostics []Diagnostic) string {
	var sb strings.Builder
	for i, d := range diagnostics {
		if i > 0 {
			sb.WriteString("\n")
		}
		r.formatDiagnosticToBuilder(&sb, d, 0)
	}
	return sb.String()
}

// FormatGrouped formats a result as text grouped by source file: one
// header line per file, in the order Result's deterministic sort already
// produces, followed by one indented line per diagnostic in that file
// with the now-redundant file path omitted.
func (r *Renderer) FormatGrouped(res Result) string {
	var sb strings.Builder
	currentSource := ""
	seenAny := false
	for d := range res.Diagnostics() {
		source := r.relativizedSource(d)
		if source != currentSource || !seenAny {
			if seenAny {
				sb.WriteString("\n")
			}
			sb.WriteString(source)
			sb.WriteString(":\n")
			currentSource = source
		}
		sb.WriteString("  ")
		sb.WriteString(r.lineColumn(d))
		sb.WriteString(": ")
		r.writeSeverity(&sb, d.Severity())
		sb.WriteString("[")
		sb.WriteString(d.ID().String())
		sb.WriteString("]: ")
		sb.WriteString(d.Message())
		sb.WriteString("\n")
		seenAny = true
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func (r *Renderer) relativizedSource(d Diagnostic) string {
	if !d.HasSpan() {
		return "<unknown>"
	}
	source := d.Span().Source.String()
	if root := strings.TrimSuffix(r.moduleRoot, "/"); root != "" {
		if source == root {
			return "."
		}
		if rel, ok := strings.CutPrefix(source, root+"/"); ok {
			return rel
		}
	}
	return source
}

func (r *Renderer) lineColumn(d Diagnostic) string {
	if !d.HasSpan() || !d.Span().Start.IsKnown() {
		return "?:?"
	}
	start := d.Span().Start
	return fmt.Sprintf("%d:%d", start.Line, start.Column)
}

func (r *Renderer) formatDiagnosticToBuilder(sb *strings.Builder, d Diagnostic, depth int) {
	indent := strings.Repeat("  ", depth)
	sb.WriteString(indent)

	r.writeLocation(sb, d)
	sb.WriteString(": ")
	r.writeSeverity(sb, d.Severity())
	sb.WriteString("[")
	sb.WriteString(d.ID().String())
	sb.WriteString("]: ")
	sb.WriteString(d.Message())

	if fix, ok := d.Fix(); ok {
		sb.WriteString(" (fix available: ")
		sb.WriteString(fix.Applicability().String())
		sb.WriteString(")")
	}

	if hint := d.Hint(); hint != "" {
		sb.WriteString("\n")
		sb.WriteString(indent)
		sb.WriteString("  hint: ")
		sb.WriteString(hint)
	}

	if r.excerpts && r.provider != nil && d.HasSpan() {
		r.writeExcerpt(sb, d, indent)
	}

	for _, rel := range d.Related() {
		sb.WriteString("\n")
		sb.WriteString(indent)
		sb.WriteString("  note: ")
		sb.WriteString(rel.Message)
		if !rel.Span.IsZero() {
			sb.WriteString("\n")
			sb.WriteString(indent)
			sb.WriteString("    --> ")
			sb.WriteString(r.formatSpanLocation(rel.Span))
		}
	}

	for _, sub := range d.SubDiagnostics() {
		sb.WriteString("\n")
		r.formatDiagnosticToBuilder(sb, sub, depth+1)
	}
}

func (r *Renderer) writeLocation(sb *strings.Builder, d Diagnostic) {
	if d.HasSpan() {
		sb.WriteString(r.formatSpanLocation(d.Span()))
		return
	}
	sb.WriteString("<unknown>")
}

func (r *Renderer) formatSpanLocation(span location.Span) string {
	source := span.Source.String()

	// Uses string manipulation rather than filepath.Rel because
	// SourceID.String() always returns forward-slash paths (CanonicalPath
	// invariant); filepath.Rel would emit backslashes on Windows.
	if root := strings.TrimSuffix(r.moduleRoot, "/"); root != "" {
		if source == root {
			source = "."
		} else if rel, ok := strings.CutPrefix(source, root+"/"); ok {
			source = rel
		}
	}

	if span.Start.IsKnown() {
		return fmt.Sprintf("%s:%d:%d", source, span.Start.Line, span.Start.Column)
	}
	return source
}

func (r *Renderer) writeSeverity(sb *strings.Builder, sev Severity) {
	label := sev.String()

	if !r.colorize {
		sb.WriteString(label)
		return
	}

	switch sev {
	case Error:
		sb.WriteString("\033[1;31m")
		sb.WriteString(label)
		sb.WriteString("\033[0m")
	case Warning:
		sb.WriteString("\033[1;33m")
		sb.WriteString(label)
		sb.WriteString("\033[0m")
	case Info:
		sb.WriteString("\033[1;36m")
		sb.WriteString(label)
		sb.WriteString("\033[0m")
	case Hint:
		sb.WriteString("\033[1;32m")
		sb.WriteString(label)
		sb.WriteString("\033[0m")
	default:
		sb.WriteString(label)
	}
}

func (r *Renderer) writeExcerpt(sb *strings.Builder, d Diagnostic, indent string) {
	span := d.Span()
	if !span.Start.IsKnown() {
		return
	}

	content, ok := r.provider.Content(span)
	if !ok {
		return
	}

	line := r.extractLine(content, span.Start.Line)
	if line == "" {
		return
	}

	displayLine := line
	if r.maxCols > 0 && utf8.RuneCountInString(line) > r.maxCols {
		runes := []rune(line)
		displayLine = string(runes[:r.maxCols]) + r.truncationIndicator
	}

	lineNum := strconv.Itoa(span.Start.Line)
	padding := strings.Repeat(" ", len(lineNum))

	sb.WriteString("\n")
	sb.WriteString(indent)
	sb.WriteString("   ")
	sb.WriteString(padding)
	sb.WriteString("|\n")

	sb.WriteString(indent)
	sb.WriteString(lineNum)
	sb.WriteString(" | ")
	sb.WriteString(displayLine)
	sb.WriteString("\n")

	sb.WriteString(indent)
	sb.WriteString("   ")
	sb.WriteString(padding)
	sb.WriteString("| ")

	startCol := max(span.Start.Column, 1)

	lineRuneCount := utf8.RuneCountInString(line)
	displayRuneCount := utf8.RuneCountInString(displayLine)

	if startCol > displayRuneCount {
		return
	}

	sb.WriteString(strings.Repeat(" ", startCol-1))

	endCol := span.End.Column
	if span.IsPoint() || endCol <= startCol {
		endCol = startCol + 1
	}
	if endCol > lineRuneCount+1 {
		endCol = lineRuneCount + 1
	}
	if endCol > displayRuneCount+1 {
		endCol = displayRuneCount + 1
	}

	underlineLen := max(endCol-startCol, 1)
	sb.WriteString(strings.Repeat("^", underlineLen))
}

// extractLine extracts the nth line (1-based) from content.
func (r *Renderer) extractLine(content []byte, lineNum int) string {
	if lineNum < 1 {
		return ""
	}

	currentLine := 1
	start := 0

	for i := 0; i < len(content); i++ {
		if currentLine == lineNum {
			end := i
			for end < len(content) && content[end] != '\n' && content[end] != '\r' {
				end++
			}
			return string(content[i:end])
		}
		switch content[i] {
		case '\n':
			currentLine++
			start = i + 1
		case '\r':
			currentLine++
			if i+1 < len(content) && content[i+1] == '\n' {
				i++
			}
			start = i + 1
		}
	}

	if currentLine == lineNum && start < len(content) {
		return string(content[start:])
	}
	return ""
}
