package builtin

import (
	"github.com/caldera-dev/caldera/diag"
	"github.com/caldera-dev/caldera/location"
	"github.com/caldera-dev/caldera/rules"
	"github.com/caldera-dev/caldera/store"
)

// Register adds every built-in rule to reg, so a CLI driver or LSP session
// that has not wired a real Python-aware rule set still produces
// meaningful diagnostics. Registration order does not matter; Registry
// sorts by ID for dispatch.
func Register(reg *rules.Registry) error {
	for _, r := range []rules.Rule{
		TrailingWhitespaceRule{},
		MissingFinalNewlineRule{},
		MixedLineEndingsRule{},
		LineTooLongRule{MaxLength: 88},
	} {
		if err := reg.Register(r); err != nil {
			return err
		}
	}
	return nil
}

func lineSpan(content []byte, source location.SourceID, line, startCol, endCol int) (location.Span, bool) {
	idx := location.NewLineIndex(content)
	startOffset, ok := idx.ToOffset(line, startCol, location.UTF8)
	if !ok {
		return location.Span{}, false
	}
	endOffset, ok := idx.ToOffset(line, endCol, location.UTF8)
	if !ok {
		return location.Span{}, false
	}
	return location.Span{
		Source: source,
		Start:  location.NewPosition(line, startCol, startOffset),
		End:    location.NewPosition(line, endCol, endOffset),
	}, true
}

// TrailingWhitespaceRule flags lines ending in spaces or tabs.
type TrailingWhitespaceRule struct{}

func (TrailingWhitespaceRule) ID() diag.ID              { return diag.Lint("trailing-whitespace") }
func (TrailingWhitespaceRule) Category() rules.Category { return rules.CategoryStyle }

func (r TrailingWhitespaceRule) Run(ctx *rules.Context, file store.File) error {
	syn, err := ctx.Syntax(file)
	if err != nil {
		return err
	}
	ls, ok := syn.(LineSyntax)
	if !ok {
		return nil
	}
	content, err := ctx.Read(file)
	if err != nil {
		return err
	}
	source, _ := sourceOf(ctx, file)

	for i, flagged := range ls.HasTrailingWS {
		if !flagged {
			continue
		}
		line := i + 1
		span, ok := lineSpan(content, source, line, len(rstrip(ls.Lines[i]))+1, len(ls.Lines[i])+1)
		b := diag.NewDiagnostic(diag.Warning, r.ID(), "trailing whitespace").In(file)
		if ok {
			b = b.WithSpan(span)
		}
		ctx.Report(b.Build())
	}
	return nil
}

func rstrip(s string) string {
	end := len(s)
	for end > 0 && (s[end-1] == ' ' || s[end-1] == '\t') {
		end--
	}
	return s[:end]
}

// MissingFinalNewlineRule flags non-empty files that do not end in a
// newline.
type MissingFinalNewlineRule struct{}

func (MissingFinalNewlineRule) ID() diag.ID              { return diag.Lint("missing-final-newline") }
func (MissingFinalNewlineRule) Category() rules.Category { return rules.CategoryStyle }

func (r MissingFinalNewlineRule) Run(ctx *rules.Context, file store.File) error {
	syn, err := ctx.Syntax(file)
	if err != nil {
		return err
	}
	ls, ok := syn.(LineSyntax)
	if !ok || ls.FinalNewline || len(ls.Lines) == 0 {
		return nil
	}
	if len(ls.Lines) == 1 && ls.Lines[0] == "" {
		return nil
	}

	content, err := ctx.Read(file)
	if err != nil {
		return err
	}
	source, _ := sourceOf(ctx, file)
	lastLine := len(ls.Lines)
	col := len(ls.Lines[lastLine-1]) + 1
	span, ok := lineSpan(content, source, lastLine, col, col)

	b := diag.NewDiagnostic(diag.Warning, r.ID(), "file does not end in a newline").In(file)
	if ok {
		b = b.WithSpan(span)
	}
	ctx.Report(b.Build())
	return nil
}

// MixedLineEndingsRule flags files containing CRLF line endings.
type MixedLineEndingsRule struct{}

func (MixedLineEndingsRule) ID() diag.ID              { return diag.Lint("mixed-line-endings") }
func (MixedLineEndingsRule) Category() rules.Category { return rules.CategoryStyle }

func (r MixedLineEndingsRule) Run(ctx *rules.Context, file store.File) error {
	syn, err := ctx.Syntax(file)
	if err != nil {
		return err
	}
	ls, ok := syn.(LineSyntax)
	if !ok || !ls.HadCRLF {
		return nil
	}
	ctx.Report(diag.NewDiagnostic(diag.Warning, r.ID(), "file uses CRLF line endings").In(file).Build())
	return nil
}

// LineTooLongRule flags lines longer than MaxLength characters. A
// MaxLength of 0 uses 88, matching common Python formatter defaults.
type LineTooLongRule struct {
	MaxLength int
}

func (LineTooLongRule) ID() diag.ID              { return diag.Lint("line-too-long") }
func (LineTooLongRule) Category() rules.Category { return rules.CategoryStyle }

func (r LineTooLongRule) maxLength() int {
	if r.MaxLength > 0 {
		return r.MaxLength
	}
	return 88
}

func (r LineTooLongRule) Run(ctx *rules.Context, file store.File) error {
	syn, err := ctx.Syntax(file)
	if err != nil {
		return err
	}
	ls, ok := syn.(LineSyntax)
	if !ok {
		return nil
	}
	content, err := ctx.Read(file)
	if err != nil {
		return err
	}
	source, _ := sourceOf(ctx, file)
	max := r.maxLength()

	for i, text := range ls.Lines {
		if len([]rune(text)) <= max {
			continue
		}
		line := i + 1
		span, ok := lineSpan(content, source, line, max+1, len(text)+1)
		b := diag.NewDiagnostic(diag.Warning, r.ID(), "line too long").In(file)
		if ok {
			b = b.WithSpan(span)
		}
		ctx.Report(b.Build())
	}
	return nil
}

// sourceOf resolves file's location.SourceID for span construction. It is
// best-effort: rules degrade to spanless diagnostics rather than failing
// outright when a file's source identity is unavailable (e.g. in tests
// that intern directly into a store without registering vfs metadata).
func sourceOf(ctx *rules.Context, file store.File) (location.SourceID, bool) {
	return ctx.SourcePath(file)
}
