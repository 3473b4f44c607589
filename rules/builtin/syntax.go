package builtin

import (
	"bytes"

	"github.com/caldera-dev/caldera/rules"
)

// LineSyntax is the parsed representation LineSyntaxProvider produces: the
// file's content split into lines, with trailing line terminators
// stripped, plus whether the file ends in a final newline.
type LineSyntax struct {
	Lines         []string
	FinalNewline  bool
	HadCRLF       bool
	HasTrailingWS []bool
}

// LineSyntaxProvider is the default rules.SyntaxProvider: a line splitter
// with no understanding of Python syntax. It exists so the built-in rules
// below (and `caldera check` generally) have something to run before a
// real Python grammar is wired in as an external collaborator.
type LineSyntaxProvider struct{}

// Parse implements rules.SyntaxProvider.
func (LineSyntaxProvider) Parse(content []byte) (rules.Syntax, error) {
	hadCRLF := bytes.Contains(content, []byte("\r\n"))
	normalized := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	finalNewline := len(normalized) == 0 || normalized[len(normalized)-1] == '\n'

	raw := bytes.Split(bytes.TrimSuffix(normalized, []byte("\n")), []byte("\n"))
	lines := make([]string, len(raw))
	trailingWS := make([]bool, len(raw))
	for i, line := range raw {
		lines[i] = string(line)
		trimmed := bytes.TrimRight(line, " \t")
		trailingWS[i] = len(trimmed) != len(line)
	}

	return LineSyntax{
		Lines:         lines,
		FinalNewline:  finalNewline,
		HadCRLF:       hadCRLF,
		HasTrailingWS: trailingWS,
	}, nil
}
