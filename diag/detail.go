package diag

// Detail provides key-value context for a Diagnostic.
//
// Details are used to add structured information that can be
// programmatically inspected by tools (editor plugins, CI annotations)
// without parsing the human-readable message. Use the standard detail key
// constants to avoid stringly-typed drift; custom keys are permitted for
// rule-specific diagnostics using lower_snake_case.
type Detail struct {
	Key   string
	Value string
}

// Standard detail keys for consistent diagnostic metadata.
const (
	// DetailKeyExpected is the expected value or type.
	DetailKeyExpected = "expected"

	// DetailKeyGot is the actual value or type received.
	DetailKeyGot = "got"

	// DetailKeyName is the identifier name involved (symbol, import, rule).
	DetailKeyName = "name"

	// DetailKeyReason is the failure reason discriminant, for diagnostics
	// with more than one possible cause under the same ID.
	DetailKeyReason = "reason"

	// DetailKeyDetail is a free-form elaboration (parse error text, grammar
	// violation description).
	DetailKeyDetail = "detail"

	// DetailKeyContext is contextual information about where a condition
	// was detected (e.g. "module scope", "class body").
	DetailKeyContext = "context"

	// DetailKeyImportPath is the dotted or relative import path involved in
	// an import-resolution diagnostic.
	DetailKeyImportPath = "path"

	// DetailKeyAlias is an import alias ("import x as y").
	DetailKeyAlias = "alias"

	// DetailKeyCycle is the cycle participants, as a JSON array of module
	// names, for import-cycle diagnostics.
	DetailKeyCycle = "cycle"

	// DetailKeyRuleName is the name of the rule that produced the
	// diagnostic, duplicating [ID.Name] in a form safe to serialize even
	// when rendering only Details (e.g. compact log lines).
	DetailKeyRuleName = "rule"

	// DetailKeyCount is a generic occurrence count, for limit or
	// duplicate-detection diagnostics.
	DetailKeyCount = "count"
)

// ExpectedGot creates a pair of details for a type or value mismatch.
func ExpectedGot(expected, got string) []Detail {
	return []Detail{
		{Key: DetailKeyExpected, Value: expected},
		{Key: DetailKeyGot, Value: got},
	}
}

// ImportAlias creates detail entries for an aliased import diagnostic.
func ImportAlias(path, alias string) []Detail {
	return []Detail{
		{Key: DetailKeyImportPath, Value: path},
		{Key: DetailKeyAlias, Value: alias},
	}
}
