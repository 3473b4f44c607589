package diag

// Severity represents the severity level of a diagnostic.
//
// Severity is an ordered enumeration where lower numeric values are more
// severe. Use the comparison methods rather than raw numeric comparisons
// for clarity.
type Severity uint8

const (
	// Error indicates a condition that should be treated as a failure; it
	// affects the process's exit code.
	Error Severity = iota

	// Warning indicates a condition worth flagging but not a failure.
	Warning

	// Info provides informational diagnostics that require no correction.
	Info

	// Hint provides suggestions for improvement, typically surfaced only in
	// editor integrations.
	Hint
)

// String returns the canonical lowercase label for the severity: "error",
// "warning", "info", or "hint". These values are part of the JSON and LSP
// wire format stability guarantee.
func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	case Hint:
		return "hint"
	default:
		return "unknown"
	}
}

// IsFailure reports whether the severity should affect the process's exit
// status. Only Error does.
func (s Severity) IsFailure() bool {
	return s == Error
}

// IsMoreSevereThan reports whether s is more severe than other. Since
// lower numeric values are more severe, this returns s < other.
func (s Severity) IsMoreSevereThan(other Severity) bool {
	return s < other
}

// IsAtLeastAsSevereAs reports whether s is at least as severe as other.
func (s Severity) IsAtLeastAsSevereAs(other Severity) bool {
	return s <= other
}
