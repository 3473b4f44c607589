package main

import "errors"

// errDiagnosticsFound is returned by a subcommand's RunE when analysis
// completed successfully but produced at least one error-severity
// diagnostic. main distinguishes this from an invocation error so it can
// exit 1 rather than 2, per the CLI's exit code contract.
var errDiagnosticsFound = errors.New("caldera: diagnostics found")

func errIsDiagnosticsFound(err error) bool {
	return errors.Is(err, errDiagnosticsFound)
}
