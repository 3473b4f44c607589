// Package query's Engine is demand-driven: nothing executes until Fetch is
// called, and no background goroutines run on its behalf — callers
// (cmd/caldera, the LSP session) own the revision bumps that follow file
// changes.
package query
