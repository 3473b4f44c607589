// Package rules implements the rule runner: a tagged registry of
// black-box lint rules, a memoized per-file Check query that dispatches
// every selected rule and collects its diagnostics, and a batch ApplyFixes
// pass that applies the resulting autofixes back onto store content.
//
// A Rule never sees a concrete parser. It receives a [*Context] exposing
// the file's bytes, its parsed syntax (fetched through an injected
// [SyntaxProvider], itself a query dependency so re-parsing is cached the
// same way any other query result is), and the active [RuleSelection].
// This keeps the Python grammar an external collaborator: rules are
// registered into a map-keyed Registry rather than subclassing a common
// base type.
package rules
