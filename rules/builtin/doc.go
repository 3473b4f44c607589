// Package builtin provides the small set of lint rules and the default
// [rules.SyntaxProvider] caldera ships without depending on an external
// Python parser. The real grammar is explicitly out of scope for this
// core (rules.SyntaxProvider is the seam a full Python parser would plug
// into); LineSyntax is a minimal line-oriented stand-in so `caldera check`
// produces real diagnostics out of the box instead of requiring every
// caller to wire a parser before the tool does anything.
package builtin
