package rules

import (
	"context"

	"github.com/caldera-dev/caldera/diag"
	"github.com/caldera-dev/caldera/location"
	"github.com/caldera-dev/caldera/query"
	"github.com/caldera-dev/caldera/store"
)

// Syntax is the opaque parsed representation of a file's source. The
// Python grammar itself is out of scope here: rules.Context never
// constructs or inspects one directly, only threads it from a
// SyntaxProvider to a Rule.
type Syntax any

// SyntaxProvider parses a file's bytes into a Syntax value. The CLI driver
// and the LSP server both wire builtin.LineSyntaxProvider, a line splitter
// with no Python grammar; Checker.Check treats the provider as a black box
// and memoizes its result per file through the query engine, exactly like
// any other dependency.
type SyntaxProvider interface {
	Parse(content []byte) (Syntax, error)
}

const queryIDSyntax = "rules.syntax"

func syntaxKey(file store.File) query.Key {
	return query.NewKey(queryIDSyntax, file.String())
}

// Context is passed to every Rule's Run method. It brokers file reads,
// parsed-syntax lookups, and diagnostic reporting, recording each as a
// query dependency so Check's memoized result is invalidated precisely
// when something the rule actually consulted changes.
type Context struct {
	qctx      *query.Context
	store     *store.Store
	collector *diag.Collector
	syntax    SyntaxProvider
	selection RuleSelection
}

// Go returns the underlying context.Context for cancellation-aware calls.
func (c *Context) Go() context.Context {
	return c.qctx.Go()
}

// Selection returns the active rule selection, for rules whose behavior
// depends on sibling rules being enabled (rare, but permitted).
func (c *Context) Selection() RuleSelection {
	return c.selection
}

// Read returns file's current bytes, recording the access as a Check
// dependency.
func (c *Context) Read(file store.File) ([]byte, error) {
	return c.store.Read(c.qctx.Go(), file)
}

// Syntax returns file's parsed syntax tree, fetching and memoizing it via
// the query engine if this is the first request for file at the current
// revision. Concurrent rules analyzing the same file within one Check call
// coalesce onto a single parse.
func (c *Context) Syntax(file store.File) (Syntax, error) {
	return query.FetchDep(c.qctx, syntaxKey(file), func(qctx *query.Context) (Syntax, error) {
		content, err := c.store.Read(qctx.Go(), file)
		if err != nil {
			return nil, err
		}
		return c.syntax.Parse(content)
	})
}

// SourcePath returns file's interned location.SourceID, for rules that
// need to build a location.Span by hand (e.g. from a raw byte offset
// computed outside the Syntax tree). Returns false if file was never
// interned with a resolvable path.
func (c *Context) SourcePath(file store.File) (location.SourceID, bool) {
	return c.store.Path(file)
}

// Report collects a finding. Diagnostics should be built via
// diag.NewDiagnostic and scoped to file (In(file)) unless the finding is
// genuinely about a different location (e.g. the far end of an import
// cycle).
func (c *Context) Report(d diag.Diagnostic) {
	c.collector.Collect(d)
}

// FetchDep runs a nested query from within a rule, for rules that share
// expensive derived state (a symbol table, a control-flow graph) across
// multiple files or multiple rules. It is a thin pass-through to
// query.FetchDep so rules never need to import the query package directly.
func FetchDep[T any](c *Context, key query.Key, compute func(*query.Context) (T, error)) (T, error) {
	return query.FetchDep[T](c.qctx, key, compute)
}
