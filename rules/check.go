package rules

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/caldera-dev/caldera/diag"
	"github.com/caldera-dev/caldera/internal/trace"
	"github.com/caldera-dev/caldera/query"
	"github.com/caldera-dev/caldera/store"
)

const queryIDCheck = "rules.check"

func checkKey(file store.File, selection RuleSelection) query.Key {
	return query.NewKey(queryIDCheck, file.String()+"\x00"+selection.Fingerprint())
}

// Checker runs every selected rule in a Registry against a store.File,
// caching results in a query.Engine. Its fields are the wiring a CLI driver
// or LSP session assembles once and reuses for every Check call.
type Checker struct {
	Engine   *query.Engine
	Registry *Registry
	Syntax   SyntaxProvider
	Store    *store.Store
	Logger   *slog.Logger
}

// Check runs (or replays the memoized result of) every rule selection
// allows against file, returning the diagnostics produced. The result is
// keyed by (file, selection.Fingerprint()): re-running Check for the same
// file under the same selection, with no intervening content or selection
// change, replays the cached diagnostics without re-invoking a single rule.
func (c *Checker) Check(ctx context.Context, selection RuleSelection, file store.File) ([]diag.Diagnostic, error) {
	key := checkKey(file, selection)
	return query.Fetch[[]diag.Diagnostic](ctx, c.Engine, key, func(qctx *query.Context) ([]diag.Diagnostic, error) {
		op := trace.Begin(qctx.Go(), c.Logger, "caldera.rules.check",
			slog.String("file", file.String()))

		collector := diag.NewCollectorUnlimited()
		rctx := &Context{qctx: qctx, store: c.Store, collector: collector, syntax: c.Syntax, selection: selection}

		for _, rule := range c.Registry.Rules() {
			if !selection.Allows(rule) {
				continue
			}
			if err := rule.Run(rctx, file); err != nil {
				if query.IsCycle(err) {
					op.End(err)
					return nil, err
				}
				collector.Collect(diag.NewDiagnostic(diag.Error, diag.IDInternal,
					fmt.Sprintf("rule %s failed: %v", rule.ID(), err)).
					In(file).
					WithDetail(diag.DetailKeyRuleName, rule.ID().Name()).
					Build())
			}
		}

		op.End(nil, slog.Int("diagnostics", collector.Len()))
		return collector.Result().DiagnosticsSlice(), nil
	})
}
