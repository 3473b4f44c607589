package rules

import (
	"fmt"
	"sort"
	"sync"

	"github.com/caldera-dev/caldera/diag"
	"github.com/caldera-dev/caldera/store"
)

// Category classifies a Rule for selection and reporting purposes (e.g.
// `caldera check --select correctness`).
type Category uint8

const (
	// CategoryCorrectness flags code that is likely a bug (undefined
	// names, unreachable code, always-false comparisons).
	CategoryCorrectness Category = iota

	// CategoryStyle flags stylistic nits with no behavioral effect.
	CategoryStyle

	// CategoryImport flags import-graph problems (unused imports, import
	// cycles, shadowed imports).
	CategoryImport

	// CategoryPerformance flags constructs that are typically
	// unintentionally slow.
	CategoryPerformance
)

// String returns a human-readable label for the category.
func (c Category) String() string {
	switch c {
	case CategoryCorrectness:
		return "correctness"
	case CategoryStyle:
		return "style"
	case CategoryImport:
		return "import"
	case CategoryPerformance:
		return "performance"
	default:
		return "unknown"
	}
}

// Rule is the black-box interface every lint check implements. Run should
// report findings via ctx.Report rather than returning them directly, so a
// rule panic or early return never silently drops diagnostics already
// collected during the same invocation.
//
// Run's returned error is reserved for a rule's own internal failure (a
// parse dependency it required was unavailable, an invariant it could not
// verify); it is never itself surfaced as a diagnostic by the rule — Check
// wraps it into an [diag.IDInternal] diagnostic on the rule's behalf so one
// broken rule cannot abort analysis of the rest of the registry. The
// exception is a query cycle ([query.CycleError]), which Check returns as
// its own error.
type Rule interface {
	// ID returns the rule's stable identifier, used both as its diag.ID and
	// as its Registry key. Implementations should return the same value
	// (typically diag.Lint("rule-name")) on every call.
	ID() diag.ID

	// Category classifies the rule for selection and reporting.
	Category() Category

	// Run analyzes file, reporting any findings through ctx.
	Run(ctx *Context, file store.File) error
}

// Registry is a tagged, map-based collection of Rules, avoiding
// inheritance-based dispatch in favor of composition. A Registry is
// safe for concurrent use; Register is typically called once per rule at
// process startup, while Rules/Lookup/ByCategory are read during every
// Check.
type Registry struct {
	mu         sync.RWMutex
	byID       map[string]Rule
	byCategory map[Category][]Rule
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:       make(map[string]Rule),
		byCategory: make(map[Category][]Rule),
	}
}

// Register adds rule to the registry. It returns an error if a rule with
// the same ID is already registered — duplicate registration is treated as
// a programmer error in the CLI driver's wiring, not a condition to
// silently overwrite.
func (r *Registry) Register(rule Rule) error {
	id := rule.ID().String()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[id]; exists {
		return fmt.Errorf("rules: rule %q already registered", id)
	}
	r.byID[id] = rule
	r.byCategory[rule.Category()] = append(r.byCategory[rule.Category()], rule)
	return nil
}

// MustRegister is like Register but panics on error. Intended for
// package-level init() registration of built-in rules, where a duplicate
// ID is always a programming mistake worth failing loudly on.
func (r *Registry) MustRegister(rule Rule) {
	if err := r.Register(rule); err != nil {
		panic(err)
	}
}

// Rules returns every registered rule, sorted by ID string so Check's
// dispatch order — and therefore the order diagnostics from distinct rules
// interleave in — is deterministic across runs.
func (r *Registry) Rules() []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Rule, 0, len(r.byID))
	for _, rule := range r.byID {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID().String() < out[j].ID().String()
	})
	return out
}

// Lookup returns the rule registered under id, if any.
func (r *Registry) Lookup(id diag.ID) (Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.byID[id.String()]
	return rule, ok
}

// ByCategory returns every rule registered under category, in registration
// order.
func (r *Registry) ByCategory(category Category) []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Rule, len(r.byCategory[category]))
	copy(out, r.byCategory[category])
	return out
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
