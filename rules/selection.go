package rules

import (
	"sort"
	"strings"

	"github.com/caldera-dev/caldera/diag"
)

// RuleSelection is the "which rules run" settings input, itself one of a
// query's inputs: a change to the selection invalidates Check's
// memoized result exactly like a content change does, via Fingerprint
// being folded into Check's query key.
//
// The zero value selects every registered rule (nothing explicitly
// disabled), matching the CLI driver's default of "all rules on".
type RuleSelection struct {
	// explicit maps a rule ID string to whether it was explicitly enabled
	// (true) or disabled (false). A rule absent from this map defers to
	// categoryDisabled, then to the default of enabled.
	explicit map[string]bool

	// categoryDisabled lists categories disabled as a whole (e.g.
	// `--select !style`); an explicit per-rule entry overrides this.
	categoryDisabled map[Category]bool
}

// DefaultSelection returns a selection with every rule enabled.
func DefaultSelection() RuleSelection {
	return RuleSelection{}
}

// WithRule returns a copy of s with id's enablement set explicitly,
// overriding any category-level decision.
func (s RuleSelection) WithRule(id diag.ID, enabled bool) RuleSelection {
	out := s.clone()
	if out.explicit == nil {
		out.explicit = make(map[string]bool)
	}
	out.explicit[id.String()] = enabled
	return out
}

// WithCategory returns a copy of s with every rule in category enabled or
// disabled, unless a more specific WithRule call later overrides it.
func (s RuleSelection) WithCategory(category Category, enabled bool) RuleSelection {
	out := s.clone()
	if out.categoryDisabled == nil {
		out.categoryDisabled = make(map[Category]bool)
	}
	out.categoryDisabled[category] = !enabled
	return out
}

func (s RuleSelection) clone() RuleSelection {
	out := RuleSelection{}
	if len(s.explicit) > 0 {
		out.explicit = make(map[string]bool, len(s.explicit))
		for k, v := range s.explicit {
			out.explicit[k] = v
		}
	}
	if len(s.categoryDisabled) > 0 {
		out.categoryDisabled = make(map[Category]bool, len(s.categoryDisabled))
		for k, v := range s.categoryDisabled {
			out.categoryDisabled[k] = v
		}
	}
	return out
}

// Allows reports whether rule is enabled under this selection.
func (s RuleSelection) Allows(rule Rule) bool {
	if enabled, ok := s.explicit[rule.ID().String()]; ok {
		return enabled
	}
	if s.categoryDisabled[rule.Category()] {
		return false
	}
	return true
}

// Fingerprint returns a stable string identifying this selection's
// decisions, used as part of Check's query key so a selection change
// forces re-evaluation the same way a file-content change does.
func (s RuleSelection) Fingerprint() string {
	var sb strings.Builder

	ids := make([]string, 0, len(s.explicit))
	for id := range s.explicit {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		sb.WriteString(id)
		if s.explicit[id] {
			sb.WriteString("=1;")
		} else {
			sb.WriteString("=0;")
		}
	}

	cats := make([]Category, 0, len(s.categoryDisabled))
	for c := range s.categoryDisabled {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	for _, c := range cats {
		sb.WriteString(c.String())
		if s.categoryDisabled[c] {
			sb.WriteString("!;")
		} else {
			sb.WriteString("~;")
		}
	}

	return sb.String()
}
