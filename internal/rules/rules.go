// Package rules holds the detection vocabulary: heuristic rules grouped by
// category and the safe-pattern matchers used to describe code context.
//
// A Registry is built once at startup and shared read-only by every request.
package rules

import (
	"fmt"
	"strings"

	"codesage/internal/types"
)

// Rule is a named predicate over source text plus the metadata template used
// to build the Issue it reports.
type Rule struct {
	ID             string
	Type           string
	Category       types.Category
	Severity       types.Severity
	Matcher        Matcher
	Location       string
	Description    string
	Recommendation string
	Explanation    string
	Example        string
	Fix            string
	Resource       string
}

// Issue renders the rule template for a match.
func (r Rule) Issue(m Match) types.Issue {
	loc := r.Location
	if m.Text != "" {
		loc = fmt.Sprintf("%s (line %d: %s)", r.Location, m.Line, m.Text)
	} else if m.Line > 0 {
		loc = fmt.Sprintf("%s (line %d)", r.Location, m.Line)
	}
	return types.Issue{
		Type:             r.Type,
		Severity:         r.Severity,
		Category:         r.Category,
		Location:         loc,
		Description:      r.Description,
		Recommendation:   r.Recommendation,
		Explanation:      r.Explanation,
		Example:          r.Example,
		BestPractice:     r.Fix,
		LearningResource: r.Resource,
		Source:           "heuristic",
		RuleID:           r.ID,
	}.Filled()
}

// SafePattern recognises an idiom that looks risky but is not, e.g. a
// prepared statement or externalised configuration.
type SafePattern struct {
	Name    string
	Matcher Matcher
	Context string
}

// Registry is the immutable rule and safe-pattern vocabulary.
type Registry struct {
	rules    []Rule
	safe     []SafePattern
	emphasis map[string][]types.Category
	order    []types.Category
}

// NewRegistry validates and freezes a vocabulary. Emphasis maps a lower-case
// language name to the categories run for it; languages without an entry run
// every category.
func NewRegistry(rules []Rule, safe []SafePattern, emphasis map[string][]types.Category) (*Registry, error) {
	seen := make(map[string]bool, len(rules))
	reg := &Registry{
		rules:    make([]Rule, 0, len(rules)),
		safe:     make([]SafePattern, 0, len(safe)),
		emphasis: make(map[string][]types.Category, len(emphasis)),
	}
	known := make(map[types.Category]bool)
	for _, c := range types.Categories {
		known[c] = true
		reg.order = append(reg.order, c)
	}
	for _, r := range rules {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			return nil, fmt.Errorf("rules: rule with type %q has no id", r.Type)
		}
		if seen[id] {
			return nil, fmt.Errorf("rules: duplicate rule id %q", id)
		}
		if r.Matcher == nil {
			return nil, fmt.Errorf("rules: rule %q has no matcher", id)
		}
		seen[id] = true
		r.ID = id
		r.Category = types.NormalizeCategory(string(r.Category))
		r.Severity = types.NormalizeSeverity(string(r.Severity))
		if !known[r.Category] {
			known[r.Category] = true
			reg.order = append(reg.order, r.Category)
		}
		reg.rules = append(reg.rules, r)
	}
	for _, sp := range safe {
		if sp.Matcher == nil {
			return nil, fmt.Errorf("rules: safe pattern %q has no matcher", sp.Name)
		}
		if strings.TrimSpace(sp.Context) == "" {
			return nil, fmt.Errorf("rules: safe pattern %q has no context text", sp.Name)
		}
		reg.safe = append(reg.safe, sp)
	}
	for lang, cats := range emphasis {
		key := strings.ToLower(strings.TrimSpace(lang))
		if key == "" {
			continue
		}
		out := make([]types.Category, 0, len(cats))
		for _, c := range cats {
			out = append(out, types.NormalizeCategory(string(c)))
		}
		reg.emphasis[key] = out
	}
	return reg, nil
}

// Rules returns every rule in registration order.
func (r *Registry) Rules() []Rule {
	return append([]Rule(nil), r.rules...)
}

// ByCategory returns the rules of one category in registration order.
func (r *Registry) ByCategory(c types.Category) []Rule {
	var out []Rule
	for _, rule := range r.rules {
		if rule.Category == c {
			out = append(out, rule)
		}
	}
	return out
}

func (r *Registry) SafePatterns() []SafePattern {
	return append([]SafePattern(nil), r.safe...)
}

// Categories returns the categories to run for a language, always in the
// fixed detection order.
func (r *Registry) Categories(language string) []types.Category {
	want, ok := r.emphasis[strings.ToLower(strings.TrimSpace(language))]
	if !ok {
		return append([]types.Category(nil), r.order...)
	}
	set := make(map[types.Category]bool, len(want))
	for _, c := range want {
		set[c] = true
	}
	out := make([]types.Category, 0, len(want))
	for _, c := range r.order {
		if set[c] {
			out = append(out, c)
		}
	}
	return out
}
