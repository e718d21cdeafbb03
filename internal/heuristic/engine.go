// Package heuristic runs the rule vocabulary over a code sample and turns
// matches into issues. Matching is plain text; no parser is involved.
package heuristic

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"codesage/internal/rules"
	"codesage/internal/types"
)

const noVulnerabilities = "No obvious vulnerabilities detected by static analysis"

// Engine is stateless and safe for concurrent use.
type Engine struct {
	reg *rules.Registry
	log *zap.Logger
}

func New(reg *rules.Registry, logger *zap.Logger) *Engine {
	if reg == nil {
		reg = rules.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{reg: reg, log: logger.Named("heuristic")}
}

// Run emits at most one issue per rule, grouped by category in detection
// order. The language only selects which categories run.
func (e *Engine) Run(code, language string) []types.Issue {
	out := []types.Issue{}
	for _, cat := range e.reg.Categories(language) {
		for _, r := range e.reg.ByCategory(cat) {
			if m, ok := e.find(r, code); ok {
				out = append(out, r.Issue(m))
			}
		}
	}
	e.log.Debug("heuristics done", zap.String("language", language), zap.Int("issues", len(out)))
	return out
}

func (e *Engine) find(r rules.Rule, code string) (m rules.Match, ok bool) {
	defer func() {
		if p := recover(); p != nil {
			e.log.Warn("rule panicked", zap.String("rule", r.ID), zap.Any("panic", p))
			m, ok = rules.Match{}, false
		}
	}()
	return r.Matcher.Find(code)
}

// VulnerabilitySummary is a one-line-per-finding digest of the Security
// category, suitable for a prompt preamble or CLI output.
func (e *Engine) VulnerabilitySummary(code string) string {
	var b strings.Builder
	for _, r := range e.reg.ByCategory(types.CategorySecurity) {
		m, ok := e.find(r, code)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "- %s [%s] at line %d\n", r.Type, r.Severity, m.Line)
	}
	if b.Len() == 0 {
		return noVulnerabilities
	}
	return strings.TrimRight(b.String(), "\n")
}
