package prompt

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"codesage/internal/rules"
)

// Placeholders recognised in the template.
const (
	PlaceholderFewShot  = "{{few_shot_examples}}"
	PlaceholderCode     = "{{code}}"
	PlaceholderLanguage = "{{language}}"
	PlaceholderContext  = "{{context}}"
)

// Budgets are maximum character (rune) counts.
type Budgets struct {
	Total    int `yaml:"max_chars"`
	Code     int `yaml:"max_code_chars"`
	Context  int `yaml:"max_context_chars"`
	Examples int `yaml:"max_examples_chars"`
}

func DefaultBudgets() Budgets {
	return Budgets{Total: 6000, Code: 3000, Context: 800, Examples: 1200}
}

// withDefaults replaces non-positive budgets with the defaults.
func (b Budgets) withDefaults() Budgets {
	d := DefaultBudgets()
	if b.Total <= 0 {
		b.Total = d.Total
	}
	if b.Code <= 0 {
		b.Code = d.Code
	}
	if b.Context <= 0 {
		b.Context = d.Context
	}
	if b.Examples <= 0 {
		b.Examples = d.Examples
	}
	return b
}

// Sections holds the per-section text after independent truncation.
type Sections struct {
	Template string
	FewShot  string
	Code     string
	Context  string
}

// Builder is safe for concurrent use as long as its Source is.
type Builder struct {
	src     Source
	budgets Budgets
	log     *zap.Logger
}

func NewBuilder(src Source, budgets Budgets, logger *zap.Logger) *Builder {
	if src == nil {
		src = NewLoader("", logger)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{src: src, budgets: budgets.withDefaults(), log: logger.Named("prompt")}
}

func (b *Builder) Budgets() Budgets { return b.budgets }

// Sections truncates each section to its own budget. An empty context
// becomes the no-context sentinel.
func (b *Builder) Sections(code, context string) Sections {
	if strings.TrimSpace(context) == "" {
		context = rules.NoContext
	}
	return Sections{
		Template: b.src.Template(),
		FewShot:  compact(b.src.FewShot(), b.budgets.Examples, "few-shot examples"),
		Code:     compact(code, b.budgets.Code, "code"),
		Context:  compact(context, b.budgets.Context, "context"),
	}
}

// Build substitutes the truncated sections into the template in a single
// pass, so placeholder text inside the code is left alone, then caps the
// result at the total budget.
func (b *Builder) Build(code, language, context string) string {
	s := b.Sections(code, context)
	r := strings.NewReplacer(
		PlaceholderFewShot, s.FewShot,
		PlaceholderCode, s.Code,
		PlaceholderLanguage, language,
		PlaceholderContext, s.Context,
	)
	out := r.Replace(s.Template)
	n := utf8.RuneCountInString(out)
	if n <= b.budgets.Total {
		b.log.Debug("built prompt", zap.Int("chars", n))
		return out
	}
	out = compact(out, b.budgets.Total, "prompt")
	b.log.Info("prompt truncated", zap.Int("from", n), zap.Int("to", utf8.RuneCountInString(out)))
	return out
}

func truncationMarker(label string) string {
	return "\n...\n[truncated " + label + " for brevity]"
}

// compact keeps text within max runes, replacing the tail with a marker.
// When the marker alone does not fit the text is hard-cut.
func compact(text string, max int, label string) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	marker := truncationMarker(label)
	keep := max - utf8.RuneCountInString(marker)
	if keep < 0 {
		return headRunes(text, max)
	}
	return headRunes(text, keep) + marker
}

func headRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
