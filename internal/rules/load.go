package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"codesage/internal/types"
)

// File is the on-disk shape of a rule overlay.
type File struct {
	Rules        []RuleSpec        `yaml:"rules"`
	SafePatterns []SafePatternSpec `yaml:"safe_patterns"`
	// Emphasis maps a language to the categories run for it.
	Emphasis map[string][]string `yaml:"emphasis"`
}

type RuleSpec struct {
	ID             string `yaml:"id"`
	Type           string `yaml:"type"`
	Category       string `yaml:"category"`
	Severity       string `yaml:"severity"`
	Pattern        string `yaml:"pattern"`
	Location       string `yaml:"location"`
	Description    string `yaml:"description"`
	Recommendation string `yaml:"recommendation"`
	Explanation    string `yaml:"explanation"`
	Example        string `yaml:"example"`
	Fix            string `yaml:"fix"`
	Resource       string `yaml:"resource"`
}

type SafePatternSpec struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
	Context string `yaml:"context"`
}

// LoadFile builds a registry from the built-in vocabulary followed by the
// overlay at path. An empty path returns the built-in registry.
func LoadFile(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rules: failed to read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse is LoadFile for an in-memory overlay.
func Parse(data []byte) (*Registry, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("rules: failed to parse overlay: %w", err)
	}

	all := DefaultRules()
	for _, spec := range f.Rules {
		m, err := Regex(spec.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rules: rule %q: bad pattern: %w", spec.ID, err)
		}
		all = append(all, Rule{
			ID:             spec.ID,
			Type:           spec.Type,
			Category:       types.Category(spec.Category),
			Severity:       types.Severity(spec.Severity),
			Matcher:        m,
			Location:       spec.Location,
			Description:    spec.Description,
			Recommendation: spec.Recommendation,
			Explanation:    spec.Explanation,
			Example:        spec.Example,
			Fix:            spec.Fix,
			Resource:       spec.Resource,
		})
	}

	safe := DefaultSafePatterns()
	for _, spec := range f.SafePatterns {
		m, err := Regex(spec.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rules: safe pattern %q: bad pattern: %w", spec.Name, err)
		}
		safe = append(safe, SafePattern{Name: spec.Name, Matcher: m, Context: spec.Context})
	}

	var emphasis map[string][]types.Category
	if len(f.Emphasis) > 0 {
		emphasis = make(map[string][]types.Category, len(f.Emphasis))
		for lang, cats := range f.Emphasis {
			for _, c := range cats {
				emphasis[lang] = append(emphasis[lang], types.Category(c))
			}
		}
	}
	return NewRegistry(all, safe, emphasis)
}
