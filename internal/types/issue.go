package types

import "strings"

// NotSpecified fills any field that could not be determined.
const NotSpecified = "Not specified"

// Severity is the urgency attached to an Issue.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityNone     Severity = "NONE"
)

// Rank orders severities from most to least urgent. Unknown values rank last.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Known reports whether s is one of the five canonical levels.
func (s Severity) Known() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityNone:
		return true
	}
	return false
}

// NormalizeSeverity maps free-form severity text onto the canonical levels.
// Unrecognised text is returned trimmed; empty text becomes NotSpecified.
func NormalizeSeverity(raw string) Severity {
	s := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), "*_[]`"))
	if s == "" {
		return NotSpecified
	}
	switch strings.ToUpper(s) {
	case "CRITICAL", "BLOCKER":
		return SeverityCritical
	case "HIGH", "MAJOR":
		return SeverityHigh
	case "MEDIUM", "MODERATE":
		return SeverityMedium
	case "LOW", "MINOR", "INFO":
		return SeverityLow
	case "NONE":
		return SeverityNone
	}
	return Severity(s)
}

// Category groups issues by concern area. The set is open.
type Category string

const (
	CategorySecurity     Category = "Security"
	CategoryPerformance  Category = "Performance"
	CategoryCodeQuality  Category = "CodeQuality"
	CategoryArchitecture Category = "Architecture"
	CategoryCleanCode    Category = "CleanCode"
)

// Categories lists the built-in categories in detection order.
var Categories = []Category{
	CategorySecurity,
	CategoryPerformance,
	CategoryCodeQuality,
	CategoryArchitecture,
	CategoryCleanCode,
}

// NormalizeCategory folds casing and spacing ("code quality", "clean-code")
// onto the built-in names. Other text passes through trimmed.
func NormalizeCategory(raw string) Category {
	s := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), "*_[]`"))
	if s == "" {
		return NotSpecified
	}
	key := strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.ToLower(s))
	for _, c := range Categories {
		if strings.ToLower(string(c)) == key {
			return c
		}
	}
	return Category(s)
}

// Issue is one detected or extracted concern about a code sample.
type Issue struct {
	Type             string   `json:"type"`
	Severity         Severity `json:"severity"`
	Category         Category `json:"category"`
	Location         string   `json:"location"`
	Description      string   `json:"description"`
	Recommendation   string   `json:"recommendation"`
	Explanation      string   `json:"explanation,omitempty"`
	Example          string   `json:"example,omitempty"`
	BestPractice     string   `json:"bestPractice,omitempty"`
	LearningResource string   `json:"learningResource,omitempty"`
	// Source is "heuristic" or "narrative".
	Source string `json:"source,omitempty"`
	RuleID string `json:"ruleId,omitempty"`
}

// Filled returns a copy with every mandatory field set.
func (i Issue) Filled() Issue {
	if strings.TrimSpace(string(i.Severity)) == "" {
		i.Severity = NotSpecified
	}
	if strings.TrimSpace(string(i.Category)) == "" {
		i.Category = NotSpecified
	}
	for _, f := range []*string{&i.Type, &i.Location, &i.Description, &i.Recommendation} {
		if strings.TrimSpace(*f) == "" {
			*f = NotSpecified
		}
	}
	return i
}
