package types

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusError   Status = "ERROR"
)

// AnalysisResult is the response value of one analysis request. It is never
// mutated after the pipeline returns it.
type AnalysisResult struct {
	Summary          string        `json:"summary"`
	DetailedAnalysis string        `json:"detailedAnalysis"`
	Issues           []Issue       `json:"issues"`
	Status           Status        `json:"status"`
	Error            string        `json:"error,omitempty"`
	FileName         string        `json:"fileName"`
	Language         string        `json:"language"`
	Context          []string      `json:"context,omitempty"`
	Cached           bool          `json:"cached"`
	StartedAt        time.Time     `json:"startedAt"`
	CompletedAt      time.Time     `json:"completedAt"`
	Duration         time.Duration `json:"durationNs"`
}

// Clone copies the issue and context slices so callers cannot alias a cached value.
func (r AnalysisResult) Clone() AnalysisResult {
	r.Issues = append([]Issue{}, r.Issues...)
	if r.Context != nil {
		r.Context = append([]string(nil), r.Context...)
	}
	return r
}

const (
	summaryCritical = "CRITICAL priority: %d issue(s) found, critical problems need immediate attention"
	summaryHigh     = "HIGH priority: %d issue(s) found, high-severity problems should be fixed soon"
	summaryMedium   = "MEDIUM priority: %d issue(s) found, worth addressing in the next iteration"
	summaryLow      = "LOW priority: %d issue(s) found, minor improvements suggested"
	summaryNone     = "INFO: %d informational issue(s) found, no action required"
	summaryUnranked = "UNSPECIFIED priority: %d issue(s) found without a recognised severity, review them manually"
	summaryPass     = "PASS: no issues detected"
)

// Summarize derives the overall message from the highest severity present.
// The message is chosen by rank alone; the count is informational. The pass
// message is reserved for an empty list.
func Summarize(issues []Issue) string {
	n := len(issues)
	if n == 0 {
		return summaryPass
	}
	best, unranked := 0, 0
	for _, is := range issues {
		sev := NormalizeSeverity(string(is.Severity))
		if !sev.Known() {
			unranked++
		}
		if r := sev.Rank(); r > best {
			best = r
		}
	}
	switch best {
	case 4:
		return fmt.Sprintf(summaryCritical, n)
	case 3:
		return fmt.Sprintf(summaryHigh, n)
	case 2:
		return fmt.Sprintf(summaryMedium, n)
	case 1:
		return fmt.Sprintf(summaryLow, n)
	}
	if unranked > 0 {
		return fmt.Sprintf(summaryUnranked, unranked)
	}
	return fmt.Sprintf(summaryNone, n)
}
