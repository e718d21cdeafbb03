package pipeline

import (
	"errors"
	"fmt"
	"strings"

	llmclient "codesage/internal/llm/client"
)

// ValidationError is bad or missing input. It is the caller's fault and is
// never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

const maxDiagnosticBody = 500

// diagnostic renders err as the user-facing message of a failed result.
func diagnostic(err error) string {
	var (
		verr *ValidationError
		terr *llmclient.TimeoutError
		gerr *llmclient.GenerationError
		perr *llmclient.ParseError
	)
	switch {
	case errors.As(err, &verr):
		return "Invalid input: " + verr.Error()
	case errors.As(err, &terr):
		return "Generation service timed out: " + terr.Error()
	case errors.As(err, &gerr):
		msg := fmt.Sprintf("Generation service error (HTTP %d)", gerr.StatusCode)
		if body := truncate(gerr.Body, maxDiagnosticBody); body != "" {
			msg += ": " + body
		}
		if gerr.RetryAfter > 0 {
			msg += fmt.Sprintf(" (retry after %s)", gerr.RetryAfter)
		}
		return msg
	case errors.As(err, &perr):
		return "Malformed response from generation service: " + perr.Err.Error()
	case errors.Is(err, llmclient.ErrMissingCredential):
		return "Generation service credential is not configured"
	}
	return err.Error()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
