package llmclient

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrMissingCredential is returned when a provider needs an API key and none
// was configured.
var ErrMissingCredential = errors.New("llm: missing api credential")

// PermanentError indicates an error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// GenerationError is a non-success reply from the upstream service.
type GenerationError struct {
	Provider   string
	StatusCode int
	Status     string
	Body       string
	// RetryAfter is the server's requested back-off, zero when absent.
	RetryAfter time.Duration
	// RateLimit holds the x-ratelimit-* signals that came with the reply.
	RateLimit RateLimitHeaders
}

func (e *GenerationError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %s", e.Provider, status)
	}
	return fmt.Sprintf("%s: unexpected status %s: %s", e.Provider, status, e.Body)
}

// Retryable reports whether the same request may succeed later: rate limits
// and server-side failures are, other client errors are not.
func (e *GenerationError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500 || e.StatusCode == 0
}

// Backoff is how long to wait before retrying: Retry-After when present,
// otherwise the reset time of an exhausted request or token window.
func (e *GenerationError) Backoff() time.Duration {
	if e.RetryAfter > 0 {
		return e.RetryAfter
	}
	return e.RateLimit.NextWait()
}

// TimeoutError reports that the upstream call exceeded its deadline.
type TimeoutError struct {
	After time.Duration
	Err   error
}

func (e *TimeoutError) Error() string {
	if e.After > 0 {
		return fmt.Sprintf("llm: generation timed out after %s", e.After)
	}
	return "llm: generation timed out"
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// ParseError reports an upstream payload that could not be decoded into a reply.
type ParseError struct {
	Provider string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v", e.Provider, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var errEmptyReply = errors.New("empty reply")
