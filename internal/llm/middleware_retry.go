package llm

import (
	"context"
	"errors"
	"time"

	llmclient "codesage/internal/llm/client"
)

// maxRetryWait caps server-requested back-off so a huge Retry-After cannot
// stall a request indefinitely.
const maxRetryWait = 30 * time.Second

// Retry retries Generate up to maxAttempts with exponential backoff starting
// at baseDelay. Permanent errors and non-retryable upstream statuses are
// returned at once, and a Retry-After from the server replaces the backoff.
func Retry(maxAttempts int, baseDelay time.Duration) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 300 * time.Millisecond
	}
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		if maxAttempts == 1 {
			return next
		}
		return &retrying{passthrough: passthrough{next}, max: maxAttempts, base: baseDelay}
	}
}

type retrying struct {
	passthrough
	max  int
	base time.Duration
}

func (r *retrying) Generate(ctx context.Context, prompt string) (string, error) {
	var last error
	for i := 0; i < r.max; i++ {
		out, err := r.next.Generate(ctx, prompt)
		if err == nil {
			return out, nil
		}
		last = err
		if !retryable(err) || i == r.max-1 {
			break
		}
		wait := r.base * time.Duration(1<<i)
		var gerr *llmclient.GenerationError
		if errors.As(err, &gerr) {
			if d := gerr.Backoff(); d > 0 {
				wait = min(d, maxRetryWait)
			}
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return "", last
		case <-t.C:
		}
	}
	return "", last
}

func retryable(err error) bool {
	var pErr *llmclient.PermanentError
	if errors.As(err, &pErr) {
		return false
	}
	if errors.Is(err, llmclient.ErrMissingCredential) || errors.Is(err, context.Canceled) {
		return false
	}
	var gerr *llmclient.GenerationError
	if errors.As(err, &gerr) {
		return gerr.Retryable()
	}
	return true
}
