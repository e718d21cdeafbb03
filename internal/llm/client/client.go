package llmclient

import "context"

// LLMClient is a text-generation backend. Implementations only make the call;
// rate limiting, retries, timeouts and logging are layered on as middleware.
type LLMClient interface {
	Name() string
	Close() error
	CountTokens(text string) int
	// Generate sends prompt and returns the reply text. Failures are reported
	// as *GenerationError, *TimeoutError or *ParseError where the cause is known.
	Generate(ctx context.Context, prompt string) (string, error)
}
