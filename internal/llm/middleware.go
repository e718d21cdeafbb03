// Package llm layers cross-cutting behaviour (rate limiting, retries,
// timeouts, logging) over a generation client.
package llm

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	llmclient "codesage/internal/llm/client"
)

// Middleware decorates an LLMClient.
type Middleware func(llmclient.LLMClient) llmclient.LLMClient

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner llmclient.LLMClient, mws ...Middleware) llmclient.LLMClient {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			out = mws[i](out)
		}
	}
	return out
}

// passthrough forwards everything but Generate to the wrapped client.
type passthrough struct {
	next llmclient.LLMClient
}

func (p passthrough) Name() string                { return p.next.Name() }
func (p passthrough) Close() error                { return p.next.Close() }
func (p passthrough) CountTokens(text string) int { return p.next.CountTokens(text) }

// -------- Rate limiting --------

// RateLimit limits request rate with a token bucket. If rps <= 0 the
// middleware is a no-op. Close on the wrapped client stops the refill goroutine.
func RateLimit(rps float64, burst int) Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		rl := newRPSLimiter(rps, burst)
		if rl == nil {
			return next
		}
		return &rateLimited{passthrough: passthrough{next}, rl: rl}
	}
}

type rateLimited struct {
	passthrough
	rl *rpsLimiter
}

func (c *rateLimited) Generate(ctx context.Context, prompt string) (string, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return "", err
	}
	return c.next.Generate(ctx, prompt)
}

func (c *rateLimited) Close() error {
	c.rl.Stop()
	return c.next.Close()
}

// -------- Timeout --------

// WithTimeout bounds each Generate call by d and reports expiry as
// *llmclient.TimeoutError. d <= 0 disables it.
func WithTimeout(d time.Duration) Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		if d <= 0 {
			return next
		}
		return &timed{passthrough: passthrough{next}, d: d}
	}
}

type timed struct {
	passthrough
	d time.Duration
}

func (t *timed) Generate(ctx context.Context, prompt string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	out, err := t.next.Generate(cctx, prompt)
	if err == nil {
		return out, nil
	}
	var te *llmclient.TimeoutError
	if errors.As(err, &te) {
		if te.After == 0 {
			te.After = t.d
		}
		return "", err
	}
	// Only our own deadline becomes a TimeoutError; a canceled parent stays as is.
	if errors.Is(cctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return "", &llmclient.TimeoutError{After: t.d, Err: err}
	}
	return "", err
}

// -------- Logging --------

// WithLogging logs prompt size, the estimated token count and failures.
// A nil logger disables output.
func WithLogging(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &logging{passthrough: passthrough{next}, log: logger.Named("llm")}
	}
}

type logging struct {
	passthrough
	log *zap.Logger
}

func (l *logging) Generate(ctx context.Context, prompt string) (string, error) {
	fields := []zap.Field{
		zap.String("client", l.next.Name()),
		zap.String("label", LabelFrom(ctx)),
	}
	l.log.Debug("llm request", append(fields,
		zap.Int("bytes", len(prompt)),
		zap.Int("tokens", l.next.CountTokens(prompt)))...)
	start := time.Now()
	out, err := l.next.Generate(ctx, prompt)
	fields = append(fields, zap.Duration("elapsed", time.Since(start)))
	if err != nil {
		l.log.Warn("llm error", append(fields, zap.Error(err))...)
		return "", err
	}
	l.log.Debug("llm reply", append(fields, zap.Int("bytes", len(out)))...)
	return out, nil
}
