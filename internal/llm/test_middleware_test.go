package llm

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	llmclient "codesage/internal/llm/client"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// spyingClient records when requests reach the inner client.
type spyingClient struct {
	llmclient.LLMClient
	mu    sync.Mutex
	times []time.Time
}

func (s *spyingClient) Generate(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.times = append(s.times, time.Now())
	s.mu.Unlock()
	return s.LLMClient.Generate(ctx, prompt)
}

func TestWrap_Order(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next llmclient.LLMClient) llmclient.LLMClient {
			order = append(order, name)
			return next
		}
	}
	Wrap(llmclient.NewFakeClient(), tag("A"), nil, tag("B"))
	// B wraps first so that A is outermost.
	assert.Equal(t, []string{"B", "A"}, order)
}

func TestRateLimit_Spacing(t *testing.T) {
	spy := &spyingClient{LLMClient: llmclient.NewFakeClient()}
	cli := Wrap(spy, RateLimit(2, 1))
	defer cli.Close()

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 2; i++ {
		_, err := cli.Generate(ctx, "p")
		require.NoError(t, err)
	}
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 450*time.Millisecond, "expected throttling")
	assert.Len(t, spy.times, 2)
}

func TestRateLimit_BurstThenCancel(t *testing.T) {
	cli := RateLimit(0.5, 2)(llmclient.NewFakeClient())
	defer cli.Close()

	start := time.Now()
	for i := 0; i < 2; i++ {
		_, err := cli.Generate(context.Background(), "p")
		require.NoError(t, err)
	}
	assert.Less(t, time.Since(start), 200*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := cli.Generate(ctx, "p")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimit_DisabledIsPassthrough(t *testing.T) {
	inner := llmclient.NewFakeClient()
	assert.Same(t, inner, RateLimit(0, 5)(inner))
}

func TestRetry_RecoversFromTransientErrors(t *testing.T) {
	fake := llmclient.NewFakeClient(
		llmclient.FakeReply{Err: &llmclient.GenerationError{Provider: "x", StatusCode: 503}},
		llmclient.FakeReply{Err: errors.New("connection reset")},
		llmclient.FakeReply{Text: "ok"},
	)
	out, err := Retry(3, time.Millisecond)(fake).Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, fake.Calls())
}

func TestRetry_StopsOnNonRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"permanent", llmclient.NewPermanentError(errors.New("too long"))},
		{"bad request", &llmclient.GenerationError{Provider: "x", StatusCode: http.StatusBadRequest}},
		{"unauthorized", &llmclient.GenerationError{Provider: "x", StatusCode: http.StatusUnauthorized}},
		{"missing credential", llmclient.ErrMissingCredential},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := llmclient.NewFakeClient(llmclient.FakeReply{Err: tt.err})
			_, err := Retry(5, time.Millisecond)(fake).Generate(context.Background(), "p")
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, 1, fake.Calls())
		})
	}
}

func TestRetry_HonoursRetryAfter(t *testing.T) {
	fake := llmclient.NewFakeClient(
		llmclient.FakeReply{Err: &llmclient.GenerationError{Provider: "x", StatusCode: 429, RetryAfter: 150 * time.Millisecond}},
		llmclient.FakeReply{Text: "ok"},
	)
	start := time.Now()
	_, err := Retry(2, time.Millisecond)(fake).Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 140*time.Millisecond)
}

func TestRetry_WaitsForExhaustedWindow(t *testing.T) {
	gerr := &llmclient.GenerationError{Provider: "x", StatusCode: 429, RateLimit: llmclient.RateLimitHeaders{
		RemainingRequests: 0,
		RemainingTokens:   -1,
		ResetRequests:     150 * time.Millisecond,
	}}
	fake := llmclient.NewFakeClient(llmclient.FakeReply{Err: gerr}, llmclient.FakeReply{Text: "ok"})
	start := time.Now()
	_, err := Retry(2, time.Millisecond)(fake).Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 140*time.Millisecond)
	assert.Equal(t, 2, fake.Calls())
}

func TestRetry_GivesUpWithLastError(t *testing.T) {
	rl := &llmclient.GenerationError{Provider: "x", StatusCode: 429}
	fake := llmclient.NewFakeClient(llmclient.FakeReply{Err: rl})
	_, err := Retry(3, time.Millisecond)(fake).Generate(context.Background(), "p")
	assert.ErrorIs(t, err, rl)
	assert.Equal(t, 3, fake.Calls())
}

func TestRetry_SingleAttemptIsPassthrough(t *testing.T) {
	inner := llmclient.NewFakeClient()
	assert.Same(t, inner, Retry(1, 0)(inner))
}

func TestWithTimeout(t *testing.T) {
	fake := llmclient.NewFakeClient(llmclient.FakeReply{Text: "late", Delay: time.Second})
	_, err := WithTimeout(30*time.Millisecond)(fake).Generate(context.Background(), "p")

	var te *llmclient.TimeoutError
	require.True(t, errors.As(err, &te), "got %v", err)
	assert.Equal(t, 30*time.Millisecond, te.After)
	assert.Contains(t, err.Error(), "timed out")
}

func TestWithTimeout_ParentCancelIsNotTimeout(t *testing.T) {
	fake := llmclient.NewFakeClient(llmclient.FakeReply{Text: "late", Delay: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := WithTimeout(time.Second)(fake).Generate(ctx, "p")
	var te *llmclient.TimeoutError
	assert.False(t, errors.As(err, &te))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithLogging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	boom := errors.New("boom")
	fake := llmclient.NewFakeClient(llmclient.FakeReply{Text: "fine"}, llmclient.FakeReply{Err: boom})
	cli := WithLogging(zap.New(core))(fake)

	ctx := WithLabel(context.Background(), "Main.java")
	_, err := cli.Generate(ctx, "one two three")
	require.NoError(t, err)
	_, err = cli.Generate(ctx, "again")
	require.ErrorIs(t, err, boom)

	req := logs.FilterMessage("llm request").All()
	require.Len(t, req, 2)
	assert.Equal(t, "Main.java", req[0].ContextMap()["label"])
	assert.EqualValues(t, 3, req[0].ContextMap()["tokens"])
	assert.Equal(t, 1, logs.FilterMessage("llm error").Len())
}

func TestLabelFrom(t *testing.T) {
	assert.Equal(t, "-", LabelFrom(context.Background()))
	assert.Equal(t, "x", LabelFrom(WithLabel(context.Background(), "x")))
}
