package llmclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Providers(t *testing.T) {
	assert.Equal(t, []string{"cerebras", "fake", "gemini", "groq", "openai"}, Providers())

	c, err := New(context.Background(), Options{Provider: "fake"})
	require.NoError(t, err)
	assert.Equal(t, "fake", c.Name())

	c, err = New(context.Background(), Options{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "cerebras:llama3.1-8b", c.Name())

	c, err = New(context.Background(), Options{Provider: " GROQ ", APIKey: "k", Model: "custom"})
	require.NoError(t, err)
	assert.Equal(t, "groq:custom", c.Name())
}

func TestNew_Errors(t *testing.T) {
	_, err := New(context.Background(), Options{Provider: "nope"})
	assert.ErrorContains(t, err, "unknown provider")

	_, err = New(context.Background(), Options{Provider: "openai"})
	assert.True(t, errors.Is(err, ErrMissingCredential))

	_, err = New(context.Background(), Options{Provider: "gemini"})
	assert.True(t, errors.Is(err, ErrMissingCredential))
}

func TestDefaultModel(t *testing.T) {
	assert.Equal(t, "llama3.1-8b", DefaultModel(""))
	assert.Equal(t, "gemini-2.5-flash", DefaultModel("gemini"))
}

func TestFakeClient_Script(t *testing.T) {
	boom := errors.New("boom")
	f := NewFakeClient(FakeReply{Text: "one"}, FakeReply{Err: boom})

	got, err := f.Generate(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "one", got)

	_, err = f.Generate(context.Background(), "b")
	assert.ErrorIs(t, err, boom)
	_, err = f.Generate(context.Background(), "c")
	assert.ErrorIs(t, err, boom, "last entry repeats")

	assert.Equal(t, 3, f.Calls())
	assert.Equal(t, []string{"a", "b", "c"}, f.Prompts())

	got, err = NewFakeClient().Generate(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, DefaultFakeReply, got)
}

func TestFakeClient_DelayHonoursContext(t *testing.T) {
	f := NewFakeClient(FakeReply{Text: "late", Delay: time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := f.Generate(ctx, "p")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCountTokens(t *testing.T) {
	assert.Equal(t, 0, CountTokens("   "))
	assert.Equal(t, 3, CountTokens("one two three"))
	assert.Equal(t, 25, CountTokens(string(make([]byte, 100))+"x"))
}

func TestGenerationErrorMessage(t *testing.T) {
	err := &GenerationError{Provider: "groq", StatusCode: 503}
	assert.Equal(t, "groq: unexpected status 503 Service Unavailable", err.Error())
	assert.True(t, err.Retryable())
}
