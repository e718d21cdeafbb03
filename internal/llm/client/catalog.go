package llmclient

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Options selects and configures a provider.
type Options struct {
	Provider     string
	BaseURL      string
	APIKey       string
	Model        string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
	Timeout      time.Duration
}

type providerSpec struct {
	baseURL string
	model   string
	factory func(ctx context.Context, opts Options) (LLMClient, error)
}

func chatFactory(_ context.Context, opts Options) (LLMClient, error) {
	return NewChatClient(ChatConfig{
		Provider:     opts.Provider,
		BaseURL:      opts.BaseURL,
		APIKey:       opts.APIKey,
		Model:        opts.Model,
		SystemPrompt: opts.SystemPrompt,
		MaxTokens:    opts.MaxTokens,
		Temperature:  opts.Temperature,
		Timeout:      opts.Timeout,
	})
}

var providers = map[string]providerSpec{
	"cerebras": {baseURL: CerebrasURL, model: "llama3.1-8b", factory: chatFactory},
	"groq":     {baseURL: GroqURL, model: "llama-3.1-8b-instant", factory: chatFactory},
	"openai":   {baseURL: OpenAIURL, model: "gpt-4o-mini", factory: chatFactory},
	"gemini": {model: "gemini-2.5-flash", factory: func(ctx context.Context, opts Options) (LLMClient, error) {
		return NewGeminiClient(ctx, GeminiConfig{
			APIKey:       opts.APIKey,
			Model:        opts.Model,
			SystemPrompt: opts.SystemPrompt,
			MaxTokens:    opts.MaxTokens,
			Temperature:  opts.Temperature,
		})
	}},
	"fake": {model: "fake", factory: func(context.Context, Options) (LLMClient, error) {
		return NewFakeClient(), nil
	}},
}

// Providers lists the provider names New accepts.
func Providers() []string {
	out := make([]string, 0, len(providers))
	for name := range providers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// DefaultModel returns the model used when Options.Model is empty.
func DefaultModel(provider string) string {
	return providers[normalizeProvider(provider)].model
}

// New builds the client for opts.Provider, filling in the provider's default
// endpoint and model.
func New(ctx context.Context, opts Options) (LLMClient, error) {
	opts.Provider = normalizeProvider(opts.Provider)
	spec, ok := providers[opts.Provider]
	if !ok {
		return nil, fmt.Errorf("llm: unknown provider %q (want one of %s)", opts.Provider, strings.Join(Providers(), ", "))
	}
	if opts.BaseURL == "" {
		opts.BaseURL = spec.baseURL
	}
	if opts.Model == "" {
		opts.Model = spec.model
	}
	return spec.factory(ctx, opts)
}

func normalizeProvider(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if p == "" {
		return "cerebras"
	}
	return p
}
