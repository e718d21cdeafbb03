package llmclient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	genai "google.golang.org/genai"
)

// GeminiClient is a thin wrapper around the official genai client.
type GeminiClient struct {
	cli          *genai.Client
	model        string
	systemPrompt string
	maxTokens    int32
	temperature  float32
}

// GeminiConfig configures a GeminiClient.
type GeminiConfig struct {
	APIKey       string
	Model        string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
}

func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini: %w", ErrMissingCredential)
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = defaultSystemPrompt
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{
		cli:          cli,
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		maxTokens:    int32(cfg.MaxTokens),
		temperature:  float32(cfg.Temperature),
	}, nil
}

func (g *GeminiClient) Name() string                { return "gemini:" + g.model }
func (g *GeminiClient) Close() error                { return nil }
func (g *GeminiClient) CountTokens(text string) int { return CountTokens(text) }

func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	conf := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(g.systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(g.temperature),
	}
	if g.maxTokens > 0 {
		conf.MaxOutputTokens = g.maxTokens
	}
	resp, err := g.cli.Models.GenerateContent(ctx, g.model, genai.Text(prompt), conf)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &TimeoutError{Err: err}
		}
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			gerr := &GenerationError{
				Provider:   "gemini",
				StatusCode: apiErr.Code,
				Status:     apiErr.Status,
				Body:       apiErr.Message,
			}
			if apiErr.Code == 400 {
				return "", NewPermanentError(gerr)
			}
			return "", gerr
		}
		return "", fmt.Errorf("gemini: %w", err)
	}
	txt := strings.TrimSpace(resp.Text())
	if txt == "" {
		return "", &ParseError{Provider: "gemini", Err: errEmptyReply}
	}
	return txt, nil
}
