package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	CerebrasURL = "https://api.cerebras.ai/v1/chat/completions"
	GroqURL     = "https://api.groq.com/openai/v1/chat/completions"
	OpenAIURL   = "https://api.openai.com/v1/chat/completions"

	defaultSystemPrompt = "You are a professional software engineering mentor providing constructive, educational feedback based on fundamental principles."
	maxErrorBody        = 2048
)

// ChatConfig configures a ChatClient.
type ChatConfig struct {
	Provider     string
	BaseURL      string
	APIKey       string
	Model        string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
	// Timeout bounds a single HTTP exchange; zero leaves it to the context.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// ChatClient calls an OpenAI-compatible Chat Completions endpoint
// (Cerebras, Groq, OpenAI) and returns the first choice's text.
type ChatClient struct {
	http *http.Client
	cfg  ChatConfig
	now  func() time.Time
}

func NewChatClient(cfg ChatConfig) (*ChatClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%s: %w", cfg.Provider, ErrMissingCredential)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%s: base url is required", cfg.Provider)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%s: model is required", cfg.Provider)
	}
	if cfg.Provider == "" {
		cfg.Provider = "chat"
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = defaultSystemPrompt
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &ChatClient{http: hc, cfg: cfg, now: time.Now}, nil
}

func (c *ChatClient) Name() string                { return c.cfg.Provider + ":" + c.cfg.Model }
func (c *ChatClient) Close() error                { return nil }
func (c *ChatClient) CountTokens(text string) int { return CountTokens(text) }

type chatReq struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResp struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *ChatClient) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatReq{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: c.cfg.SystemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return "", &TimeoutError{After: c.cfg.Timeout, Err: err}
		}
		return "", fmt.Errorf("%s: request failed: %w", c.cfg.Provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		rl, _ := parseRateLimitHeaders(resp.Header, c.now())
		gerr := &GenerationError{
			Provider:   c.cfg.Provider,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(b)),
			RetryAfter: rl.RetryAfter,
			RateLimit:  rl,
		}
		if resp.StatusCode == http.StatusBadRequest && strings.Contains(gerr.Body, "context_length_exceeded") {
			return "", NewPermanentError(gerr)
		}
		return "", gerr
	}

	var out chatResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &ParseError{Provider: c.cfg.Provider, Err: err}
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", &ParseError{Provider: c.cfg.Provider, Err: errEmptyReply}
	}
	return out.Choices[0].Message.Content, nil
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
