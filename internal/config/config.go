// Package config loads codesage settings from defaults, an optional YAML
// file, a local .env file and the environment, in that order of precedence
// (environment wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"codesage/internal/cache/result"
	llmclient "codesage/internal/llm/client"
	"codesage/internal/pipeline"
	"codesage/internal/prompt"
)

type Config struct {
	// Generation service
	Provider    string  `yaml:"provider"`
	APIURL      string  `yaml:"api_url"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	Timeout     string  `yaml:"timeout"`
	Retries     int     `yaml:"retries"`
	RPS         float64 `yaml:"rps"`
	Burst       int     `yaml:"burst"`

	DefaultLanguage    string   `yaml:"default_language"`
	SupportedLanguages []string `yaml:"supported_languages"`

	Prompt    PromptConfig  `yaml:"prompt"`
	Cache     CacheConfig   `yaml:"cache"`
	RulesFile string        `yaml:"rules_file"`
	Log       LoggingConfig `yaml:"log"`
}

type PromptConfig struct {
	// Dir holds analysis-template.txt and few-shot-examples.txt; empty uses
	// the embedded copies.
	Dir     string         `yaml:"dir"`
	Budgets prompt.Budgets `yaml:",inline"`
}

type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Size    int    `yaml:"size"`
	TTL     string `yaml:"ttl"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console or json
}

const defaultTimeout = 30 * time.Second

func Default() *Config {
	return &Config{
		Provider:           "cerebras",
		MaxTokens:          800,
		Temperature:        0.3,
		Timeout:            defaultTimeout.String(),
		DefaultLanguage:    pipeline.DefaultLanguage,
		SupportedLanguages: slices.Clone(pipeline.DefaultLanguages),
		Prompt:             PromptConfig{Budgets: prompt.DefaultBudgets()},
		Cache: CacheConfig{
			Enabled: true,
			Size:    result.DefaultSize,
			TTL:     result.DefaultTTL.String(),
		},
		Log: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Load reads .env (when present), overlays the YAML file at path (when it
// exists), applies environment overrides and validates the result. An empty
// path skips the file.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// providerKeys maps a provider to the environment variable holding its key.
var providerKeys = map[string]string{
	"cerebras": "CEREBRAS_API_KEY",
	"groq":     "GROQ_API_KEY",
	"openai":   "OPENAI_API_KEY",
	"gemini":   "GEMINI_API_KEY",
}

func (c *Config) applyEnvOverrides() error {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("CODESAGE_PROVIDER", &c.Provider)
	str("CODESAGE_API_URL", &c.APIURL)
	str("CODESAGE_MODEL", &c.Model)
	str("CODESAGE_TIMEOUT", &c.Timeout)
	str("CODESAGE_DEFAULT_LANGUAGE", &c.DefaultLanguage)
	str("CODESAGE_PROMPT_DIR", &c.Prompt.Dir)
	str("CODESAGE_RULES_FILE", &c.RulesFile)
	str("CODESAGE_CACHE_TTL", &c.Cache.TTL)
	str("CODESAGE_LOG_LEVEL", &c.Log.Level)
	str("CODESAGE_LOG_FORMAT", &c.Log.Format)

	if v := os.Getenv("CODESAGE_SUPPORTED_LANGUAGES"); v != "" {
		c.SupportedLanguages = nil
		for _, l := range strings.Split(v, ",") {
			if l = strings.TrimSpace(l); l != "" {
				c.SupportedLanguages = append(c.SupportedLanguages, l)
			}
		}
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"CODESAGE_MAX_TOKENS", &c.MaxTokens},
		{"CODESAGE_RETRIES", &c.Retries},
		{"CODESAGE_BURST", &c.Burst},
		{"CODESAGE_CACHE_SIZE", &c.Cache.Size},
	}
	for _, e := range ints {
		if v := os.Getenv(e.name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("config: %s: %w", e.name, err)
			}
			*e.dst = n
		}
	}
	floats := []struct {
		name string
		dst  *float64
	}{
		{"CODESAGE_TEMPERATURE", &c.Temperature},
		{"CODESAGE_RPS", &c.RPS},
	}
	for _, e := range floats {
		if v := os.Getenv(e.name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("config: %s: %w", e.name, err)
			}
			*e.dst = f
		}
	}
	if v := os.Getenv("CODESAGE_CACHE_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: CODESAGE_CACHE_ENABLED: %w", err)
		}
		c.Cache.Enabled = b
	}

	// An explicit key always wins; otherwise use the provider's own variable.
	if v := strings.TrimSpace(os.Getenv("CODESAGE_API_KEY")); v != "" {
		c.APIKey = v
	} else if name, ok := providerKeys[c.provider()]; ok && c.APIKey == "" {
		c.APIKey = strings.TrimSpace(os.Getenv(name))
	}
	return nil
}

func (c *Config) provider() string {
	p := strings.ToLower(strings.TrimSpace(c.Provider))
	if p == "" {
		return "cerebras"
	}
	return p
}

// Validate rejects unknown providers, languages and log formats, and clamps
// non-positive sizes and budgets back to their defaults.
func (c *Config) Validate() error {
	d := Default()
	c.Provider = c.provider()
	if !slices.Contains(llmclient.Providers(), c.Provider) {
		return fmt.Errorf("invalid provider: %s (valid: %v)", c.Provider, llmclient.Providers())
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = d.MaxTokens
	}
	if c.Temperature < 0 {
		c.Temperature = d.Temperature
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	if _, err := parseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if _, err := parseDuration(c.Cache.TTL); err != nil {
		return fmt.Errorf("invalid cache ttl: %w", err)
	}
	if c.Cache.Size <= 0 {
		c.Cache.Size = d.Cache.Size
	}
	b := &c.Prompt.Budgets
	if b.Total <= 0 {
		b.Total = d.Prompt.Budgets.Total
	}
	if b.Code <= 0 {
		b.Code = d.Prompt.Budgets.Code
	}
	if b.Context <= 0 {
		b.Context = d.Prompt.Budgets.Context
	}
	if b.Examples <= 0 {
		b.Examples = d.Prompt.Budgets.Examples
	}

	if len(c.SupportedLanguages) == 0 {
		c.SupportedLanguages = d.SupportedLanguages
	}
	for i, l := range c.SupportedLanguages {
		c.SupportedLanguages[i] = pipeline.NormalizeLanguage(l)
	}
	c.DefaultLanguage = pipeline.NormalizeLanguage(c.DefaultLanguage)
	if c.DefaultLanguage == "" {
		c.DefaultLanguage = d.DefaultLanguage
	}
	if !slices.Contains(c.SupportedLanguages, c.DefaultLanguage) {
		return fmt.Errorf("default language %s is not in supported_languages %v", c.DefaultLanguage, c.SupportedLanguages)
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "console", "json":
	default:
		return fmt.Errorf("invalid log format: %s (valid: console, json)", c.Log.Format)
	}
	return nil
}

// TimeoutDuration returns the generation timeout, falling back to 30s.
func (c *Config) TimeoutDuration() time.Duration {
	d, err := parseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return defaultTimeout
	}
	return d
}

// CacheTTL returns the cache entry lifetime, falling back to the store default.
func (c *Config) CacheTTL() time.Duration {
	d, err := parseDuration(c.Cache.TTL)
	if err != nil || d <= 0 {
		return result.DefaultTTL
	}
	return d
}

// LLMOptions maps the generation settings onto the client catalog.
func (c *Config) LLMOptions() llmclient.Options {
	return llmclient.Options{
		Provider:    c.Provider,
		BaseURL:     c.APIURL,
		APIKey:      c.APIKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		Timeout:     c.TimeoutDuration(),
	}
}

// PipelineOptions maps the request settings onto the analyzer.
func (c *Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		DefaultLanguage:    c.DefaultLanguage,
		SupportedLanguages: c.SupportedLanguages,
		Timeout:            c.TimeoutDuration(),
		Retries:            c.Retries,
		RPS:                c.RPS,
		Burst:              c.Burst,
	}
}

// parseDuration accepts Go durations ("30s") and bare seconds ("30").
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}
