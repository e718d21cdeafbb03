package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codesage/internal/prompt"
)

// clearEnv blanks every variable Load consults so the host cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"CODESAGE_PROVIDER", "CODESAGE_API_URL", "CODESAGE_API_KEY", "CODESAGE_MODEL",
		"CODESAGE_TIMEOUT", "CODESAGE_DEFAULT_LANGUAGE", "CODESAGE_PROMPT_DIR",
		"CODESAGE_RULES_FILE", "CODESAGE_CACHE_TTL", "CODESAGE_LOG_LEVEL",
		"CODESAGE_LOG_FORMAT", "CODESAGE_SUPPORTED_LANGUAGES", "CODESAGE_MAX_TOKENS",
		"CODESAGE_RETRIES", "CODESAGE_BURST", "CODESAGE_CACHE_SIZE",
		"CODESAGE_TEMPERATURE", "CODESAGE_RPS", "CODESAGE_CACHE_ENABLED",
		"CEREBRAS_API_KEY", "GROQ_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY",
	} {
		t.Setenv(name, "")
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "codesage.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "cerebras", cfg.Provider)
	assert.Equal(t, 800, cfg.MaxTokens)
	assert.InDelta(t, 0.3, cfg.Temperature, 1e-9)
	assert.Equal(t, 30*time.Second, cfg.TimeoutDuration())
	assert.Equal(t, prompt.DefaultBudgets(), cfg.Prompt.Budgets)
	assert.Equal(t, "java", cfg.DefaultLanguage)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 1024, cfg.Cache.Size)
	assert.Equal(t, time.Hour, cfg.CacheTTL())
	assert.Empty(t, cfg.APIKey)
}

func TestLoad_YAMLOverlay(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
provider: groq
model: llama-3.3-70b
timeout: 15s
retries: 2
default_language: py
supported_languages: [python, go]
prompt:
  dir: /etc/codesage/prompts
  max_chars: 4000
  max_code_chars: 0
cache:
  enabled: false
  ttl: "600"
log:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "groq", cfg.Provider)
	assert.Equal(t, "llama-3.3-70b", cfg.Model)
	assert.Equal(t, 15*time.Second, cfg.TimeoutDuration())
	assert.Equal(t, 2, cfg.Retries)
	assert.Equal(t, "python", cfg.DefaultLanguage)
	assert.Equal(t, []string{"python", "go"}, cfg.SupportedLanguages)
	assert.Equal(t, "/etc/codesage/prompts", cfg.Prompt.Dir)
	assert.Equal(t, 4000, cfg.Prompt.Budgets.Total)
	assert.Equal(t, 3000, cfg.Prompt.Budgets.Code, "non-positive budget is clamped")
	assert.Equal(t, 800, cfg.Prompt.Budgets.Context)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "provider: openai\nmodel: from-file\n")
	t.Setenv("CODESAGE_MODEL", "from-env")
	t.Setenv("CODESAGE_RPS", "2.5")
	t.Setenv("CODESAGE_CACHE_ENABLED", "false")
	t.Setenv("CODESAGE_SUPPORTED_LANGUAGES", "java, js")
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("CEREBRAS_API_KEY", "csk-cerebras")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Model)
	assert.InDelta(t, 2.5, cfg.RPS, 1e-9)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, []string{"java", "javascript"}, cfg.SupportedLanguages)
	assert.Equal(t, "sk-openai", cfg.APIKey, "key follows the configured provider")
}

func TestLoad_APIKeyPrecedence(t *testing.T) {
	t.Run("explicit key wins", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CEREBRAS_API_KEY", "csk-env")
		t.Setenv("CODESAGE_API_KEY", "explicit")
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "explicit", cfg.APIKey)
	})
	t.Run("file key beats provider variable", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CEREBRAS_API_KEY", "csk-env")
		cfg, err := Load(writeFile(t, "api_key: from-file\n"))
		require.NoError(t, err)
		assert.Equal(t, "from-file", cfg.APIKey)
	})
	t.Run("provider variable fills an empty key", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GEMINI_API_KEY", "g-key")
		t.Setenv("CODESAGE_PROVIDER", "gemini")
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "g-key", cfg.APIKey)
	})
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{name: "unknown provider", yaml: "provider: nope\n"},
		{name: "bad timeout", yaml: "timeout: soon\n"},
		{name: "bad ttl", yaml: "cache:\n  ttl: later\n"},
		{name: "default not supported", yaml: "default_language: go\nsupported_languages: [java]\n"},
		{name: "bad log format", yaml: "log:\n  format: xml\n"},
		{name: "malformed yaml", yaml: "provider: [unterminated\n"},
		{name: "bad env int", env: map[string]string{"CODESAGE_RETRIES": "many"}},
		{name: "bad env bool", env: map[string]string{"CODESAGE_CACHE_ENABLED": "maybe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.yaml != "" {
				path = writeFile(t, tt.yaml)
			}
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestOptionMapping(t *testing.T) {
	cfg := Default()
	cfg.APIKey = "k"
	cfg.APIURL = "http://localhost:8080/v1/chat/completions"
	cfg.Retries = 3
	require.NoError(t, cfg.Validate())

	lo := cfg.LLMOptions()
	assert.Equal(t, "cerebras", lo.Provider)
	assert.Equal(t, "k", lo.APIKey)
	assert.Equal(t, cfg.APIURL, lo.BaseURL)
	assert.Equal(t, 800, lo.MaxTokens)
	assert.Equal(t, 30*time.Second, lo.Timeout)

	po := cfg.PipelineOptions()
	assert.Equal(t, "java", po.DefaultLanguage)
	assert.Equal(t, 3, po.Retries)
	assert.Equal(t, 30*time.Second, po.Timeout)
	assert.Contains(t, po.SupportedLanguages, "csharp")
}
