package llmclient

import (
	"net/http"
	"testing"
	"time"
)

func TestParseRateLimitHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("retry-after", "2")
	h.Set("x-ratelimit-limit-requests", "14400")
	h.Set("x-ratelimit-limit-tokens", "18000")
	h.Set("x-ratelimit-remaining-requests", "14370")
	h.Set("x-ratelimit-remaining-tokens", "17997")
	h.Set("x-ratelimit-reset-requests", "2m59.56s")
	h.Set("x-ratelimit-reset-tokens", "7.66s")

	got, ok := parseRateLimitHeaders(h, time.Now())
	if !ok {
		t.Fatalf("expected headers to be parsed")
	}
	if got.RetryAfter != 2*time.Second {
		t.Fatalf("retry-after: got=%s", got.RetryAfter)
	}
	if got.RemainingRequests != 14370 || got.RemainingTokens != 17997 {
		t.Fatalf("remaining: got requests=%d tokens=%d", got.RemainingRequests, got.RemainingTokens)
	}
	if got.ResetRequests != (2*time.Minute + 59*time.Second + 560*time.Millisecond) {
		t.Fatalf("reset requests: got=%s", got.ResetRequests)
	}
	if got.ResetTokens != (7*time.Second + 660*time.Millisecond) {
		t.Fatalf("reset tokens: got=%s", got.ResetTokens)
	}
}

func TestParseRateLimitHeaders_HTTPDate(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	h := http.Header{}
	h.Set("Retry-After", now.Add(30*time.Second).Format(http.TimeFormat))

	got, ok := parseRateLimitHeaders(h, now)
	if !ok || got.RetryAfter != 30*time.Second {
		t.Fatalf("retry-after date: ok=%v got=%s", ok, got.RetryAfter)
	}

	if _, ok := parseRateLimitHeaders(http.Header{}, now); ok {
		t.Fatalf("expected no signals in empty headers")
	}
}

func TestRateLimitHeaders_NextWait(t *testing.T) {
	if got := (RateLimitHeaders{RetryAfter: 3 * time.Second}).NextWait(); got != 3*time.Second {
		t.Fatalf("retry-after wait: got=%s", got)
	}
	if got := (RateLimitHeaders{RemainingTokens: 0, ResetTokens: 5 * time.Second, RemainingRequests: -1}).NextWait(); got != 5*time.Second {
		t.Fatalf("token reset wait: got=%s", got)
	}
	if got := (RateLimitHeaders{RemainingRequests: 0, RemainingTokens: -1, ResetRequests: 11 * time.Second}).NextWait(); got != 11*time.Second {
		t.Fatalf("request reset wait: got=%s", got)
	}
	if got := (RateLimitHeaders{RemainingTokens: 10, RemainingRequests: 10, ResetTokens: time.Second}).NextWait(); got != 0 {
		t.Fatalf("no wait expected: got=%s", got)
	}
}
