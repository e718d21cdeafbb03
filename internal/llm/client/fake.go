package llmclient

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// FakeReply is one scripted outcome of FakeClient.Generate.
type FakeReply struct {
	Text  string
	Err   error
	Delay time.Duration
}

// FakeClient replays scripted replies for offline runs and tests. Once the
// script is exhausted the last entry repeats; an empty script replies with
// DefaultFakeReply.
type FakeClient struct {
	mu      sync.Mutex
	script  []FakeReply
	next    int
	prompts []string
	calls   atomic.Int64
}

// DefaultFakeReply reports nothing, which the extractor reads as zero issues.
const DefaultFakeReply = "✅ NO SECURITY VULNERABILITIES DETECTED"

func NewFakeClient(script ...FakeReply) *FakeClient {
	return &FakeClient{script: script}
}

func (f *FakeClient) Name() string                { return "fake" }
func (f *FakeClient) Close() error                { return nil }
func (f *FakeClient) CountTokens(text string) int { return CountTokens(text) }

func (f *FakeClient) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	r := FakeReply{Text: DefaultFakeReply}
	if len(f.script) > 0 {
		r = f.script[min(f.next, len(f.script)-1)]
		f.next++
	}
	f.mu.Unlock()

	if r.Delay > 0 {
		t := time.NewTimer(r.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-t.C:
		}
	}
	if r.Err != nil {
		return "", r.Err
	}
	return r.Text, nil
}

// Calls returns how many times Generate ran.
func (f *FakeClient) Calls() int { return int(f.calls.Load()) }

// Prompts returns every prompt received, in call order.
func (f *FakeClient) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}
