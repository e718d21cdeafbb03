// Package prompt assembles the outbound generation prompt from a template,
// few-shot examples, the code under review and its detected context.
package prompt

import (
	"embed"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

const (
	TemplateFile = "analysis-template.txt"
	FewShotFile  = "few-shot-examples.txt"
)

//go:embed templates
var embedded embed.FS

// Source supplies template and few-shot text to a Builder.
type Source interface {
	Template() string
	FewShot() string
}

// Loader reads prompt text from dir, falling back to the embedded copies
// when dir is empty or a file is missing. Text is cached until Reload.
type Loader struct {
	dir string
	log *zap.Logger

	mu       sync.Mutex
	template *string
	fewShot  *string
}

func NewLoader(dir string, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{dir: dir, log: logger.Named("prompt")}
}

func (l *Loader) Template() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.template == nil {
		s := l.read(TemplateFile)
		l.template = &s
	}
	return *l.template
}

func (l *Loader) FewShot() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fewShot == nil {
		s := l.read(FewShotFile)
		l.fewShot = &s
	}
	return *l.fewShot
}

// Reload drops cached text; the next Template or FewShot call re-reads it.
func (l *Loader) Reload() {
	l.mu.Lock()
	l.template, l.fewShot = nil, nil
	l.mu.Unlock()
	l.log.Info("prompt text cleared, reloading on next use")
}

func (l *Loader) read(name string) string {
	if l.dir != "" {
		path := filepath.Join(l.dir, name)
		b, err := os.ReadFile(path)
		if err == nil {
			l.log.Info("loaded prompt file", zap.String("path", path), zap.Int("chars", len(b)))
			return string(b)
		}
		l.log.Warn("prompt file unavailable, using built-in copy", zap.String("path", path), zap.Error(err))
	}
	b, err := embedded.ReadFile("templates/" + name)
	if err != nil {
		l.log.Error("built-in prompt file missing", zap.String("name", name), zap.Error(err))
		return ""
	}
	return string(b)
}

// Static is a fixed Source, mainly for tests and callers that build prompt
// text themselves.
type Static struct {
	TemplateText string
	FewShotText  string
}

func (s Static) Template() string { return s.TemplateText }
func (s Static) FewShot() string  { return s.FewShotText }
