// Package pipeline orchestrates one analysis request: context classification,
// heuristic detection, prompt assembly, the generation call, narrative
// extraction and the final merge. Analyze always returns a result; errors are
// reported inside it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"codesage/internal/cache/result"
	"codesage/internal/contextscan"
	"codesage/internal/heuristic"
	"codesage/internal/llm"
	llmclient "codesage/internal/llm/client"
	"codesage/internal/narrative"
	"codesage/internal/prompt"
	"codesage/internal/rules"
	"codesage/internal/types"
)

// Stage is a step of the per-request state machine.
type Stage string

const (
	StageStart            Stage = "START"
	StageContextBuilt     Stage = "CONTEXT_BUILT"
	StageHeuristicsRun    Stage = "HEURISTICS_RUN"
	StagePromptBuilt      Stage = "PROMPT_BUILT"
	StageGenerationCalled Stage = "GENERATION_CALLED"
	StageParsed           Stage = "PARSED"
	StageMerged           Stage = "MERGED"
	StageDone             Stage = "DONE"
	StageFailed           Stage = "FAILED"
)

const (
	DefaultLanguage = "java"
	DefaultTimeout  = 30 * time.Second
)

// Deps are the collaborators of an Analyzer. Only Client is required; the
// rest default to the built-in vocabulary, templates and budgets. A nil Cache
// disables caching.
type Deps struct {
	Registry   *rules.Registry
	Classifier *contextscan.Classifier
	Engine     *heuristic.Engine
	Builder    *prompt.Builder
	Extractor  *narrative.Extractor
	Client     llmclient.LLMClient
	Cache      *result.Store
	Logger     *zap.Logger
}

type Options struct {
	DefaultLanguage    string
	SupportedLanguages []string
	// Timeout bounds the whole generation call, retries included.
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
	RPS        float64
	Burst      int
}

func (o Options) withDefaults() Options {
	o.DefaultLanguage = NormalizeLanguage(o.DefaultLanguage)
	if o.DefaultLanguage == "" {
		o.DefaultLanguage = DefaultLanguage
	}
	if o.SupportedLanguages == nil {
		o.SupportedLanguages = DefaultLanguages
	}
	norm := make([]string, 0, len(o.SupportedLanguages))
	for _, l := range o.SupportedLanguages {
		if l = NormalizeLanguage(l); l != "" {
			norm = append(norm, l)
		}
	}
	o.SupportedLanguages = norm
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 500 * time.Millisecond
	}
	return o
}

type Analyzer struct {
	classifier *contextscan.Classifier
	engine     *heuristic.Engine
	builder    *prompt.Builder
	extractor  *narrative.Extractor
	client     llmclient.LLMClient
	cache      *result.Store
	opts       Options
	log        *zap.Logger
	now        func() time.Time
}

// New wires an Analyzer. The client is wrapped with timeout, logging, retry
// and rate-limit middleware according to opts; Close releases it.
func New(deps Deps, opts Options) (*Analyzer, error) {
	if deps.Client == nil {
		return nil, errors.New("pipeline: generation client is required")
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	opts = opts.withDefaults()

	reg := deps.Registry
	if reg == nil {
		reg = rules.Default()
	}
	a := &Analyzer{
		classifier: deps.Classifier,
		engine:     deps.Engine,
		builder:    deps.Builder,
		extractor:  deps.Extractor,
		cache:      deps.Cache,
		opts:       opts,
		log:        log.Named("pipeline"),
		now:        time.Now,
	}
	if a.classifier == nil {
		a.classifier = contextscan.New(reg, log)
	}
	if a.engine == nil {
		a.engine = heuristic.New(reg, log)
	}
	if a.builder == nil {
		a.builder = prompt.NewBuilder(prompt.NewLoader("", log), prompt.DefaultBudgets(), log)
	}
	if a.extractor == nil {
		ex, err := narrative.New(narrative.DefaultVocabulary())
		if err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		a.extractor = ex
	}
	a.client = llm.Wrap(deps.Client,
		llm.WithTimeout(opts.Timeout),
		llm.WithLogging(log),
		llm.Retry(opts.Retries+1, opts.RetryDelay),
		llm.RateLimit(opts.RPS, opts.Burst),
	)
	return a, nil
}

func (a *Analyzer) Close() error { return a.client.Close() }

// Options returns the effective options after defaults.
func (a *Analyzer) Options() Options { return a.opts }

// Analyze runs one request end to end. Identical code is served from the
// cache when one is configured; only successful results are cached.
func (a *Analyzer) Analyze(ctx context.Context, code, language, fileName string) types.AnalysisResult {
	start := a.now()
	lang, err := a.validate(code, language, fileName)
	if err != nil {
		res := types.AnalysisResult{FileName: fileName, Language: lang, StartedAt: start}
		return a.fail(res, StageStart, err)
	}
	if a.cache == nil {
		return a.run(ctx, code, lang, fileName, start)
	}

	res, hit := a.cache.Do(result.Key(code), func() types.AnalysisResult {
		return a.run(ctx, code, lang, fileName, start)
	}, succeeded)
	res.FileName = fileName
	if hit {
		res.Cached = true
		res.Language = lang
		res.StartedAt = start
		res.CompletedAt = a.now()
		res.Duration = res.CompletedAt.Sub(start)
		a.log.Info("analysis served from cache",
			zap.String("file", fileName),
			zap.Int("issues", len(res.Issues)))
	}
	return res
}

func succeeded(r types.AnalysisResult) bool { return r.Status == types.StatusSuccess }

func (a *Analyzer) validate(code, language, fileName string) (string, error) {
	if strings.TrimSpace(code) == "" {
		return NormalizeLanguage(language), &ValidationError{Field: "code", Reason: "code must not be empty"}
	}
	return a.resolveLanguage(language, fileName)
}

func (a *Analyzer) run(ctx context.Context, code, lang, fileName string, start time.Time) (res types.AnalysisResult) {
	res = types.AnalysisResult{FileName: fileName, Language: lang, StartedAt: start}
	stage := StageStart
	log := a.log.With(zap.String("file", fileName), zap.String("language", lang))
	advance := func(s Stage) {
		stage = s
		log.Debug("stage", zap.String("stage", string(s)))
	}
	defer func() {
		if p := recover(); p != nil {
			res = a.fail(res, stage, fmt.Errorf("internal error: %v", p))
		}
	}()
	advance(StageStart)

	var (
		contextLines []string
		heuristics   []types.Issue
	)
	var g errgroup.Group
	g.Go(func() error {
		return guard("context classification", func() { contextLines = a.classifier.Classify(code) })
	})
	g.Go(func() error {
		return guard("heuristic detection", func() { heuristics = a.engine.Run(code, lang) })
	})
	if err := g.Wait(); err != nil {
		return a.fail(res, stage, err)
	}
	res.Context = contextLines
	advance(StageContextBuilt)
	advance(StageHeuristicsRun)

	p := a.builder.Build(code, lang, contextscan.Render(contextLines))
	advance(StagePromptBuilt)

	reply, err := a.client.Generate(llm.WithLabel(ctx, fileName), p)
	advance(StageGenerationCalled)
	if err != nil {
		return a.fail(res, stage, err)
	}
	if !utf8.ValidString(reply) {
		return a.fail(res, stage, &llmclient.ParseError{Provider: a.client.Name(), Err: errors.New("reply is not valid UTF-8 text")})
	}

	narr := a.extractor.Extract(reply)
	advance(StageParsed)

	issues := make([]types.Issue, 0, len(heuristics)+len(narr))
	issues = append(issues, heuristics...)
	issues = append(issues, narr...)
	advance(StageMerged)

	res.Issues = issues
	res.Summary = types.Summarize(issues)
	res.DetailedAnalysis = reply
	res.Status = types.StatusSuccess
	res.CompletedAt = a.now()
	res.Duration = res.CompletedAt.Sub(start)
	advance(StageDone)

	log.Info("analysis complete",
		zap.Int("issues", len(issues)),
		zap.Int("heuristic", len(heuristics)),
		zap.Int("narrative", len(narr)),
		zap.Duration("duration", res.Duration),
		zap.Bool("cached", false))
	return res
}

// fail turns err into a terminal ERROR result.
func (a *Analyzer) fail(res types.AnalysisResult, stage Stage, err error) types.AnalysisResult {
	msg := diagnostic(err)
	a.log.Warn("analysis failed",
		zap.String("file", res.FileName),
		zap.String("stage", string(stage)),
		zap.String("state", string(StageFailed)),
		zap.Error(err))
	res.Status = types.StatusError
	res.Error = msg
	res.Summary = "Analysis failed: " + msg
	res.Issues = []types.Issue{}
	res.DetailedAnalysis = ""
	res.CompletedAt = a.now()
	res.Duration = res.CompletedAt.Sub(res.StartedAt)
	return res
}

func guard(what string, fn func()) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%s: internal error: %v", what, p)
		}
	}()
	fn()
	return nil
}
