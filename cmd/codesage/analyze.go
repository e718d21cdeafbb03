package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"codesage/internal/cache/result"
	"codesage/internal/pipeline"
	"codesage/internal/prompt"
	"codesage/internal/scan"
	"codesage/internal/types"
)

// errAnalysisFailed makes the process exit non-zero after the report has
// already been printed.
var errAnalysisFailed = errors.New("analysis failed")

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		language    string
		asJSON      bool
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "analyze [file|dir|-]",
		Short: "Analyze a file, every source file under a directory, or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "-"
			if len(args) == 1 {
				target = args[0]
			}
			analyzer, err := a.analyzer(cmd.Context())
			if err != nil {
				return err
			}
			defer analyzer.Close()

			results, multi, err := a.analyzeTarget(cmd, analyzer, target, language, concurrency)
			if err != nil {
				return err
			}
			if err := writeResults(cmd.OutOrStdout(), results, asJSON, multi); err != nil {
				return err
			}
			for _, r := range results {
				if r.Status != types.StatusSuccess {
					return errAnalysisFailed
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&language, "language", "l", "", "source language (detected from the file name when empty)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", 4, "files analyzed in parallel for a directory")
	return cmd
}

func (a *app) analyzer(ctx context.Context) (*pipeline.Analyzer, error) {
	client, err := a.newClient(ctx, a.cfg.LLMOptions())
	if err != nil {
		return nil, err
	}
	var cache *result.Store
	if a.cfg.Cache.Enabled {
		cache = result.New(a.cfg.Cache.Size, a.cfg.CacheTTL())
	}
	builder := prompt.NewBuilder(prompt.NewLoader(a.cfg.Prompt.Dir, a.log), a.cfg.Prompt.Budgets, a.log)
	analyzer, err := pipeline.New(pipeline.Deps{
		Registry: a.registry,
		Builder:  builder,
		Client:   client,
		Cache:    cache,
		Logger:   a.log,
	}, a.cfg.PipelineOptions())
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return analyzer, nil
}

// analyzeTarget runs stdin, one file or a whole directory. multi reports
// whether target was a directory.
func (a *app) analyzeTarget(cmd *cobra.Command, analyzer *pipeline.Analyzer, target, language string, concurrency int) (_ []types.AnalysisResult, multi bool, _ error) {
	ctx := cmd.Context()
	if target != "-" {
		info, err := os.Stat(target)
		if err != nil {
			return nil, false, err
		}
		multi = info.IsDir()
	}
	if !multi {
		code, name, err := readInput(cmd, target)
		if err != nil {
			return nil, false, err
		}
		return []types.AnalysisResult{analyzer.Analyze(ctx, code, language, name)}, false, nil
	}

	files, err := scan.Walk(target, scan.Options{Extensions: pipeline.SourceExtensions()})
	if err != nil {
		return nil, true, err
	}
	if len(files) == 0 {
		return nil, true, fmt.Errorf("no source files under %s", target)
	}

	results := make([]types.AnalysisResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	for i, f := range files {
		g.Go(func() error {
			code, err := scan.ReadSource(f.AbsPath, 0)
			if err != nil {
				return err
			}
			results[i] = analyzer.Analyze(gctx, code, language, f.Path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, true, err
	}
	a.log.Debug("directory analyzed", zap.String("root", target), zap.Int("files", len(files)))
	return results, true, nil
}

// writeResults prints a text report, or JSON: one object for a single input,
// an array for a directory.
func writeResults(w io.Writer, results []types.AnalysisResult, asJSON, multi bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if !multi && len(results) == 1 {
			return enc.Encode(results[0])
		}
		return enc.Encode(results)
	}
	for i, r := range results {
		if i > 0 {
			printf(w, "\n")
		}
		writeReport(w, r)
	}
	return nil
}

func writeReport(w io.Writer, r types.AnalysisResult) {
	name := r.FileName
	if name == "" {
		name = "<stdin>"
	}
	cached := ""
	if r.Cached {
		cached = ", cached"
	}
	printf(w, "== %s (%s%s) ==\n", name, r.Language, cached)
	if r.Status != types.StatusSuccess {
		printf(w, "ERROR: %s\n", r.Error)
		return
	}
	printf(w, "%s\n", r.Summary)
	for i, is := range r.Issues {
		origin := is.Source
		if is.RuleID != "" {
			origin += " " + is.RuleID
		}
		printf(w, "\n[%d] %s  %s  %s  (%s)\n", i+1, is.Severity, is.Category, is.Type, origin)
		printf(w, "    Location: %s\n", is.Location)
		printf(w, "    %s\n", indent(is.Description))
		printf(w, "    Fix: %s\n", indent(is.Recommendation))
		if is.LearningResource != "" {
			printf(w, "    Learn more: %s\n", indent(is.LearningResource))
		}
	}
}

func indent(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", "\n    ")
}
