package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"codesage/internal/config"
	llmclient "codesage/internal/llm/client"
	"codesage/internal/logging"
	"codesage/internal/rules"
	"codesage/internal/scan"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	provider   string
	model      string
	logLevel   string
	logFormat  string
	rulesFile  string

	cfg      *config.Config
	log      *zap.Logger
	registry *rules.Registry

	newClient func(context.Context, llmclient.Options) (llmclient.LLMClient, error)
}

func newRootCmd() *cobra.Command {
	a := &app{newClient: llmclient.New}

	root := &cobra.Command{
		Use:           "codesage",
		Short:         "codesage - mentor-style code review from heuristics and a language model",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "codesage.yaml", "path to the YAML config file")
	pf.StringVar(&a.provider, "provider", "", "generation provider (cerebras, groq, openai, gemini, fake)")
	pf.StringVar(&a.model, "model", "", "model id (provider default when empty)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&a.logFormat, "log-format", "", "log format (console, json)")
	pf.StringVar(&a.rulesFile, "rules", "", "YAML file with extra detection rules")

	root.AddCommand(
		newAnalyzeCmd(a),
		newContextCmd(a),
		newPromptCmd(a),
		newRulesCmd(a),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.provider != "" {
		cfg.Provider = a.provider
	}
	if a.model != "" {
		cfg.Model = a.model
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if a.rulesFile != "" {
		cfg.RulesFile = a.rulesFile
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	reg, err := rules.LoadFile(cfg.RulesFile)
	if err != nil {
		return err
	}
	a.cfg, a.log, a.registry = cfg, logger, reg
	logger.Debug("configuration loaded",
		zap.String("provider", cfg.Provider),
		zap.String("rules_file", cfg.RulesFile),
		zap.Int("rules", len(reg.Rules())))
	return nil
}

// readInput reads a single source from path, or stdin when path is "-" or empty.
func readInput(cmd *cobra.Command, path string) (code, name string, err error) {
	if path == "" || path == "-" {
		code, err = scan.ReadAll(cmd.InOrStdin(), "stdin", 0)
		return code, "", err
	}
	if _, err := os.Stat(path); err != nil {
		return "", "", err
	}
	code, err = scan.ReadSource(path, 0)
	return code, path, err
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
