package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"codesage/internal/contextscan"
	"codesage/internal/heuristic"
	"codesage/internal/pipeline"
	"codesage/internal/prompt"
	"codesage/internal/rules"
)

func newContextCmd(a *app) *cobra.Command {
	var vulns bool
	cmd := &cobra.Command{
		Use:   "context [file|-]",
		Short: "Show the safe patterns recognised in the input",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, _, err := readInput(cmd, firstArg(args))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printf(out, "%s\n", contextscan.New(a.registry, a.log).Describe(code))
			if vulns {
				printf(out, "\n%s\n", heuristic.New(a.registry, a.log).VulnerabilitySummary(code))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&vulns, "vulnerabilities", false, "also print the security findings of the heuristic rules")
	return cmd
}

func newPromptCmd(a *app) *cobra.Command {
	var language string
	cmd := &cobra.Command{
		Use:   "prompt [file|-]",
		Short: "Print the prompt that analyze would send for the input",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, name, err := readInput(cmd, firstArg(args))
			if err != nil {
				return err
			}
			lang := pipeline.NormalizeLanguage(language)
			if lang == "" {
				if detected, ok := pipeline.DetectLanguage(name); ok {
					lang = detected
				} else {
					lang = a.cfg.DefaultLanguage
				}
			}
			ctx := contextscan.New(a.registry, a.log).Describe(code)
			b := prompt.NewBuilder(prompt.NewLoader(a.cfg.Prompt.Dir, a.log), a.cfg.Prompt.Budgets, a.log)
			printf(cmd.OutOrStdout(), "%s\n", b.Build(code, lang, ctx))
			return nil
		},
	}
	cmd.Flags().StringVarP(&language, "language", "l", "", "source language (detected from the file name when empty)")
	return cmd
}

func newRulesCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the detection rules and safe patterns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if asJSON {
				return writeRulesJSON(cmd, a.registry)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			printf(tw, "ID\tSEVERITY\tCATEGORY\tTYPE\tPATTERN\n")
			for _, r := range a.registry.Rules() {
				printf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Severity, r.Category, r.Type, pattern(r.Matcher))
			}
			printf(tw, "\nSAFE PATTERN\t\t\t\tCONTEXT\n")
			for _, sp := range a.registry.SafePatterns() {
				printf(tw, "%s\t\t\t\t%s\n", sp.Name, sp.Context)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print rules as JSON")
	return cmd
}

type ruleView struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Category string `json:"category"`
	Severity string `json:"severity"`
	Pattern  string `json:"pattern,omitempty"`
}

func writeRulesJSON(cmd *cobra.Command, reg *rules.Registry) error {
	views := make([]ruleView, 0, len(reg.Rules()))
	for _, r := range reg.Rules() {
		views = append(views, ruleView{
			ID:       r.ID,
			Type:     r.Type,
			Category: string(r.Category),
			Severity: string(r.Severity),
			Pattern:  pattern(r.Matcher),
		})
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(views)
}

// pattern shows a regex rule's expression; structural matchers have none.
func pattern(m rules.Matcher) string {
	if s, ok := m.(fmt.Stringer); ok {
		return s.String()
	}
	return "(structural)"
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return "-"
	}
	return strings.TrimSpace(args[0])
}
