package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pavanpakhare/javanotes/internal/config"
	"github.com/pavanpakhare/javanotes/internal/lint"
	"github.com/pavanpakhare/javanotes/internal/registry"
	"github.com/pavanpakhare/javanotes/internal/scanner"
	"github.com/pavanpakhare/javanotes/internal/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var lintCmd = &cobra.Command{
	Use:     "lint [paths...]",
	Aliases: []string{"l"},
	Short:   "Lint the Markdown corpus",
	Long: `Scan the content roots and run the structural lint rules over every
document, or only over the documents named by the given files and
directories.

The whole corpus is always scanned first so that cross-file rules
(link and anchor resolution) can see documents outside the lint set.

Examples:
  javanotes lint                           # Lint everything
  javanotes lint docs/core-java            # Lint one section
  javanotes lint docs/jvm/memory-model.md  # Lint a single document
  javanotes lint --format json             # Machine-readable report
  javanotes lint --fail-on warning         # Stricter exit threshold
  javanotes lint --disable line-length,fence-language`,
	RunE: runLint,
}

var lintFormat string

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringVarP(&lintFormat, "format", "f", "text", "Output format (text, json)")
	lintCmd.Flags().String("fail-on", "error", "Severity that fails the run (warning, error)")
	lintCmd.Flags().StringSlice("disable", nil, "Lint rules to disable")

	viper.BindPFlag("lint.fail_on", lintCmd.Flags().Lookup("fail-on"))
	viper.BindPFlag("lint.disable", lintCmd.Flags().Lookup("disable"))
}

func runLint(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	threshold, err := lint.ParseSeverity(cfg.Lint.FailOn)
	if err != nil {
		return err
	}

	logger := newLogger()

	reg := registry.NewDocumentRegistry()
	sc, err := scanner.NewDocumentScanner(reg, cfg.Docs.Roots, cfg.Docs.Exclude)
	if err != nil {
		return fmt.Errorf("failed to create scanner: %w", err)
	}
	defer sc.Close()
	sc.SetExtensions(cfg.Docs.Extensions)

	engine := lint.NewEngine(reg, logger)
	if err := engine.EnableOnly(cfg.Lint.Rules); err != nil {
		return err
	}
	if err := engine.Disable(cfg.Lint.Disable...); err != nil {
		return err
	}

	start := time.Now()

	if err := sc.ScanAll(); err != nil {
		return fmt.Errorf("failed to scan content roots: %w", err)
	}

	ctx := context.Background()

	var report *lint.Report
	if len(args) == 0 {
		report, err = engine.Lint(ctx)
	} else {
		var docs []*types.DocumentInfo
		docs, err = selectDocuments(sc, reg, args)
		if err != nil {
			return err
		}
		report, err = engine.LintDocuments(ctx, docs)
	}
	if err != nil {
		return fmt.Errorf("lint run failed: %w", err)
	}

	// Files the scanner could not parse still count against the report.
	if buildErrs := sc.Errors().GetErrors(); len(buildErrs) > 0 {
		report = lint.MergeReports(report.Summary.FilesChecked, time.Since(start),
			report.Diagnostics, lint.FromBuildErrors(buildErrs))
	}

	switch strings.ToLower(lintFormat) {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(report); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
	case "text":
		printLintReport(report)
	default:
		return fmt.Errorf("unsupported format: %s (expected text or json)", lintFormat)
	}

	if report.Failed(threshold) {
		return fmt.Errorf("lint failed: %d errors, %d warnings (fail-on=%s)",
			report.Summary.Errors, report.Summary.Warnings, cfg.Lint.FailOn)
	}
	return nil
}

// selectDocuments maps path arguments onto registered documents. A file
// argument selects its document, a directory argument selects every document
// beneath it. Arguments outside the content roots are an error.
func selectDocuments(sc *scanner.DocumentScanner, reg *registry.DocumentRegistry, args []string) ([]*types.DocumentInfo, error) {
	seen := make(map[string]struct{})
	var docs []*types.DocumentInfo

	add := func(doc *types.DocumentInfo) {
		if _, dup := seen[doc.RelPath]; dup {
			return
		}
		seen[doc.RelPath] = struct{}{}
		docs = append(docs, doc)
	}

	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("resolving path %q: %w", arg, err)
		}
		rel, ok := sc.RelPath(abs)
		if !ok {
			return nil, fmt.Errorf("path %q is not under a configured content root", arg)
		}

		if doc, found := reg.Get(rel); found {
			add(doc)
			continue
		}

		// Not a registered file, so treat the argument as a directory.
		prefix := rel + "/"
		if rel == "." {
			prefix = ""
		}
		matched := false
		for _, p := range reg.Paths() {
			if !strings.HasPrefix(p, prefix) {
				continue
			}
			if doc, found := reg.Get(p); found {
				matched = true
				add(doc)
			}
		}
		if !matched {
			return nil, fmt.Errorf("no documents match %q", arg)
		}
	}

	return docs, nil
}

// printLintReport writes the human-readable lint report: one sorted
// file:line: severity [rule] message per diagnostic, then a summary line.
func printLintReport(report *lint.Report) {
	for _, d := range report.Diagnostics {
		fmt.Println(d.String())
	}
	if len(report.Diagnostics) > 0 {
		fmt.Println()
	}
	fmt.Printf("%d files checked: %d errors, %d warnings, %d infos\n",
		report.Summary.FilesChecked,
		report.Summary.Errors, report.Summary.Warnings, report.Summary.Infos)
}
