package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pavanpakhare/javanotes/internal/config"
	"github.com/pavanpakhare/javanotes/internal/registry"
	"github.com/pavanpakhare/javanotes/internal/scanner"
	"github.com/pavanpakhare/javanotes/internal/site"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var buildCmd = &cobra.Command{
	Use:     "build",
	Aliases: []string{"b"},
	Short:   "Build the static site",
	Long: `Render every non-draft document into a static HTML site with section
navigation, highlighted code, bundled assets, and a client-side search
index. After writing, the emitted HTML is re-parsed and intra-site links
are verified unless --no-verify is given.

Examples:
  javanotes build                          # Build into ./public
  javanotes build -o dist                  # Custom output directory
  javanotes build --base-url https://notes.example.com/
  javanotes build --no-verify              # Skip output verification`,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringP("output", "o", "public", "Output directory for the generated site")
	buildCmd.Flags().String("base-url", "", "Base URL recorded in the search index")
	buildCmd.Flags().Bool("no-verify", false, "Skip post-build verification of emitted HTML")

	viper.BindPFlag("site.output", buildCmd.Flags().Lookup("output"))
	viper.BindPFlag("site.base_url", buildCmd.Flags().Lookup("base-url"))
	viper.BindPFlag("site.no-verify", buildCmd.Flags().Lookup("no-verify"))
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := newLogger()

	reg := registry.NewDocumentRegistry()
	sc, err := scanner.NewDocumentScanner(reg, cfg.Docs.Roots, cfg.Docs.Exclude)
	if err != nil {
		return fmt.Errorf("failed to create scanner: %w", err)
	}
	defer sc.Close()
	sc.SetExtensions(cfg.Docs.Extensions)

	fmt.Println("📁 Scanning content roots...")
	if err := sc.ScanAll(); err != nil {
		return fmt.Errorf("failed to scan content roots: %w", err)
	}
	for _, be := range sc.Errors().GetErrors() {
		fmt.Fprintf(os.Stderr, "Warning: skipping %s: %s\n", be.File, be.Message)
	}
	fmt.Printf("Found %d documents\n", reg.Count())

	builder, err := site.NewBuilder(reg, site.Options{
		Title:   cfg.Site.Title,
		BaseURL: cfg.Site.BaseURL,
		Output:  cfg.Site.Output,
		Verify:  cfg.Site.Verify,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create site builder: %w", err)
	}

	fmt.Println("🔨 Rendering pages...")
	stats, err := builder.Build(context.Background())
	if err != nil {
		var verr *site.VerifyError
		if errors.As(err, &verr) {
			for _, issue := range verr.Issues {
				fmt.Fprintln(os.Stderr, issue.String())
			}
			return fmt.Errorf("site verification failed: %d broken references", len(verr.Issues))
		}
		return fmt.Errorf("build failed: %w", err)
	}

	fmt.Printf("✅ Build completed successfully in %v\n", stats.Duration.Round(time.Millisecond))
	fmt.Printf("   - %d pages rendered\n", stats.Pages)
	fmt.Printf("   - %d assets copied\n", stats.Assets)
	fmt.Printf("   - %d search index entries\n", stats.SearchEntries)
	fmt.Printf("   - Output written to: %s\n", cfg.Site.Output)
	return nil
}
