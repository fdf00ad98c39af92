package cmd

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/pavanpakhare/javanotes/internal/config"
	"github.com/pavanpakhare/javanotes/internal/registry"
	"github.com/pavanpakhare/javanotes/internal/scanner"
	"github.com/spf13/cobra"
	yaml "gopkg.in/yaml.v2"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose configuration and corpus problems",
	Long: `Diagnose the working directory before a writing session. The doctor
command checks:

- The config file parses as YAML and has no unknown sections
- Every configured content root exists
- The corpus scans and documents were found
- The site output directory is writable
- The authoring server port is available

Examples:
  javanotes doctor                  # Full diagnosis, exit 1 on failures`,
	RunE: runDoctor,
}

// DiagnosticResult is the outcome of one doctor check.
type DiagnosticResult struct {
	Name       string
	Status     string // "ok", "warning", "error"
	Message    string
	Suggestion string
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	fmt.Println("🔍 Javanotes Doctor")
	fmt.Println("===================")
	fmt.Println()

	results := []DiagnosticResult{checkConfigFile()}

	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		results = append(results, DiagnosticResult{
			Name:    "Configuration",
			Status:  "error",
			Message: fmt.Sprintf("configuration failed to load: %v", cfgErr),
		})
	} else {
		results = append(results,
			checkContentRoots(cfg),
			checkCorpus(cfg),
			checkOutputDir(cfg),
			checkPort(cfg),
		)
	}

	failures := 0
	warnings := 0
	for _, result := range results {
		displayResult(result)
		switch result.Status {
		case "error":
			failures++
		case "warning":
			warnings++
		}
	}

	fmt.Println()
	if failures > 0 {
		return fmt.Errorf("doctor found %d problems", failures)
	}
	if warnings > 0 {
		fmt.Printf("%d checks passed, %d warnings\n", len(results)-warnings, warnings)
		return nil
	}
	fmt.Printf("All %d checks passed\n", len(results))
	return nil
}

func displayResult(result DiagnosticResult) {
	var icon string
	switch result.Status {
	case "ok":
		icon = "✓"
	case "warning":
		icon = "!"
	default:
		icon = "✗"
	}

	fmt.Printf("%s %s: %s\n", icon, result.Name, result.Message)
	if result.Suggestion != "" {
		fmt.Printf("  💡 %s\n", result.Suggestion)
	}
}

// configFilePath mirrors initConfig's search order for doctor's raw checks.
func configFilePath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if envConfigFile := os.Getenv("JAVANOTES_CONFIG_FILE"); envConfigFile != "" {
		return envConfigFile
	}
	return ".javanotes.yml"
}

// checkConfigFile re-parses the config file with yaml.v2 as a second opinion
// independent of viper, which falls back to defaults without complaining
// when a config file is malformed.
func checkConfigFile() DiagnosticResult {
	result := DiagnosticResult{Name: "Config file", Status: "ok"}

	path := configFilePath()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		result.Status = "warning"
		result.Message = fmt.Sprintf("%s not found, using defaults", path)
		result.Suggestion = "Create .javanotes.yml to pin roots, lint rules, and site settings"
		return result
	}
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("cannot read %s: %v", path, err)
		return result
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("%s is not valid YAML: %v", path, err)
		return result
	}

	known := map[string]bool{"docs": true, "site": true, "lint": true, "server": true, "watch": true}
	var unknown []string
	for key := range raw {
		if !known[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	if len(unknown) > 0 {
		result.Status = "warning"
		result.Message = fmt.Sprintf("%s has unknown sections: %v", path, unknown)
		result.Suggestion = "Known sections are docs, site, lint, server, and watch"
		return result
	}

	result.Message = fmt.Sprintf("%s parses cleanly", path)
	return result
}

func checkContentRoots(cfg *config.Config) DiagnosticResult {
	result := DiagnosticResult{Name: "Content roots", Status: "ok"}

	var missing []string
	for _, root := range cfg.Docs.Roots {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			missing = append(missing, root)
		}
	}
	if len(missing) > 0 {
		result.Status = "error"
		result.Message = fmt.Sprintf("missing content roots: %v", missing)
		result.Suggestion = "Create the directories or fix docs.roots in .javanotes.yml"
		return result
	}

	result.Message = fmt.Sprintf("all %d content roots exist", len(cfg.Docs.Roots))
	return result
}

func checkCorpus(cfg *config.Config) DiagnosticResult {
	result := DiagnosticResult{Name: "Corpus", Status: "ok"}

	reg := registry.NewDocumentRegistry()
	sc, err := scanner.NewDocumentScanner(reg, cfg.Docs.Roots, cfg.Docs.Exclude)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("cannot create scanner: %v", err)
		return result
	}
	defer sc.Close()
	sc.SetExtensions(cfg.Docs.Extensions)

	if err := sc.ScanAll(); err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("scan failed: %v", err)
		return result
	}

	count := reg.Count()
	broken := len(sc.Errors().GetErrors())
	switch {
	case count == 0:
		result.Status = "warning"
		result.Message = "no documents found under the content roots"
		result.Suggestion = "Check docs.roots and docs.extensions in .javanotes.yml"
	case broken > 0:
		result.Status = "warning"
		result.Message = fmt.Sprintf("%d documents scanned, %d files failed to parse", count, broken)
		result.Suggestion = "Run 'javanotes lint' for details"
	default:
		result.Message = fmt.Sprintf("%d documents scanned cleanly", count)
	}
	return result
}

func checkOutputDir(cfg *config.Config) DiagnosticResult {
	result := DiagnosticResult{Name: "Output directory", Status: "ok"}

	dir := cfg.Site.Output
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		// Build creates it, so prove the parent is writable instead.
		parent := filepath.Dir(dir)
		if !writableDir(parent) {
			result.Status = "error"
			result.Message = fmt.Sprintf("cannot create %s: %s is not writable", dir, parent)
			return result
		}
		result.Message = fmt.Sprintf("%s will be created on build", dir)
	case err != nil:
		result.Status = "error"
		result.Message = fmt.Sprintf("cannot stat %s: %v", dir, err)
	case !info.IsDir():
		result.Status = "error"
		result.Message = fmt.Sprintf("%s exists but is not a directory", dir)
	case !writableDir(dir):
		result.Status = "error"
		result.Message = fmt.Sprintf("%s is not writable", dir)
	default:
		result.Message = fmt.Sprintf("%s is writable", dir)
	}
	return result
}

// writableDir probes a directory by creating and removing a temp file.
func writableDir(dir string) bool {
	f, err := os.CreateTemp(dir, ".javanotes-doctor-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}

// checkPort is a point-in-time probe. The port can still be taken between
// doctor and serve.
func checkPort(cfg *config.Config) DiagnosticResult {
	result := DiagnosticResult{Name: "Server port", Status: "ok"}

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		result.Status = "error"
		result.Message = fmt.Sprintf("port %d is out of range", cfg.Server.Port)
		return result
	}

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("cannot listen on %s: %v", addr, err)
		result.Suggestion = "Stop the conflicting service or pass a different --port to serve"
		return result
	}
	ln.Close()

	result.Message = fmt.Sprintf("%s is available", addr)
	return result
}
