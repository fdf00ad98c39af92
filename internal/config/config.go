// Package config provides configuration management for javanotes using Viper
// for flexible loading from files, environment variables, and command-line
// flags.
//
// Configuration lives in .javanotes.yml by default, with JAVANOTES_ prefixed
// environment overrides. It covers the content roots to scan, static site
// output, lint rule selection and failure threshold, the authoring server,
// and watch-mode debouncing.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Docs   DocsConfig   `yaml:"docs"`
	Site   SiteConfig   `yaml:"site"`
	Lint   LintConfig   `yaml:"lint"`
	Server ServerConfig `yaml:"server"`
	Watch  WatchConfig  `yaml:"watch"`

	// TargetPaths carries positional CLI arguments, not config file content.
	TargetPaths []string `yaml:"-"`
}

type DocsConfig struct {
	Roots      []string `yaml:"roots"`
	Exclude    []string `yaml:"exclude"`
	Extensions []string `yaml:"extensions"`
}

type SiteConfig struct {
	Title   string `yaml:"title"`
	BaseURL string `yaml:"base_url"`
	Output  string `yaml:"output"`
	Verify  bool   `yaml:"verify"`
}

type LintConfig struct {
	// Rules, when set, restricts linting to exactly these rules.
	Rules   []string `yaml:"rules"`
	Disable []string `yaml:"disable"`
	// FailOn is the severity threshold that makes lint exit non-zero:
	// "error" or "warning".
	FailOn string `yaml:"fail_on"`
}

type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	Open           bool     `yaml:"open"`
	NoOpen         bool     `yaml:"no-open"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	Environment    string   `yaml:"environment"`
}

type WatchConfig struct {
	DebounceMS int `yaml:"debounce_ms"`
}

func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Apply default roots only if not explicitly set
	if !viper.IsSet("docs.roots") && len(config.Docs.Roots) == 0 {
		config.Docs.Roots = []string{"docs"}
	}

	// Handle slice keys set via viper (workaround for viper slice handling)
	if viper.IsSet("docs.roots") && len(config.Docs.Roots) == 0 {
		if roots := viper.GetStringSlice("docs.roots"); len(roots) > 0 {
			config.Docs.Roots = roots
		}
	}
	if viper.IsSet("docs.exclude") && len(config.Docs.Exclude) == 0 {
		config.Docs.Exclude = viper.GetStringSlice("docs.exclude")
	}
	if viper.IsSet("docs.extensions") && len(config.Docs.Extensions) == 0 {
		config.Docs.Extensions = viper.GetStringSlice("docs.extensions")
	}
	if viper.IsSet("lint.rules") && len(config.Lint.Rules) == 0 {
		config.Lint.Rules = viper.GetStringSlice("lint.rules")
	}
	if viper.IsSet("lint.disable") && len(config.Lint.Disable) == 0 {
		config.Lint.Disable = viper.GetStringSlice("lint.disable")
	}

	// Underscored keys do not unmarshal by field name; read them explicitly.
	if viper.IsSet("site.base_url") {
		config.Site.BaseURL = viper.GetString("site.base_url")
	}
	if viper.IsSet("lint.fail_on") {
		config.Lint.FailOn = viper.GetString("lint.fail_on")
	}
	if viper.IsSet("server.allowed_origins") {
		config.Server.AllowedOrigins = viper.GetStringSlice("server.allowed_origins")
	}
	if viper.IsSet("watch.debounce_ms") {
		config.Watch.DebounceMS = viper.GetInt("watch.debounce_ms")
	}

	// Apply default values for DocsConfig if not set
	if len(config.Docs.Extensions) == 0 {
		config.Docs.Extensions = []string{".md", ".markdown"}
	}

	// Apply default values for SiteConfig if not set
	if config.Site.Title == "" {
		config.Site.Title = "Java Notes"
	}
	if config.Site.Output == "" {
		config.Site.Output = "public"
	}
	if !viper.IsSet("site.verify") {
		config.Site.Verify = true
	}

	// Override verify if explicitly disabled via flag
	if viper.IsSet("site.no-verify") && viper.GetBool("site.no-verify") {
		config.Site.Verify = false
	}

	// Apply default values for LintConfig if not set
	if config.Lint.FailOn == "" {
		config.Lint.FailOn = "error"
	}

	// Apply default values for ServerConfig if not set
	if config.Server.Host == "" {
		config.Server.Host = "localhost"
	}
	if !viper.IsSet("server.port") && config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.Environment == "" {
		config.Server.Environment = "development"
	}

	// Override open if explicitly disabled via flag
	if viper.IsSet("server.no-open") && viper.GetBool("server.no-open") {
		config.Server.Open = false
	}

	// Apply default values for WatchConfig if not set
	if !viper.IsSet("watch.debounce_ms") && config.Watch.DebounceMS == 0 {
		config.Watch.DebounceMS = 300
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := validateDocsConfig(&config.Docs); err != nil {
		return fmt.Errorf("docs config: %w", err)
	}
	if err := validateSiteConfig(&config.Site, config.Docs.Roots); err != nil {
		return fmt.Errorf("site config: %w", err)
	}
	if err := validateLintConfig(&config.Lint); err != nil {
		return fmt.Errorf("lint config: %w", err)
	}
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := validateWatchConfig(&config.Watch); err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	return nil
}

// validateDocsConfig validates content root configuration values
func validateDocsConfig(config *DocsConfig) error {
	if len(config.Roots) == 0 {
		return fmt.Errorf("no content roots configured")
	}
	for _, root := range config.Roots {
		if err := validatePath(root); err != nil {
			return fmt.Errorf("invalid content root '%s': %w", root, err)
		}
	}
	for _, ext := range config.Extensions {
		if strings.TrimSpace(ext) == "" {
			return fmt.Errorf("empty extension")
		}
	}
	return nil
}

// validateSiteConfig validates site output configuration values. The output
// directory must not sit inside a content root: generated pages would feed
// back into the watcher and the scanner.
func validateSiteConfig(config *SiteConfig, roots []string) error {
	if config.Output == "" {
		return fmt.Errorf("empty output directory")
	}
	if err := validatePath(config.Output); err != nil {
		return fmt.Errorf("invalid output directory '%s': %w", config.Output, err)
	}

	outAbs, err := filepath.Abs(config.Output)
	if err != nil {
		return fmt.Errorf("resolving output %s: %w", config.Output, err)
	}
	for _, root := range roots {
		rootAbs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		if outAbs == rootAbs || strings.HasPrefix(outAbs, rootAbs+string(os.PathSeparator)) {
			return fmt.Errorf("output %s is inside content root %s", config.Output, root)
		}
	}
	return nil
}

// validateLintConfig validates lint configuration values
func validateLintConfig(config *LintConfig) error {
	switch config.FailOn {
	case "error", "warning":
		return nil
	default:
		return fmt.Errorf("fail_on must be 'error' or 'warning', got %q", config.FailOn)
	}
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// Port 0 stays valid for system-assigned ports in testing
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	if config.Host != "" {
		dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
		for _, char := range dangerousChars {
			if strings.Contains(config.Host, char) {
				return fmt.Errorf("host contains dangerous character: %s", char)
			}
		}
	}

	switch config.Environment {
	case "development", "production":
	default:
		return fmt.Errorf("environment must be 'development' or 'production', got %q", config.Environment)
	}

	return nil
}

// validateWatchConfig validates watch configuration values
func validateWatchConfig(config *WatchConfig) error {
	if config.DebounceMS < 0 {
		return fmt.Errorf("debounce_ms must not be negative, got %d", config.DebounceMS)
	}
	return nil
}

// validatePath validates a file path for security
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(path)

	// Reject path traversal attempts
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains traversal: %s", path)
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}
