// Package cmd provides the command-line interface for javanotes with
// configuration management supporting multiple configuration sources.
//
// Configuration System:
//
//	The CLI supports flexible configuration through multiple sources with clear precedence:
//	1. Command-line flags (--config, --port, etc.) - highest priority
//	2. JAVANOTES_CONFIG_FILE environment variable - custom config file path
//	3. Individual environment variables (JAVANOTES_SERVER_PORT, etc.)
//	4. Configuration files (.javanotes.yml) - lowest priority
//
// Environment Variables:
//
//	JAVANOTES_CONFIG_FILE: Path to custom configuration file
//	JAVANOTES_SERVER_PORT: Override authoring server port
//	JAVANOTES_SITE_OUTPUT: Override the static site output directory
//	JAVANOTES_LINT_FAIL_ON: Override the lint failure threshold
//	And many more following the JAVANOTES_<SECTION>_<OPTION> pattern
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/pavanpakhare/javanotes/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "javanotes",
	Short: "A lint and publishing toolchain for Java tutorial notes",
	Long: `Javanotes turns a directory tree of Markdown notes on Java and Spring
into a linted, searchable static site, with a live-reloading authoring
server for writing sessions.

Key Features:
  • Corpus scanning with front matter and heading extraction
  • Structural lint rules for prose and Java code fences
  • Static site builder with navigation and client-side search
  • Authoring server with WebSocket live reload
  • Render pipeline with caching and priority scheduling

Quick Start:
  javanotes lint                  Lint the whole corpus
  javanotes build                 Build the static site
  javanotes serve                 Start the authoring server
  javanotes list                  List all documents
  javanotes doctor                Diagnose configuration problems

Command Aliases (for faster typing):
  lint (l), build (b), serve (s)

Documentation: https://github.com/pavanpakhare/javanotes`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .javanotes.yml, can also use JAVANOTES_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log-format", rootCmd.PersistentFlags().Lookup("log-format"))

	AddFlagValidation(rootCmd, "config", ValidateFileExists)
}

// initConfig initializes the configuration system with support for multiple config sources.
//
// Configuration Loading Priority (highest to lowest):
//  1. --config flag: Explicitly specified config file path
//  2. JAVANOTES_CONFIG_FILE environment variable: Custom config file path
//  3. Default: .javanotes.yml in current directory
//
// The function also enables automatic environment variable binding for all
// configuration values with the JAVANOTES_ prefix (e.g., JAVANOTES_SERVER_PORT=8080).
func initConfig() {
	// Priority 1: Use config file specified via --config flag (highest priority)
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("JAVANOTES_CONFIG_FILE"); envConfigFile != "" {
		// Priority 2: Use config file specified via JAVANOTES_CONFIG_FILE environment
		// variable. Supports both relative and absolute paths.
		viper.SetConfigFile(envConfigFile)
	} else {
		// Priority 3: Search for default .javanotes.yml in current directory
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".javanotes")
	}

	// Enable automatic environment variable binding with JAVANOTES_ prefix
	// Examples: JAVANOTES_SERVER_PORT, JAVANOTES_SITE_OUTPUT, JAVANOTES_LINT_FAIL_ON
	viper.SetEnvPrefix("JAVANOTES")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// If the file doesn't exist or has errors, Viper falls back to defaults
	// so every command still works in a bare directory of Markdown files.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the CLI logger from the persistent log flags.
func newLogger() logging.Logger {
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(viper.GetString("log-level")),
		Format: viper.GetString("log-format"),
	})
}
