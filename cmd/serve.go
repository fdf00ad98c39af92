package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pavanpakhare/javanotes/internal/config"
	"github.com/pavanpakhare/javanotes/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the authoring server with live reload",
	Long: `Start the authoring server. It scans the corpus, watches it for
changes, re-renders and re-lints touched documents, and pushes updates
to open browser tabs over WebSocket.

Examples:
  javanotes serve                  # Serve on localhost:8080
  javanotes serve -p 3000          # Custom port
  javanotes serve --host 0.0.0.0   # Listen on all interfaces
  javanotes serve --no-open        # Don't open a browser tab`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "Port to serve on")
	serveCmd.Flags().String("host", "localhost", "Host to bind to")
	serveCmd.Flags().Bool("no-open", false, "Don't open browser automatically")

	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("server.no-open", serveCmd.Flags().Lookup("no-open"))

	AddFlagValidation(serveCmd, "port", ValidatePort)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := newLogger()

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down server...")

		if shutdownErr := srv.Shutdown(ctx); shutdownErr != nil {
			logger.Error(ctx, shutdownErr, "server shutdown")
		}

		cancel()
	}()

	fmt.Printf("Starting javanotes authoring server at http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println("Press Ctrl+C to stop")

	return srv.Start(ctx)
}
