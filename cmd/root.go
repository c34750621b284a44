// Package cmd implements the coach command-line interface.
//
// Commands:
//   - serve: start the HTTP API server
//   - reindex: rebuild the vector index from the knowledge directory
//   - ask: answer a single question from the terminal
//   - version: show version and configuration
package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vidasana/coach/internal/config"
	"github.com/vidasana/coach/internal/log"
)

// Version information (injected at build time via ldflags).
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "coach",
	Short: "VidaSana preventive-health coaching service",
	Long: `Coach answers preventive-health questions and generates personalized
coaching plans, grounding every answer in a local knowledge base through
retrieval-augmented generation.

Run "coach serve" to start the HTTP API, or "coach ask" for a one-shot
question from the terminal.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// bootstrap loads configuration and installs the logger every command
// shares. slog's default logger is replaced so library code that logs
// through slog lands in the same handler.
func bootstrap() (*config.Config, log.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}

	logger := log.New(log.Config{
		Level: parseLogLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})
	slog.SetDefault(logger)

	return cfg, logger, nil
}

// parseLogLevel maps the configured level name to a slog level.
// Unknown names fall back to info.
func parseLogLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
