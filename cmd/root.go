// Package cmd implements the coursepilot CLI.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/coursepilot/coursepilot/internal/app"
	"github.com/coursepilot/coursepilot/internal/config"
	"github.com/coursepilot/coursepilot/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "coursepilot",
	Short: "coursepilot - Q&A over your course transcripts",
	Long: `coursepilot ingests course transcripts into a vector store and answers
questions about them with tool-assisted AI search.

Run "coursepilot ingest <folder>" to load transcripts, then
"coursepilot ask <question>" or "coursepilot chat".`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// setupApp loads configuration and assembles the application.
// Callers must Close() the returned App.
func setupApp(ctx context.Context) (*app.App, error) {
	logger := log.New(log.Config{Level: logLevel()})
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing application: %w", err)
	}
	return a, nil
}

// logLevel is debug when the DEBUG environment variable is set.
func logLevel() slog.Level {
	if os.Getenv("DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
