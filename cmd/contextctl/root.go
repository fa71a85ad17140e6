package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jharjadi/doc-context/internal/loader"
)

func newRootCmd() *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:   "contextctl",
		Short: "Inspect documents and assemble budgeted context",
		Long: "contextctl classifies a document into a size tier, shows its token budget " +
			"and prints the excerpt the service would inject for a query.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			switch strings.ToLower(logLevel) {
			case "debug":
				level = slog.LevelDebug
			case "info":
				level = slog.LevelInfo
			case "error":
				level = slog.LevelError
			}
			slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level written to stderr (debug|info|warn|error)")

	rootCmd.AddCommand(newInspectCmd())
	rootCmd.AddCommand(newAssembleCmd())
	return rootCmd
}

// loadFile reads and parses a local document.
func loadFile(path string) (*loader.LoadedDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return loader.Load(data, filepath.Base(path))
}
