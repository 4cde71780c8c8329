// Package main provides the entry point for the candidate hub API server and its
// operational commands.
package main

import (
	"fmt"
	"os"

	"github.com/jonathan/candidate-hub/internal/config"
	"github.com/jonathan/candidate-hub/internal/observability"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configFile string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:          "candidate_hub",
	Short:        "Candidate Hub API server",
	Long:         "Candidate Hub serves resume search, bulk retry, position matching and hiring analytics over a REST API.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.Load(configFile)
		if err != nil {
			return err
		}
		cfg = loaded

		logger, err = observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a config file (default: ./configs/config.yaml or ./config.yaml if present)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
