package main

import (
	"errors"

	"github.com/jonathan/candidate-hub/internal/db"
	"github.com/jonathan/candidate-hub/internal/observability"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL is required")
	}

	database, err := db.Connect(cmd.Context(), cfg.Database.URL)
	if err != nil {
		return err
	}
	defer database.Close()

	applied, err := database.Migrate(cmd.Context())
	if err != nil {
		return err
	}
	logger.Info("migrations complete", zap.Ints("applied", applied))
	observability.NewPrinter(cmd.OutOrStdout()).PrintMigrations(applied)
	return nil
}
