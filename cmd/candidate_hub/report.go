package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/candidate-hub/internal/analytics"
	"github.com/jonathan/candidate-hub/internal/db"
	"github.com/jonathan/candidate-hub/internal/observability"
	"github.com/spf13/cobra"
)

var (
	reportUser     string
	reportPosition string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print pipeline conversion and position health for a user",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportUser, "user", "", "User ID (required)")
	reportCmd.Flags().StringVar(&reportPosition, "position", "", "Limit the pipeline to one position")
	_ = reportCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, _ []string) error {
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL is required")
	}
	userID, err := uuid.Parse(reportUser)
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}
	var positionID *uuid.UUID
	if reportPosition != "" {
		id, err := uuid.Parse(reportPosition)
		if err != nil {
			return fmt.Errorf("invalid position id: %w", err)
		}
		positionID = &id
	}

	ctx := cmd.Context()
	database, err := db.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer database.Close()

	stages, transitions, err := database.PipelineSnapshot(ctx, userID, positionID)
	if err != nil {
		return err
	}

	th := healthThresholds(cfg.Health)
	aggs, err := database.PositionAggregates(ctx, userID, th.StuckIdleDays)
	if err != nil {
		return err
	}

	printer := observability.NewPrinter(cmd.OutOrStdout())
	printer.PrintPipelineStats(analytics.ComputePipelineStats(stages, transitions))
	printer.PrintHealthReport(analytics.BuildHealthReport(aggs, th, time.Now()))
	return nil
}
