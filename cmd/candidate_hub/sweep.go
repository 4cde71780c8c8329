package main

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jonathan/candidate-hub/internal/db"
	"github.com/jonathan/candidate-hub/internal/observability"
	"github.com/jonathan/candidate-hub/internal/worker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Fail stuck processing jobs and re-enqueue stale queued ones",
	Long: `Marks jobs that have been processing longer than sweep.processing_timeout as failed,
together with candidates left in processing without a live job, so they become eligible
for bulk retry. Queued jobs older than sweep.queued_timeout are handed to the worker again
when WORKER_URL is set; jobs for already charged candidates are dispatched without a second
credit deduction.`,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

type staleJobQueue interface {
	Enqueue(ctx context.Context, req worker.EnqueueRequest) error
	Process(ctx context.Context, req worker.ProcessRequest) error
}

type staleJobStore interface {
	ChargedCandidateIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]bool, error)
	TouchJob(ctx context.Context, jobID uuid.UUID) error
}

func runSweep(cmd *cobra.Command, _ []string) error {
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL is required")
	}
	ctx := cmd.Context()

	database, err := db.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer database.Close()

	res, err := database.SweepStaleJobs(ctx, cfg.Sweep.ProcessingTimeout, cfg.Sweep.QueuedTimeout)
	if err != nil {
		return err
	}

	requeued := 0
	if cfg.Worker.URL != "" {
		client := worker.NewClient(worker.Options{
			BaseURL: cfg.Worker.URL,
			APIKey:  cfg.Worker.APIKey,
			Timeout: cfg.Worker.Timeout,
		})
		requeued = requeueStale(ctx, client, database, res.StaleQueued, logger)
	} else if len(res.StaleQueued) > 0 {
		logger.Warn("WORKER_URL not set, stale queued jobs left for polling pickup",
			zap.Int("jobs", len(res.StaleQueued)))
	}

	logger.Info("sweep complete",
		zap.Int("failed_jobs", res.FailedJobs),
		zap.Int("failed_candidates", res.FailedCandidates),
		zap.Int("stale_queued", len(res.StaleQueued)),
		zap.Int("requeued", requeued),
	)
	observability.NewPrinter(cmd.OutOrStdout()).PrintSweepResult(res, requeued)
	return nil
}

// requeueStale hands each stale queued job back to the worker and touches it so the next sweep
// does not pick it up immediately. Jobs whose candidate was already charged are retry jobs
// stranded before dispatch; they go through /process with credit deduction skipped instead of
// the queue, which would charge again. It returns the number of jobs handed back.
func requeueStale(ctx context.Context, queue staleJobQueue, store staleJobStore, jobs []db.ProcessingJob, logger *zap.Logger) int {
	charged, unknown := chargedByUser(ctx, store, jobs, logger)

	requeued := 0
	for _, job := range jobs {
		logger := logger.With(zap.String("job_id", job.ID.String()))
		mode := job.AnalysisMode
		if mode == "" {
			mode = db.DefaultAnalysisMode
		}

		var err error
		switch {
		case job.CandidateID != nil && unknown[job.UserID]:
			logger.Warn("skipping re-enqueue, charge state unknown")
			continue
		case job.CandidateID != nil && charged[*job.CandidateID]:
			err = queue.Process(ctx, worker.ProcessRequest{
				FileURL:             job.FilePath,
				FileName:            job.FileName,
				UserID:              job.UserID.String(),
				JobID:               job.ID.String(),
				CandidateID:         job.CandidateID.String(),
				Mode:                mode,
				IsRetry:             true,
				SkipCreditDeduction: true,
			})
		default:
			err = queue.Enqueue(ctx, worker.EnqueueRequest{
				JobID:    job.ID.String(),
				UserID:   job.UserID.String(),
				FilePath: job.FilePath,
				FileName: job.FileName,
				Mode:     mode,
			})
		}
		if err != nil {
			observability.WorkerEnqueueFailed.Inc()
			logger.Warn("re-enqueue failed", zap.Error(err))
			continue
		}
		if err := store.TouchJob(ctx, job.ID); err != nil {
			logger.Warn("failed to touch re-enqueued job", zap.Error(err))
		}
		requeued++
	}
	return requeued
}

// chargedByUser looks up which of the jobs' candidates already carry a usage charge. Users
// whose lookup failed are returned in unknown.
func chargedByUser(ctx context.Context, store staleJobStore, jobs []db.ProcessingJob, logger *zap.Logger) (map[uuid.UUID]bool, map[uuid.UUID]bool) {
	byUser := make(map[uuid.UUID][]uuid.UUID)
	for _, job := range jobs {
		if job.CandidateID != nil {
			byUser[job.UserID] = append(byUser[job.UserID], *job.CandidateID)
		}
	}

	charged := make(map[uuid.UUID]bool)
	unknown := make(map[uuid.UUID]bool)
	for userID, ids := range byUser {
		got, err := store.ChargedCandidateIDs(ctx, userID, ids)
		if err != nil {
			logger.Warn("failed to load charged candidates", zap.String("user_id", userID.String()), zap.Error(err))
			unknown[userID] = true
			continue
		}
		for id := range got {
			charged[id] = true
		}
	}
	return charged, unknown
}
