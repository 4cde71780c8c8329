package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SweepStaleJobs fails jobs stuck in processing for longer than processingTimeout, along
// with candidates left in processing with no live job, and returns queued jobs older than
// queuedTimeout so the caller can re-enqueue them.
func (db *DB) SweepStaleJobs(ctx context.Context, processingTimeout, queuedTimeout time.Duration) (*SweepResult, error) {
	result := &SweepResult{StaleQueued: []ProcessingJob{}}

	err := db.withTx(ctx, func(tx pgx.Tx) error {
		reason := fmt.Sprintf("processing timed out after %s", processingTimeout)

		tag, err := tx.Exec(ctx,
			`UPDATE processing_jobs
			 SET status = $1, error_message = $2, updated_at = NOW()
			 WHERE status = $3 AND updated_at < NOW() - make_interval(secs => $4)`,
			JobFailed, reason, JobProcessing, processingTimeout.Seconds(),
		)
		if err != nil {
			return fmt.Errorf("failed to fail stale jobs: %w", err)
		}
		result.FailedJobs = int(tag.RowsAffected())

		tag, err = tx.Exec(ctx,
			`UPDATE candidates SET status = $1, updated_at = NOW()
			 WHERE status = $2 AND updated_at < NOW() - make_interval(secs => $3)
			   AND NOT EXISTS (
				 SELECT 1 FROM processing_jobs j
				 WHERE j.candidate_id = candidates.id AND j.status IN ($4, $5)
			   )`,
			CandidateFailed, CandidateProcessing, processingTimeout.Seconds(), JobQueued, JobProcessing,
		)
		if err != nil {
			return fmt.Errorf("failed to fail stale candidates: %w", err)
		}
		result.FailedCandidates = int(tag.RowsAffected())
		return nil
	})
	if err != nil {
		return nil, err
	}

	rows, err := db.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM processing_jobs
		 WHERE status = $1 AND updated_at < NOW() - make_interval(secs => $2)
		 ORDER BY created_at`,
		JobQueued, queuedTimeout.Seconds(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load stale queued jobs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		result.StaleQueued = append(result.StaleQueued, *job)
	}
	return result, rows.Err()
}

// TouchJob bumps a job's updated_at so the next sweep does not pick it up again.
func (db *DB) TouchJob(ctx context.Context, jobID uuid.UUID) error {
	if _, err := db.pool.Exec(ctx, `UPDATE processing_jobs SET updated_at = NOW() WHERE id = $1`, jobID); err != nil {
		return fmt.Errorf("failed to touch job: %w", err)
	}
	return nil
}
