package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is satisfied by both the pool and a transaction
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const jobColumns = `id, user_id, candidate_id, file_name, file_path, file_type, file_size,
	analysis_mode, status, error_message, created_at, updated_at`

func scanJob(row pgx.Row) (*ProcessingJob, error) {
	var j ProcessingJob
	err := row.Scan(&j.ID, &j.UserID, &j.CandidateID, &j.FileName, &j.FilePath, &j.FileType, &j.FileSize,
		&j.AnalysisMode, &j.Status, &j.ErrorMessage, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func insertJob(ctx context.Context, q querier, p NewJobParams) (*ProcessingJob, error) {
	mode := p.AnalysisMode
	if mode == "" {
		mode = DefaultAnalysisMode
	}
	job, err := scanJob(q.QueryRow(ctx,
		`INSERT INTO processing_jobs (user_id, candidate_id, file_name, file_path, file_type, file_size, analysis_mode, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+jobColumns,
		p.UserID, p.CandidateID, p.FileName, p.FilePath, p.FileType, p.FileSize, mode, JobQueued,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	return job, nil
}

// GetJob retrieves a job by ID. Returns nil when not found.
func (db *DB) GetJob(ctx context.Context, jobID uuid.UUID) (*ProcessingJob, error) {
	job, err := scanJob(db.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM processing_jobs WHERE id = $1`, jobID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// LatestJob returns the most recently created job for a candidate, or nil if it has none.
func (db *DB) LatestJob(ctx context.Context, candidateID uuid.UUID) (*ProcessingJob, error) {
	job, err := scanJob(db.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM processing_jobs
		 WHERE candidate_id = $1
		 ORDER BY created_at DESC
		 LIMIT 1`,
		candidateID,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest job: %w", err)
	}
	return job, nil
}

// StartRetry creates a queued job for the candidate and flips the candidate to processing.
func (db *DB) StartRetry(ctx context.Context, p NewJobParams) (*ProcessingJob, error) {
	var job *ProcessingJob
	err := db.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		job, err = insertJob(ctx, tx, p)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx,
			`UPDATE candidates SET status = $1, updated_at = NOW() WHERE id = $2 AND user_id = $3`,
			CandidateProcessing, p.CandidateID, p.UserID,
		)
		if err != nil {
			return fmt.Errorf("failed to update candidate status: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("candidate not found: %s", p.CandidateID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// MarkRetryFailed marks a job and its candidate failed with reason, in one transaction.
// Only a job that has not reached a terminal state is updated.
func (db *DB) MarkRetryFailed(ctx context.Context, jobID, candidateID uuid.UUID, reason string) error {
	return db.withTx(ctx, func(tx pgx.Tx) error {
		return markFailed(ctx, tx, jobID, candidateID, reason)
	})
}

func markFailed(ctx context.Context, q querier, jobID, candidateID uuid.UUID, reason string) error {
	if _, err := q.Exec(ctx,
		`UPDATE processing_jobs SET status = $1, error_message = $2, updated_at = NOW()
		 WHERE id = $3 AND status IN ($4, $5)`,
		JobFailed, reason, jobID, JobQueued, JobProcessing,
	); err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}
	if _, err := q.Exec(ctx,
		`UPDATE candidates SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`,
		CandidateFailed, candidateID, CandidateProcessing,
	); err != nil {
		return fmt.Errorf("failed to mark candidate failed: %w", err)
	}
	return nil
}
