package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/candidate-hub/internal/search"
)

const candidateColumns = `id, user_id, name, last_position, last_company, exp_years, skills, summary,
	careers, educations, projects, status, confidence_score, is_latest, created_at, updated_at`

func scanCandidate(row pgx.Row) (*Candidate, error) {
	var c Candidate
	var careers, educations, projects []byte
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.LastPosition, &c.LastCompany, &c.ExpYears, &c.Skills,
		&c.Summary, &careers, &educations, &projects, &c.Status, &c.ConfidenceScore, &c.IsLatest,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Careers, c.Educations, c.Projects = careers, educations, projects
	if c.Skills == nil {
		c.Skills = []string{}
	}
	return &c, nil
}

// candidateFilter builds the WHERE clause shared by the list and count queries.
// Every user-supplied value is a bind parameter; keywords are matched with escaped ILIKE.
func candidateFilter(userID uuid.UUID, q search.CandidateQuery) (string, []any) {
	var sb strings.Builder
	args := []any{userID}
	sb.WriteString("user_id = $1 AND is_latest = TRUE")

	if len(q.Statuses) > 0 {
		args = append(args, q.Statuses)
		fmt.Fprintf(&sb, " AND status = ANY($%d)", len(args))
	}

	for _, kw := range q.Keywords {
		args = append(args, search.ContainsPattern(kw))
		n := len(args)
		fmt.Fprintf(&sb,
			" AND (name ILIKE $%[1]d OR last_position ILIKE $%[1]d OR last_company ILIKE $%[1]d"+
				" OR summary ILIKE $%[1]d OR array_to_string(skills, ' ') ILIKE $%[1]d)", n)
	}

	for _, skill := range q.Skills {
		args = append(args, strings.ToLower(skill))
		fmt.Fprintf(&sb, " AND EXISTS (SELECT 1 FROM unnest(skills) s WHERE lower(s) = $%d)", len(args))
	}

	return sb.String(), args
}

// ListCandidates returns one page of the user's latest candidates, newest first.
func (db *DB) ListCandidates(ctx context.Context, userID uuid.UUID, q search.CandidateQuery) (*CandidatePage, error) {
	where, args := candidateFilter(userID, q)

	var total int
	if err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM candidates WHERE `+where, args...,
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count candidates: %w", err)
	}

	args = append(args, q.Limit, q.Offset())
	query := fmt.Sprintf(`SELECT %s FROM candidates WHERE %s
		ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		candidateColumns, where, len(args)-1, len(args))

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	page := &CandidatePage{Candidates: []Candidate{}, Total: total}
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		page.Candidates = append(page.Candidates, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	return page, nil
}

// GetCandidate retrieves a candidate owned by userID. Returns nil when not found.
func (db *DB) GetCandidate(ctx context.Context, userID, candidateID uuid.UUID) (*Candidate, error) {
	c, err := scanCandidate(db.pool.QueryRow(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE id = $1 AND user_id = $2`,
		candidateID, userID,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}
	return c, nil
}

// FailedCandidates returns the subset of ids owned by userID whose latest version is failed.
// Ids that are missing, foreign, or in any other state are silently omitted.
func (db *DB) FailedCandidates(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]Candidate, error) {
	if len(ids) == 0 {
		return []Candidate{}, nil
	}

	rows, err := db.pool.Query(ctx,
		`SELECT `+candidateColumns+` FROM candidates
		 WHERE id = ANY($1) AND user_id = $2 AND status = $3 AND is_latest = TRUE
		 ORDER BY created_at`,
		ids, userID, CandidateFailed,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load failed candidates: %w", err)
	}
	defer rows.Close()

	candidates := []Candidate{}
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, *c)
	}
	return candidates, rows.Err()
}

// CreateCandidateWithJob registers an uploaded file: a processing candidate placeholder and
// its first queued job, in one transaction.
func (db *DB) CreateCandidateWithJob(ctx context.Context, p NewJobParams) (*ProcessingJob, error) {
	var job *ProcessingJob
	err := db.withTx(ctx, func(tx pgx.Tx) error {
		var candidateID uuid.UUID
		if err := tx.QueryRow(ctx,
			`INSERT INTO candidates (user_id, name, status) VALUES ($1, $2, $3) RETURNING id`,
			p.UserID, p.FileName, CandidateProcessing,
		).Scan(&candidateID); err != nil {
			return fmt.Errorf("failed to create candidate: %w", err)
		}

		p.CandidateID = candidateID
		var err error
		job, err = insertJob(ctx, tx, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}
