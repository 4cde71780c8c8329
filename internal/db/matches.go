package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GetPosition retrieves a position owned by userID. Returns nil when it does not exist or
// belongs to someone else.
func (db *DB) GetPosition(ctx context.Context, userID, positionID uuid.UUID) (*Position, error) {
	var p Position
	err := db.pool.QueryRow(ctx,
		`SELECT id, user_id, title, status, deadline, created_at
		 FROM positions WHERE id = $1 AND user_id = $2`,
		positionID, userID,
	).Scan(&p.ID, &p.UserID, &p.Title, &p.Status, &p.Deadline, &p.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	return &p, nil
}

// ListMatches returns the position's matches, best first.
func (db *DB) ListMatches(ctx context.Context, positionID uuid.UUID, filters MatchFilters) ([]PositionMatch, error) {
	query := `SELECT pc.position_id, pc.candidate_id, c.name, c.last_position, c.last_company,
			pc.overall_score, pc.skill_score, pc.experience_score, pc.education_score, pc.semantic_score,
			pc.stage, pc.matched_at, pc.stage_updated_at
		FROM position_candidates pc
		JOIN candidates c ON c.id = pc.candidate_id
		WHERE pc.position_id = $1`
	args := []any{positionID}
	argNum := 2

	if filters.Stage != "" {
		query += fmt.Sprintf(" AND pc.stage = $%d", argNum)
		args = append(args, filters.Stage)
		argNum++
	}
	if filters.MinScore > 0 {
		query += fmt.Sprintf(" AND pc.overall_score >= $%d", argNum)
		args = append(args, filters.MinScore)
	}
	query += " ORDER BY pc.overall_score DESC, pc.candidate_id"

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	matches := []PositionMatch{}
	for rows.Next() {
		var m PositionMatch
		if err := rows.Scan(&m.PositionID, &m.CandidateID, &m.CandidateName, &m.LastPosition, &m.LastCompany,
			&m.OverallScore, &m.SkillScore, &m.ExperienceScore, &m.EducationScore, &m.SemanticScore,
			&m.Stage, &m.MatchedAt, &m.StageUpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// RefreshMatches runs the save_position_matches procedure.
func (db *DB) RefreshMatches(ctx context.Context, p RefreshMatchesParams) (*RefreshMatchesResult, error) {
	var res RefreshMatchesResult
	err := db.pool.QueryRow(ctx,
		`SELECT save_position_matches($1, $2, $3, $4)`,
		p.PositionID, p.UserID, p.Limit, p.MinScore,
	).Scan(&res.Saved)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh matches: %w", err)
	}
	return &res, nil
}

// UpdateMatchStage moves a match to stage and records the transition. Returns nil when the
// match does not exist. Moving to the current stage is a no-op without a transition row.
func (db *DB) UpdateMatchStage(ctx context.Context, positionID, candidateID uuid.UUID, stage string) (*StageTransition, error) {
	var transition *StageTransition
	err := db.withTx(ctx, func(tx pgx.Tx) error {
		var from string
		err := tx.QueryRow(ctx,
			`SELECT stage FROM position_candidates
			 WHERE position_id = $1 AND candidate_id = $2
			 FOR UPDATE`,
			positionID, candidateID,
		).Scan(&from)
		if err != nil {
			if err == pgx.ErrNoRows {
				return nil
			}
			return fmt.Errorf("failed to load match: %w", err)
		}

		t := StageTransition{PositionID: positionID, CandidateID: candidateID, FromStage: from, ToStage: stage}
		if from == stage {
			transition = &t
			return nil
		}

		if _, err := tx.Exec(ctx,
			`UPDATE position_candidates SET stage = $3, stage_updated_at = NOW()
			 WHERE position_id = $1 AND candidate_id = $2`,
			positionID, candidateID, stage,
		); err != nil {
			return fmt.Errorf("failed to update stage: %w", err)
		}

		if err := tx.QueryRow(ctx,
			`INSERT INTO stage_transitions (position_id, candidate_id, from_stage, to_stage)
			 VALUES ($1, $2, $3, $4)
			 RETURNING created_at`,
			positionID, candidateID, from, stage,
		).Scan(&t.CreatedAt); err != nil {
			return fmt.Errorf("failed to record stage transition: %w", err)
		}
		transition = &t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return transition, nil
}
