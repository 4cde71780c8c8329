package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/candidate-hub/internal/analytics"
)

// stageNames returns analytics.StageOrder as plain strings, ranking stages in SQL.
func stageNames() []string {
	names := make([]string, len(analytics.StageOrder))
	for i, s := range analytics.StageOrder {
		names[i] = string(s)
	}
	return names
}

// PipelineSnapshot returns per-stage counts and stage transition counts across the user's
// positions, or a single position when positionID is non-nil. Only moves to a later stage
// count toward a stage's forward exits.
func (db *DB) PipelineSnapshot(ctx context.Context, userID uuid.UUID, positionID *uuid.UUID) ([]analytics.StageCount, []analytics.TransitionCount, error) {
	rows, err := db.pool.Query(ctx,
		`WITH scoped AS (
			SELECT id FROM positions
			WHERE user_id = $1 AND ($2::uuid IS NULL OR id = $2)
		),
		current AS (
			SELECT pc.stage, COUNT(*) AS cnt
			FROM position_candidates pc JOIN scoped s ON s.id = pc.position_id
			GROUP BY pc.stage
		),
		entered AS (
			SELECT st.to_stage AS stage, COUNT(*) AS cnt
			FROM stage_transitions st JOIN scoped s ON s.id = st.position_id
			GROUP BY st.to_stage
		),
		exited AS (
			SELECT st.from_stage AS stage, COUNT(*) AS cnt
			FROM stage_transitions st JOIN scoped s ON s.id = st.position_id
			WHERE array_position($3::text[], st.to_stage) > array_position($3::text[], st.from_stage)
			GROUP BY st.from_stage
		)
		SELECT stage, COALESCE(c.cnt, 0), COALESCE(e.cnt, 0), COALESCE(x.cnt, 0)
		FROM current c
		FULL JOIN entered e USING (stage)
		FULL JOIN exited x USING (stage)`,
		userID, positionID, stageNames(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load stage counts: %w", err)
	}

	var stages []analytics.StageCount
	for rows.Next() {
		var s analytics.StageCount
		var stage string
		if err := rows.Scan(&stage, &s.Count, &s.TotalEntered, &s.TotalExitedForward); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("failed to scan stage count: %w", err)
		}
		s.Stage = analytics.Stage(stage)
		stages = append(stages, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to load stage counts: %w", err)
	}

	rows, err = db.pool.Query(ctx,
		`SELECT st.from_stage, st.to_stage, COUNT(*)
		 FROM stage_transitions st
		 JOIN positions p ON p.id = st.position_id
		 WHERE p.user_id = $1 AND ($2::uuid IS NULL OR p.id = $2)
		 GROUP BY st.from_stage, st.to_stage`,
		userID, positionID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load stage transitions: %w", err)
	}
	defer rows.Close()

	var transitions []analytics.TransitionCount
	for rows.Next() {
		var t analytics.TransitionCount
		var from, to string
		if err := rows.Scan(&from, &to, &t.Count); err != nil {
			return nil, nil, fmt.Errorf("failed to scan stage transition: %w", err)
		}
		t.FromStage, t.ToStage = analytics.Stage(from), analytics.Stage(to)
		transitions = append(transitions, t)
	}
	return stages, transitions, rows.Err()
}

// PositionAggregates returns health inputs for the user's open positions. A match counts as
// active when it is not placed, and as stuck when it has not changed stage for stuckIdleDays.
func (db *DB) PositionAggregates(ctx context.Context, userID uuid.UUID, stuckIdleDays int) ([]analytics.PositionAggregate, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT p.id, p.title, p.created_at, p.deadline,
			COUNT(pc.candidate_id) FILTER (WHERE pc.stage <> 'placed'),
			COUNT(pc.candidate_id) FILTER (
				WHERE pc.stage <> 'placed'
				  AND pc.stage_updated_at < NOW() - make_interval(days => $2)
			)
		 FROM positions p
		 LEFT JOIN position_candidates pc ON pc.position_id = p.id
		 WHERE p.user_id = $1 AND p.status = 'open'
		 GROUP BY p.id
		 ORDER BY p.created_at DESC`,
		userID, stuckIdleDays,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load position aggregates: %w", err)
	}
	defer rows.Close()

	aggs := []analytics.PositionAggregate{}
	for rows.Next() {
		var a analytics.PositionAggregate
		var id uuid.UUID
		if err := rows.Scan(&id, &a.Title, &a.OpenedAt, &a.Deadline, &a.ActiveMatches, &a.StuckCount); err != nil {
			return nil, fmt.Errorf("failed to scan position aggregate: %w", err)
		}
		a.PositionID = id.String()
		aggs = append(aggs, a)
	}
	return aggs, rows.Err()
}
