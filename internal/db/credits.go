package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// remainingExpr is the spendable balance of a user_credits row.
const remainingExpr = `(plan_base_credits - credits_used_this_month + purchased_credits - credits_reserved)`

// GetCredits returns the user's balance. A user without a row has no credits.
func (db *DB) GetCredits(ctx context.Context, userID uuid.UUID) (*UserCredits, error) {
	c := UserCredits{UserID: userID}
	err := db.pool.QueryRow(ctx,
		`SELECT plan, plan_base_credits, credits_used_this_month, purchased_credits, credits_reserved
		 FROM user_credits WHERE user_id = $1`,
		userID,
	).Scan(&c.Plan, &c.PlanBaseCredits, &c.CreditsUsedThisMonth, &c.PurchasedCredits, &c.CreditsReserved)
	if err != nil {
		if err == pgx.ErrNoRows {
			return &c, nil
		}
		return nil, fmt.Errorf("failed to get credits: %w", err)
	}
	return &c, nil
}

// ReserveCredits reserves n credits in a single conditional update: either all n are
// reserved or none are. Concurrent callers cannot both pass the balance check.
func (db *DB) ReserveCredits(ctx context.Context, userID uuid.UUID, n int) (Reservation, error) {
	if n <= 0 {
		credits, err := db.GetCredits(ctx, userID)
		if err != nil {
			return Reservation{}, err
		}
		return Reservation{Reserved: true, Remaining: credits.Remaining()}, nil
	}

	var remaining int
	err := db.pool.QueryRow(ctx,
		`UPDATE user_credits
		 SET credits_reserved = credits_reserved + $2, updated_at = NOW()
		 WHERE user_id = $1 AND `+remainingExpr+` >= $2
		 RETURNING `+remainingExpr,
		userID, n,
	).Scan(&remaining)
	if err == nil {
		return Reservation{Reserved: true, Remaining: remaining}, nil
	}
	if err != pgx.ErrNoRows {
		return Reservation{}, fmt.Errorf("failed to reserve credits: %w", err)
	}

	credits, err := db.GetCredits(ctx, userID)
	if err != nil {
		return Reservation{}, err
	}
	return Reservation{Reserved: false, Remaining: credits.Remaining()}, nil
}

// ReleaseCredits returns n reserved credits. The reservation never drops below zero.
func (db *DB) ReleaseCredits(ctx context.Context, userID uuid.UUID, n int) error {
	if n <= 0 {
		return nil
	}
	_, err := db.pool.Exec(ctx,
		`UPDATE user_credits
		 SET credits_reserved = GREATEST(credits_reserved - $2, 0), updated_at = NOW()
		 WHERE user_id = $1`,
		userID, n,
	)
	if err != nil {
		return fmt.Errorf("failed to release credits: %w", err)
	}
	return nil
}

// ChargedCandidateIDs returns the subset of ids with a prior usage transaction.
func (db *DB) ChargedCandidateIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	charged := make(map[uuid.UUID]bool)
	if len(ids) == 0 {
		return charged, nil
	}

	rows, err := db.pool.Query(ctx,
		`SELECT DISTINCT candidate_id FROM credit_transactions
		 WHERE user_id = $1 AND type = $2 AND candidate_id = ANY($3)`,
		userID, TxUsage, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load credit transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan credit transaction: %w", err)
		}
		charged[id] = true
	}
	return charged, rows.Err()
}
