package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const savedSearchColumns = `id, user_id, name, query, filters, use_count, last_used_at, created_at, updated_at`

func scanSavedSearch(row pgx.Row) (*SavedSearch, error) {
	var s SavedSearch
	var filters []byte
	if err := row.Scan(&s.ID, &s.UserID, &s.Name, &s.Query, &filters, &s.UseCount, &s.LastUsedAt,
		&s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Filters = filters
	return &s, nil
}

// ListSavedSearches returns the user's saved searches, most recently used first.
func (db *DB) ListSavedSearches(ctx context.Context, userID uuid.UUID) ([]SavedSearch, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+savedSearchColumns+` FROM saved_searches
		 WHERE user_id = $1
		 ORDER BY last_used_at DESC NULLS LAST, created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved searches: %w", err)
	}
	defer rows.Close()

	searches := []SavedSearch{}
	for rows.Next() {
		s, err := scanSavedSearch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan saved search: %w", err)
		}
		searches = append(searches, *s)
	}
	return searches, rows.Err()
}

// GetSavedSearch retrieves a saved search owned by userID. Returns nil when not found.
func (db *DB) GetSavedSearch(ctx context.Context, userID, id uuid.UUID) (*SavedSearch, error) {
	s, err := scanSavedSearch(db.pool.QueryRow(ctx,
		`SELECT `+savedSearchColumns+` FROM saved_searches WHERE id = $1 AND user_id = $2`,
		id, userID,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get saved search: %w", err)
	}
	return s, nil
}

// CreateSavedSearch inserts a saved search unless the user already has maxPerUser of them
// (ErrLimitReached). A duplicate name for the user returns ErrConflict. The count check
// runs under a per-user transaction-scoped advisory lock.
func (db *DB) CreateSavedSearch(ctx context.Context, s *SavedSearch, maxPerUser int) (*SavedSearch, error) {
	filters := []byte(s.Filters)
	if len(filters) == 0 {
		filters = []byte("{}")
	}

	var created *SavedSearch
	err := db.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "saved_searches:"+s.UserID.String()); err != nil {
			return fmt.Errorf("failed to lock saved searches: %w", err)
		}

		var n int
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM saved_searches WHERE user_id = $1`, s.UserID,
		).Scan(&n); err != nil {
			return fmt.Errorf("failed to count saved searches: %w", err)
		}
		if maxPerUser > 0 && n >= maxPerUser {
			return ErrLimitReached
		}

		var err error
		created, err = scanSavedSearch(tx.QueryRow(ctx,
			`INSERT INTO saved_searches (user_id, name, query, filters)
			 VALUES ($1, $2, $3, $4)
			 RETURNING `+savedSearchColumns,
			s.UserID, s.Name, s.Query, filters,
		))
		if err != nil {
			return mapWriteErr("create saved search", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateSavedSearch applies the non-nil fields of u. Returns nil when not found.
func (db *DB) UpdateSavedSearch(ctx context.Context, userID, id uuid.UUID, u SavedSearchUpdate) (*SavedSearch, error) {
	sets := []string{"updated_at = NOW()"}
	args := []any{id, userID}

	if u.Name != nil {
		args = append(args, *u.Name)
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
	}
	if u.Query != nil {
		args = append(args, *u.Query)
		sets = append(sets, fmt.Sprintf("query = $%d", len(args)))
	}
	if len(u.Filters) > 0 {
		args = append(args, []byte(u.Filters))
		sets = append(sets, fmt.Sprintf("filters = $%d", len(args)))
	}

	s, err := scanSavedSearch(db.pool.QueryRow(ctx,
		`UPDATE saved_searches SET `+strings.Join(sets, ", ")+`
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+savedSearchColumns,
		args...,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, mapWriteErr("update saved search", err)
	}
	return s, nil
}

// MarkSavedSearchUsed bumps use_count and last_used_at. Returns nil when not found.
func (db *DB) MarkSavedSearchUsed(ctx context.Context, userID, id uuid.UUID) (*SavedSearch, error) {
	s, err := scanSavedSearch(db.pool.QueryRow(ctx,
		`UPDATE saved_searches SET use_count = use_count + 1, last_used_at = NOW()
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+savedSearchColumns,
		id, userID,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to mark saved search used: %w", err)
	}
	return s, nil
}

// DeleteSavedSearch deletes a saved search and reports whether it existed.
func (db *DB) DeleteSavedSearch(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	tag, err := db.pool.Exec(ctx,
		`DELETE FROM saved_searches WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete saved search: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
