package db

import (
	"errors"
	"fmt"
	"testing"
	"testing/fstest"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/candidate-hub/internal/search"
)

func TestUserCredits_Remaining(t *testing.T) {
	tests := []struct {
		name     string
		credits  UserCredits
		expected int
	}{
		{"plan only", UserCredits{PlanBaseCredits: 50}, 50},
		{"used and purchased", UserCredits{PlanBaseCredits: 50, CreditsUsedThisMonth: 45, PurchasedCredits: 10}, 15},
		{"reserved", UserCredits{PlanBaseCredits: 10, CreditsUsedThisMonth: 5, CreditsReserved: 3}, 2},
		{"overdrawn clamps to zero", UserCredits{PlanBaseCredits: 10, CreditsUsedThisMonth: 12}, 0},
		{"no row", UserCredits{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.credits.Remaining())
		})
	}
}

func TestStageNames(t *testing.T) {
	assert.Equal(t, []string{"matched", "reviewed", "contacted", "interviewing", "offered", "placed"}, stageNames())
}

func TestCandidateFilter(t *testing.T) {
	userID := uuid.New()
	q := search.CandidateQuery{
		Statuses: []string{"completed"},
		Keywords: []string{"React", "50%"},
		Skills:   []string{"Go"},
		Page:     1,
		Limit:    20,
	}

	where, args := candidateFilter(userID, q)

	assert.Contains(t, where, "user_id = $1 AND is_latest = TRUE")
	assert.Contains(t, where, "status = ANY($2)")
	assert.Contains(t, where, "name ILIKE $3")
	assert.Contains(t, where, "summary ILIKE $4")
	assert.Contains(t, where, "lower(s) = $5")
	require.Len(t, args, 5)
	assert.Equal(t, userID, args[0])
	assert.Equal(t, "%React%", args[2])
	assert.Equal(t, `%50\%%`, args[3])
	assert.Equal(t, "go", args[4])

	// user input never reaches the SQL text
	assert.NotContains(t, where, "React")
}

func TestCandidateFilter_NoOptionalFilters(t *testing.T) {
	where, args := candidateFilter(uuid.New(), search.CandidateQuery{})

	assert.Equal(t, "user_id = $1 AND is_latest = TRUE", where)
	assert.Len(t, args, 1)
}

func TestLoadMigrations_Embedded(t *testing.T) {
	migrations, err := LoadMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version)
		assert.NotEmpty(t, m.SQL)
	}
	assert.Equal(t, "initial schema", migrations[0].Description)
	assert.Contains(t, migrations[0].SQL, "CREATE TABLE IF NOT EXISTS candidates")
}

func TestLoadMigrations_Sorting(t *testing.T) {
	fsys := fstest.MapFS{
		"m/010_later.sql":  {Data: []byte("SELECT 10")},
		"m/002_second.sql": {Data: []byte("SELECT 2")},
		"m/001_first.sql":  {Data: []byte("SELECT 1")},
		"m/README.md":      {Data: []byte("ignored")},
	}

	migrations, err := loadMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, migrations, 3)
	assert.Equal(t, []int{1, 2, 10}, []int{migrations[0].Version, migrations[1].Version, migrations[2].Version})
}

func TestLoadMigrations_Invalid(t *testing.T) {
	_, err := loadMigrations(fstest.MapFS{"m/init.sql": {Data: []byte("x")}}, "m")
	assert.Error(t, err)

	_, err = loadMigrations(fstest.MapFS{
		"m/001_a.sql": {Data: []byte("x")},
		"m/001_b.sql": {Data: []byte("y")},
	}, "m")
	assert.ErrorContains(t, err, "duplicate migration version 1")
}

func TestMapWriteErr(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "saved_searches_user_id_name_key"}

	err := mapWriteErr("create saved search", fmt.Errorf("insert: %w", dup))
	assert.True(t, errors.Is(err, ErrConflict))

	err = mapWriteErr("create saved search", errors.New("connection reset"))
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Contains(t, err.Error(), "failed to create saved search")
}
