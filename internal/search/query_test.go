package search

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/candidate-hub/internal/apperr"
)

func TestNewCandidateQuery_Defaults(t *testing.T) {
	q, err := NewCandidateQuery(ListParams{})
	require.NoError(t, err)

	assert.Equal(t, DefaultPage, q.Page)
	assert.Equal(t, DefaultLimit, q.Limit)
	assert.Equal(t, 0, q.Offset())
	assert.Equal(t, []string{StatusParsed, StatusAnalyzed, StatusCompleted}, q.Statuses)
	assert.Empty(t, q.Keywords)
	assert.Empty(t, q.Skills)
}

func TestNewCandidateQuery_Pagination(t *testing.T) {
	tests := []struct {
		name    string
		params  ListParams
		wantErr bool
		page    int
		limit   int
	}{
		{"explicit", ListParams{Page: "3", Limit: "10"}, false, 3, 10},
		{"max limit", ListParams{Limit: "100"}, false, 1, 100},
		{"limit too large", ListParams{Limit: "101"}, true, 0, 0},
		{"limit zero", ListParams{Limit: "0"}, true, 0, 0},
		{"page zero", ListParams{Page: "0"}, true, 0, 0},
		{"page negative", ListParams{Page: "-2"}, true, 0, 0},
		{"page not a number", ListParams{Page: "two"}, true, 0, 0},
		{"page overflows offset", ListParams{Page: "9223372036854775807", Limit: "20"}, true, 0, 0},
		{"page overflows default limit", ListParams{Page: "922337203685477581"}, true, 0, 0},
		{"page beyond int", ListParams{Page: "99999999999999999999"}, true, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := NewCandidateQuery(tt.params)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.page, q.Page)
			assert.Equal(t, tt.limit, q.Limit)
		})
	}
}

func TestCandidateQuery_Offset(t *testing.T) {
	q := CandidateQuery{Page: 3, Limit: 20}
	assert.Equal(t, 40, q.Offset())
}

func TestNewCandidateQuery_LargestPageHasNonNegativeOffset(t *testing.T) {
	page := math.MaxInt / MaxLimit
	q, err := NewCandidateQuery(ListParams{Page: strconv.Itoa(page), Limit: strconv.Itoa(MaxLimit)})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, q.Offset(), 0)
}

func TestNewCandidateQuery_Statuses(t *testing.T) {
	q, err := NewCandidateQuery(ListParams{IncludeProcessing: "true"})
	require.NoError(t, err)
	assert.Contains(t, q.Statuses, StatusProcessing)
	assert.Contains(t, q.Statuses, StatusFailed)

	q, err = NewCandidateQuery(ListParams{Status: "failed, completed", IncludeProcessing: "true"})
	require.NoError(t, err)
	assert.Equal(t, []string{StatusFailed, StatusCompleted}, q.Statuses)

	_, err = NewCandidateQuery(ListParams{Status: "archived"})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	_, err = NewCandidateQuery(ListParams{IncludeProcessing: "maybe"})
	require.Error(t, err)
}

func TestNewCandidateQuery_Tokens(t *testing.T) {
	q, err := NewCandidateQuery(ListParams{Query: "React개발자 5년차", Skills: "Go, ,Kubernetes"})
	require.NoError(t, err)

	assert.Equal(t, []string{"React", "개발자", "5년차"}, q.Keywords)
	assert.Equal(t, []string{"Go", "Kubernetes"}, q.Skills)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, EscapeLike("100%"))
	assert.Equal(t, `snake\_case`, EscapeLike("snake_case"))
	assert.Equal(t, `a\\b`, EscapeLike(`a\b`))
	assert.Equal(t, "C++", EscapeLike("C++"))
	assert.Equal(t, "%go%", ContainsPattern("go"))
	assert.Equal(t, `%50\%\_off%`, ContainsPattern("50%_off"))
}
