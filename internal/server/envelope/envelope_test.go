package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/candidate-hub/internal/apperr"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestOK_SetsNoStoreHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	OK(rec, map[string]int{"remaining": 3})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store, no-cache, must-revalidate", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "no-cache", rec.Header().Get("Pragma"))
	assert.Equal(t, "0", rec.Header().Get("Expires"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, map[string]any{"remaining": float64(3)}, body["data"])
	assert.NotContains(t, body, "error")
}

func TestErr_AppError(t *testing.T) {
	rec := httptest.NewRecorder()
	Err(rec, fmt.Errorf("retry: %w", apperr.InsufficientCredits(2, 1)))

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "INSUFFICIENT_CREDITS", errObj["code"])
	assert.Equal(t, map[string]any{"required": float64(2), "remaining": float64(1)}, errObj["details"])
}

func TestErr_HidesInternalCauses(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"untyped", errors.New("pq: password authentication failed")},
		{"wrapped internal", apperr.Wrap(apperr.CodeInternal, "failed to load candidates", errors.New("dial tcp"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Err(rec, tt.err)

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			errObj := decode(t, rec)["error"].(map[string]any)
			assert.Equal(t, "INTERNAL_ERROR", errObj["code"])
			assert.Equal(t, "internal server error", errObj["message"])
		})
	}
}

func TestPaged(t *testing.T) {
	rec := httptest.NewRecorder()
	Paged(rec, []string{"a"}, NewPagination(41, 2, 20))

	meta := decode(t, rec)["meta"].(map[string]any)
	assert.Equal(t, float64(41), meta["total"])
	assert.Equal(t, float64(3), meta["totalPages"])
	assert.Equal(t, true, meta["hasMore"])
}

func TestNewPagination(t *testing.T) {
	assert.Equal(t, Pagination{Total: 0, Page: 1, Limit: 20}, NewPagination(0, 1, 20))
	assert.False(t, NewPagination(40, 2, 20).HasMore)
}
