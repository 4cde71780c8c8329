package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code     Code
		expected int
	}{
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodeBadRequest, http.StatusBadRequest},
		{CodeValidation, http.StatusBadRequest},
		{CodeRateLimitExceeded, http.StatusTooManyRequests},
		{CodeInsufficientCredits, http.StatusPaymentRequired},
		{CodeFileTooLarge, http.StatusRequestEntityTooLarge},
		{CodeInvalidFileType, http.StatusUnsupportedMediaType},
		{CodeInternal, http.StatusInternalServerError},
		{CodeServiceUnavailable, http.StatusServiceUnavailable},
		{CodeConflict, http.StatusConflict},
		{Code("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatus(tt.code))
		})
	}
}

func TestAs_WrappedError(t *testing.T) {
	base := NotFound("position not found")
	wrapped := fmt.Errorf("loading matches: %w", base)

	appErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeNotFound, appErr.Code)
	assert.Equal(t, CodeNotFound, CodeOf(wrapped))
}

func TestCodeOf_UntypedError(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(CodeServiceUnavailable, "worker unreachable", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "SERVICE_UNAVAILABLE")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestInsufficientCredits(t *testing.T) {
	err := InsufficientCredits(2, 1)

	assert.Equal(t, CodeInsufficientCredits, err.Code)
	assert.Equal(t, "insufficient credits: need 2, have 1", err.Message)
	assert.Equal(t, map[string]int{"required": 2, "remaining": 1}, err.Details)
}
