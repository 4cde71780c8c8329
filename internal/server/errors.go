package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/jonathan/candidate-hub/internal/apperr"
	"github.com/jonathan/candidate-hub/internal/server/envelope"
	"github.com/jonathan/candidate-hub/internal/server/middleware"
	"github.com/jonathan/candidate-hub/internal/types"
	"go.uber.org/zap"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// fail writes the envelope for err and logs anything that surfaces as INTERNAL_ERROR.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if apperr.CodeOf(err) == apperr.CodeInternal {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.RequestIDFrom(r.Context())),
			zap.Error(err),
		)
	}
	envelope.Err(w, err)
}

// requireUser returns the authenticated user id or writes UNAUTHORIZED.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		envelope.Err(w, apperr.Unauthorized("authentication required"))
		return uuid.Nil, false
	}
	return userID, true
}

// decodeJSON reads a JSON body into dst. An empty body is an error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.BadRequest("request body is required")
		}
		return apperr.Wrap(apperr.CodeBadRequest, "invalid JSON body", err)
	}
	return nil
}

// decodeOptionalJSON is decodeJSON but leaves dst untouched for an empty body.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return apperr.Wrap(apperr.CodeBadRequest, "invalid JSON body", err)
	}
	return nil
}

// validateRequest runs the validate tags of req and reports violations as VALIDATION_ERROR.
func validateRequest(req any) error {
	fields, err := types.Validate(req)
	if err != nil {
		return apperr.Wrap(apperr.CodeBadRequest, "invalid request", err)
	}
	if len(fields) > 0 {
		return apperr.Validation("request validation failed").WithDetails(fields)
	}
	return nil
}

// pathUUID parses the named path value.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid " + name)
	}
	return id, nil
}
