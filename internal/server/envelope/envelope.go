// Package envelope writes the uniform JSON response body used by every API route.
package envelope

import (
	"encoding/json"
	"net/http"

	"github.com/jonathan/candidate-hub/internal/apperr"
)

// Response is the body of every API response.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   *Error `json:"error,omitempty"`
	Meta    any    `json:"meta,omitempty"`
}

// Error is the error member of a Response.
type Error struct {
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
	Details any         `json:"details,omitempty"`
}

// Pagination is the meta member of paged list responses.
type Pagination struct {
	Total      int  `json:"total"`
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalPages int  `json:"totalPages"`
	HasMore    bool `json:"hasMore"`
}

// NewPagination computes page counts for a listing.
func NewPagination(total, page, limit int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: pages,
		HasMore:    page < pages,
	}
}

// NoStore sets headers that keep user data out of shared and browser caches.
func NoStore(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Cache-Control", "no-store, no-cache, must-revalidate")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")
}

// Write encodes body with the given status.
func Write(w http.ResponseWriter, status int, body Response) {
	NoStore(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// OK writes a 200 success envelope.
func OK(w http.ResponseWriter, data any) {
	Write(w, http.StatusOK, Response{Success: true, Data: data})
}

// Created writes a 201 success envelope.
func Created(w http.ResponseWriter, data any) {
	Write(w, http.StatusCreated, Response{Success: true, Data: data})
}

// Paged writes a 200 success envelope with pagination meta.
func Paged(w http.ResponseWriter, data any, meta Pagination) {
	Write(w, http.StatusOK, Response{Success: true, Data: data, Meta: meta})
}

// Fail writes an error envelope for a taxonomy code.
func Fail(w http.ResponseWriter, code apperr.Code, message string, details any) {
	Write(w, apperr.HTTPStatus(code), Response{
		Error: &Error{Code: code, Message: message, Details: details},
	})
}

// Err writes the envelope for err. Errors outside the taxonomy become INTERNAL_ERROR
// with a generic message; the cause is left for the caller to log.
func Err(w http.ResponseWriter, err error) {
	if appErr, ok := apperr.As(err); ok {
		msg := appErr.Message
		if appErr.Code == apperr.CodeInternal {
			msg = "internal server error"
		}
		Fail(w, appErr.Code, msg, appErr.Details)
		return
	}
	Fail(w, apperr.CodeInternal, "internal server error", nil)
}
