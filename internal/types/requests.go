// Package types defines the API request and response bodies shared by the HTTP handlers.
package types

import (
	"encoding/json"
)

// AllowedFileTypes are the resume formats the analysis worker can parse.
var AllowedFileTypes = []string{"pdf", "doc", "docx", "hwp", "hwpx"}

// BulkRetryRequest asks to re-run analysis for failed candidates.
type BulkRetryRequest struct {
	CandidateIDs []string `json:"candidateIds" validate:"required,min=1,max=10,dive,uuid"`
}

// UploadRequest registers a resume already stored in object storage under the caller's
// prefix. FileType and FileSize are checked by the handler so they map to their own
// error codes.
type UploadRequest struct {
	FileName     string `json:"fileName" validate:"required,max=255"`
	FilePath     string `json:"filePath" validate:"required,max=1024"`
	FileType     string `json:"fileType"`
	FileSize     int64  `json:"fileSize" validate:"gt=0"`
	AnalysisMode string `json:"analysisMode" validate:"omitempty,oneof=phase_1 phase_2"`
}

// UploadResponse is returned once the candidate and job rows exist.
type UploadResponse struct {
	CandidateID string `json:"candidateId"`
	JobID       string `json:"jobId"`
	Queued      bool   `json:"queued"`
}

// RefreshMatchesRequest re-scores candidates for a position. MinScore is on the 0-100 scale.
type RefreshMatchesRequest struct {
	Limit    int     `json:"limit" validate:"omitempty,min=1,max=200"`
	MinScore float64 `json:"minScore" validate:"omitempty,min=0,max=100"`
}

// UpdateStageRequest moves a match to another pipeline stage.
type UpdateStageRequest struct {
	Stage string `json:"stage" validate:"required"`
}

// CreateSavedSearchRequest creates a named search. Filters must be a JSON object.
type CreateSavedSearchRequest struct {
	Name    string          `json:"name" validate:"required,max=100"`
	Query   string          `json:"query" validate:"max=500"`
	Filters json.RawMessage `json:"filters"`
}

// UpdateSavedSearchRequest updates a saved search. With MarkUsed set the other fields are
// ignored and only the usage counters change.
type UpdateSavedSearchRequest struct {
	Name     *string         `json:"name" validate:"omitempty,min=1,max=100"`
	Query    *string         `json:"query" validate:"omitempty,max=500"`
	Filters  json.RawMessage `json:"filters"`
	MarkUsed bool            `json:"markUsed"`
}

// CreditsResponse is the caller's balance.
type CreditsResponse struct {
	Plan      string `json:"plan"`
	Remaining int    `json:"remaining"`
	Reserved  int    `json:"reserved"`
}
