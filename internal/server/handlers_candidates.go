package server

import (
	"fmt"
	"net/http"
	"path"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/candidate-hub/internal/apperr"
	"github.com/jonathan/candidate-hub/internal/db"
	"github.com/jonathan/candidate-hub/internal/observability"
	"github.com/jonathan/candidate-hub/internal/search"
	"github.com/jonathan/candidate-hub/internal/server/envelope"
	"github.com/jonathan/candidate-hub/internal/types"
	"github.com/jonathan/candidate-hub/internal/worker"
	"go.uber.org/zap"
)

func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	query, err := search.NewCandidateQuery(search.ListParams{
		Page:              q.Get("page"),
		Limit:             q.Get("limit"),
		Status:            q.Get("status"),
		IncludeProcessing: q.Get("includeProcessing"),
		Query:             q.Get("q"),
		Skills:            q.Get("skills"),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	page, err := s.store.ListCandidates(r.Context(), userID, query)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	envelope.Paged(w, page.Candidates, envelope.NewPagination(page.Total, query.Page, query.Limit))
}

func (s *Server) handleBulkRetry(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var req types.BulkRetryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		s.fail(w, r, err)
		return
	}

	ids := make([]uuid.UUID, 0, len(req.CandidateIDs))
	for _, raw := range req.CandidateIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			s.fail(w, r, apperr.Validation("invalid candidate id: "+raw))
			return
		}
		ids = append(ids, id)
	}

	result, err := s.retrier.Retry(r.Context(), userID, ids)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	envelope.OK(w, result)
}

// handleUpload registers a resume the client already put in storage under its own prefix.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var req types.UploadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		s.fail(w, r, err)
		return
	}

	fileType := normalizeFileType(req.FileType, req.FileName)
	if !slices.Contains(types.AllowedFileTypes, fileType) {
		s.fail(w, r, apperr.New(apperr.CodeInvalidFileType, "unsupported file type").
			WithDetails(map[string]any{"allowed": types.AllowedFileTypes}))
		return
	}
	if req.FileSize > s.opts.MaxFileSize {
		s.fail(w, r, apperr.New(apperr.CodeFileTooLarge,
			fmt.Sprintf("file exceeds the %d byte limit", s.opts.MaxFileSize)).
			WithDetails(map[string]int64{"maxSize": s.opts.MaxFileSize, "size": req.FileSize}))
		return
	}
	if !ownsStoragePath(userID, req.FilePath) {
		s.fail(w, r, apperr.Forbidden("file path is outside the caller's storage"))
		return
	}

	credits, err := s.store.GetCredits(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	remaining := 0
	if credits != nil {
		remaining = credits.Remaining()
	}
	if remaining < 1 {
		s.fail(w, r, apperr.InsufficientCredits(1, remaining))
		return
	}

	mode := req.AnalysisMode
	if mode == "" {
		mode = db.DefaultAnalysisMode
	}
	job, err := s.store.CreateCandidateWithJob(r.Context(), db.NewJobParams{
		UserID:       userID,
		FileName:     req.FileName,
		FilePath:     req.FilePath,
		FileType:     fileType,
		FileSize:     req.FileSize,
		AnalysisMode: mode,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := types.UploadResponse{JobID: job.ID.String()}
	if job.CandidateID != nil {
		resp.CandidateID = job.CandidateID.String()
	}

	// The job row is durable; a failed enqueue leaves it for the worker's polling pickup.
	if s.enqueuer != nil {
		err := s.enqueuer.Enqueue(r.Context(), worker.EnqueueRequest{
			JobID:    job.ID.String(),
			UserID:   userID.String(),
			FilePath: job.FilePath,
			FileName: job.FileName,
			Mode:     mode,
		})
		if err != nil {
			observability.WorkerEnqueueFailed.Inc()
			s.logger.Warn("worker enqueue failed",
				zap.String("job_id", job.ID.String()),
				zap.Error(err),
			)
		} else {
			resp.Queued = true
		}
	}

	envelope.Created(w, resp)
}

func (s *Server) handleGetCredits(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	credits, err := s.store.GetCredits(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if credits == nil {
		s.fail(w, r, apperr.NotFound("credit account not found"))
		return
	}
	envelope.OK(w, types.CreditsResponse{
		Plan:      credits.Plan,
		Remaining: credits.Remaining(),
		Reserved:  credits.CreditsReserved,
	})
}

// normalizeFileType lowercases the declared type, falling back to the file extension.
func normalizeFileType(declared, fileName string) string {
	t := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(declared), "."))
	if t == "" {
		t = strings.ToLower(strings.TrimPrefix(path.Ext(fileName), "."))
	}
	return t
}

// ownsStoragePath reports whether p is a clean path under "<userID>/".
func ownsStoragePath(userID uuid.UUID, p string) bool {
	if p != path.Clean(p) || strings.Contains(p, "..") {
		return false
	}
	rest, ok := strings.CutPrefix(p, userID.String()+"/")
	return ok && rest != ""
}
