// Package server provides the HTTP REST API for the candidate hub.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/candidate-hub/internal/analytics"
	"github.com/jonathan/candidate-hub/internal/apperr"
	"github.com/jonathan/candidate-hub/internal/db"
	"github.com/jonathan/candidate-hub/internal/retry"
	"github.com/jonathan/candidate-hub/internal/search"
	"github.com/jonathan/candidate-hub/internal/server/envelope"
	"github.com/jonathan/candidate-hub/internal/server/middleware"
	"github.com/jonathan/candidate-hub/internal/server/ratelimit"
	"github.com/jonathan/candidate-hub/internal/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// CandidateStore is the candidate and credit storage the handlers need.
type CandidateStore interface {
	ListCandidates(ctx context.Context, userID uuid.UUID, q search.CandidateQuery) (*db.CandidatePage, error)
	CreateCandidateWithJob(ctx context.Context, p db.NewJobParams) (*db.ProcessingJob, error)
	GetCredits(ctx context.Context, userID uuid.UUID) (*db.UserCredits, error)
}

// MatchStore is the position match storage.
type MatchStore interface {
	GetPosition(ctx context.Context, userID, positionID uuid.UUID) (*db.Position, error)
	ListMatches(ctx context.Context, positionID uuid.UUID, filters db.MatchFilters) ([]db.PositionMatch, error)
	RefreshMatches(ctx context.Context, p db.RefreshMatchesParams) (*db.RefreshMatchesResult, error)
	UpdateMatchStage(ctx context.Context, positionID, candidateID uuid.UUID, stage string) (*db.StageTransition, error)
}

// AnalyticsStore supplies the inputs of the pipeline and health calculations.
type AnalyticsStore interface {
	PipelineSnapshot(ctx context.Context, userID uuid.UUID, positionID *uuid.UUID) ([]analytics.StageCount, []analytics.TransitionCount, error)
	PositionAggregates(ctx context.Context, userID uuid.UUID, stuckIdleDays int) ([]analytics.PositionAggregate, error)
}

// Store is everything the server reads and writes. *db.DB implements it.
type Store interface {
	CandidateStore
	MatchStore
	AnalyticsStore
	SavedSearchStore
	Ping(ctx context.Context) error
}

// Retrier runs bulk retries.
type Retrier interface {
	Retry(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (*retry.Result, error)
}

// Enqueuer hands freshly uploaded files to the worker queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, req worker.EnqueueRequest) error
}

// Deps are the collaborators of a Server. Limiter and Enqueuer may be nil.
type Deps struct {
	Store    Store
	Retrier  Retrier
	Enqueuer Enqueuer
	Tokens   middleware.TokenValidator
	Limiter  *ratelimit.Limiter
	Logger   *zap.Logger
}

// Options tunes a Server.
type Options struct {
	Port             int
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	CORSOrigins      []string
	MaxFileSize      int64
	MaxSavedSearches int
	HealthThresholds analytics.HealthThresholds
}

// Server represents the HTTP server
type Server struct {
	store         Store
	retrier       Retrier
	enqueuer      Enqueuer
	tokens        middleware.TokenValidator
	limiter       *ratelimit.Limiter
	savedSearches *SavedSearchService
	logger        *zap.Logger
	opts          Options
	now           func() time.Time

	httpServer *http.Server
}

// New creates a new server instance
func New(deps Deps, opts Options) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.HealthThresholds == (analytics.HealthThresholds{}) {
		opts.HealthThresholds = analytics.DefaultHealthThresholds()
	}

	s := &Server{
		store:         deps.Store,
		retrier:       deps.Retrier,
		enqueuer:      deps.Enqueuer,
		tokens:        deps.Tokens,
		limiter:       deps.Limiter,
		savedSearches: NewSavedSearchService(deps.Store, opts.MaxSavedSearches),
		logger:        logger,
		opts:          opts,
		now:           time.Now,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.Port),
		Handler:      s.Handler(),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Auth is applied per route so the logging middleware sees the matched pattern.
	auth := middleware.Auth(s.tokens)
	api := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, auth(h))
	}

	// Candidates
	api("GET /api/candidates", s.handleListCandidates)
	api("POST /api/candidates/bulk-retry", s.handleBulkRetry)
	api("POST /api/candidates/uploads", s.handleUpload)
	api("GET /api/credits", s.handleGetCredits)

	// Position matches
	api("GET /api/positions/{id}/matches", s.handleListMatches)
	api("POST /api/positions/{id}/matches", s.handleRefreshMatches)
	api("PATCH /api/positions/{id}/matches/{candidateId}", s.handleUpdateMatchStage)

	// Analytics
	api("GET /api/analytics/pipeline", s.handlePipeline)
	api("GET /api/analytics/position-health", s.handlePositionHealth)

	// Saved searches
	api("GET /api/saved-searches", s.handleListSavedSearches)
	api("POST /api/saved-searches", s.handleCreateSavedSearch)
	api("GET /api/saved-searches/{id}", s.handleGetSavedSearch)
	api("PATCH /api/saved-searches/{id}", s.handleUpdateSavedSearch)
	api("DELETE /api/saved-searches/{id}", s.handleDeleteSavedSearch)

	mws := []func(http.Handler) http.Handler{
		middleware.Recover(s.logger),
		middleware.RequestID,
		middleware.Logging(s.logger),
		middleware.CORS(s.opts.CORSOrigins),
	}
	if s.limiter != nil {
		mws = append(mws, middleware.RateLimit(s.limiter, s.logger))
	}
	return middleware.Chain(mux, mws...)
}

// Run serves until ctx is cancelled, then shuts down gracefully within shutdownTimeout.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		envelope.Fail(w, apperr.CodeServiceUnavailable, "database unavailable", nil)
		return
	}
	envelope.OK(w, map[string]string{"status": "ok"})
}
