package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/candidate-hub/internal/analytics"
	"github.com/jonathan/candidate-hub/internal/db"
	"github.com/jonathan/candidate-hub/internal/retry"
	"github.com/jonathan/candidate-hub/internal/search"
	"github.com/jonathan/candidate-hub/internal/worker"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeStore is an in-memory Store.
type fakeStore struct {
	mu sync.Mutex

	pingErr error

	page       *db.CandidatePage
	listQuery  *search.CandidateQuery
	credits    map[uuid.UUID]*db.UserCredits
	createdJob *db.NewJobParams

	positions     map[uuid.UUID]*db.Position
	matches       []db.PositionMatch
	matchFilters  *db.MatchFilters
	refreshParams *db.RefreshMatchesParams
	stageUpdate   *db.StageTransition

	stages          []analytics.StageCount
	transitions     []analytics.TransitionCount
	snapshotScope   *uuid.UUID
	aggregates      []analytics.PositionAggregate
	stuckIdleDays   int
	savedSearches   map[uuid.UUID]*db.SavedSearch
	savedSearchErr  error
	lastSavedUpdate *db.SavedSearchUpdate
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		page:          &db.CandidatePage{Candidates: []db.Candidate{}},
		credits:       map[uuid.UUID]*db.UserCredits{},
		positions:     map[uuid.UUID]*db.Position{},
		savedSearches: map[uuid.UUID]*db.SavedSearch{},
	}
}

func (f *fakeStore) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeStore) ListCandidates(ctx context.Context, userID uuid.UUID, q search.CandidateQuery) (*db.CandidatePage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listQuery = &q
	return f.page, nil
}

func (f *fakeStore) CreateCandidateWithJob(ctx context.Context, p db.NewJobParams) (*db.ProcessingJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdJob = &p
	candidateID := uuid.New()
	return &db.ProcessingJob{
		ID:           uuid.New(),
		UserID:       p.UserID,
		CandidateID:  &candidateID,
		FileName:     p.FileName,
		FilePath:     p.FilePath,
		FileType:     p.FileType,
		FileSize:     p.FileSize,
		AnalysisMode: p.AnalysisMode,
		Status:       db.JobQueued,
	}, nil
}

func (f *fakeStore) GetCredits(ctx context.Context, userID uuid.UUID) (*db.UserCredits, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.credits[userID], nil
}

func (f *fakeStore) GetPosition(ctx context.Context, userID, positionID uuid.UUID) (*db.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.positions[positionID]
	if !ok || p.UserID != userID {
		return nil, nil
	}
	return p, nil
}

func (f *fakeStore) ListMatches(ctx context.Context, positionID uuid.UUID, filters db.MatchFilters) ([]db.PositionMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.matchFilters = &filters
	return f.matches, nil
}

func (f *fakeStore) RefreshMatches(ctx context.Context, p db.RefreshMatchesParams) (*db.RefreshMatchesResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshParams = &p
	return &db.RefreshMatchesResult{Saved: 7}, nil
}

func (f *fakeStore) UpdateMatchStage(ctx context.Context, positionID, candidateID uuid.UUID, stage string) (*db.StageTransition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.matches {
		if m.PositionID == positionID && m.CandidateID == candidateID {
			f.stageUpdate = &db.StageTransition{
				PositionID:  positionID,
				CandidateID: candidateID,
				FromStage:   m.Stage,
				ToStage:     stage,
			}
			return f.stageUpdate, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) PipelineSnapshot(ctx context.Context, userID uuid.UUID, positionID *uuid.UUID) ([]analytics.StageCount, []analytics.TransitionCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshotScope = positionID
	return f.stages, f.transitions, nil
}

func (f *fakeStore) PositionAggregates(ctx context.Context, userID uuid.UUID, stuckIdleDays int) ([]analytics.PositionAggregate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stuckIdleDays = stuckIdleDays
	return f.aggregates, nil
}

func (f *fakeStore) ListSavedSearches(ctx context.Context, userID uuid.UUID) ([]db.SavedSearch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.savedSearchErr != nil {
		return nil, f.savedSearchErr
	}
	out := []db.SavedSearch{}
	for _, s := range f.savedSearches {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStore) GetSavedSearch(ctx context.Context, userID, id uuid.UUID) (*db.SavedSearch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.savedSearches[id]
	if !ok || s.UserID != userID {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) CreateSavedSearch(ctx context.Context, s *db.SavedSearch, maxPerUser int) (*db.SavedSearch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, existing := range f.savedSearches {
		if existing.UserID != s.UserID {
			continue
		}
		n++
		if existing.Name == s.Name {
			return nil, errors.Join(errors.New("create saved search"), db.ErrConflict)
		}
	}
	if maxPerUser > 0 && n >= maxPerUser {
		return nil, db.ErrLimitReached
	}

	created := *s
	created.ID = uuid.New()
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	f.savedSearches[created.ID] = &created
	cp := created
	return &cp, nil
}

func (f *fakeStore) UpdateSavedSearch(ctx context.Context, userID, id uuid.UUID, u db.SavedSearchUpdate) (*db.SavedSearch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSavedUpdate = &u
	s, ok := f.savedSearches[id]
	if !ok || s.UserID != userID {
		return nil, nil
	}
	if u.Name != nil {
		for otherID, other := range f.savedSearches {
			if otherID != id && other.UserID == userID && other.Name == *u.Name {
				return nil, db.ErrConflict
			}
		}
		s.Name = *u.Name
	}
	if u.Query != nil {
		s.Query = *u.Query
	}
	if len(u.Filters) > 0 {
		s.Filters = u.Filters
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) MarkSavedSearchUsed(ctx context.Context, userID, id uuid.UUID) (*db.SavedSearch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.savedSearches[id]
	if !ok || s.UserID != userID {
		return nil, nil
	}
	s.UseCount++
	now := time.Now()
	s.LastUsedAt = &now
	cp := *s
	return &cp, nil
}

func (f *fakeStore) DeleteSavedSearch(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.savedSearches[id]
	if !ok || s.UserID != userID {
		return false, nil
	}
	delete(f.savedSearches, id)
	return true, nil
}

type fakeRetrier struct {
	calls  [][]uuid.UUID
	result *retry.Result
	err    error
}

func (f *fakeRetrier) Retry(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (*retry.Result, error) {
	f.calls = append(f.calls, ids)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeEnqueuer struct {
	requests []worker.EnqueueRequest
	err      error
}

func (f *fakeEnqueuer) Enqueue(ctx context.Context, req worker.EnqueueRequest) error {
	f.requests = append(f.requests, req)
	return f.err
}

// staticTokens maps opaque tokens to users.
type staticTokens map[string]uuid.UUID

func (s staticTokens) ValidateToken(token string) (uuid.UUID, error) {
	id, ok := s[token]
	if !ok {
		return uuid.Nil, errors.New("unknown token")
	}
	return id, nil
}

type testEnv struct {
	store    *fakeStore
	retrier  *fakeRetrier
	enqueuer *fakeEnqueuer
	server   *Server
	handler  http.Handler
	alice    uuid.UUID
	bob      uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:    newFakeStore(),
		retrier:  &fakeRetrier{},
		enqueuer: &fakeEnqueuer{},
		alice:    uuid.New(),
		bob:      uuid.New(),
	}
	env.server = New(Deps{
		Store:    env.store,
		Retrier:  env.retrier,
		Enqueuer: env.enqueuer,
		Tokens:   staticTokens{"alice": env.alice, "bob": env.bob},
		Logger:   zaptest.NewLogger(t),
	}, Options{
		MaxFileSize:      50 * 1024 * 1024,
		MaxSavedSearches: 2,
	})
	env.server.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	env.handler = env.server.Handler()
	return env
}

// do sends a request as the user owning token; an empty token sends none.
func (e *testEnv) do(t *testing.T, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

type envelopeBody struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) envelopeBody {
	t.Helper()
	var body envelopeBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func errorCodeOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody(t, rec)
	require.NotNil(t, body.Error, rec.Body.String())
	return body.Error.Code
}
