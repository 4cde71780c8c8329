package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/candidate-hub/internal/apperr"
	"github.com/jonathan/candidate-hub/internal/db"
	"github.com/jonathan/candidate-hub/internal/schemas"
	"github.com/jonathan/candidate-hub/internal/search"
	"github.com/jonathan/candidate-hub/internal/types"
)

// DefaultMaxSavedSearches caps saved searches per user when no limit is configured.
const DefaultMaxSavedSearches = 20

// SavedSearchStore is the saved-search storage.
type SavedSearchStore interface {
	ListSavedSearches(ctx context.Context, userID uuid.UUID) ([]db.SavedSearch, error)
	GetSavedSearch(ctx context.Context, userID, id uuid.UUID) (*db.SavedSearch, error)
	CreateSavedSearch(ctx context.Context, s *db.SavedSearch, maxPerUser int) (*db.SavedSearch, error)
	UpdateSavedSearch(ctx context.Context, userID, id uuid.UUID, u db.SavedSearchUpdate) (*db.SavedSearch, error)
	MarkSavedSearchUsed(ctx context.Context, userID, id uuid.UUID) (*db.SavedSearch, error)
	DeleteSavedSearch(ctx context.Context, userID, id uuid.UUID) (bool, error)
}

// SavedSearchService provides business logic for saved searches: name and filter
// validation, the per-user cap, and mapping storage outcomes to app errors.
type SavedSearchService struct {
	store      SavedSearchStore
	maxPerUser int
}

// NewSavedSearchService creates a SavedSearchService. A non-positive maxPerUser uses the default.
func NewSavedSearchService(store SavedSearchStore, maxPerUser int) *SavedSearchService {
	if maxPerUser <= 0 {
		maxPerUser = DefaultMaxSavedSearches
	}
	return &SavedSearchService{store: store, maxPerUser: maxPerUser}
}

// List returns the caller's saved searches.
func (s *SavedSearchService) List(ctx context.Context, userID uuid.UUID) ([]db.SavedSearch, error) {
	searches, err := s.store.ListSavedSearches(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved searches: %w", err)
	}
	return searches, nil
}

// Get returns one saved search of the caller.
func (s *SavedSearchService) Get(ctx context.Context, userID, id uuid.UUID) (*db.SavedSearch, error) {
	found, err := s.store.GetSavedSearch(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get saved search: %w", err)
	}
	if found == nil {
		return nil, apperr.NotFound("saved search not found")
	}
	return found, nil
}

// Create stores a new saved search.
func (s *SavedSearchService) Create(ctx context.Context, userID uuid.UUID, req *types.CreateSavedSearchRequest) (*db.SavedSearch, error) {
	name, err := cleanName(req.Name)
	if err != nil {
		return nil, err
	}
	filters, err := checkFilters(req.Filters)
	if err != nil {
		return nil, err
	}

	created, err := s.store.CreateSavedSearch(ctx, &db.SavedSearch{
		UserID:  userID,
		Name:    name,
		Query:   strings.TrimSpace(search.RemoveControlChars(req.Query)),
		Filters: filters,
	}, s.maxPerUser)
	if err != nil {
		return nil, s.mapWriteErr(err)
	}
	return created, nil
}

// Update applies a partial update, or only bumps the usage counters when MarkUsed is set.
func (s *SavedSearchService) Update(ctx context.Context, userID, id uuid.UUID, req *types.UpdateSavedSearchRequest) (*db.SavedSearch, error) {
	if req.MarkUsed {
		updated, err := s.store.MarkSavedSearchUsed(ctx, userID, id)
		if err != nil {
			return nil, fmt.Errorf("failed to mark saved search used: %w", err)
		}
		if updated == nil {
			return nil, apperr.NotFound("saved search not found")
		}
		return updated, nil
	}

	var u db.SavedSearchUpdate
	if req.Name != nil {
		name, err := cleanName(*req.Name)
		if err != nil {
			return nil, err
		}
		u.Name = &name
	}
	if req.Query != nil {
		query := strings.TrimSpace(search.RemoveControlChars(*req.Query))
		u.Query = &query
	}
	if len(req.Filters) > 0 {
		filters, err := checkFilters(req.Filters)
		if err != nil {
			return nil, err
		}
		u.Filters = filters
	}

	updated, err := s.store.UpdateSavedSearch(ctx, userID, id, u)
	if err != nil {
		return nil, s.mapWriteErr(err)
	}
	if updated == nil {
		return nil, apperr.NotFound("saved search not found")
	}
	return updated, nil
}

// Delete removes a saved search of the caller.
func (s *SavedSearchService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	deleted, err := s.store.DeleteSavedSearch(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete saved search: %w", err)
	}
	if !deleted {
		return apperr.NotFound("saved search not found")
	}
	return nil
}

func (s *SavedSearchService) mapWriteErr(err error) error {
	switch {
	case errors.Is(err, db.ErrConflict):
		return apperr.Conflict("a saved search with this name already exists")
	case errors.Is(err, db.ErrLimitReached):
		return apperr.Validation(fmt.Sprintf("saved search limit of %d reached", s.maxPerUser)).
			WithDetails(map[string]int{"max": s.maxPerUser})
	}
	return err
}

func cleanName(raw string) (string, error) {
	name := strings.TrimSpace(search.RemoveControlChars(raw))
	if name == "" {
		return "", apperr.Validation("name is required")
	}
	return name, nil
}

// checkFilters validates a filters document against the saved-search schema. Absent or
// null filters become an empty object.
func checkFilters(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage("{}"), nil
	}

	if err := schemas.Validate(schemas.SavedSearchFilters, trimmed); err != nil {
		var ve *schemas.ValidationError
		if errors.As(err, &ve) {
			return nil, apperr.Validation("invalid filters").WithDetails(ve.Errors)
		}
		return nil, fmt.Errorf("failed to validate filters: %w", err)
	}
	return json.RawMessage(trimmed), nil
}
