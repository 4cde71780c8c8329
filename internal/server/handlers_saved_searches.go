package server

import (
	"net/http"

	"github.com/jonathan/candidate-hub/internal/server/envelope"
	"github.com/jonathan/candidate-hub/internal/types"
)

func (s *Server) handleListSavedSearches(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	searches, err := s.savedSearches.List(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	envelope.OK(w, searches)
}

func (s *Server) handleCreateSavedSearch(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var req types.CreateSavedSearchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		s.fail(w, r, err)
		return
	}

	created, err := s.savedSearches.Create(r.Context(), userID, &req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	envelope.Created(w, created)
}

func (s *Server) handleGetSavedSearch(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	found, err := s.savedSearches.Get(r.Context(), userID, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	envelope.OK(w, found)
}

func (s *Server) handleUpdateSavedSearch(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var req types.UpdateSavedSearchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		s.fail(w, r, err)
		return
	}

	updated, err := s.savedSearches.Update(r.Context(), userID, id, &req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	envelope.OK(w, updated)
}

func (s *Server) handleDeleteSavedSearch(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.savedSearches.Delete(r.Context(), userID, id); err != nil {
		s.fail(w, r, err)
		return
	}
	envelope.OK(w, map[string]bool{"deleted": true})
}
