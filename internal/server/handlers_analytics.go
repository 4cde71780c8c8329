package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/jonathan/candidate-hub/internal/analytics"
	"github.com/jonathan/candidate-hub/internal/apperr"
	"github.com/jonathan/candidate-hub/internal/server/envelope"
)

func (s *Server) handlePipeline(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var positionID *uuid.UUID
	if raw := r.URL.Query().Get("positionId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			s.fail(w, r, apperr.Validation("invalid positionId"))
			return
		}
		position, err := s.store.GetPosition(r.Context(), userID, id)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if position == nil {
			s.fail(w, r, apperr.NotFound("position not found"))
			return
		}
		positionID = &id
	}

	stages, transitions, err := s.store.PipelineSnapshot(r.Context(), userID, positionID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	envelope.OK(w, analytics.ComputePipelineStats(stages, transitions))
}

func (s *Server) handlePositionHealth(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	th := s.opts.HealthThresholds
	aggs, err := s.store.PositionAggregates(r.Context(), userID, th.StuckIdleDays)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	envelope.OK(w, analytics.BuildHealthReport(aggs, th, s.now()))
}
