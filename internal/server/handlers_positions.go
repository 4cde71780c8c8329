package server

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/candidate-hub/internal/analytics"
	"github.com/jonathan/candidate-hub/internal/apperr"
	"github.com/jonathan/candidate-hub/internal/db"
	"github.com/jonathan/candidate-hub/internal/server/envelope"
	"github.com/jonathan/candidate-hub/internal/types"
)

// DefaultRefreshLimit is the number of candidates scored per refresh when none is given.
const DefaultRefreshLimit = 50

// MatchResponse is a position match with scores on the 0-100 scale.
type MatchResponse struct {
	CandidateID     uuid.UUID `json:"candidateId"`
	CandidateName   string    `json:"candidateName"`
	LastPosition    string    `json:"lastPosition"`
	LastCompany     string    `json:"lastCompany"`
	OverallScore    float64   `json:"overallScore"`
	SkillScore      float64   `json:"skillScore"`
	ExperienceScore float64   `json:"experienceScore"`
	EducationScore  float64   `json:"educationScore"`
	SemanticScore   float64   `json:"semanticScore"`
	Stage           string    `json:"stage"`
	MatchedAt       time.Time `json:"matchedAt"`
	StageUpdatedAt  time.Time `json:"stageUpdatedAt"`
}

// toPercent converts a stored [0,1] score to 0-100 with one decimal.
func toPercent(score float64) float64 {
	return math.Round(score*1000) / 10
}

func convertMatch(m db.PositionMatch) MatchResponse {
	return MatchResponse{
		CandidateID:     m.CandidateID,
		CandidateName:   m.CandidateName,
		LastPosition:    m.LastPosition,
		LastCompany:     m.LastCompany,
		OverallScore:    toPercent(m.OverallScore),
		SkillScore:      toPercent(m.SkillScore),
		ExperienceScore: toPercent(m.ExperienceScore),
		EducationScore:  toPercent(m.EducationScore),
		SemanticScore:   toPercent(m.SemanticScore),
		Stage:           m.Stage,
		MatchedAt:       m.MatchedAt,
		StageUpdatedAt:  m.StageUpdatedAt,
	}
}

// ownedPosition resolves the {id} path value to a position of the caller. Foreign and
// missing positions are both NOT_FOUND.
func (s *Server) ownedPosition(w http.ResponseWriter, r *http.Request) (uuid.UUID, *db.Position, bool) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return uuid.Nil, nil, false
	}
	positionID, err := pathUUID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return uuid.Nil, nil, false
	}
	position, err := s.store.GetPosition(r.Context(), userID, positionID)
	if err != nil {
		s.fail(w, r, err)
		return uuid.Nil, nil, false
	}
	if position == nil {
		s.fail(w, r, apperr.NotFound("position not found"))
		return uuid.Nil, nil, false
	}
	return userID, position, true
}

func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	_, position, ok := s.ownedPosition(w, r)
	if !ok {
		return
	}

	var filters db.MatchFilters
	if stage := r.URL.Query().Get("stage"); stage != "" {
		if !analytics.IsValidStage(stage) {
			s.fail(w, r, apperr.Validation("unknown stage: "+stage))
			return
		}
		filters.Stage = stage
	}
	if raw := r.URL.Query().Get("minScore"); raw != "" {
		minScore, err := strconv.ParseFloat(raw, 64)
		if err != nil || minScore < 0 || minScore > 100 {
			s.fail(w, r, apperr.Validation("minScore must be between 0 and 100"))
			return
		}
		filters.MinScore = minScore / 100
	}

	matches, err := s.store.ListMatches(r.Context(), position.ID, filters)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]MatchResponse, len(matches))
	for i, m := range matches {
		out[i] = convertMatch(m)
	}
	envelope.OK(w, out)
}

func (s *Server) handleRefreshMatches(w http.ResponseWriter, r *http.Request) {
	userID, position, ok := s.ownedPosition(w, r)
	if !ok {
		return
	}

	var req types.RefreshMatchesRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Limit == 0 {
		req.Limit = DefaultRefreshLimit
	}

	result, err := s.store.RefreshMatches(r.Context(), db.RefreshMatchesParams{
		PositionID: position.ID,
		UserID:     userID,
		Limit:      req.Limit,
		MinScore:   req.MinScore / 100,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	envelope.OK(w, result)
}

func (s *Server) handleUpdateMatchStage(w http.ResponseWriter, r *http.Request) {
	_, position, ok := s.ownedPosition(w, r)
	if !ok {
		return
	}
	candidateID, err := pathUUID(r, "candidateId")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var req types.UpdateStageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		s.fail(w, r, err)
		return
	}
	if !analytics.IsValidStage(req.Stage) {
		s.fail(w, r, apperr.Validation("unknown stage: "+req.Stage).
			WithDetails(map[string]any{"allowed": analytics.StageOrder}))
		return
	}

	transition, err := s.store.UpdateMatchStage(r.Context(), position.ID, candidateID, req.Stage)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if transition == nil {
		s.fail(w, r, apperr.NotFound("match not found"))
		return
	}
	envelope.OK(w, transition)
}
