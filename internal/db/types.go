package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Candidate statuses
const (
	CandidateProcessing = "processing"
	CandidateParsed     = "parsed"
	CandidateAnalyzed   = "analyzed"
	CandidateCompleted  = "completed"
	CandidateFailed     = "failed"
)

// Processing job statuses
const (
	JobQueued     = "queued"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

// Credit transaction types
const (
	TxUsage    = "usage"
	TxPurchase = "purchase"
	TxRefund   = "refund"
	TxGrant    = "grant"
)

// DefaultAnalysisMode is used when a job has no recorded mode.
const DefaultAnalysisMode = "phase_1"

// Candidate represents the current version of a parsed resume
type Candidate struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"user_id"`
	Name            string          `json:"name"`
	LastPosition    string          `json:"last_position"`
	LastCompany     string          `json:"last_company"`
	ExpYears        int             `json:"exp_years"`
	Skills          []string        `json:"skills"`
	Summary         string          `json:"summary"`
	Careers         json.RawMessage `json:"careers,omitempty"`
	Educations      json.RawMessage `json:"educations,omitempty"`
	Projects        json.RawMessage `json:"projects,omitempty"`
	Status          string          `json:"status"`
	ConfidenceScore float64         `json:"confidence_score"`
	IsLatest        bool            `json:"is_latest"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// CandidatePage is one page of a candidate listing plus the unpaged total
type CandidatePage struct {
	Candidates []Candidate `json:"candidates"`
	Total      int         `json:"total"`
}

// ProcessingJob is one analysis attempt for a candidate
type ProcessingJob struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	CandidateID  *uuid.UUID `json:"candidate_id,omitempty"`
	FileName     string     `json:"file_name"`
	FilePath     string     `json:"file_path"`
	FileType     string     `json:"file_type"`
	FileSize     int64      `json:"file_size"`
	AnalysisMode string     `json:"analysis_mode"`
	Status       string     `json:"status"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewJobParams describes a job row to create
type NewJobParams struct {
	UserID       uuid.UUID
	CandidateID  uuid.UUID
	FileName     string
	FilePath     string
	FileType     string
	FileSize     int64
	AnalysisMode string
}

// UserCredits is a user's credit balance
type UserCredits struct {
	UserID               uuid.UUID `json:"user_id"`
	Plan                 string    `json:"plan"`
	PlanBaseCredits      int       `json:"plan_base_credits"`
	CreditsUsedThisMonth int       `json:"credits_used_this_month"`
	PurchasedCredits     int       `json:"purchased_credits"`
	CreditsReserved      int       `json:"credits_reserved"`
}

// Remaining is the balance available for new charges, net of outstanding reservations.
func (c UserCredits) Remaining() int {
	r := c.PlanBaseCredits - c.CreditsUsedThisMonth + c.PurchasedCredits - c.CreditsReserved
	if r < 0 {
		return 0
	}
	return r
}

// Reservation is the outcome of a credit reservation attempt
type Reservation struct {
	Reserved  bool // all requested credits were reserved
	Remaining int  // balance after the reservation, or the current balance when refused
}

// Position is a job opening owned by a user
type Position struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Title     string     `json:"title"`
	Status    string     `json:"status"`
	Deadline  *time.Time `json:"deadline,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// PositionMatch is a scored candidate for a position. Scores are stored in [0,1].
type PositionMatch struct {
	PositionID      uuid.UUID `json:"position_id"`
	CandidateID     uuid.UUID `json:"candidate_id"`
	CandidateName   string    `json:"candidate_name"`
	LastPosition    string    `json:"last_position"`
	LastCompany     string    `json:"last_company"`
	OverallScore    float64   `json:"overall_score"`
	SkillScore      float64   `json:"skill_score"`
	ExperienceScore float64   `json:"experience_score"`
	EducationScore  float64   `json:"education_score"`
	SemanticScore   float64   `json:"semantic_score"`
	Stage           string    `json:"stage"`
	MatchedAt       time.Time `json:"matched_at"`
	StageUpdatedAt  time.Time `json:"stage_updated_at"`
}

// MatchFilters holds optional filters for listing matches
type MatchFilters struct {
	Stage    string
	MinScore float64 // [0,1]
}

// RefreshMatchesParams are the arguments of the save_position_matches procedure
type RefreshMatchesParams struct {
	PositionID uuid.UUID
	UserID     uuid.UUID
	Limit      int
	MinScore   float64
}

// RefreshMatchesResult is the return of the save_position_matches procedure
type RefreshMatchesResult struct {
	Saved int `json:"saved"`
}

// StageTransition records a match moving between pipeline stages
type StageTransition struct {
	PositionID  uuid.UUID `json:"position_id"`
	CandidateID uuid.UUID `json:"candidate_id"`
	FromStage   string    `json:"from_stage"`
	ToStage     string    `json:"to_stage"`
	CreatedAt   time.Time `json:"created_at"`
}

// SavedSearch is a user-owned named query
type SavedSearch struct {
	ID         uuid.UUID       `json:"id"`
	UserID     uuid.UUID       `json:"user_id"`
	Name       string          `json:"name"`
	Query      string          `json:"query"`
	Filters    json.RawMessage `json:"filters"`
	UseCount   int             `json:"use_count"`
	LastUsedAt *time.Time      `json:"last_used_at,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// SavedSearchUpdate holds the optional fields of a saved-search update
type SavedSearchUpdate struct {
	Name    *string
	Query   *string
	Filters json.RawMessage
}

// SweepResult summarizes a stale-job sweep
type SweepResult struct {
	FailedJobs       int             `json:"failed_jobs"`
	FailedCandidates int             `json:"failed_candidates"`
	StaleQueued      []ProcessingJob `json:"stale_queued"`
}
