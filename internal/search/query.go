package search

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jonathan/candidate-hub/internal/apperr"
)

// Pagination bounds for candidate listing.
const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Candidate statuses as stored in candidates.status.
const (
	StatusProcessing = "processing"
	StatusParsed     = "parsed"
	StatusAnalyzed   = "analyzed"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

var knownStatuses = map[string]bool{
	StatusProcessing: true,
	StatusParsed:     true,
	StatusAnalyzed:   true,
	StatusCompleted:  true,
	StatusFailed:     true,
}

// ListParams holds the raw query-string values of a candidate list request.
type ListParams struct {
	Page              string
	Limit             string
	Status            string
	IncludeProcessing string
	Query             string
	Skills            string
}

// CandidateQuery is a validated, sanitized candidate search.
type CandidateQuery struct {
	Keywords []string
	Skills   []string
	Statuses []string
	Page     int
	Limit    int
}

// Offset returns the row offset for the current page.
func (q CandidateQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// NewCandidateQuery validates pagination and status filters and tokenizes the free-text
// query and skill list. Validation failures are VALIDATION_ERROR app errors.
func NewCandidateQuery(p ListParams) (CandidateQuery, error) {
	q := CandidateQuery{Page: DefaultPage, Limit: DefaultLimit}

	if p.Page != "" {
		page, err := strconv.Atoi(p.Page)
		if err != nil || page < 1 {
			return q, apperr.Validation("page must be a positive integer")
		}
		q.Page = page
	}

	if p.Limit != "" {
		limit, err := strconv.Atoi(p.Limit)
		if err != nil || limit < 1 || limit > MaxLimit {
			return q, apperr.Validation(fmt.Sprintf("limit must be between 1 and %d", MaxLimit))
		}
		q.Limit = limit
	}

	if q.Page > math.MaxInt/q.Limit {
		return q, apperr.Validation("page is out of range")
	}

	includeProcessing := false
	if p.IncludeProcessing != "" {
		v, err := strconv.ParseBool(p.IncludeProcessing)
		if err != nil {
			return q, apperr.Validation("includeProcessing must be a boolean")
		}
		includeProcessing = v
	}

	switch {
	case p.Status != "":
		for _, status := range strings.Split(p.Status, ",") {
			status = strings.TrimSpace(status)
			if !knownStatuses[status] {
				return q, apperr.Validation("unknown status: " + SanitizeString(status))
			}
			q.Statuses = append(q.Statuses, status)
		}
	case includeProcessing:
		q.Statuses = []string{StatusParsed, StatusAnalyzed, StatusCompleted, StatusProcessing, StatusFailed}
	default:
		q.Statuses = []string{StatusParsed, StatusAnalyzed, StatusCompleted}
	}

	q.Keywords = ParseSearchQuery(p.Query, DefaultMaxTokenLength)

	if p.Skills != "" {
		raw := strings.Split(p.Skills, ",")
		q.Skills = SanitizeSkillsArray(raw)
	}

	return q, nil
}

// EscapeLike escapes the ILIKE wildcards in s so it matches literally.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// ContainsPattern returns the ILIKE pattern matching s anywhere in a column.
func ContainsPattern(s string) string {
	return "%" + EscapeLike(s) + "%"
}
