package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Health is the tri-state health label of an open position.
type Health string

const (
	HealthCritical Health = "critical"
	HealthWarning  Health = "warning"
	HealthGood     Health = "good"
)

// severity orders labels for sorting; lower is more severe.
func (h Health) severity() int {
	switch h {
	case HealthCritical:
		return 0
	case HealthWarning:
		return 1
	default:
		return 2
	}
}

// TopPositionsLimit is the number of positions surfaced in HealthReport.Top.
const TopPositionsLimit = 5

// HealthThresholds configures Classify.
type HealthThresholds struct {
	DeadlineCriticalDays int // deadline within this many days is critical
	StuckCritical        int
	StuckWarning         int
	OpenCriticalDays     int // open this long with no active matches is critical
	OpenWarningDays      int
	StuckIdleDays        int // idle time after which a match counts as stuck; applied by the data layer
}

// DefaultHealthThresholds returns the stock thresholds.
func DefaultHealthThresholds() HealthThresholds {
	return HealthThresholds{
		DeadlineCriticalDays: 3,
		StuckCritical:        3,
		StuckWarning:         1,
		OpenCriticalDays:     60,
		OpenWarningDays:      30,
		StuckIdleDays:        7,
	}
}

// PositionAggregate is the per-position input to the classifier.
type PositionAggregate struct {
	PositionID    string
	Title         string
	OpenedAt      time.Time
	Deadline      *time.Time
	ActiveMatches int
	StuckCount    int
}

// PositionHealth is a classified position.
type PositionHealth struct {
	PositionID        string     `json:"positionId"`
	Title             string     `json:"title"`
	Health            Health     `json:"health"`
	Reasons           []string   `json:"reasons"`
	DaysOpen          int        `json:"daysOpen"`
	ActiveMatches     int        `json:"activeMatches"`
	StuckCount        int        `json:"stuckCount"`
	Deadline          *time.Time `json:"deadline,omitempty"`
	DaysUntilDeadline *int       `json:"daysUntilDeadline,omitempty"`
}

// HealthCounts holds per-label totals.
type HealthCounts struct {
	Critical int `json:"critical"`
	Warning  int `json:"warning"`
	Good     int `json:"good"`
}

// HealthReport is the ranked health view across positions.
type HealthReport struct {
	Top       []PositionHealth `json:"top"`
	Positions []PositionHealth `json:"positions"`
	Counts    HealthCounts     `json:"counts"`
}

// Classify labels a position. It is deterministic for a given now.
func Classify(agg PositionAggregate, th HealthThresholds, now time.Time) PositionHealth {
	ph := PositionHealth{
		PositionID:    agg.PositionID,
		Title:         agg.Title,
		DaysOpen:      daysBetween(agg.OpenedAt, now),
		ActiveMatches: nonNegative(agg.ActiveMatches),
		StuckCount:    nonNegative(agg.StuckCount),
		Deadline:      agg.Deadline,
		Reasons:       []string{},
	}

	var critical, warning []string

	if agg.Deadline != nil {
		until := daysUntil(now, *agg.Deadline)
		ph.DaysUntilDeadline = &until
		switch {
		case agg.Deadline.Before(now):
			critical = append(critical, "deadline passed")
		case until <= th.DeadlineCriticalDays:
			critical = append(critical, fmt.Sprintf("deadline in %d days", until))
		}
	}

	switch {
	case ph.StuckCount >= th.StuckCritical:
		critical = append(critical, fmt.Sprintf("%d stuck candidates", ph.StuckCount))
	case ph.StuckCount >= th.StuckWarning && ph.StuckCount > 0:
		warning = append(warning, fmt.Sprintf("%d stuck candidates", ph.StuckCount))
	}

	if ph.ActiveMatches == 0 {
		if ph.DaysOpen >= th.OpenCriticalDays {
			critical = append(critical, fmt.Sprintf("open %d days with no active candidates", ph.DaysOpen))
		} else {
			warning = append(warning, "no active candidates")
		}
	}

	if ph.DaysOpen >= th.OpenWarningDays && !(ph.ActiveMatches == 0 && ph.DaysOpen >= th.OpenCriticalDays) {
		warning = append(warning, fmt.Sprintf("open %d days", ph.DaysOpen))
	}

	switch {
	case len(critical) > 0:
		ph.Health = HealthCritical
		ph.Reasons = append(critical, warning...)
	case len(warning) > 0:
		ph.Health = HealthWarning
		ph.Reasons = warning
	default:
		ph.Health = HealthGood
	}
	return ph
}

// BuildHealthReport classifies every position and sorts by severity, then most recently
// opened, then position id.
func BuildHealthReport(aggs []PositionAggregate, th HealthThresholds, now time.Time) HealthReport {
	positions := make([]PositionHealth, 0, len(aggs))
	for _, agg := range aggs {
		positions = append(positions, Classify(agg, th, now))
	}
	SortByHealth(positions)

	report := HealthReport{Positions: positions}
	for _, p := range positions {
		switch p.Health {
		case HealthCritical:
			report.Counts.Critical++
		case HealthWarning:
			report.Counts.Warning++
		default:
			report.Counts.Good++
		}
	}

	top := len(positions)
	if top > TopPositionsLimit {
		top = TopPositionsLimit
	}
	report.Top = positions[:top]
	return report
}

// SortByHealth sorts positions in place, stable and total.
func SortByHealth(positions []PositionHealth) {
	sort.SliceStable(positions, func(i, j int) bool {
		a, b := positions[i], positions[j]
		if a.Health.severity() != b.Health.severity() {
			return a.Health.severity() < b.Health.severity()
		}
		if a.DaysOpen != b.DaysOpen {
			return a.DaysOpen < b.DaysOpen
		}
		return a.PositionID < b.PositionID
	})
}

func daysBetween(from, to time.Time) int {
	if from.IsZero() || to.Before(from) {
		return 0
	}
	return int(to.Sub(from).Hours() / 24)
}

// daysUntil rounds partial days up, so a deadline 30 hours away is 2 days out.
func daysUntil(now, deadline time.Time) int {
	if deadline.Before(now) {
		return -int(math.Ceil(now.Sub(deadline).Hours() / 24))
	}
	return int(math.Ceil(deadline.Sub(now).Hours() / 24))
}
