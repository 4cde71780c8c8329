package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jonathan/candidate-hub/internal/analytics"
	"github.com/jonathan/candidate-hub/internal/db"
	"github.com/stretchr/testify/assert"
)

func TestPrintMigrations(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintMigrations([]int{1, 2})
	assert.Contains(t, buf.String(), "Applied 2: 001, 002")

	buf.Reset()
	p.PrintMigrations(nil)
	assert.Contains(t, buf.String(), "Schema is up to date")
}

func TestPrintSweepResult(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	queued := make([]db.ProcessingJob, 7)
	for i := range queued {
		queued[i] = db.ProcessingJob{ID: uuid.New(), FileName: "cv.pdf"}
	}
	p.PrintSweepResult(&db.SweepResult{FailedJobs: 2, FailedCandidates: 1, StaleQueued: queued}, 6)
	output := buf.String()

	assert.Contains(t, output, "STALE JOB SWEEP")
	assert.Contains(t, output, "Jobs failed:        2")
	assert.Contains(t, output, "7 (re-enqueued 6)")
	assert.Contains(t, output, queued[0].ID.String())
	assert.NotContains(t, output, queued[6].ID.String())
	assert.Contains(t, output, "... and 2 more")
}

func TestPrintSweepResult_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintSweepResult(nil, 0)
	assert.Empty(t, buf.String())
}

func TestPrintPipelineStats(t *testing.T) {
	var buf bytes.Buffer
	stats := analytics.ComputePipelineStats([]analytics.StageCount{
		{Stage: analytics.StageMatched, Count: 8},
		{Stage: analytics.StagePlaced, Count: 2},
	}, nil)

	NewPrinter(&buf).PrintPipelineStats(stats)
	output := buf.String()

	assert.Contains(t, output, "Candidates: 10   Placed: 2 (20.0%)")
	assert.Contains(t, output, "Method:     cumulative")
	assert.Contains(t, output, "matched → reviewed")
}

func TestPrintHealthReport(t *testing.T) {
	var buf bytes.Buffer
	report := analytics.HealthReport{
		Top: []analytics.PositionHealth{{
			Title:   "Platform Engineer with an unusually long title that overflows the box",
			Health:  analytics.HealthCritical,
			Reasons: []string{"3 stuck candidates"},
		}},
		Counts: analytics.HealthCounts{Critical: 1, Warning: 2},
	}

	NewPrinter(&buf).PrintHealthReport(report)
	output := buf.String()

	assert.Contains(t, output, "Critical: 1   Warning: 2   Good: 0")
	assert.Contains(t, output, "[CRITICAL]")
	assert.Contains(t, output, "3 stuck candidates")
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		assert.LessOrEqual(t, len([]rune(line)), boxWidth, "line overflows the box: %q", line)
	}
}
