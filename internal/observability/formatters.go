package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/candidate-hub/internal/analytics"
	"github.com/jonathan/candidate-hub/internal/db"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer renders operator-facing summaries for the CLI commands.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		if len([]rune(line)) > boxWidth-4 {
			line = string([]rune(line)[:boxWidth-7]) + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintMigrations lists the schema versions a migrate run applied.
func (p *Printer) PrintMigrations(applied []int) {
	if len(applied) == 0 {
		p.printBox("MIGRATIONS", "Schema is up to date")
		return
	}
	versions := make([]string, len(applied))
	for i, v := range applied {
		versions[i] = fmt.Sprintf("%03d", v)
	}
	p.printBox("MIGRATIONS", fmt.Sprintf("Applied %d: %s", len(applied), strings.Join(versions, ", ")))
}

// PrintSweepResult summarizes a stale-job sweep and how many queued jobs were re-enqueued.
func (p *Printer) PrintSweepResult(res *db.SweepResult, requeued int) {
	if res == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Jobs failed:        %d\n", res.FailedJobs))
	sb.WriteString(fmt.Sprintf("Candidates failed:  %d\n", res.FailedCandidates))
	sb.WriteString(fmt.Sprintf("Stale queued jobs:  %d (re-enqueued %d)\n", len(res.StaleQueued), requeued))

	if len(res.StaleQueued) > 0 {
		sb.WriteString("\n")
		count := min(len(res.StaleQueued), maxItemsToShow)
		for i := 0; i < count; i++ {
			job := res.StaleQueued[i]
			sb.WriteString(fmt.Sprintf("  • %s  %s\n", job.ID, job.FileName))
		}
		if len(res.StaleQueued) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(res.StaleQueued)-maxItemsToShow))
		}
	}

	p.printBox("STALE JOB SWEEP", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintPipelineStats outputs stage counts and adjacent conversions.
func (p *Printer) PrintPipelineStats(stats analytics.PipelineStats) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Candidates: %d   Placed: %d (%.1f%%)\n", stats.TotalCandidates, stats.PlacedCount, stats.PlacementRate))
	sb.WriteString(fmt.Sprintf("Method:     %s\n\n", stats.Method))

	for _, s := range stats.Stages {
		sb.WriteString(fmt.Sprintf("  %-14s %5d\n", s.Stage, s.Count))
	}
	if len(stats.Conversions) > 0 {
		sb.WriteString("\n")
		for _, c := range stats.Conversions {
			sb.WriteString(fmt.Sprintf("  %s → %s: %.1f%% (%d/%d)\n", c.From, c.To, c.Rate, c.Numerator, c.Denominator))
		}
	}

	p.printBox("PIPELINE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintHealthReport outputs the per-label counts and the most urgent positions.
func (p *Printer) PrintHealthReport(report analytics.HealthReport) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Critical: %d   Warning: %d   Good: %d\n",
		report.Counts.Critical, report.Counts.Warning, report.Counts.Good))

	if len(report.Top) > 0 {
		sb.WriteString("\n")
	}
	for i, ph := range report.Top {
		sb.WriteString(fmt.Sprintf("#%d  [%s] %s\n", i+1, strings.ToUpper(string(ph.Health)), ph.Title))
		sb.WriteString(fmt.Sprintf("    open %dd, %d active, %d stuck\n", ph.DaysOpen, ph.ActiveMatches, ph.StuckCount))
		if len(ph.Reasons) > 0 {
			sb.WriteString(fmt.Sprintf("    %s\n", strings.Join(ph.Reasons, "; ")))
		}
	}

	p.printBox("POSITION HEALTH", strings.TrimSuffix(sb.String(), "\n"))
}
