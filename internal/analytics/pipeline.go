// Package analytics computes pipeline conversion statistics and position health reports.
package analytics

import "math"

// Stage is one step of a position's candidate pipeline.
type Stage string

const (
	StageMatched      Stage = "matched"
	StageReviewed     Stage = "reviewed"
	StageContacted    Stage = "contacted"
	StageInterviewing Stage = "interviewing"
	StageOffered      Stage = "offered"
	StagePlaced       Stage = "placed"
)

// StageOrder is the total order of pipeline stages.
var StageOrder = []Stage{
	StageMatched,
	StageReviewed,
	StageContacted,
	StageInterviewing,
	StageOffered,
	StagePlaced,
}

// StageIndex returns the position of s in StageOrder, or -1 for unknown stages.
func StageIndex(s Stage) int {
	for i, st := range StageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// IsValidStage reports whether s is a known pipeline stage.
func IsValidStage(s string) bool {
	return StageIndex(Stage(s)) >= 0
}

// Conversion methods reported on PipelineStats.
const (
	MethodTransitions = "transitions"
	MethodCumulative  = "cumulative"
)

// StageCount is the per-stage snapshot of a pipeline.
type StageCount struct {
	Stage              Stage `json:"stage"`
	Count              int   `json:"count"`
	TotalEntered       int   `json:"total_entered"`
	TotalExitedForward int   `json:"total_exited_forward"`
}

// TransitionCount counts observed moves from one stage to another.
type TransitionCount struct {
	FromStage Stage `json:"from_stage"`
	ToStage   Stage `json:"to_stage"`
	Count     int   `json:"count"`
}

// Conversion is the conversion rate between two adjacent stages.
type Conversion struct {
	From        Stage   `json:"from"`
	To          Stage   `json:"to"`
	Rate        float64 `json:"rate"` // 0-100
	Numerator   int     `json:"numerator"`
	Denominator int     `json:"denominator"`
}

// PipelineStats is the aggregated view of a pipeline snapshot.
type PipelineStats struct {
	Stages          []StageCount `json:"stages"`
	Conversions     []Conversion `json:"conversions"`
	Method          string       `json:"method"`
	TotalCandidates int          `json:"totalCandidates"`
	PlacedCount     int          `json:"placedCount"`
	PlacementRate   float64      `json:"placementRate"`
}

// ComputePipelineStats normalizes the snapshot into StageOrder and computes adjacent-stage
// conversions. Transition counts are used when any are present; otherwise the cumulative
// survivorship estimate is used. Unknown stages and negative counts are treated as zero.
func ComputePipelineStats(stages []StageCount, transitions []TransitionCount) PipelineStats {
	ordered := normalizeStages(stages)

	stats := PipelineStats{Stages: ordered}
	for _, s := range ordered {
		stats.TotalCandidates += s.Count
	}
	stats.PlacedCount = ordered[len(ordered)-1].Count
	stats.PlacementRate = PlacementRate(stats.PlacedCount, stats.TotalCandidates)

	if hasTransitions(transitions) {
		stats.Method = MethodTransitions
		stats.Conversions = TransitionConversions(ordered, transitions)
	} else {
		stats.Method = MethodCumulative
		stats.Conversions = CumulativeConversions(ordered)
	}
	return stats
}

// TransitionConversions computes conversions from observed transitions. The denominator is
// the from stage's total_entered when positive, else its current count plus the transition count.
func TransitionConversions(stages []StageCount, transitions []TransitionCount) []Conversion {
	ordered := normalizeStages(stages)

	moves := make(map[[2]Stage]int)
	for _, t := range transitions {
		if StageIndex(t.FromStage) < 0 || StageIndex(t.ToStage) < 0 || t.Count <= 0 {
			continue
		}
		moves[[2]Stage{t.FromStage, t.ToStage}] += t.Count
	}

	conversions := make([]Conversion, 0, len(StageOrder)-1)
	for i := 0; i < len(StageOrder)-1; i++ {
		from, to := ordered[i], ordered[i+1]
		moved := moves[[2]Stage{from.Stage, to.Stage}]

		denominator := from.TotalEntered
		if denominator <= 0 {
			denominator = from.Count + moved
		}

		conversions = append(conversions, Conversion{
			From:        from.Stage,
			To:          to.Stage,
			Rate:        rate(moved, denominator),
			Numerator:   moved,
			Denominator: denominator,
		})
	}
	return conversions
}

// CumulativeConversions estimates conversion (i -> i+1) as the number of candidates at or
// beyond stage i+1 over the number at or beyond stage i.
func CumulativeConversions(stages []StageCount) []Conversion {
	ordered := normalizeStages(stages)

	// atOrBeyond[i] = sum of counts in stages >= i
	atOrBeyond := make([]int, len(ordered)+1)
	for i := len(ordered) - 1; i >= 0; i-- {
		atOrBeyond[i] = atOrBeyond[i+1] + ordered[i].Count
	}

	conversions := make([]Conversion, 0, len(StageOrder)-1)
	for i := 0; i < len(StageOrder)-1; i++ {
		conversions = append(conversions, Conversion{
			From:        ordered[i].Stage,
			To:          ordered[i+1].Stage,
			Rate:        rate(atOrBeyond[i+1], atOrBeyond[i]),
			Numerator:   atOrBeyond[i+1],
			Denominator: atOrBeyond[i],
		})
	}
	return conversions
}

// PlacementRate returns placed/total as a percentage, 0 for an empty pipeline.
func PlacementRate(placed, total int) float64 {
	return rate(placed, total)
}

// normalizeStages returns one entry per StageOrder stage, summing duplicates and
// clamping negatives to zero.
func normalizeStages(stages []StageCount) []StageCount {
	ordered := make([]StageCount, len(StageOrder))
	for i, s := range StageOrder {
		ordered[i].Stage = s
	}
	for _, s := range stages {
		idx := StageIndex(s.Stage)
		if idx < 0 {
			continue
		}
		ordered[idx].Count += nonNegative(s.Count)
		ordered[idx].TotalEntered += nonNegative(s.TotalEntered)
		ordered[idx].TotalExitedForward += nonNegative(s.TotalExitedForward)
	}
	return ordered
}

func hasTransitions(transitions []TransitionCount) bool {
	for _, t := range transitions {
		if t.Count > 0 && StageIndex(t.FromStage) >= 0 && StageIndex(t.ToStage) >= 0 {
			return true
		}
	}
	return false
}

// rate is num/den*100 clamped to [0,100], rounded to one decimal; 0 when den is not positive.
func rate(num, den int) float64 {
	if den <= 0 || num <= 0 {
		return 0
	}
	r := float64(num) / float64(den) * 100
	if r > 100 {
		r = 100
	}
	return math.Round(r*10) / 10
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
