package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageIndex(t *testing.T) {
	assert.Equal(t, 0, StageIndex(StageMatched))
	assert.Equal(t, 5, StageIndex(StagePlaced))
	assert.Equal(t, -1, StageIndex(Stage("hired")))
	assert.True(t, IsValidStage("offered"))
	assert.False(t, IsValidStage(""))
}

func TestCumulativeConversions(t *testing.T) {
	stages := []StageCount{
		{Stage: StageMatched, Count: 50},
		{Stage: StageReviewed, Count: 20},
		{Stage: StageContacted, Count: 10},
		{Stage: StageInterviewing, Count: 10},
		{Stage: StageOffered, Count: 5},
		{Stage: StagePlaced, Count: 5},
	}

	conv := CumulativeConversions(stages)
	require.Len(t, conv, 5)

	// matched -> reviewed: 50/100
	assert.Equal(t, StageMatched, conv[0].From)
	assert.Equal(t, StageReviewed, conv[0].To)
	assert.Equal(t, 50, conv[0].Numerator)
	assert.Equal(t, 100, conv[0].Denominator)
	assert.Equal(t, 50.0, conv[0].Rate)

	// offered -> placed: 5/10
	assert.Equal(t, 50.0, conv[4].Rate)
	// reviewed -> contacted: 30/50
	assert.Equal(t, 60.0, conv[1].Rate)
}

func TestCumulativeConversions_ZeroDenominator(t *testing.T) {
	conv := CumulativeConversions([]StageCount{{Stage: StageMatched, Count: 4}})

	require.Len(t, conv, 5)
	assert.Equal(t, 0.0, conv[0].Rate)
	for _, c := range conv[1:] {
		assert.Equal(t, 0, c.Denominator)
		assert.Equal(t, 0.0, c.Rate)
	}
}

func TestTransitionConversions(t *testing.T) {
	stages := []StageCount{
		{Stage: StageMatched, Count: 10, TotalEntered: 40},
		{Stage: StageReviewed, Count: 6},
		{Stage: StageContacted, Count: 0},
	}
	transitions := []TransitionCount{
		{FromStage: StageMatched, ToStage: StageReviewed, Count: 30},
		{FromStage: StageReviewed, ToStage: StageContacted, Count: 2},
	}

	conv := TransitionConversions(stages, transitions)
	require.Len(t, conv, 5)

	// total_entered is authoritative when present
	assert.Equal(t, 30, conv[0].Numerator)
	assert.Equal(t, 40, conv[0].Denominator)
	assert.Equal(t, 75.0, conv[0].Rate)

	// reconstructed denominator: count + moved = 6 + 2
	assert.Equal(t, 8, conv[1].Denominator)
	assert.Equal(t, 25.0, conv[1].Rate)

	// no data at all
	assert.Equal(t, 0, conv[2].Denominator)
	assert.Equal(t, 0.0, conv[2].Rate)
}

func TestTransitionConversions_ClampedTo100(t *testing.T) {
	stages := []StageCount{{Stage: StageMatched, Count: 1, TotalEntered: 2}}
	transitions := []TransitionCount{{FromStage: StageMatched, ToStage: StageReviewed, Count: 5}}

	conv := TransitionConversions(stages, transitions)
	assert.Equal(t, 100.0, conv[0].Rate)
}

func TestComputePipelineStats_MethodSelection(t *testing.T) {
	stages := []StageCount{
		{Stage: StageMatched, Count: 3},
		{Stage: StagePlaced, Count: 1},
	}

	stats := ComputePipelineStats(stages, nil)
	assert.Equal(t, MethodCumulative, stats.Method)
	assert.Equal(t, 4, stats.TotalCandidates)
	assert.Equal(t, 1, stats.PlacedCount)
	assert.Equal(t, 25.0, stats.PlacementRate)
	assert.Len(t, stats.Stages, len(StageOrder))

	stats = ComputePipelineStats(stages, []TransitionCount{
		{FromStage: StageMatched, ToStage: StageReviewed, Count: 1},
	})
	assert.Equal(t, MethodTransitions, stats.Method)

	// transitions referencing unknown stages do not count as transition data
	stats = ComputePipelineStats(stages, []TransitionCount{
		{FromStage: "sourced", ToStage: StageMatched, Count: 9},
	})
	assert.Equal(t, MethodCumulative, stats.Method)
}

func TestComputePipelineStats_MalformedInput(t *testing.T) {
	stages := []StageCount{
		{Stage: "bogus", Count: 100},
		{Stage: StageMatched, Count: -5, TotalEntered: -1},
		{Stage: StageReviewed, Count: 2},
		{Stage: StageReviewed, Count: 2},
	}

	stats := ComputePipelineStats(stages, []TransitionCount{{FromStage: StageMatched, ToStage: StageReviewed, Count: -3}})

	assert.Equal(t, MethodCumulative, stats.Method)
	assert.Equal(t, 4, stats.TotalCandidates)
	assert.Equal(t, 4, stats.Stages[1].Count)
	assert.Equal(t, 0, stats.Stages[0].Count)
	for _, c := range stats.Conversions {
		assert.GreaterOrEqual(t, c.Rate, 0.0)
		assert.LessOrEqual(t, c.Rate, 100.0)
	}
}

func TestComputePipelineStats_Empty(t *testing.T) {
	stats := ComputePipelineStats(nil, nil)

	assert.Equal(t, 0, stats.TotalCandidates)
	assert.Equal(t, 0.0, stats.PlacementRate)
	require.Len(t, stats.Conversions, 5)
	for _, c := range stats.Conversions {
		assert.Equal(t, 0.0, c.Rate)
	}
}

func TestPlacementRate(t *testing.T) {
	assert.Equal(t, 0.0, PlacementRate(0, 0))
	assert.Equal(t, 0.0, PlacementRate(3, 0))
	assert.Equal(t, 10.0, PlacementRate(1, 10))
	assert.Equal(t, 33.3, PlacementRate(1, 3))
}
