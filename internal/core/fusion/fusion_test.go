package fusion

import (
	"testing"

	"github.com/penwyp/go-rhythm-fusion/internal/core/model"
	"github.com/penwyp/go-rhythm-fusion/internal/core/threshold"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioBeats() []model.BeatRecord {
	return []model.BeatRecord{
		{Time: 1.0, Position: 1},
		{Time: 1.5, Position: 2},
		{Time: 2.0, Position: 3},
		{Time: 2.5, Position: 4},
	}
}

func TestFuseBeatsOnly(t *testing.T) {
	res, err := Fuse(Inputs{Beats: scenarioBeats()}, DefaultParams())
	require.NoError(t, err)

	tl := res.Timeline
	require.Len(t, tl, 4)
	for i, e := range tl {
		assert.Equal(t, 1, e.Measure)
		assert.Equal(t, i+1, e.BeatInMeasure)
	}
	assert.Equal(t, 1, res.Stats.Downbeats)
	assert.Equal(t, 3, res.Stats.Beats)
	assert.Equal(t, 1, res.Stats.Budget)
	assert.Equal(t, 1, tl.SalientCount())
}

func TestFuseAutoBudgetMatchesDownbeatCount(t *testing.T) {
	// two downbeats inside one tolerance window collapse to a single event
	beats := []model.BeatRecord{
		{Time: 1.0, Position: 1},
		{Time: 1.01, Position: 1},
		{Time: 1.5, Position: 2},
	}
	res, err := Fuse(Inputs{Beats: beats}, DefaultParams())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Timeline.Count(model.KindDownbeat))
	assert.Equal(t, 2, res.Stats.Downbeats)
	assert.Equal(t, res.Stats.Downbeats, res.Stats.Budget)
	assert.Equal(t, 2, res.Timeline.SalientCount())
}

func TestFuseOnsetNearBeatIsDropped(t *testing.T) {
	res, err := Fuse(Inputs{Beats: scenarioBeats(), Onsets: []float64{1.52}}, DefaultParams())
	require.NoError(t, err)

	assert.Len(t, res.Timeline, 4)
	assert.Zero(t, res.Timeline.Count(model.KindOnset))
}

func TestFuseIndependentOnsetSurvives(t *testing.T) {
	res, err := Fuse(Inputs{Beats: scenarioBeats(), Onsets: []float64{1.6}}, DefaultParams())
	require.NoError(t, err)

	tl := res.Timeline
	require.Len(t, tl, 5)
	onset := tl[2]
	assert.Equal(t, model.KindOnset, onset.Kind)
	assert.Equal(t, 1.6, onset.Time)
	assert.Equal(t, 1, onset.Measure)
	assert.Equal(t, 2, onset.BeatInMeasure)
}

func TestFuseStrongOnsetFiltering(t *testing.T) {
	// fps 1: onset at t has strength t+1
	curve := model.NewStrengthCurve([]float64{1, 2, 3, 4, 5, 6, 7, 8}, 1)
	params := DefaultParams()
	params.Threshold = threshold.Selector{Mode: threshold.ModePercentile, Value: 75}
	params.Budget = 0

	res, err := Fuse(Inputs{Curve: curve, Onsets: []float64{0, 1, 2, 3, 4, 5, 6, 7}}, params)
	require.NoError(t, err)

	assert.InDelta(t, 6.25, res.Stats.Cutoff, 1e-9)
	require.Len(t, res.Timeline, 2)
	assert.Equal(t, 7.0, res.Timeline[0].Strength)
	assert.Equal(t, 8.0, res.Timeline[1].Strength)
	assert.Zero(t, res.Timeline.SalientCount())
}

func TestFuseDeterministic(t *testing.T) {
	curve := model.NewStrengthCurve([]float64{0.1, 0.9, 0.3, 0.3, 0.8, 0.2, 0.6, 0.1, 0.5, 0.4}, 4)
	in := Inputs{
		Beats:  []model.BeatRecord{{Time: 0.25, Position: 1}, {Time: 0.75, Position: 2}, {Time: 1.5, Position: 1}},
		Curve:  curve,
		Onsets: []float64{0.26, 1.0, 1.75, 2.0},
	}

	first, err := Fuse(in, DefaultParams())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Fuse(in, DefaultParams())
		require.NoError(t, err)
		assert.Equal(t, first.Timeline, again.Timeline)
	}
	assert.True(t, first.Timeline.IsChronological())
}

func TestFuseInvalidParams(t *testing.T) {
	params := DefaultParams()
	params.Tolerance = 0
	_, err := Fuse(Inputs{}, params)
	assert.ErrorIs(t, err, model.ErrInvalidParameter)

	params = DefaultParams()
	params.Budget = -2
	_, err = Fuse(Inputs{}, params)
	assert.ErrorIs(t, err, model.ErrInvalidParameter)

	params = DefaultParams()
	params.Threshold = threshold.Selector{Mode: threshold.ModePercentile, Value: 150}
	_, err = Fuse(Inputs{}, params)
	assert.ErrorIs(t, err, model.ErrInvalidParameter)
}

func TestFuseEmptyInputs(t *testing.T) {
	res, err := Fuse(Inputs{}, DefaultParams())
	require.NoError(t, err)
	assert.Empty(t, res.Timeline)
	assert.Zero(t, res.Stats.Budget)
}

func TestCutoffWithoutCurve(t *testing.T) {
	cutoff, err := Cutoff(nil, DefaultParams().Threshold)
	require.NoError(t, err)
	assert.Zero(t, cutoff)
}
