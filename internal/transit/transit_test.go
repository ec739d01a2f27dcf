package transit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 2, 8, 0, 0, 0, time.Local)

func at(hours float64) time.Time {
	return base.Add(time.Duration(hours * float64(time.Hour)))
}

func TestEstimate_MedianScenario(t *testing.T) {
	t.Parallel()

	meals := []time.Time{at(0), at(10), at(30)}
	elims := []time.Time{at(20), at(34), at(52)}

	res := Estimate(at(60), meals, elims, DefaultOptions())

	require.True(t, res.Defined())
	assert.InDelta(t, 22.0, *res.MedianHours, 1e-9)
	assert.Equal(t, []float64{20, 24, 22}, res.Diagnostics.Samples)
	assert.Equal(t, 3, res.Diagnostics.SampleCount)
}

func TestEstimate_FirstTwoPairs(t *testing.T) {
	t.Parallel()

	res := Estimate(at(40), []time.Time{at(0), at(10)}, []time.Time{at(20), at(34)}, DefaultOptions())

	assert.Equal(t, []float64{20, 24}, res.Diagnostics.Samples)
}

func TestEstimate_Insufficient(t *testing.T) {
	t.Parallel()

	meals := []time.Time{at(0), at(10)}
	elims := []time.Time{at(5), at(20), at(25), at(30), at(35)}

	res := Estimate(at(40), meals, elims, DefaultOptions())

	assert.False(t, res.Defined())
	assert.Nil(t, res.MedianHours)
	assert.Equal(t, 2, res.Diagnostics.SampleCount)
	assert.Equal(t, 2, res.Diagnostics.MealCount)
	assert.Equal(t, 5, res.Diagnostics.EliminationCount)
}

func TestEstimate_EmptyLists(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		meals []time.Time
		elims []time.Time
		wantM int
		wantE int
	}{
		{"no meals", nil, []time.Time{at(1)}, 0, 1},
		{"no eliminations", []time.Time{at(1)}, nil, 1, 0},
		{"nothing", nil, nil, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := Estimate(at(10), tt.meals, tt.elims, DefaultOptions())
			assert.False(t, res.Defined())
			assert.Equal(t, tt.wantM, res.Diagnostics.MealCount)
			assert.Equal(t, tt.wantE, res.Diagnostics.EliminationCount)
			assert.Zero(t, res.Diagnostics.SampleCount)
		})
	}
}

func TestEstimate_TieCountsAsZeroSample(t *testing.T) {
	t.Parallel()

	opts := Options{MinSamples: 1}
	res := Estimate(at(5), []time.Time{at(1)}, []time.Time{at(1)}, opts)

	require.True(t, res.Defined())
	assert.Zero(t, *res.MedianHours)
}

func TestEstimate_UnpairedMealContributesNothing(t *testing.T) {
	t.Parallel()

	opts := Options{MinSamples: 1}
	res := Estimate(at(30), []time.Time{at(0), at(25)}, []time.Time{at(12)}, opts)

	assert.Equal(t, []float64{12}, res.Diagnostics.Samples)
}

func TestEstimate_PlausibilityBound(t *testing.T) {
	t.Parallel()

	opts := Options{WindowDays: 10, MaxPlausibleHours: 72, MinSamples: 1}
	res := Estimate(at(100), []time.Time{at(0)}, []time.Time{at(80)}, opts)

	assert.False(t, res.Defined())
	assert.Zero(t, res.Diagnostics.SampleCount)
}

func TestEstimate_DuplicateTimestamps(t *testing.T) {
	t.Parallel()

	meals := []time.Time{at(0), at(0), at(0), at(0)}
	elims := []time.Time{at(12), at(12), at(12)}

	var res Result
	require.NotPanics(t, func() {
		res = Estimate(at(20), meals, elims, DefaultOptions())
	})
	require.True(t, res.Defined())
	assert.InDelta(t, 12.0, *res.MedianHours, 1e-9)
	assert.Equal(t, 3, res.Diagnostics.SampleCount)
}

func TestEstimate_UnsortedInput(t *testing.T) {
	t.Parallel()

	meals := []time.Time{at(30), at(0), at(10)}
	elims := []time.Time{at(52), at(20), at(34)}

	res := Estimate(at(60), meals, elims, DefaultOptions())

	require.True(t, res.Defined())
	assert.InDelta(t, 22.0, *res.MedianHours, 1e-9)
}

func TestEstimate_EvenSampleCountAverages(t *testing.T) {
	t.Parallel()

	meals := []time.Time{at(0), at(1), at(2), at(3)}
	elims := []time.Time{at(10), at(13), at(16), at(19)}

	res := Estimate(at(24), meals, elims, DefaultOptions())

	require.True(t, res.Defined())
	assert.InDelta(t, 13.0, *res.MedianHours, 1e-9)
}

func TestEstimate_DependsOnNow(t *testing.T) {
	t.Parallel()

	meals := []time.Time{at(0), at(10), at(30)}
	elims := []time.Time{at(20), at(34), at(52)}

	early := Estimate(at(60), meals, elims, DefaultOptions())
	late := Estimate(at(80), meals, elims, DefaultOptions())

	require.True(t, early.Defined())
	assert.False(t, late.Defined(), "the first meal has left the window")
	assert.Equal(t, 2, late.Diagnostics.MealCount)
}

func TestEstimate_IgnoresFutureEvents(t *testing.T) {
	t.Parallel()

	opts := Options{MinSamples: 1}
	res := Estimate(at(5), []time.Time{at(0)}, []time.Time{at(8)}, opts)

	assert.Zero(t, res.Diagnostics.EliminationCount)
	assert.False(t, res.Defined())
}

func TestPredict(t *testing.T) {
	t.Parallel()

	med := 22.0
	res := Result{MedianHours: &med}

	got, ok := Predict(at(30), true, res)
	require.True(t, ok)
	assert.Equal(t, at(52), got)

	_, ok = Predict(at(30), true, Result{})
	assert.False(t, ok)

	_, ok = Predict(time.Time{}, false, res)
	assert.False(t, ok)
}
