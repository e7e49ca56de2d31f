package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gridhelm/gridhelm/pkg/types"
)

func TestPercentileThresholds(t *testing.T) {
	t.Run("quartiles", func(t *testing.T) {
		prices := []float64{10, 20, 30, 40, 50, 60, 70, 80}
		low, high := PercentileThresholds(25)(prices)
		assert.Equal(t, 20.0, low)
		assert.Equal(t, 60.0, high)
	})

	t.Run("unsorted input", func(t *testing.T) {
		prices := []float64{80, 10, 50, 30, 70, 20, 60, 40}
		low, high := PercentileThresholds(25)(prices)
		assert.Equal(t, 20.0, low)
		assert.Equal(t, 60.0, high)
	})

	t.Run("flat distribution collapses", func(t *testing.T) {
		low, high := PercentileThresholds(25)([]float64{5, 5, 5, 5})
		assert.Equal(t, 5.0, low)
		assert.Equal(t, 5.0, high)
	})

	t.Run("empty", func(t *testing.T) {
		low, high := PercentileThresholds(25)(nil)
		assert.Zero(t, low)
		assert.Zero(t, high)
	})

	t.Run("invalid percentile falls back", func(t *testing.T) {
		prices := []float64{10, 20, 30, 40}
		gotLow, gotHigh := PercentileThresholds(-3)(prices)
		wantLow, wantHigh := PercentileThresholds(25)(prices)
		assert.Equal(t, wantLow, gotLow)
		assert.Equal(t, wantHigh, gotHigh)
	})
}

func TestFixedThresholds(t *testing.T) {
	low, high := FixedThresholds(0.10, 0.30)([]float64{1, 2, 3})
	assert.Equal(t, 0.10, low)
	assert.Equal(t, 0.30, high)
}

func TestBuildCandidates(t *testing.T) {
	prices := []float64{0.30, 0.08, 0.08, 0.10, 0.30, 0.30, 0.08}

	t.Run("merged runs", func(t *testing.T) {
		got := buildCandidates(prices, 0.10, 0.30, true)
		assert.Contains(t, got, candidate{start: 1, end: 4, decision: types.DecisionCharge})
		assert.Contains(t, got, candidate{start: 6, end: 7, decision: types.DecisionCharge})
		assert.Contains(t, got, candidate{start: 0, end: 1, decision: types.DecisionDischarge})
		assert.Contains(t, got, candidate{start: 4, end: 6, decision: types.DecisionDischarge})
		assert.Len(t, got, 4)
	})

	t.Run("split at price steps", func(t *testing.T) {
		got := buildCandidates(prices, 0.10, 0.30, false)
		assert.Contains(t, got, candidate{start: 1, end: 3, decision: types.DecisionCharge})
		assert.Contains(t, got, candidate{start: 3, end: 4, decision: types.DecisionCharge})
	})
}
