package planner

import (
	"sort"
)

// ThresholdStrategy computes the low/high rate thresholds from the horizon's
// import price distribution. Slots at or below low are charge candidates,
// slots at or above high are discharge candidates.
type ThresholdStrategy func(prices []float64) (low, high float64)

// PercentileThresholds returns a strategy using the pct-th and (100-pct)-th
// percentiles of the price distribution (nearest rank). pct outside (0, 50)
// falls back to 25.
func PercentileThresholds(pct float64) ThresholdStrategy {
	if pct <= 0 || pct >= 50 {
		pct = 25
	}
	return func(prices []float64) (float64, float64) {
		if len(prices) == 0 {
			return 0, 0
		}
		sorted := make([]float64, len(prices))
		copy(sorted, prices)
		sort.Float64s(sorted)
		return percentile(sorted, pct), percentile(sorted, 100-pct)
	}
}

// FixedThresholds returns a strategy that ignores the price distribution.
func FixedThresholds(low, high float64) ThresholdStrategy {
	return func([]float64) (float64, float64) {
		return low, high
	}
}

// percentile is nearest-rank on an already-sorted slice.
func percentile(sorted []float64, pct float64) float64 {
	rank := int(pct/100*float64(len(sorted))+0.5) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
