package planner

import (
	"math"

	"github.com/gridhelm/gridhelm/pkg/types"
)

// Stabilize suppresses marginal plan changes to avoid oscillating device
// commands. For each candidate window with an overlapping previous window of
// the same kind whose target-SoC delta and slot shift both fall within the
// hysteresis tolerances, the previous window's exact parameters are kept. It
// is a pure post-filter: it never invents decisions, never re-simulates, and
// never touches genuinely new windows. The plan's cost fields and display
// trace keep the optimizer's evaluation of the candidate; adopted deltas are
// within the hysteresis tolerances, so the divergence is bounded by them.
func Stabilize(candidate types.Plan, previous *types.Plan, limits types.SearchLimits) types.Plan {
	if previous == nil || len(candidate.Windows) == 0 {
		return candidate
	}

	changed := false
	windows := make([]types.Window, len(candidate.Windows))
	copy(windows, candidate.Windows)
	for i, w := range windows {
		prev, ok := closestPrevious(w, previous.Windows)
		if !ok {
			continue
		}
		if math.Abs(w.TargetSOC-prev.TargetSOC) > limits.HysteresisSOCDelta {
			continue
		}
		if abs(w.Start-prev.Start) > limits.HysteresisSlotShift || abs(w.End-prev.End) > limits.HysteresisSlotShift {
			continue
		}
		if w != prev {
			windows[i] = prev
			changed = true
		}
	}
	if !changed {
		return candidate
	}

	candidate.Windows = windows
	candidate.Decisions = types.DecisionsForWindows(candidate.Axis, windows)
	return candidate
}

// closestPrevious finds the overlapping previous window of the same decision
// kind with the smallest start shift.
func closestPrevious(w types.Window, previous []types.Window) (types.Window, bool) {
	var best types.Window
	found := false
	for _, pw := range previous {
		if pw.Decision != w.Decision || !pw.Overlaps(w) {
			continue
		}
		if !found || abs(pw.Start-w.Start) < abs(best.Start-w.Start) {
			best = pw
			found = true
		}
	}
	return best, found
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
