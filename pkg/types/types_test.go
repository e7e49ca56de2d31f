package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAxis(t *testing.T) {
	start := time.Date(2026, 3, 7, 22, 0, 0, 0, time.UTC)
	axis := Axis{Start: start, SlotWidth: 30 * time.Minute, Slots: 48}

	t.Run("slot times", func(t *testing.T) {
		assert.Equal(t, start, axis.Time(0))
		assert.Equal(t, start.Add(90*time.Minute), axis.Time(3))
		assert.Equal(t, start.Add(24*time.Hour), axis.End())
		assert.InDelta(t, 0.5, axis.Hours(), 1e-12)
	})

	t.Run("validate", func(t *testing.T) {
		assert.NoError(t, axis.Validate())

		bad := axis
		bad.SlotWidth = 0
		var cerr *ConfigError
		require.ErrorAs(t, bad.Validate(), &cerr)

		bad = axis
		bad.Slots = 0
		assert.Error(t, bad.Validate())

		bad.Slots = MaxSlots + 1
		assert.Error(t, bad.Validate())

		bad.Slots = MaxSlots
		assert.NoError(t, bad.Validate())
	})
}

func TestWindowOverlaps(t *testing.T) {
	w := Window{Start: 4, End: 8}
	assert.True(t, w.Overlaps(Window{Start: 7, End: 10}))
	assert.True(t, w.Overlaps(Window{Start: 0, End: 5}))
	assert.True(t, w.Overlaps(Window{Start: 5, End: 6}))
	assert.False(t, w.Overlaps(Window{Start: 8, End: 12}), "end is exclusive")
	assert.False(t, w.Overlaps(Window{Start: 0, End: 4}))
	assert.Equal(t, 4, w.Len())
}

func TestWindowsFromDecisions(t *testing.T) {
	t.Run("merges equal runs", func(t *testing.T) {
		decisions := []SlotDecision{
			{},
			{Decision: DecisionCharge, TargetSOC: 90},
			{Decision: DecisionCharge, TargetSOC: 90},
			{},
			{Decision: DecisionDischarge, TargetSOC: 20},
		}
		windows := WindowsFromDecisions(decisions)
		require.Len(t, windows, 2)
		assert.Equal(t, Window{Start: 1, End: 3, Decision: DecisionCharge, TargetSOC: 90}, windows[0])
		assert.Equal(t, Window{Start: 4, End: 5, Decision: DecisionDischarge, TargetSOC: 20}, windows[1])
	})

	t.Run("splits on target change", func(t *testing.T) {
		decisions := []SlotDecision{
			{Decision: DecisionCharge, TargetSOC: 90},
			{Decision: DecisionCharge, TargetSOC: 95},
		}
		windows := WindowsFromDecisions(decisions)
		require.Len(t, windows, 2)
		assert.Equal(t, 1, windows[0].End)
		assert.Equal(t, 1, windows[1].Start)
	})

	t.Run("all idle", func(t *testing.T) {
		assert.Empty(t, WindowsFromDecisions(make([]SlotDecision, 6)))
	})
}

func TestDecisionsForWindows(t *testing.T) {
	axis := Axis{Start: time.Now(), SlotWidth: time.Hour, Slots: 6}

	t.Run("round trip", func(t *testing.T) {
		windows := []Window{
			{Start: 1, End: 3, Decision: DecisionCharge, TargetSOC: 100},
			{Start: 4, End: 6, Decision: DecisionDischarge, TargetSOC: 10},
		}
		decisions := DecisionsForWindows(axis, windows)
		require.Len(t, decisions, 6)
		assert.Equal(t, DecisionIdle, decisions[0].Decision)
		assert.Equal(t, DecisionCharge, decisions[2].Decision)
		assert.Equal(t, DecisionIdle, decisions[3].Decision)
		assert.Equal(t, windows, WindowsFromDecisions(decisions))
	})

	t.Run("clamps to axis", func(t *testing.T) {
		decisions := DecisionsForWindows(axis, []Window{
			{Start: -2, End: 2, Decision: DecisionCharge},
			{Start: 5, End: 9, Decision: DecisionDischarge},
		})
		require.Len(t, decisions, 6)
		assert.Equal(t, DecisionCharge, decisions[0].Decision)
		assert.Equal(t, DecisionDischarge, decisions[5].Decision)
	})
}

func TestRateBandContains(t *testing.T) {
	// 2026-03-07 is a Saturday
	saturdayNoon := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)

	t.Run("unscoped band matches always", func(t *testing.T) {
		assert.True(t, RateBand{PricePerKWH: 0.3}.Contains(saturdayNoon))
	})

	t.Run("hour range", func(t *testing.T) {
		band := RateBand{HourStart: 10, HourEnd: 14}
		assert.True(t, band.Contains(saturdayNoon))
		assert.False(t, band.Contains(saturdayNoon.Add(2*time.Hour)), "hour end is exclusive")
		assert.False(t, band.Contains(saturdayNoon.Add(-3*time.Hour)))
	})

	t.Run("overnight band wraps midnight", func(t *testing.T) {
		band := RateBand{HourStart: 23, HourEnd: 6}
		assert.True(t, band.Contains(time.Date(2026, 3, 7, 23, 30, 0, 0, time.UTC)))
		assert.True(t, band.Contains(time.Date(2026, 3, 7, 2, 0, 0, 0, time.UTC)))
		assert.False(t, band.Contains(saturdayNoon))
		assert.False(t, band.Contains(time.Date(2026, 3, 7, 6, 0, 0, 0, time.UTC)))
	})

	t.Run("days of the week", func(t *testing.T) {
		weekend := RateBand{DaysOfTheWeek: []time.Weekday{time.Saturday, time.Sunday}}
		assert.True(t, weekend.Contains(saturdayNoon))
		assert.False(t, weekend.Contains(saturdayNoon.Add(48*time.Hour)), "Monday")
	})

	t.Run("date range", func(t *testing.T) {
		band := RateBand{
			Start: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		}
		assert.True(t, band.Contains(saturdayNoon))
		assert.False(t, band.Contains(saturdayNoon.AddDate(0, 2, 0)))
		assert.False(t, band.Contains(saturdayNoon.AddDate(-1, 0, 0)))
	})
}

func TestRateBandValidate(t *testing.T) {
	assert.NoError(t, RateBand{HourStart: 23, HourEnd: 6}.Validate())
	assert.Error(t, RateBand{HourStart: -1}.Validate())
	assert.Error(t, RateBand{HourEnd: 25}.Validate())
	assert.Error(t, RateBand{
		Start: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}.Validate())
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "idle", DecisionIdle.String())
	assert.Equal(t, "freezeDischarge", DecisionFreezeDischarge.String())
	assert.Equal(t, "decision(9)", Decision(9).String())
}
