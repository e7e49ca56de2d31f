package rates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridhelm/gridhelm/pkg/types"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return parsed
}

func TestResolve(t *testing.T) {
	t.Run("empty table resolves to zero", func(t *testing.T) {
		table := NewTable()
		assert.Zero(t, table.Resolve(types.RateImport, time.Now()))
		assert.Zero(t, table.Resolve(types.RateExport, time.Now()))
	})

	t.Run("flat band applies always", func(t *testing.T) {
		table := NewTable().SetBase(types.RateImport, Flat(0.25))
		assert.Equal(t, 0.25, table.Resolve(types.RateImport, mustTime(t, "2026-01-05T03:00:00Z")))
		assert.Equal(t, 0.25, table.Resolve(types.RateImport, mustTime(t, "2026-07-20T17:30:00Z")))
		// other directions are untouched
		assert.Zero(t, table.Resolve(types.RateExport, mustTime(t, "2026-01-05T03:00:00Z")))
	})

	t.Run("first matching base band wins", func(t *testing.T) {
		table := NewTable().SetBase(types.RateImport,
			types.RateBand{HourStart: 16, HourEnd: 19, PricePerKWH: 0.45},
			Flat(0.20),
		)
		assert.Equal(t, 0.45, table.Resolve(types.RateImport, mustTime(t, "2026-03-02T17:00:00Z")))
		assert.Equal(t, 0.20, table.Resolve(types.RateImport, mustTime(t, "2026-03-02T12:00:00Z")))
	})

	t.Run("overnight band wraps midnight", func(t *testing.T) {
		table := NewTable().SetBase(types.RateImport,
			types.RateBand{HourStart: 23, HourEnd: 6, PricePerKWH: 0.08},
			Flat(0.30),
		)
		assert.Equal(t, 0.08, table.Resolve(types.RateImport, mustTime(t, "2026-03-02T23:30:00Z")))
		assert.Equal(t, 0.08, table.Resolve(types.RateImport, mustTime(t, "2026-03-03T02:00:00Z")))
		assert.Equal(t, 0.30, table.Resolve(types.RateImport, mustTime(t, "2026-03-03T06:00:00Z")))
	})

	t.Run("override beats base, later override beats earlier", func(t *testing.T) {
		table := NewTable().
			SetBase(types.RateImport, Flat(0.20)).
			AddOverrides(types.RateImport, types.RateBand{
				Start:       mustTime(t, "2026-03-02T00:00:00Z"),
				End:         mustTime(t, "2026-03-03T00:00:00Z"),
				PricePerKWH: 0.10,
			}).
			AddOverrides(types.RateImport, types.RateBand{
				Start:       mustTime(t, "2026-03-02T12:00:00Z"),
				End:         mustTime(t, "2026-03-02T14:00:00Z"),
				PricePerKWH: 0.99,
			})
		assert.Equal(t, 0.10, table.Resolve(types.RateImport, mustTime(t, "2026-03-02T08:00:00Z")))
		assert.Equal(t, 0.99, table.Resolve(types.RateImport, mustTime(t, "2026-03-02T13:00:00Z")))
		assert.Equal(t, 0.20, table.Resolve(types.RateImport, mustTime(t, "2026-03-04T08:00:00Z")))
	})

	t.Run("adjustments stack and may go negative", func(t *testing.T) {
		table := NewTable().
			SetBase(types.RateExport, Flat(0.05)).
			AddAdjustments(types.RateExport,
				Flat(-0.02),
				types.RateBand{HourStart: 10, HourEnd: 16, PricePerKWH: -0.06},
			)
		assert.InDelta(t, 0.03, table.Resolve(types.RateExport, mustTime(t, "2026-03-02T08:00:00Z")), 1e-9)
		assert.InDelta(t, -0.03, table.Resolve(types.RateExport, mustTime(t, "2026-03-02T12:00:00Z")), 1e-9)
	})

	t.Run("adjustments apply even with no matching band", func(t *testing.T) {
		table := NewTable().AddAdjustments(types.RateImport, Flat(0.01))
		assert.InDelta(t, 0.01, table.Resolve(types.RateImport, time.Now()), 1e-9)
	})

	t.Run("weekday scoped band", func(t *testing.T) {
		table := NewTable().SetBase(types.RateImport,
			types.RateBand{
				DaysOfTheWeek: []time.Weekday{time.Saturday, time.Sunday},
				PricePerKWH:   0.12,
			},
			Flat(0.25),
		)
		// 2026-03-07 is a Saturday
		assert.Equal(t, 0.12, table.Resolve(types.RateImport, mustTime(t, "2026-03-07T12:00:00Z")))
		assert.Equal(t, 0.25, table.Resolve(types.RateImport, mustTime(t, "2026-03-09T12:00:00Z")))
	})
}

func TestSlice(t *testing.T) {
	axis := types.Axis{
		Start:     mustTime(t, "2026-03-02T22:00:00Z"),
		SlotWidth: time.Hour,
		Slots:     4,
	}
	table := NewTable().SetBase(types.RateImport,
		types.RateBand{HourStart: 23, HourEnd: 6, PricePerKWH: 0.08},
		Flat(0.30),
	)
	assert.Equal(t, []float64{0.30, 0.08, 0.08, 0.08}, table.Slice(types.RateImport, axis))
}

func TestSeries(t *testing.T) {
	axis := types.Axis{
		Start:     mustTime(t, "2026-03-02T00:00:00Z"),
		SlotWidth: 30 * time.Minute,
		Slots:     3,
	}
	table := NewTable().SetBase(types.RateImport, Series(axis, []float64{0.10, 0.20, 0.30, 0.40})...)
	got := table.Slice(types.RateImport, axis)
	assert.Equal(t, []float64{0.10, 0.20, 0.30}, got)
	// slots past the series resolve to zero
	assert.Zero(t, table.Resolve(types.RateImport, mustTime(t, "2026-03-02T02:00:00Z")))
}

func TestFromSettings(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		s := types.Settings{
			ImportBands: []types.RateBand{Flat(0.25)},
			ExportBands: []types.RateBand{Flat(0.05)},
		}
		table, err := FromSettings(s)
		require.NoError(t, err)
		assert.Equal(t, 0.25, table.Resolve(types.RateImport, time.Now()))
		assert.Equal(t, 0.05, table.Resolve(types.RateExport, time.Now()))
	})

	t.Run("invalid band is a config error", func(t *testing.T) {
		s := types.Settings{
			ImportBands: []types.RateBand{{HourStart: -1, HourEnd: 5, PricePerKWH: 0.1}},
		}
		_, err := FromSettings(s)
		require.Error(t, err)
		var cerr *types.ConfigError
		assert.ErrorAs(t, err, &cerr)
	})
}
