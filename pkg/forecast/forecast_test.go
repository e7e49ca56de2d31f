package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridhelm/gridhelm/pkg/types"
)

func TestValidate(t *testing.T) {
	t.Run("valid set", func(t *testing.T) {
		s := Set{
			Scenarios: []Scenario{
				{Name: "expected", Weight: 0.6},
				{Name: "cloudy", Weight: 0.4},
			},
			Central: "expected",
		}
		assert.NoError(t, s.Validate())
	})

	t.Run("negative weight", func(t *testing.T) {
		s := Set{Scenarios: []Scenario{{Name: "bad", Weight: -1}}}
		err := s.Validate()
		require.Error(t, err)
		var cerr *types.ConfigError
		assert.ErrorAs(t, err, &cerr)
	})

	t.Run("unknown central", func(t *testing.T) {
		s := Set{
			Scenarios: []Scenario{{Name: "expected", Weight: 1}},
			Central:   "missing",
		}
		assert.Error(t, s.Validate())
	})
}

func TestWeights(t *testing.T) {
	t.Run("normalized", func(t *testing.T) {
		s := Set{Scenarios: []Scenario{
			{Name: "a", Weight: 3},
			{Name: "b", Weight: 1},
		}}
		w := s.Weights()
		require.Len(t, w, 2)
		assert.InDelta(t, 0.75, w[0], 1e-9)
		assert.InDelta(t, 0.25, w[1], 1e-9)
	})

	t.Run("all zero falls back to equal", func(t *testing.T) {
		s := Set{Scenarios: []Scenario{{Name: "a"}, {Name: "b"}}}
		w := s.Weights()
		assert.InDelta(t, 0.5, w[0], 1e-9)
		assert.InDelta(t, 0.5, w[1], 1e-9)
	})
}

func TestCentralScenario(t *testing.T) {
	s := Set{
		Scenarios: []Scenario{
			{Name: "cloudy", Weight: 0.4},
			{Name: "expected", Weight: 0.6},
		},
		Central: "expected",
	}
	assert.Equal(t, "expected", s.CentralScenario().Name)

	s.Central = ""
	assert.Equal(t, "cloudy", s.CentralScenario().Name)
}

func TestFill(t *testing.T) {
	axis := types.Axis{Start: time.Now(), SlotWidth: 30 * time.Minute, Slots: 4}

	t.Run("pads short series and flags central gaps", func(t *testing.T) {
		s := Single("expected", []float64{1, 2}, []float64{0.5})
		gaps := s.Fill(axis)
		assert.True(t, gaps)
		assert.Equal(t, []float64{1, 2, 0, 0}, s.Scenarios[0].LoadKWH)
		assert.Equal(t, []float64{0.5, 0, 0, 0}, s.Scenarios[0].PVKWH)
	})

	t.Run("truncates long series", func(t *testing.T) {
		s := Single("expected", []float64{1, 2, 3, 4, 5}, []float64{1, 1, 1, 1, 1})
		gaps := s.Fill(axis)
		assert.False(t, gaps)
		assert.Equal(t, []float64{1, 2, 3, 4}, s.Scenarios[0].LoadKWH)
	})

	t.Run("gaps in non-central scenario are not flagged", func(t *testing.T) {
		s := Set{
			Scenarios: []Scenario{
				{Name: "expected", Weight: 1, LoadKWH: []float64{1, 1, 1, 1}, PVKWH: []float64{0, 0, 0, 0}},
				{Name: "cloudy", Weight: 1, LoadKWH: []float64{1}, PVKWH: nil},
			},
			Central: "expected",
		}
		assert.False(t, s.Fill(axis))
		assert.Len(t, s.Scenarios[1].LoadKWH, 4)
	})
}
