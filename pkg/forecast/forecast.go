// Package forecast holds the scenario forecast set: one or more weighted
// (load, PV) forecasts over the planning horizon that the optimizer blends.
package forecast

import (
	"github.com/gridhelm/gridhelm/pkg/types"
)

// Scenario is one forecast realization over the horizon. Weight is relative;
// the set normalizes weights before blending.
type Scenario struct {
	Name    string    `json:"name"`
	Weight  float64   `json:"weight"`
	LoadKWH []float64 `json:"loadKWH"`
	PVKWH   []float64 `json:"pvKWH"`
}

// Set is the scenario set for a single pass. Central names the scenario used
// for the published trace.
type Set struct {
	Scenarios []Scenario `json:"scenarios"`
	Central   string     `json:"central"`
}

// Single wraps one forecast as a one-scenario set.
func Single(name string, load, pv []float64) Set {
	return Set{
		Scenarios: []Scenario{{Name: name, Weight: 1, LoadKWH: load, PVKWH: pv}},
		Central:   name,
	}
}

// Empty reports whether the set carries no scenarios at all.
func (s Set) Empty() bool {
	return len(s.Scenarios) == 0
}

// Validate checks weights and the central reference.
func (s Set) Validate() error {
	for _, sc := range s.Scenarios {
		if sc.Weight < 0 {
			return &types.ConfigError{Reason: "scenario " + sc.Name + " has a negative weight"}
		}
	}
	if s.Central != "" {
		if _, ok := s.scenario(s.Central); !ok {
			return &types.ConfigError{Reason: "central scenario " + s.Central + " not in set"}
		}
	}
	return nil
}

func (s Set) scenario(name string) (Scenario, bool) {
	for _, sc := range s.Scenarios {
		if sc.Name == name {
			return sc, true
		}
	}
	return Scenario{}, false
}

// CentralScenario returns the scenario used for display traces. It falls back
// to the first scenario when Central is unset.
func (s Set) CentralScenario() Scenario {
	if sc, ok := s.scenario(s.Central); ok {
		return sc
	}
	if len(s.Scenarios) > 0 {
		return s.Scenarios[0]
	}
	return Scenario{}
}

// Weights returns the normalized blend weight for each scenario, in set
// order. All-zero weights fall back to an equal blend.
func (s Set) Weights() []float64 {
	weights := make([]float64, len(s.Scenarios))
	var total float64
	for i, sc := range s.Scenarios {
		weights[i] = sc.Weight
		total += sc.Weight
	}
	if total <= 0 {
		for i := range weights {
			weights[i] = 1 / float64(len(weights))
		}
		return weights
	}
	for i := range weights {
		weights[i] /= total
	}
	return weights
}

// Fill pads or truncates every scenario series to the axis length. It reports
// whether the central scenario had missing slots that were zero-filled, which
// the optimizer surfaces as a degraded pass.
func (s *Set) Fill(axis types.Axis) bool {
	central := s.Central
	if central == "" && len(s.Scenarios) > 0 {
		central = s.Scenarios[0].Name
	}
	var centralGaps bool
	for i := range s.Scenarios {
		sc := &s.Scenarios[i]
		gaps := len(sc.LoadKWH) < axis.Slots || len(sc.PVKWH) < axis.Slots
		sc.LoadKWH = fit(sc.LoadKWH, axis.Slots)
		sc.PVKWH = fit(sc.PVKWH, axis.Slots)
		if gaps && sc.Name == central {
			centralGaps = true
		}
	}
	return centralGaps
}

func fit(series []float64, n int) []float64 {
	if len(series) >= n {
		return series[:n]
	}
	out := make([]float64, n)
	copy(out, series)
	return out
}
