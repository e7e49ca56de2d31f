// Package planner holds the planning core: the energy balance simulator, the
// window search, and the plan stabilizer. A pass is a pure function of its
// inputs; the only state carried between passes is the previous plan.
package planner

import (
	"context"
	"math"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gridhelm/gridhelm/pkg/forecast"
	"github.com/gridhelm/gridhelm/pkg/rates"
	"github.com/gridhelm/gridhelm/pkg/types"
)

// costEpsilon is the cost delta below which two candidates are considered
// tied and the one closer to the previous plan wins.
const costEpsilon = 1e-9

// Inputs is the immutable snapshot one planning pass operates on. No pass
// observes a mix of inputs from two different triggers.
type Inputs struct {
	Axis      types.Axis
	Rates     *rates.Table
	Scenarios forecast.Set
	Device    types.DeviceModel

	// StartSOC is the battery's state of charge (percent) at the start of
	// the horizon.
	StartSOC float64

	// Previous is the previously published plan, or nil on first run. It
	// only breaks ties and feeds the stabilizer; it never constrains the
	// search space.
	Previous *types.Plan

	Limits types.SearchLimits

	// Thresholds overrides the automatic low/high rate threshold
	// computation. Nil uses percentiles from Limits.ThresholdPercentile.
	Thresholds ThresholdStrategy

	// Now stamps the plan. Zero means time.Now.
	Now time.Time
}

// candidate is one potential window placement: a contiguous run of
// economically plausible slots for one decision kind.
type candidate struct {
	start, end int
	decision   types.Decision
}

// search carries the per-pass immutables shared by every evaluation. All
// fields are read-only once built, so evaluations can run in parallel.
type search struct {
	axis      types.Axis
	scenarios []forecast.Scenario
	weights   []float64
	device    types.DeviceModel
	startKWH  float64
	importP   []float64
	exportP   []float64
}

// blended returns the weighted expected cost of a decision sequence across
// all scenarios.
func (s *search) blended(decisions []types.SlotDecision) float64 {
	var total float64
	for i, sc := range s.scenarios {
		total += s.weights[i] * Simulate(s.axis, sc, decisions, s.device, s.startKWH, s.importP, s.exportP).Cost
	}
	return total
}

// overlay copies base and applies the candidate window with the given target.
func (s *search) overlay(base []types.SlotDecision, c candidate, target float64) []types.SlotDecision {
	decisions := make([]types.SlotDecision, len(base))
	copy(decisions, base)
	for i := c.start; i < c.end; i++ {
		decisions[i] = types.SlotDecision{Decision: c.decision, TargetSOC: target}
	}
	return decisions
}

// Optimize runs one planning pass. It returns an error only for
// configuration problems; forecast gaps and budget exhaustion degrade the
// returned plan's status instead.
func Optimize(ctx context.Context, in Inputs) (types.Plan, error) {
	if err := in.Axis.Validate(); err != nil {
		return types.Plan{}, err
	}
	if err := in.Device.Validate(); err != nil {
		return types.Plan{}, err
	}
	if err := in.Scenarios.Validate(); err != nil {
		return types.Plan{}, err
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	if in.Scenarios.Empty() {
		if in.Previous != nil {
			prev := *in.Previous
			prev.Status = types.StatusDegradedNoForecast
			prev.StatusReason = "no scenario forecast available; previous plan retained"
			return prev, nil
		}
		plan := idlePlan(in.Axis, now)
		plan.Status = types.StatusDegradedNoForecast
		plan.StatusReason = "no scenario forecast available"
		return plan, nil
	}

	centralGaps := in.Scenarios.Fill(in.Axis)

	device := in.Device.Aggregate()
	s := &search{
		axis:      in.Axis,
		scenarios: in.Scenarios.Scenarios,
		weights:   in.Scenarios.Weights(),
		device:    device,
		startKWH:  device.SOCToKWH(in.StartSOC),
		importP:   in.Rates.Slice(types.RateImport, in.Axis),
		exportP:   in.Rates.Slice(types.RateExport, in.Axis),
	}

	if in.Limits.Budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, in.Limits.Budget)
		defer cancel()
	}

	strategy := in.Thresholds
	if strategy == nil {
		strategy = PercentileThresholds(in.Limits.ThresholdPercentile)
	}
	low, high := strategy(s.importP)
	if in.Limits.LowRateThreshold != 0 {
		low = in.Limits.LowRateThreshold
	}
	if in.Limits.HighRateThreshold != 0 {
		high = in.Limits.HighRateThreshold
	}
	candidates := buildCandidates(s.importP, low, high, in.Limits.MergeAdjacent)

	current := make([]types.SlotDecision, in.Axis.Slots)
	baseline := s.blended(current)
	currentCost := baseline

	used := make([]bool, len(candidates))
	budgetHit := false
	for added := 0; added < in.Limits.MaxWindows; added++ {
		if ctx.Err() != nil {
			budgetHit = true
			break
		}
		idx, target, cost := bestAddition(ctx, s, current, candidates, used, in.Limits, in.Previous)
		if ctx.Err() != nil {
			budgetHit = true
		}
		if idx < 0 {
			break
		}
		improvement := currentCost - cost
		minImprovement := in.Limits.MinDischargeImprovement
		if candidates[idx].decision == types.DecisionCharge {
			minImprovement = in.Limits.MinChargeImprovement
		}
		if improvement <= minImprovement || improvement <= costEpsilon {
			break
		}
		current = s.overlay(current, candidates[idx], target)
		currentCost = cost
		used[idx] = true
	}

	plan := types.Plan{
		CreatedAt:    now,
		Axis:         in.Axis,
		Decisions:    current,
		Windows:      types.WindowsFromDecisions(current),
		ScenarioCost: make(map[string]float64, len(s.scenarios)),
		BlendedCost:  currentCost,
		BaselineCost: baseline,
		Status:       types.StatusOK,
	}
	for _, sc := range s.scenarios {
		plan.ScenarioCost[sc.Name] = Simulate(s.axis, sc, current, s.device, s.startKWH, s.importP, s.exportP).Cost
	}
	central := Simulate(s.axis, in.Scenarios.CentralScenario(), current, s.device, s.startKWH, s.importP, s.exportP).Display()
	plan.Trace = &central

	if centralGaps {
		plan.Status = types.StatusDegradedNoForecast
		plan.StatusReason = "central forecast missing slots; gaps treated as zero"
	} else if budgetHit {
		plan.StatusReason = "search budget exhausted; best plan found so far"
	}
	return plan, nil
}

// bestAddition evaluates every unused candidate window (in parallel) with a
// line search over achievable target SoC values and returns the cheapest
// addition. Ties go to candidates overlapping a previous-plan window of the
// same kind. Returns idx -1 when nothing evaluates.
func bestAddition(ctx context.Context, s *search, current []types.SlotDecision, candidates []candidate, used []bool, limits types.SearchLimits, previous *types.Plan) (int, float64, float64) {
	type result struct {
		target float64
		cost   float64
	}
	results := make([]result, len(candidates))
	for i := range results {
		results[i].cost = math.Inf(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, c := range candidates {
		if used[i] {
			continue
		}
		g.Go(func() error {
			best := result{cost: math.Inf(1)}
			for _, target := range targetGrid(c.decision, s.device, limits.SOCStepPercent) {
				if gctx.Err() != nil {
					return nil
				}
				cost := s.blended(s.overlay(current, c, target))
				if cost < best.cost-costEpsilon {
					best = result{target: target, cost: cost}
				}
			}
			results[i] = best
			return nil
		})
	}
	// workers only ever return nil; Wait is just the rendezvous
	_ = g.Wait()

	bestIdx := -1
	var bestMatch bool
	best := result{cost: math.Inf(1)}
	for i, res := range results {
		if math.IsInf(res.cost, 1) {
			continue
		}
		match := matchesPrevious(candidates[i], previous)
		better := res.cost < best.cost-costEpsilon ||
			(res.cost <= best.cost+costEpsilon && match && !bestMatch)
		if better {
			bestIdx, best, bestMatch = i, res, match
		}
	}
	if bestIdx < 0 {
		return -1, 0, 0
	}
	return bestIdx, best.target, best.cost
}

// matchesPrevious reports whether a candidate overlaps a previous-plan
// window of the same decision kind.
func matchesPrevious(c candidate, previous *types.Plan) bool {
	if previous == nil {
		return false
	}
	w := types.Window{Start: c.start, End: c.end, Decision: c.decision}
	for _, pw := range previous.Windows {
		if pw.Decision == c.decision && pw.Overlaps(w) {
			return true
		}
	}
	return false
}

// targetGrid returns the target SoC values the line search tries for one
// window kind. Charge targets range above the reserve up to full; discharge
// targets are floors from the reserve upward.
func targetGrid(decision types.Decision, device types.DeviceModel, step float64) []float64 {
	if step <= 0 {
		step = 5
	}
	var targets []float64
	switch decision {
	case types.DecisionCharge:
		for t := step; t < 100; t += step {
			if t > device.ReserveSOC {
				targets = append(targets, t)
			}
		}
		targets = append(targets, 100)
	case types.DecisionDischarge:
		targets = append(targets, device.ReserveSOC)
		for t := step; t < 100; t += step {
			if t > device.ReserveSOC {
				targets = append(targets, t)
			}
		}
	}
	return targets
}

// buildCandidates finds the contiguous runs of charge-plausible (price at or
// below low) and discharge-plausible (price at or above high) slots. With
// merge set, a run spanning multiple prices stays one candidate; otherwise
// it splits at every price step. Zero-length runs never occur.
func buildCandidates(prices []float64, low, high float64, merge bool) []candidate {
	var candidates []candidate
	runs := func(match func(p float64) bool, decision types.Decision) {
		start := -1
		for i := 0; i <= len(prices); i++ {
			in := i < len(prices) && match(prices[i])
			split := in && !merge && i > 0 && start >= 0 && prices[i] != prices[i-1]
			if (!in || split) && start >= 0 {
				candidates = append(candidates, candidate{start: start, end: i, decision: decision})
				start = -1
			}
			if in && start < 0 {
				start = i
			}
		}
	}
	runs(func(p float64) bool { return p <= low }, types.DecisionCharge)
	runs(func(p float64) bool { return p >= high }, types.DecisionDischarge)
	return candidates
}

// idlePlan is the all-idle fallback used when no forecast is available.
func idlePlan(axis types.Axis, now time.Time) types.Plan {
	return types.Plan{
		CreatedAt: now,
		Axis:      axis,
		Decisions: make([]types.SlotDecision, axis.Slots),
		Status:    types.StatusOK,
	}
}
