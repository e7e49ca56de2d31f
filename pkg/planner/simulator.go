package planner

import (
	"math"

	"github.com/gridhelm/gridhelm/pkg/forecast"
	"github.com/gridhelm/gridhelm/pkg/types"
)

// Trace is the simulator's output for one (scenario, plan) pair. Slices are
// per slot; SOCKWH is the state of charge at the end of each slot.
type Trace struct {
	SOCKWH        []float64
	ImportKWH     []float64
	ExportKWH     []float64
	SlotCost      []float64
	Cost          float64
	ThroughputKWH float64
}

// Simulate runs the energy balance for one scenario under a candidate plan
// and returns the resulting trace. It never fails: reserve and capacity are
// hard clamps, so an infeasible plan produces a clamped (and therefore more
// expensive) trace rather than an error.
func Simulate(axis types.Axis, scenario forecast.Scenario, decisions []types.SlotDecision, device types.DeviceModel, startKWH float64, importPrice, exportPrice []float64) Trace {
	device = device.Aggregate()
	hours := axis.SlotWidth.Hours()
	chargeEff := device.ChargeEfficiency * device.InverterEfficiency
	dischargeEff := device.DischargeEfficiency * device.InverterEfficiency
	reserve := device.ReserveKWH()

	// power limit of zero means unconstrained
	maxChargeKWH := device.MaxChargeKW * hours
	if device.MaxChargeKW <= 0 {
		maxChargeKWH = math.Inf(1)
	}
	maxDischargeKWH := device.MaxDischargeKW * hours
	if device.MaxDischargeKW <= 0 {
		maxDischargeKWH = math.Inf(1)
	}

	soc := math.Min(math.Max(startKWH, reserve), device.CapacityKWH)
	trace := Trace{
		SOCKWH:    make([]float64, axis.Slots),
		ImportKWH: make([]float64, axis.Slots),
		ExportKWH: make([]float64, axis.Slots),
		SlotCost:  make([]float64, axis.Slots),
	}

	for i := 0; i < axis.Slots; i++ {
		var load, pv float64
		if i < len(scenario.LoadKWH) {
			load = scenario.LoadKWH[i]
		}
		if i < len(scenario.PVKWH) {
			pv = scenario.PVKWH[i]
		}
		decision := types.SlotDecision{Decision: types.DecisionIdle}
		if i < len(decisions) {
			decision = decisions[i]
		}

		// chargedIn is AC energy absorbed by the battery system this slot,
		// delivered is AC energy it supplied. Cell-side SoC movement applies
		// the loss factors in both directions.
		var chargedIn, delivered float64
		net := load - pv

		switch decision.Decision {
		case types.DecisionCharge:
			target := math.Min(device.SOCToKWH(decision.TargetSOC), device.CapacityKWH)
			if headroom := target - soc; headroom > 0 {
				chargedIn = math.Min(maxChargeKWH, headroom/chargeEff)
				soc += chargedIn * chargeEff
			}
		case types.DecisionDischarge:
			floor := math.Max(reserve, device.SOCToKWH(decision.TargetSOC))
			if available := soc - floor; available > 0 {
				delivered = math.Min(maxDischargeKWH, available*dischargeEff)
				soc -= delivered / dischargeEff
			}
		case types.DecisionFreezeCharge:
			// held as a floor: never discharge, but still absorb PV surplus
			if net < 0 {
				chargedIn = absorb(-net, soc, device.CapacityKWH, maxChargeKWH, chargeEff)
				soc += chargedIn * chargeEff
			}
		case types.DecisionFreezeDischarge:
			// held as a ceiling: never charge, but still cover house demand
			if net > 0 {
				delivered = supply(net, soc, reserve, maxDischargeKWH, dischargeEff)
				soc -= delivered / dischargeEff
			}
		default:
			// idle self-consumes: demand draws the battery down to reserve,
			// surplus charges it up to capacity
			if net > 0 {
				delivered = supply(net, soc, reserve, maxDischargeKWH, dischargeEff)
				soc -= delivered / dischargeEff
			} else if net < 0 {
				chargedIn = absorb(-net, soc, device.CapacityKWH, maxChargeKWH, chargeEff)
				soc += chargedIn * chargeEff
			}
		}

		// the battery behaves as one more source/sink on the house bus;
		// whatever the bus cannot balance crosses the grid boundary
		balance := load + chargedIn - pv - delivered
		var imported, exported float64
		if balance > 0 {
			imported = balance
		} else {
			exported = -balance
		}

		throughput := chargedIn*chargeEff + delivered/dischargeEff
		cost := imported*importPrice[i] - exported*exportPrice[i] + throughput*device.CycleCostPerKWH

		trace.SOCKWH[i] = soc
		trace.ImportKWH[i] = imported
		trace.ExportKWH[i] = exported
		trace.SlotCost[i] = cost
		trace.Cost += cost
		trace.ThroughputKWH += throughput
	}
	return trace
}

// absorb returns the AC energy the battery can take in given surplus,
// headroom, and the per-slot power limit.
func absorb(surplus, soc, capacity, maxKWH, eff float64) float64 {
	in := math.Min(surplus, maxKWH)
	if headroom := capacity - soc; in*eff > headroom {
		in = headroom / eff
	}
	return math.Max(in, 0)
}

// supply returns the AC energy the battery can deliver given demand, the
// reserve floor, and the per-slot power limit.
func supply(demand, soc, reserve, maxKWH, eff float64) float64 {
	out := math.Min(demand, maxKWH)
	if available := (soc - reserve) * eff; out > available {
		out = available
	}
	return math.Max(out, 0)
}

// Display converts a trace into the per-slot series published with the plan.
func (t Trace) Display() types.DisplayTrace {
	return types.DisplayTrace{
		SOCKWH:    t.SOCKWH,
		ImportKWH: t.ImportKWH,
		ExportKWH: t.ExportKWH,
	}
}
