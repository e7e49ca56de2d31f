package types

import (
	"fmt"
	"time"
)

// MaxSlots bounds the planning horizon: 48 hours at 5-minute resolution.
const MaxSlots = 576

// Axis describes the fixed slot grid of one planning pass. It is immutable
// once a pass starts; slots are identified by their ordinal index.
type Axis struct {
	Start     time.Time     `json:"start"`
	SlotWidth time.Duration `json:"slotWidth"`
	Slots     int           `json:"slots"`
}

// Time returns the absolute start time of slot i.
func (a Axis) Time(i int) time.Time {
	return a.Start.Add(time.Duration(i) * a.SlotWidth)
}

// End returns the end of the horizon (exclusive).
func (a Axis) End() time.Time {
	return a.Time(a.Slots)
}

// Hours returns the width of a single slot in hours.
func (a Axis) Hours() float64 {
	return a.SlotWidth.Hours()
}

// Validate checks the axis is usable for a planning pass.
func (a Axis) Validate() error {
	if a.SlotWidth <= 0 {
		return &ConfigError{Reason: fmt.Sprintf("slot width must be positive, got %s", a.SlotWidth)}
	}
	if a.Slots <= 0 || a.Slots > MaxSlots {
		return &ConfigError{Reason: fmt.Sprintf("slot count must be in [1, %d], got %d", MaxSlots, a.Slots)}
	}
	return nil
}

// RateDirection identifies which tariff a price lookup is against.
type RateDirection string

const (
	RateImport RateDirection = "import"
	RateExport RateDirection = "export"
	RateGas    RateDirection = "gas"
)

// Decision is the per-slot control decision for the battery.
type Decision int

const (
	DecisionIdle            Decision = 0
	DecisionCharge          Decision = 1
	DecisionDischarge       Decision = 2
	DecisionFreezeCharge    Decision = 3
	DecisionFreezeDischarge Decision = 4
)

func (d Decision) String() string {
	switch d {
	case DecisionIdle:
		return "idle"
	case DecisionCharge:
		return "charge"
	case DecisionDischarge:
		return "discharge"
	case DecisionFreezeCharge:
		return "freezeCharge"
	case DecisionFreezeDischarge:
		return "freezeDischarge"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// SlotDecision is one slot's decision plus the target SoC (percent).
// TargetSOC is only meaningful for Charge and Discharge.
type SlotDecision struct {
	Decision  Decision `json:"decision"`
	TargetSOC float64  `json:"targetSOC,omitempty"`
}

// Window is a contiguous run of slots sharing one decision and target SoC.
// End is exclusive. Windows are the externally consumed unit of a plan.
type Window struct {
	Start     int      `json:"start"`
	End       int      `json:"end"`
	Decision  Decision `json:"decision"`
	TargetSOC float64  `json:"targetSOC,omitempty"`
}

// Len returns the window length in slots.
func (w Window) Len() int {
	return w.End - w.Start
}

// Overlaps reports whether two windows share at least one slot.
func (w Window) Overlaps(o Window) bool {
	return w.Start < o.End && o.Start < w.End
}

// PassStatus is the health of a planning pass.
type PassStatus string

const (
	StatusOK                 PassStatus = "ok"
	StatusDegradedNoForecast PassStatus = "degradedNoForecast"
	StatusConfigError        PassStatus = "configError"
)

// DisplayTrace carries the central scenario's per-slot prediction for
// dashboards. It is advisory output only, never an input to the next pass.
type DisplayTrace struct {
	SOCKWH    []float64 `json:"socKWH"`
	ImportKWH []float64 `json:"importKWH"`
	ExportKWH []float64 `json:"exportKWH"`
}

// Plan is the output of one planning pass: one decision per slot, the
// materialized windows, and the expected costs used to select it. The cost
// fields and Trace describe the decisions as the optimizer evaluated them;
// hysteresis adjustments applied afterwards are within tolerance and are
// not re-simulated.
type Plan struct {
	CreatedAt    time.Time          `json:"createdAt"`
	Axis         Axis               `json:"axis"`
	Decisions    []SlotDecision     `json:"decisions"`
	Windows      []Window           `json:"windows"`
	ScenarioCost map[string]float64 `json:"scenarioCost"`
	BlendedCost  float64            `json:"blendedCost"`
	BaselineCost float64            `json:"baselineCost"`
	Status       PassStatus         `json:"status"`
	StatusReason string             `json:"statusReason,omitempty"`
	Trace        *DisplayTrace      `json:"trace,omitempty"`
}

// WindowsFromDecisions materializes the contiguous non-idle runs of a
// decision sequence. Adjacent slots merge when both the decision and the
// target SoC match.
func WindowsFromDecisions(decisions []SlotDecision) []Window {
	var windows []Window
	for i, d := range decisions {
		if d.Decision == DecisionIdle {
			continue
		}
		if len(windows) > 0 {
			last := &windows[len(windows)-1]
			if last.End == i && last.Decision == d.Decision && last.TargetSOC == d.TargetSOC {
				last.End = i + 1
				continue
			}
		}
		windows = append(windows, Window{
			Start:     i,
			End:       i + 1,
			Decision:  d.Decision,
			TargetSOC: d.TargetSOC,
		})
	}
	return windows
}

// DecisionsForWindows expands windows back to a per-slot decision sequence,
// clamping windows to the axis. Slots not covered by a window are Idle.
func DecisionsForWindows(axis Axis, windows []Window) []SlotDecision {
	decisions := make([]SlotDecision, axis.Slots)
	for _, w := range windows {
		start := max(w.Start, 0)
		end := min(w.End, axis.Slots)
		for i := start; i < end; i++ {
			decisions[i] = SlotDecision{Decision: w.Decision, TargetSOC: w.TargetSOC}
		}
	}
	return decisions
}

// ConfigError reports an internally inconsistent configuration (device model
// or rate table). It aborts the pass; the previous plan stays published.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Reason
}

// RateBand is one (time scope, price) band of a tariff. A band with no date
// and no hour scope applies always. HourEnd may be smaller than HourStart to
// express an overnight band (23:00-06:00).
type RateBand struct {
	Start         time.Time      `json:"start,omitempty"`
	End           time.Time      `json:"end,omitempty"`
	HourStart     int            `json:"hourStart"`
	HourEnd       int            `json:"hourEnd"`
	DaysOfTheWeek []time.Weekday `json:"daysOfTheWeek,omitempty"`
	PricePerKWH   float64        `json:"pricePerKWH"`
}

// Contains checks if a time is within the band's scope.
func (b RateBand) Contains(t time.Time) bool {
	if !b.Start.IsZero() && t.Before(b.Start) {
		return false
	}
	if !b.End.IsZero() && !t.Before(b.End) {
		return false
	}
	if b.HourStart != 0 || b.HourEnd != 0 {
		h := t.Hour()
		if b.HourStart <= b.HourEnd {
			if h < b.HourStart || h >= b.HourEnd {
				return false
			}
		} else {
			// overnight band wraps midnight
			if h < b.HourStart && h >= b.HourEnd {
				return false
			}
		}
	}
	if len(b.DaysOfTheWeek) > 0 {
		var found bool
		dow := t.Weekday()
		for _, d := range b.DaysOfTheWeek {
			if d == dow {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Validate checks the band's scope is internally consistent.
func (b RateBand) Validate() error {
	if !b.Start.IsZero() && !b.End.IsZero() && b.End.Before(b.Start) {
		return &ConfigError{Reason: fmt.Sprintf("rate band end %s before start %s", b.End, b.Start)}
	}
	if b.HourStart < 0 || b.HourStart > 24 || b.HourEnd < 0 || b.HourEnd > 24 {
		return &ConfigError{Reason: fmt.Sprintf("rate band hours must be in [0, 24], got %d-%d", b.HourStart, b.HourEnd)}
	}
	return nil
}
