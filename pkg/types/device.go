package types

import "fmt"

// DeviceModel is the static battery/inverter description for one planning
// pass. Efficiencies are multiplicative factors in (0, 1]; 1.0 means
// lossless. Power limits of 0 mean unlimited. SoC values are percent.
type DeviceModel struct {
	CapacityKWH         float64 `json:"capacityKWH"`
	ReserveSOC          float64 `json:"reserveSOC"`
	MaxChargeKW         float64 `json:"maxChargeKW"`
	MaxDischargeKW      float64 `json:"maxDischargeKW"`
	ChargeEfficiency    float64 `json:"chargeEfficiency"`
	DischargeEfficiency float64 `json:"dischargeEfficiency"`
	InverterEfficiency  float64 `json:"inverterEfficiency"`

	// CycleCostPerKWH is a virtual wear penalty applied to every kWh of
	// battery throughput in either direction.
	CycleCostPerKWH float64 `json:"cycleCostPerKWH"`

	// InverterCount > 1 with Lockstep models multiple inverters forced to
	// identical set-points; they plan as a single aggregate battery.
	InverterCount int  `json:"inverterCount,omitempty"`
	Lockstep      bool `json:"lockstep,omitempty"`
}

// Validate checks that the device model is internally consistent. A failure
// here is a ConfigError: the pass is rejected rather than producing a
// nonsensical plan.
func (d DeviceModel) Validate() error {
	if d.CapacityKWH <= 0 {
		return &ConfigError{Reason: fmt.Sprintf("capacity must be positive, got %.3f kWh", d.CapacityKWH)}
	}
	if d.ReserveSOC < 0 || d.ReserveSOC > 100 {
		return &ConfigError{Reason: fmt.Sprintf("reserve SoC must be in [0, 100], got %.1f", d.ReserveSOC)}
	}
	if d.MaxChargeKW < 0 || d.MaxDischargeKW < 0 {
		return &ConfigError{Reason: "power limits must not be negative"}
	}
	if d.ChargeEfficiency <= 0 || d.ChargeEfficiency > 1 {
		return &ConfigError{Reason: fmt.Sprintf("charge efficiency must be in (0, 1], got %.3f", d.ChargeEfficiency)}
	}
	if d.DischargeEfficiency <= 0 || d.DischargeEfficiency > 1 {
		return &ConfigError{Reason: fmt.Sprintf("discharge efficiency must be in (0, 1], got %.3f", d.DischargeEfficiency)}
	}
	if d.InverterEfficiency <= 0 || d.InverterEfficiency > 1 {
		return &ConfigError{Reason: fmt.Sprintf("inverter efficiency must be in (0, 1], got %.3f", d.InverterEfficiency)}
	}
	if d.CycleCostPerKWH < 0 {
		return &ConfigError{Reason: "cycle cost must not be negative"}
	}
	if d.InverterCount < 0 {
		return &ConfigError{Reason: "inverter count must not be negative"}
	}
	return nil
}

// Aggregate folds lockstep inverters into a single equivalent battery with
// summed capacity and power limits. Without lockstep (or with a single
// inverter) the model is returned unchanged.
func (d DeviceModel) Aggregate() DeviceModel {
	if !d.Lockstep || d.InverterCount <= 1 {
		return d
	}
	n := float64(d.InverterCount)
	d.CapacityKWH *= n
	d.MaxChargeKW *= n
	d.MaxDischargeKW *= n
	// idempotent: the aggregate is a single battery
	d.InverterCount = 1
	return d
}

// ReserveKWH converts the reserve SoC percentage to kWh.
func (d DeviceModel) ReserveKWH() float64 {
	return d.CapacityKWH * d.ReserveSOC / 100.0
}

// SOCToKWH converts a SoC percentage to kWh for this device.
func (d DeviceModel) SOCToKWH(soc float64) float64 {
	return d.CapacityKWH * soc / 100.0
}

// KWHToSOC converts kWh to a SoC percentage for this device.
func (d DeviceModel) KWHToSOC(kwh float64) float64 {
	if d.CapacityKWH <= 0 {
		return 0
	}
	return kwh / d.CapacityKWH * 100.0
}
