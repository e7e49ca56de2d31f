package types

import (
	"fmt"
	"time"
)

// CurrentSettingsVersion is the current version of the settings struct.
// Increment this value when adding new fields that require default values.
const CurrentSettingsVersion = 3

// SearchLimits bounds the window search. Every branch of the optimizer is
// keyed off this struct; it is passed by value and never mutated.
type SearchLimits struct {
	// MaxWindows caps how many charge/discharge windows one plan may hold.
	MaxWindows int `json:"maxWindows"`

	// LowRateThreshold / HighRateThreshold restrict candidate windows to
	// economically plausible slots. Zero means compute automatically from
	// the horizon's import price distribution.
	LowRateThreshold  float64 `json:"lowRateThreshold,omitempty"`
	HighRateThreshold float64 `json:"highRateThreshold,omitempty"`

	// ThresholdPercentile is the percentile used for the automatic low
	// threshold; the high threshold uses its mirror (100 - p).
	ThresholdPercentile float64 `json:"thresholdPercentile"`

	// MergeAdjacent widens candidate windows across price steps inside a
	// low/high-rate run, trading granularity for less control churn.
	MergeAdjacent bool `json:"mergeAdjacent"`

	// Minimum blended cost improvement a new window must deliver before it
	// is added, tunable separately for charge and discharge additions.
	MinChargeImprovement    float64 `json:"minChargeImprovement"`
	MinDischargeImprovement float64 `json:"minDischargeImprovement"`

	// SOCStepPercent is the granularity of the per-window target SoC search.
	SOCStepPercent float64 `json:"socStepPercent"`

	// Hysteresis tolerances for the plan stabilizer: candidate windows
	// within both tolerances of a previous window keep the previous
	// window's exact parameters.
	HysteresisSOCDelta  float64 `json:"hysteresisSOCDelta"`
	HysteresisSlotShift int     `json:"hysteresisSlotShift"`

	// Budget is the wall-clock limit for one search. Zero means the caller
	// derives it from the re-evaluation interval.
	Budget time.Duration `json:"budget,omitempty"`
}

// Settings is the dynamic configuration stored in the database. These can be
// changed without redeploying; every planning pass reads a fresh snapshot.
type Settings struct {
	DryRun bool `json:"dryRun"`
	// Pause planning passes entirely
	Pause bool `json:"pause"`

	// Horizon geometry
	SlotMinutes  int `json:"slotMinutes"`
	HorizonHours int `json:"horizonHours"`

	Device DeviceModel  `json:"device"`
	Limits SearchLimits `json:"limits"`

	// Tariff definition, normalized by the rate model. Overrides win over
	// base bands; adjustments are added after band resolution.
	ImportBands       []RateBand `json:"importBands"`
	ExportBands       []RateBand `json:"exportBands,omitempty"`
	GasBands          []RateBand `json:"gasBands,omitempty"`
	ImportOverrides   []RateBand `json:"importOverrides,omitempty"`
	ExportOverrides   []RateBand `json:"exportOverrides,omitempty"`
	ImportAdjustments []RateBand `json:"importAdjustments,omitempty"`
	ExportAdjustments []RateBand `json:"exportAdjustments,omitempty"`
}

// Axis builds the slot axis for a pass starting at now, truncated to the
// slot boundary so repeated passes within a slot share a grid.
func (s Settings) Axis(now time.Time) Axis {
	minutes := s.SlotMinutes
	if minutes <= 0 {
		minutes = 30
	}
	width := time.Duration(minutes) * time.Minute
	slots := s.HorizonHours * 60 / minutes
	if slots > MaxSlots {
		slots = MaxSlots
	}
	return Axis{
		Start:     now.Truncate(width),
		SlotWidth: width,
		Slots:     slots,
	}
}

// MigrateSettings migrates the settings to the current version.
// It returns the migrated settings, a boolean indicating if changes were
// made, and an error if migration failed.
func MigrateSettings(s Settings, currentVersion int) (Settings, bool, error) {
	if currentVersion >= CurrentSettingsVersion {
		return s, false, nil
	}

	migrated := false
	// Loop through versions to apply migrations sequentially
	for version := currentVersion + 1; version <= CurrentSettingsVersion; version++ {
		switch version {
		case 1:
			// version 1: initial horizon and device defaults
			if s.SlotMinutes == 0 {
				s.SlotMinutes = 30
				migrated = true
			}
			if s.HorizonHours == 0 {
				s.HorizonHours = 24
				migrated = true
			}
			if s.Device.ChargeEfficiency == 0 {
				s.Device.ChargeEfficiency = 0.96
				migrated = true
			}
			if s.Device.DischargeEfficiency == 0 {
				s.Device.DischargeEfficiency = 0.96
				migrated = true
			}
			if s.Device.InverterEfficiency == 0 {
				s.Device.InverterEfficiency = 0.96
				migrated = true
			}
		case 2:
			// version 2: search limit defaults
			if s.Limits.MaxWindows == 0 {
				s.Limits.MaxWindows = 4
				migrated = true
			}
			if s.Limits.ThresholdPercentile == 0 {
				s.Limits.ThresholdPercentile = 25
				migrated = true
			}
			if s.Limits.SOCStepPercent == 0 {
				s.Limits.SOCStepPercent = 5
				migrated = true
			}
		case 3:
			// version 3: hysteresis and improvement thresholds
			if s.Limits.MinChargeImprovement == 0 {
				s.Limits.MinChargeImprovement = 0.05
				migrated = true
			}
			if s.Limits.MinDischargeImprovement == 0 {
				s.Limits.MinDischargeImprovement = 0.05
				migrated = true
			}
			if s.Limits.HysteresisSOCDelta == 0 {
				s.Limits.HysteresisSOCDelta = 2.5
				migrated = true
			}
			if s.Limits.HysteresisSlotShift == 0 {
				s.Limits.HysteresisSlotShift = 1
				migrated = true
			}
		default:
			return s, false, fmt.Errorf("unknown settings version: %d", version)
		}
	}

	return s, migrated, nil
}
