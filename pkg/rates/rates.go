// Package rates normalizes tariff definitions (flat, banded, per-slot, or
// externally supplied series) into a per-slot price lookup. Resolution is a
// pure function of configuration and slot time; the optimizer calls it on
// the order of scenarios x candidates x horizon times per pass.
package rates

import (
	"fmt"
	"time"

	"github.com/gridhelm/gridhelm/pkg/types"
)

type direction struct {
	base        []types.RateBand
	overrides   []types.RateBand
	adjustments []types.RateBand
}

// Table resolves a price for every (direction, time) pair. Unconfigured
// directions and periods resolve to zero; Resolve never fails.
type Table struct {
	directions map[types.RateDirection]*direction
}

// NewTable creates an empty rate table.
func NewTable() *Table {
	return &Table{directions: make(map[types.RateDirection]*direction)}
}

func (t *Table) dir(d types.RateDirection) *direction {
	if existing, ok := t.directions[d]; ok {
		return existing
	}
	created := &direction{}
	t.directions[d] = created
	return created
}

// SetBase replaces the base bands for a direction. Bands are ordered; the
// first band containing a time wins.
func (t *Table) SetBase(d types.RateDirection, bands ...types.RateBand) *Table {
	t.dir(d).base = bands
	return t
}

// AddOverrides appends date/time-scoped override bands for a direction.
// Overrides take precedence over base bands; among overlapping overrides the
// most recently defined wins.
func (t *Table) AddOverrides(d types.RateDirection, bands ...types.RateBand) *Table {
	dir := t.dir(d)
	dir.overrides = append(dir.overrides, bands...)
	return t
}

// AddAdjustments appends additive adjustments for a direction. They apply
// after band resolution and may push the effective price negative.
func (t *Table) AddAdjustments(d types.RateDirection, bands ...types.RateBand) *Table {
	dir := t.dir(d)
	dir.adjustments = append(dir.adjustments, bands...)
	return t
}

// Flat returns an unscoped band: one price for the whole horizon.
func Flat(price float64) types.RateBand {
	return types.RateBand{PricePerKWH: price}
}

// Series builds one band per slot of the axis from an external price series.
// Shorter series leave the tail unconfigured (resolving to zero).
func Series(axis types.Axis, prices []float64) []types.RateBand {
	bands := make([]types.RateBand, 0, len(prices))
	for i, p := range prices {
		if i >= axis.Slots {
			break
		}
		bands = append(bands, types.RateBand{
			Start:       axis.Time(i),
			End:         axis.Time(i + 1),
			PricePerKWH: p,
		})
	}
	return bands
}

// FromSettings builds and validates a table from the stored tariff
// configuration.
func FromSettings(s types.Settings) (*Table, error) {
	t := NewTable().
		SetBase(types.RateImport, s.ImportBands...).
		SetBase(types.RateExport, s.ExportBands...).
		SetBase(types.RateGas, s.GasBands...).
		AddOverrides(types.RateImport, s.ImportOverrides...).
		AddOverrides(types.RateExport, s.ExportOverrides...).
		AddAdjustments(types.RateImport, s.ImportAdjustments...).
		AddAdjustments(types.RateExport, s.ExportAdjustments...)
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks every configured band.
func (t *Table) Validate() error {
	for name, dir := range t.directions {
		for _, bands := range [][]types.RateBand{dir.base, dir.overrides, dir.adjustments} {
			for i, b := range bands {
				if err := b.Validate(); err != nil {
					return fmt.Errorf("%s band %d: %w", name, i, err)
				}
			}
		}
	}
	return nil
}

// Resolve returns the effective price per kWh for a direction at a time. It
// is total: unconfigured periods resolve to zero plus any adjustments.
func (t *Table) Resolve(d types.RateDirection, at time.Time) float64 {
	dir, ok := t.directions[d]
	if !ok {
		return 0
	}
	price := 0.0
	matched := false
	// Later overrides shadow earlier ones.
	for i := len(dir.overrides) - 1; i >= 0; i-- {
		if dir.overrides[i].Contains(at) {
			price = dir.overrides[i].PricePerKWH
			matched = true
			break
		}
	}
	if !matched {
		for _, b := range dir.base {
			if b.Contains(at) {
				price = b.PricePerKWH
				break
			}
		}
	}
	for _, b := range dir.adjustments {
		if b.Contains(at) {
			price += b.PricePerKWH
		}
	}
	return price
}

// Slice precomputes the price for every slot of the axis.
func (t *Table) Slice(d types.RateDirection, axis types.Axis) []float64 {
	prices := make([]float64, axis.Slots)
	for i := range prices {
		prices[i] = t.Resolve(d, axis.Time(i))
	}
	return prices
}
