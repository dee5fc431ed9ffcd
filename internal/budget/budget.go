// Package budget derives per-category price bands and storage capacity
// targets from a total build budget.
package budget

import (
	"math"

	"github.com/oxbowmantella/frameforge/pkg/parts"
)

// Mode controls how strictly a band filters candidates.
type Mode string

const (
	// BandSoft keeps candidates within [Min*0.8, Max*1.2].
	BandSoft Mode = "soft"
	// BandHard keeps candidates within [Min, Max].
	BandHard Mode = "hard"
	// BandUpperOnly drops only candidates priced above Max.
	BandUpperOnly Mode = "upper-only"
)

// Soft band tolerances.
const (
	SoftLowerFactor = 0.8
	SoftUpperFactor = 1.2
)

// Tier labels a budget range.
type Tier string

const (
	TierBudget   Tier = "budget"
	TierMidRange Tier = "midRange"
	TierHighEnd  Tier = "highEnd"
)

// Band is the price window a category may spend.
type Band struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mode Mode    `json:"mode"`
}

// Allows reports whether price passes the band under its mode.
func (b Band) Allows(price float64) bool {
	switch b.Mode {
	case BandHard:
		return price >= b.Min && price <= b.Max
	case BandUpperOnly:
		return price <= b.Max
	default:
		return price >= b.Min*SoftLowerFactor && price <= b.Max*SoftUpperFactor
	}
}

// Ceiling is the highest price the band accepts.
func (b Band) Ceiling() float64 {
	if b.Mode == BandSoft {
		return b.Max * SoftUpperFactor
	}
	return b.Max
}

// Empty reports a zero-width band, which is what a non-positive budget yields.
func (b Band) Empty() bool {
	return b.Max <= 0
}

// Options adjusts band derivation for the request at hand.
type Options struct {
	// UseRemaining lets memory spend anywhere up to the full budget.
	UseRemaining bool
	// Strict turns soft bands into hard ones.
	Strict bool
	// RequiredWattage, when positive, removes the PSU price floor.
	RequiredWattage float64
	// CriticalCooling marks builds whose CPU runs at 125W or more or ships
	// without a stock cooler.
	CriticalCooling bool
}

type percentBand struct {
	min, max float64
	mode     Mode
}

var fixedBands = map[parts.Category]percentBand{
	parts.CategoryCPU:     {0.15, 0.25, BandSoft},
	parts.CategoryMemory:  {0.05, 0.10, BandUpperOnly},
	parts.CategoryGPU:     {0.25, 0.40, BandSoft},
	parts.CategoryStorage: {0, 0.20, BandUpperOnly},
	parts.CategoryCase:    {0, 0.15, BandUpperOnly},
	parts.CategoryPSU:     {0.08, 0.15, BandSoft},
	parts.CategoryCooler:  {0.05, 0.12, BandSoft},
}

// Valid reports whether total is a usable budget.
func Valid(total float64) bool {
	return total > 0 && !math.IsNaN(total) && !math.IsInf(total, 0)
}

// TierFor classifies a budget.
func TierFor(total float64) Tier {
	switch {
	case total <= 1000:
		return TierBudget
	case total <= 2000:
		return TierMidRange
	default:
		return TierHighEnd
	}
}

// For returns the price band for category c under a total budget. A
// non-positive or non-finite budget yields an empty band.
func For(c parts.Category, total float64, opts Options) Band {
	pb := percentsFor(c, total, opts)
	if !Valid(total) {
		return Band{Mode: pb.mode}
	}
	band := Band{Min: round2(total * pb.min), Max: round2(total * pb.max), Mode: pb.mode}
	if opts.Strict && band.Mode == BandSoft {
		band.Mode = BandHard
	}
	if c == parts.CategoryPSU && opts.RequiredWattage > 0 {
		// Wattage overrides price: keep the ceiling, drop the floor.
		band.Mode = BandUpperOnly
		band.Max = round2(band.Max * SoftUpperFactor)
	}
	return band
}

func percentsFor(c parts.Category, total float64, opts Options) percentBand {
	switch c {
	case parts.CategoryMotherboard:
		switch TierFor(total) {
		case TierBudget:
			return percentBand{0.08, 0.12, BandSoft}
		case TierMidRange:
			return percentBand{0.10, 0.15, BandSoft}
		default:
			return percentBand{0.12, 0.18, BandSoft}
		}
	case parts.CategoryMemory:
		if opts.UseRemaining {
			return percentBand{0, 1, BandUpperOnly}
		}
	case parts.CategoryCooler:
		if opts.CriticalCooling {
			return percentBand{0.08, 0.12, BandSoft}
		}
	}
	if pb, ok := fixedBands[c]; ok {
		return pb
	}
	return percentBand{0, 0, BandSoft}
}

// All returns every category's band, keyed by category.
func All(total float64, opts Options) map[parts.Category]Band {
	out := make(map[parts.Category]Band, 8)
	for _, c := range parts.Categories() {
		out[c] = For(c, total, opts)
	}
	return out
}

// Capacity is the storage size target for a budget, in gigabytes.
type Capacity struct {
	MinGB         float64 `json:"minGB"`
	RecommendedGB float64 `json:"recommendedGB"`
}

// StorageCapacity returns the capacity floor and target for total.
func StorageCapacity(total float64) Capacity {
	switch TierFor(total) {
	case TierBudget:
		return Capacity{MinGB: 500, RecommendedGB: 1000}
	case TierMidRange:
		return Capacity{MinGB: 1000, RecommendedGB: 2000}
	default:
		return Capacity{MinGB: 2000, RecommendedGB: 4000}
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
