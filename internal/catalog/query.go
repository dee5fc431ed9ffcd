package catalog

import (
	"fmt"
	"strings"

	"github.com/oxbowmantella/frameforge/internal/budget"
	"github.com/oxbowmantella/frameforge/internal/compat"
	"github.com/oxbowmantella/frameforge/internal/search"
	"github.com/oxbowmantella/frameforge/pkg/parts"
)

// PriceRange is the band reported back to callers.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Criteria describes what a recommendation request searched for. It is
// returned with results and with no-match errors.
type Criteria struct {
	PriceRange      PriceRange        `json:"priceRange"`
	BandMode        budget.Mode       `json:"bandMode"`
	Tier            budget.Tier       `json:"tier"`
	Query           string            `json:"query"`
	Requirements    map[string]string `json:"requirements,omitempty"`
	StorageCapacity *budget.Capacity  `json:"storageCapacity,omitempty"`
}

func newCriteria(c parts.Category, band budget.Band, s compat.Snapshot, query string) Criteria {
	cr := Criteria{
		PriceRange:   PriceRange{Min: band.Min, Max: band.Max},
		BandMode:     band.Mode,
		Tier:         s.Tier,
		Query:        query,
		Requirements: requirements(c, s),
	}
	if c == parts.CategoryStorage {
		capacity := s.StorageCapacity
		cr.StorageCapacity = &capacity
	}
	return cr
}

// requirements lists the constraints the chosen parts put on c.
func requirements(c parts.Category, s compat.Snapshot) map[string]string {
	r := make(map[string]string)
	set := func(k, v string) {
		if v != "" {
			r[k] = v
		}
	}
	num := func(k string, v float64) {
		if v > 0 {
			r[k] = fmt.Sprintf("%g", v)
		}
	}

	switch c {
	case parts.CategoryMotherboard:
		set("cpuBrand", s.CPUBrand)
	case parts.CategoryCPU:
		set("socket", s.Socket)
		set("cpuBrand", s.CPUBrand)
	case parts.CategoryMemory:
		set("memoryType", s.MemoryType)
		num("maxMemorySpeed", s.MaxMemorySpeed)
	case parts.CategoryGPU:
		set("gpuBrand", s.GPUBrand)
		num("maxLength", s.CaseMaxGPULength)
		if s.PSUWattage > 0 {
			num("maxTdp", s.PSUWattage-s.NonGPUDraw)
		}
	case parts.CategoryStorage:
		if s.M2Slots != nil {
			r["m2Slots"] = fmt.Sprint(*s.M2Slots)
		}
		if s.SATAPorts != nil {
			r["sataPorts"] = fmt.Sprint(*s.SATAPorts)
		}
	case parts.CategoryCase:
		set("formFactor", s.FormFactor)
		num("requiredClearance", s.RequiredClearance)
	case parts.CategoryCooler:
		set("socket", s.CPUSocket)
		num("minTdpRating", s.RequiredCoolerTDP)
		num("maxHeight", s.MaxCoolerHeight)
	case parts.CategoryPSU:
		num("estimatedWattage", s.EstimatedWattage)
		num("recommendedWattage", s.RecommendedWattage)
		if s.Connectors.EPS > 0 {
			r["epsConnectors"] = fmt.Sprint(s.Connectors.EPS)
		}
		if s.Connectors.PCIe > 0 {
			r["pcieConnectors"] = fmt.Sprint(s.Connectors.PCIe)
		}
		if s.Connectors.HighPower > 0 {
			r["12vhpwrConnectors"] = fmt.Sprint(s.Connectors.HighPower)
		}
	}
	return r
}

// queryText builds the free-text query for the search collaborator. The
// category phrase is always present so the collaborator can scope hits.
func queryText(c parts.Category, s compat.Snapshot, band budget.Band, term string) string {
	var words []string
	add := func(w ...string) {
		for _, v := range w {
			if v = strings.TrimSpace(v); v != "" {
				words = append(words, v)
			}
		}
	}

	add(term)
	switch c {
	case parts.CategoryMotherboard:
		add(s.CPUBrand)
	case parts.CategoryCPU:
		add(s.CPUBrand, s.Socket)
	case parts.CategoryMemory:
		add(strings.ToUpper(s.MemoryType))
	case parts.CategoryGPU:
		add(s.GPUBrand)
	case parts.CategoryStorage:
		add(fmt.Sprintf("%gGB", s.StorageCapacity.RecommendedGB))
	case parts.CategoryCase:
		add(s.FormFactor)
	case parts.CategoryCooler:
		add(s.CPUSocket)
	case parts.CategoryPSU:
		if s.RecommendedWattage > 0 {
			add(fmt.Sprintf("%.0fW", s.RecommendedWattage))
		}
	}
	add(search.CategoryPhrase(c))
	if ceiling := band.Ceiling(); ceiling > 0 {
		add(fmt.Sprintf("under $%.0f", ceiling))
	}
	return strings.Join(words, " ")
}
