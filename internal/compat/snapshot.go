// Package compat derives the requirement snapshot implied by a build's
// selected components and applies the per-category compatibility rules to
// candidate parts.
package compat

import (
	"strconv"
	"strings"

	"github.com/oxbowmantella/frameforge/internal/budget"
	"github.com/oxbowmantella/frameforge/pkg/models"
	"github.com/oxbowmantella/frameforge/pkg/parts"
)

// Physical defaults in millimetres.
const (
	GPUClearanceMargin    = 20.0
	DefaultGPUClearance   = 320.0
	CoolerWidthMargin     = 30.0
	DefaultCoolerHeight   = 170.0
	CoolerTDPHeadroom     = 1.2
	CriticalCoolingCPUTDP = 125.0
)

// CPUTier is a coarse performance class read from a CPU's model name.
type CPUTier string

const (
	CPUTierEntry CPUTier = "entry"
	CPUTierMid   CPUTier = "mid"
	CPUTierHigh  CPUTier = "high"
	CPUTierUltra CPUTier = "ultra"
)

var cpuTierMarkers = []struct {
	tier    CPUTier
	markers []string
}{
	{CPUTierUltra, []string{"i9", "ryzen 9", "core ultra 9", "threadripper"}},
	{CPUTierHigh, []string{"i7", "ryzen 7", "core ultra 7"}},
	{CPUTierMid, []string{"i5", "ryzen 5", "core ultra 5"}},
	{CPUTierEntry, []string{"i3", "ryzen 3", "athlon", "pentium", "celeron"}},
}

// ClassifyCPU maps a CPU name to a tier, defaulting to mid.
func ClassifyCPU(name string) CPUTier {
	lower := strings.ToLower(name)
	for _, t := range cpuTierMarkers {
		for _, m := range t.markers {
			if strings.Contains(lower, m) {
				return t.tier
			}
		}
	}
	return CPUTierMid
}

// Snapshot is the set of constraints the already-selected components put
// on the next category. It is derived on every request and never stored.
// Zero numeric fields mean unknown.
type Snapshot struct {
	Budget    float64     `json:"budget"`
	Tier      budget.Tier `json:"tier"`
	Remaining float64     `json:"remaining"`

	CPUBrand     string `json:"cpuBrand,omitempty"`
	GPUBrand     string `json:"gpuBrand,omitempty"`
	HasCPUCooler bool   `json:"hasCpuCooler"`

	Socket         string  `json:"socket,omitempty"`
	FormFactor     string  `json:"formFactor,omitempty"`
	MemoryType     string  `json:"memoryType,omitempty"`
	Chipset        string  `json:"chipset,omitempty"`
	M2Slots        *int    `json:"m2Slots,omitempty"`
	SATAPorts      *int    `json:"sataPorts,omitempty"`
	MaxMemorySpeed float64 `json:"maxMemorySpeed,omitempty"`

	CPUName   string  `json:"cpuName,omitempty"`
	CPUSocket string  `json:"cpuSocket,omitempty"`
	CPUTDP    float64 `json:"cpuTdp,omitempty"`
	CPUTier   CPUTier `json:"cpuTier,omitempty"`

	MemoryModules int  `json:"memoryModules,omitempty"`
	DDR5          bool `json:"ddr5,omitempty"`

	GPULength     float64 `json:"gpuLength,omitempty"`
	GPUTDP        float64 `json:"gpuTdp,omitempty"`
	GPUConnectors string  `json:"gpuConnectors,omitempty"`

	CaseMaxGPULength float64 `json:"caseMaxGpuLength,omitempty"`
	CaseWidth        float64 `json:"caseWidth,omitempty"`

	PSUWattage float64 `json:"psuWattage,omitempty"`

	StorageCapacity    budget.Capacity `json:"storageCapacity"`
	RequiredClearance  float64         `json:"requiredClearance"`
	RequiredCoolerTDP  float64         `json:"requiredCoolerTdp,omitempty"`
	MaxCoolerHeight    float64         `json:"maxCoolerHeight"`
	EstimatedWattage   float64         `json:"estimatedWattage"`
	RecommendedWattage float64         `json:"recommendedWattage"`
	NonGPUDraw         float64         `json:"nonGpuDraw"`
	Connectors         ConnectorNeeds  `json:"connectors"`
}

// CriticalCooling reports whether the selected CPU needs a strong cooler.
func (s Snapshot) CriticalCooling() bool {
	return s.CPUTDP >= CriticalCoolingCPUTDP || (s.CPUName != "" && !s.HasCPUCooler)
}

// Derive computes the snapshot for b.
func Derive(b models.Build) Snapshot {
	s := Snapshot{
		Budget:          b.Budget,
		Tier:            budget.TierFor(b.Budget),
		Remaining:       b.Remaining(),
		CPUBrand:        b.Preferences.CPUBrand,
		GPUBrand:        b.Preferences.GPUBrand,
		HasCPUCooler:    b.Preferences.HasCPUCooler,
		StorageCapacity: budget.StorageCapacity(b.Budget),
	}

	if mb, ok := b.Component(parts.CategoryMotherboard); ok {
		s.Socket, _ = mb.Spec(SpecSocket)
		s.FormFactor, _ = mb.Spec(SpecFormFactor)
		s.Chipset, _ = mb.Spec(SpecChipset)
		if v, ok := mb.Spec(SpecMemoryType); ok {
			if gen, ok := parts.DDRGeneration(v); ok {
				s.MemoryType = gen
			}
		}
		s.M2Slots = specCount(mb.Specifications, SpecM2Slots)
		s.SATAPorts = specCount(mb.Specifications, SpecSATAPorts)
		s.MaxMemorySpeed, _ = specNumber(mb.Specifications, SpecMaxMemorySpeed)
	}

	if cpu, ok := b.Component(parts.CategoryCPU); ok {
		s.CPUName = cpu.Name
		s.CPUSocket, _ = cpu.Spec(SpecSocket)
		s.CPUTDP, _ = specNumber(cpu.Specifications, SpecTDP)
		s.CPUTier = ClassifyCPU(cpu.Name)
		if v, ok := cpu.Spec(SpecCoolerIncluded); ok {
			if included, err := strconv.ParseBool(v); err == nil && included {
				s.HasCPUCooler = true
			}
		}
	}

	if mem, ok := b.Component(parts.CategoryMemory); ok {
		if n, ok := specNumber(mem.Specifications, SpecMemoryModules); ok {
			s.MemoryModules = int(n)
		}
		if v, ok := mem.Spec(SpecMemoryType); ok {
			s.DDR5 = strings.EqualFold(v, "ddr5")
		}
	} else if s.MemoryType == "ddr5" {
		s.DDR5 = true
	}

	if gpu, ok := b.Component(parts.CategoryGPU); ok {
		s.GPULength, _ = specNumber(gpu.Specifications, SpecLength)
		s.GPUTDP, _ = specNumber(gpu.Specifications, SpecTDP)
		s.GPUConnectors, _ = gpu.Spec(SpecPowerConnectors)
	}

	if c, ok := b.Component(parts.CategoryCase); ok {
		s.CaseMaxGPULength, _ = specNumber(c.Specifications, SpecMaxGPULength)
		s.CaseWidth, _ = specNumber(c.Specifications, SpecWidth)
	}

	if psu, ok := b.Component(parts.CategoryPSU); ok {
		s.PSUWattage, _ = specNumber(psu.Specifications, SpecWattage)
	}

	s.RequiredClearance = RequiredClearance(s.GPULength)
	s.MaxCoolerHeight = DefaultCoolerHeight
	if s.CaseWidth > CoolerWidthMargin {
		s.MaxCoolerHeight = s.CaseWidth - CoolerWidthMargin
	}
	if s.CPUTDP > 0 {
		s.RequiredCoolerTDP = s.CPUTDP * CoolerTDPHeadroom
	}

	power := PowerInputs{
		CPUTDP:        s.CPUTDP,
		GPUTDP:        s.GPUTDP,
		MemoryModules: s.MemoryModules,
		DDR5:          s.DDR5,
	}
	if b.Preferences.HasIntegratedGraphics && !b.Has(parts.CategoryGPU) && b.Preferences.GPUBrand == "" {
		power.ExcludeGPU = true
	}
	s.EstimatedWattage = EstimateWattage(power)
	s.RecommendedWattage = RecommendedWattage(s.EstimatedWattage)
	power.ExcludeGPU = true
	s.NonGPUDraw = EstimateWattage(power)

	s.Connectors.EPS = EPSNeeds(s.CPUTDP)
	s.Connectors.PCIe, s.Connectors.HighPower = GPUConnectorNeeds(s.GPUConnectors)
	return s
}

// RequiredClearance is the case GPU clearance a card of length mm needs.
func RequiredClearance(length float64) float64 {
	if length <= 0 {
		return DefaultGPUClearance
	}
	return length + GPUClearanceMargin
}

func specCount(specs map[string]string, key string) *int {
	n, ok := specNumber(specs, key)
	if !ok {
		return nil
	}
	v := int(n)
	return &v
}
