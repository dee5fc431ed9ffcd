package compat

import (
	"math"
	"regexp"
	"strconv"
)

// Power model constants, in watts.
const (
	BaseDraw          = 50.0
	DefaultCPUTDP     = 125.0
	DefaultGPUTDP     = 250.0
	DefaultModules    = 2
	WattsPerStickDDR4 = 3.0
	WattsPerStickDDR5 = 5.0
	StorageDraw       = 10.0
	PowerHeadroom     = 1.2
	PSUStep           = 50.0
	PSUMargin         = 100.0

	// EPSHighDrawTDP is the CPU TDP at which boards expect a second EPS lead.
	EPSHighDrawTDP = 150.0
)

// PowerInputs are the draws a power estimate is built from. Zero values
// fall back to the defaults.
type PowerInputs struct {
	CPUTDP        float64
	GPUTDP        float64
	MemoryModules int
	DDR5          bool
	// ExcludeGPU leaves the graphics card out entirely.
	ExcludeGPU bool
}

// EstimateWattage returns the estimated peak system draw including headroom.
func EstimateWattage(in PowerInputs) float64 {
	cpu := in.CPUTDP
	if cpu <= 0 {
		cpu = DefaultCPUTDP
	}
	gpu := in.GPUTDP
	if gpu <= 0 {
		gpu = DefaultGPUTDP
	}
	if in.ExcludeGPU {
		gpu = 0
	}
	modules := in.MemoryModules
	if modules <= 0 {
		modules = DefaultModules
	}
	perStick := WattsPerStickDDR4
	if in.DDR5 {
		perStick = WattsPerStickDDR5
	}
	raw := BaseDraw + cpu + gpu + float64(modules)*perStick + StorageDraw
	return math.Round(raw*PowerHeadroom*10) / 10
}

// RecommendedWattage rounds an estimate up to the next 50W step and adds
// a fixed margin.
func RecommendedWattage(estimate float64) float64 {
	if estimate <= 0 {
		return 0
	}
	return math.Ceil(estimate/PSUStep)*PSUStep + PSUMargin
}

// ConnectorNeeds counts the PSU leads a build requires.
type ConnectorNeeds struct {
	EPS       int `json:"eps"`
	PCIe      int `json:"pcie"`
	HighPower int `json:"highPower"`
}

var (
	pinPattern  = regexp.MustCompile(`(?i)(?:(\d+)\s*x\s*)?(6\+2|16|12|8|6)[\s-]*pin`)
	hpwrPattern = regexp.MustCompile(`(?i)12v-?hpwr|12v-?2x6`)
)

// GPUConnectorNeeds parses a power connector description such as
// "2x 8-pin" or "1x 16-pin (12VHPWR)".
func GPUConnectorNeeds(desc string) (pcie, highPower int) {
	for _, m := range pinPattern.FindAllStringSubmatch(desc, -1) {
		n := 1
		if m[1] != "" {
			if v, err := strconv.Atoi(m[1]); err == nil && v > 0 {
				n = v
			}
		}
		switch m[2] {
		case "16", "12":
			highPower += n
		default:
			pcie += n
		}
	}
	if highPower == 0 && hpwrPattern.MatchString(desc) {
		highPower = 1
	}
	return pcie, highPower
}

// EPSNeeds returns the 8-pin CPU leads a CPU of the given TDP needs. An
// unknown TDP needs none.
func EPSNeeds(cpuTDP float64) int {
	switch {
	case cpuTDP <= 0:
		return 0
	case cpuTDP >= EPSHighDrawTDP:
		return 2
	default:
		return 1
	}
}
