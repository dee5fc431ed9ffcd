// Package scoring ranks compatible candidates with a fixed weighted sum per
// category, generates the human-readable reasons shown next to each part,
// and decides which ranked parts carry the recommended badge.
package scoring

import (
	"math"
	"strings"

	"github.com/oxbowmantella/frameforge/internal/compat"
	"github.com/oxbowmantella/frameforge/pkg/parts"
)

const (
	maxScore = 100.0

	defaultMemorySpeed = 3200.0
	memoryCapacityRef  = 32.0
)

// Score returns a 0-100 value for candidate a in category c.
func Score(c parts.Category, a parts.Attributes, s compat.Snapshot) float64 {
	var v float64
	switch c {
	case parts.CategoryMotherboard:
		v = scoreMotherboard(a, s)
	case parts.CategoryCPU:
		v = scoreCPU(a)
	case parts.CategoryMemory:
		v = scoreMemory(a, s)
	case parts.CategoryGPU:
		v = scoreGPU(a, s)
	case parts.CategoryStorage:
		v = scoreStorage(a, s)
	case parts.CategoryCase:
		v = scoreCase(a, s)
	case parts.CategoryCooler:
		v = scoreCooler(a, s)
	case parts.CategoryPSU:
		v = scorePSU(a, s)
	}
	return clamp(math.Round(v*10) / 10)
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(maxScore, v))
}

func scoreCPU(a parts.Attributes) float64 {
	var total float64
	if cores, ok := a.Number(parts.KeyCores); ok {
		total += cores / 16 * 40
	}
	if clock, ok := averageClock(a); ok {
		total += clock / 5.0 * 30
	}
	if l3, ok := a.Number(parts.KeyL3Cache); ok {
		total += l3 / 128 * 20
	}
	if tdp, ok := a.Number(parts.KeyTDP); ok {
		total += tdp / 125 * 10
	}
	return total
}

func averageClock(a parts.Attributes) (float64, bool) {
	var sum float64
	var n int
	for _, key := range []string{parts.KeyBaseClock, parts.KeyBoostClock} {
		if v, ok := a.Get(key); ok {
			if ghz, ok := parts.ParseClockGHz(v); ok {
				sum += ghz
				n++
			}
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

type tierTarget struct {
	tdpLow, tdpHigh float64
	memLow, memHigh float64
}

var gpuTargets = map[compat.CPUTier]tierTarget{
	compat.CPUTierEntry: {75, 150, 4, 8},
	compat.CPUTierMid:   {150, 220, 8, 12},
	compat.CPUTierHigh:  {200, 300, 12, 16},
	compat.CPUTierUltra: {285, 450, 16, 24},
}

func scoreGPU(a parts.Attributes, s compat.Snapshot) float64 {
	tier := s.CPUTier
	if tier == "" {
		tier = compat.CPUTierMid
	}
	target := gpuTargets[tier]
	var total float64

	tdp, hasTDP := a.Number(parts.KeyTDP)
	if hasTDP {
		switch {
		case tdp >= target.tdpLow && tdp <= target.tdpHigh:
			total += 40
		case tdp >= target.tdpLow*0.8 && tdp <= target.tdpHigh*1.2:
			total += 25
		case tdp >= target.tdpLow*0.6 && tdp <= target.tdpHigh:
			total += 15
		}
	}

	if mem, ok := a.Number(parts.KeyMemory); ok {
		switch {
		case mem >= target.memLow:
			total += 20
		case mem >= target.memLow*0.75:
			total += 10
		}
	}

	switch {
	case s.PSUWattage <= 0:
		total += 20
	case hasTDP:
		available := s.PSUWattage - s.NonGPUDraw
		if tdp <= available {
			total += 20
		} else if tdp <= available*1.1 {
			total += 10
		}
	}

	length, hasLength := a.Number(parts.KeyLength)
	switch {
	case s.CaseMaxGPULength <= 0:
		total += 20
	case hasLength && length <= s.CaseMaxGPULength:
		total += 20
	case !hasLength:
		total += 10
	}
	return total
}

func scoreMemory(a parts.Attributes, s compat.Snapshot) float64 {
	total := 60.0
	target := s.MaxMemorySpeed
	if target <= 0 {
		target = defaultMemorySpeed
	}
	if v, ok := a.Get(parts.KeySpeed); ok {
		if speed, ok := parts.LargestNumber(v); ok {
			total += math.Min(speed/target, 1) * 20
		}
	}
	if v, ok := a.Get(parts.KeyCapacity); ok {
		if gb, ok := parts.ParseCapacityGB(v); ok {
			total += math.Min(gb/memoryCapacityRef, 1) * 10
		}
	}
	if spreader, ok := a.Bool(parts.KeyHeatSpreader); ok && spreader {
		total += 5
	}
	if _, ok := a.Lookup(parts.KeyCASLatency, parts.KeyTimings); ok {
		total += 5
	}
	return total
}

var efficiencyTiers = []struct {
	name  string
	score float64
}{
	{"titanium", 30},
	{"platinum", 25},
	{"gold", 20},
	{"silver", 15},
	{"bronze", 10},
}

// EfficiencyScore maps an 80 Plus rating to its score.
func EfficiencyScore(rating string) float64 {
	for _, t := range efficiencyTiers {
		if parts.ContainsFold(rating, t.name) {
			return t.score
		}
	}
	return 5
}

// Modularity classifies a PSU's cabling.
func Modularity(desc string) string {
	n := strings.ToLower(desc)
	switch {
	case strings.Contains(n, "semi"):
		return "semi"
	case strings.Contains(n, "non"), n == "no", n == "none", n == "false":
		return "none"
	case strings.Contains(n, "full"), n == "yes", n == "true", n == "modular":
		return "full"
	}
	return ""
}

func scorePSU(a parts.Attributes, s compat.Snapshot) float64 {
	total := EfficiencyScore(a.String(parts.KeyEfficiency))
	if wattage, ok := a.Number(parts.KeyWattage); ok {
		switch {
		case wattage >= s.RecommendedWattage:
			total += 40
		case wattage >= s.EstimatedWattage:
			total += 30
		}
	}
	switch Modularity(a.String(parts.KeyModular)) {
	case "full":
		total += 15
	case "semi":
		total += 10
	}
	return total
}

func coolerRequiredTDP(s compat.Snapshot) float64 {
	if s.RequiredCoolerTDP > 0 {
		return s.RequiredCoolerTDP
	}
	return compat.DefaultCPUTDP * compat.CoolerTDPHeadroom
}

// IsLiquidCooler reports an AIO or custom loop cooler.
func IsLiquidCooler(a parts.Attributes) bool {
	t := a.String(parts.KeyType, parts.KeyName)
	return parts.ContainsFold(t, "liquid") || parts.ContainsFold(t, "aio") || parts.ContainsFold(t, "water")
}

func scoreCooler(a parts.Attributes, s compat.Snapshot) float64 {
	var total float64
	required := coolerRequiredTDP(s)
	if rating, ok := a.Number(parts.KeyTDPRating); ok {
		total += (rating - required) / required * 50
	}
	if IsLiquidCooler(a) {
		total += 20
	}
	return total
}

// ChipsetTier buckets a motherboard chipset by its leading letter.
func ChipsetTier(chipset string) float64 {
	c := strings.ToUpper(strings.TrimSpace(chipset))
	// Strip vendor prefixes such as "AMD X670E" or "Intel Z790".
	if i := strings.LastIndex(c, " "); i >= 0 {
		c = c[i+1:]
	}
	if c == "" {
		return 0
	}
	switch c[0] {
	case 'X', 'Z':
		return 20
	case 'B':
		return 12
	case 'A', 'H':
		return 5
	}
	return 0
}

func scoreMotherboard(a parts.Attributes, s compat.Snapshot) float64 {
	total := 50 + ChipsetTier(a.String(parts.KeyChipset))
	if slots, ok := a.Number(parts.KeyMemorySlots); ok && slots >= 4 {
		total += 10
	}
	if m2, ok := a.Number(parts.KeyM2Slots); ok {
		total += math.Min(m2*5, 10)
	}
	if s.CPUBrand != "" {
		if socket, ok := a.Get(parts.KeySocket); ok && compat.SocketFitsBrand(socket, s.CPUBrand) {
			total += 10
		}
	}
	return total
}

// StorageClass describes the drive technology.
func StorageClass(a parts.Attributes) string {
	switch {
	case compat.IsM2(a) && parts.ContainsFold(a.String(parts.KeyInterface), "nvme"),
		parts.ContainsFold(a.String(parts.KeyInterface), "pcie"):
		return "nvme"
	case parts.ContainsFold(a.String(parts.KeyType), "hdd"),
		parts.ContainsFold(a.String(parts.KeyType), "hard"),
		parts.ContainsFold(a.String(parts.KeyType), "rpm"):
		return "hdd"
	case parts.ContainsFold(a.String(parts.KeyInterface), "sata"):
		return "sata-ssd"
	}
	return ""
}

func scoreStorage(a parts.Attributes, s compat.Snapshot) float64 {
	total := 40.0
	if v, ok := a.Get(parts.KeyCapacity); ok {
		if gb, ok := parts.ParseCapacityGB(v); ok && s.StorageCapacity.RecommendedGB > 0 {
			total += math.Min(gb/s.StorageCapacity.RecommendedGB, 1) * 30
		}
	}
	switch StorageClass(a) {
	case "nvme":
		total += 20
	case "sata-ssd":
		total += 12
	}
	if read, ok := a.Number(parts.KeyReadSpeed); ok {
		total += math.Min(read/7000, 1) * 10
	}
	return total
}

func scoreCase(a parts.Attributes, s compat.Snapshot) float64 {
	total := 50.0
	if clearance, ok := a.Number(parts.KeyMaxGPULength); ok {
		headroom := clearance - s.RequiredClearance
		if headroom > 0 {
			total += math.Min(headroom/100, 1) * 20
		}
	}
	if fans, ok := a.Number(parts.KeyFans); ok {
		total += math.Min(fans*5, 15)
	}
	if parts.ContainsFold(a.String(parts.KeyName), "mesh") || parts.ContainsFold(a.String("Front Panel"), "mesh") {
		total += 15
	}
	return total
}
