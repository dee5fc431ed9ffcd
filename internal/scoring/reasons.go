package scoring

import (
	"fmt"
	"strings"

	"github.com/oxbowmantella/frameforge/internal/compat"
	"github.com/oxbowmantella/frameforge/pkg/parts"
)

// Reasons returns the justification sentences for a candidate in a fixed
// per-category order. Attributes that are absent produce no sentence.
func Reasons(c parts.Category, a parts.Attributes, s compat.Snapshot) []string {
	r := &reasonList{}
	switch c {
	case parts.CategoryMotherboard:
		motherboardReasons(r, a, s)
	case parts.CategoryCPU:
		cpuReasons(r, a, s)
	case parts.CategoryMemory:
		memoryReasons(r, a, s)
	case parts.CategoryGPU:
		gpuReasons(r, a, s)
	case parts.CategoryStorage:
		storageReasons(r, a, s)
	case parts.CategoryCase:
		caseReasons(r, a, s)
	case parts.CategoryCooler:
		coolerReasons(r, a, s)
	case parts.CategoryPSU:
		psuReasons(r, a, s)
	}
	return r.items
}

type reasonList struct {
	items []string
}

func (r *reasonList) add(format string, args ...any) {
	r.items = append(r.items, fmt.Sprintf(format, args...))
}

// addIf appends when the attribute is present.
func (r *reasonList) addIf(a parts.Attributes, key, format string) {
	if v, ok := a.Get(key); ok {
		r.add(format, v)
	}
}

func motherboardReasons(r *reasonList, a parts.Attributes, s compat.Snapshot) {
	r.addIf(a, parts.KeySocket, "Uses the %s socket")
	r.addIf(a, parts.KeyChipset, "%s chipset")
	r.addIf(a, parts.KeyFormFactor, "%s form factor")
	if gen, ok := compat.DDRFromAttributes(a, parts.KeyMemoryType); ok {
		r.add("Supports %s memory", strings.ToUpper(gen))
	}
	if n, ok := a.Int(parts.KeyM2Slots); ok && n > 0 {
		r.add("%d M.2 slots for fast storage", n)
	}
	if n, ok := a.Int(parts.KeyMemorySlots); ok && n > 0 {
		r.add("%d memory slots", n)
	}
	if s.CPUBrand != "" {
		if socket, ok := a.Get(parts.KeySocket); ok && compat.SocketFitsBrand(socket, s.CPUBrand) {
			r.add("Ready for your %s CPU", s.CPUBrand)
		}
	}
}

func cpuReasons(r *reasonList, a parts.Attributes, s compat.Snapshot) {
	if s.Socket != "" {
		if socket, ok := a.Get(parts.KeySocket); ok && compat.SocketIn(socket, s.Socket) {
			r.add("Fits your %s motherboard", s.Socket)
		}
	}
	cores, hasCores := a.Int(parts.KeyCores)
	threads, hasThreads := a.Int(parts.KeyThreads)
	switch {
	case hasCores && hasThreads:
		r.add("%d cores / %d threads", cores, threads)
	case hasCores:
		r.add("%d cores", cores)
	}
	r.addIf(a, parts.KeyBoostClock, "Boosts up to %s")
	r.addIf(a, parts.KeyL3Cache, "%s L3 cache")
	if v, ok := a.Bool(parts.KeyIntegratedGraphics); ok {
		if v {
			r.add("Integrated graphics included")
		}
	} else if name, ok := a.Get(parts.KeyIntegratedGraphics); ok {
		r.add("Integrated %s", name)
	}
	if v, ok := a.Bool(parts.KeyCoolerIncluded); ok && v {
		r.add("Includes a stock cooler")
	}
	r.addIf(a, parts.KeyTDP, "%s TDP")
}

func memoryReasons(r *reasonList, a parts.Attributes, s compat.Snapshot) {
	if gen, ok := compat.DDRFromAttributes(a, parts.KeyMemoryType, parts.KeySpeed, parts.KeyName); ok && gen == s.MemoryType {
		r.add("Matches your %s motherboard", strings.ToUpper(gen))
	}
	r.addIf(a, parts.KeyCapacity, "%s capacity")
	r.addIf(a, parts.KeySpeed, "%s speed")
	r.addIf(a, parts.KeyModules, "%s module kit")
	r.addIf(a, parts.KeyCASLatency, "CAS latency %s")
	if v, ok := a.Bool(parts.KeyHeatSpreader); ok && v {
		r.add("Includes heat spreader for better cooling")
	}
}

func gpuReasons(r *reasonList, a parts.Attributes, s compat.Snapshot) {
	if s.GPUBrand != "" && compat.MatchesBrand(a, s.GPUBrand) {
		r.add("Matches your %s preference", s.GPUBrand)
	}
	r.addIf(a, parts.KeyMemory, "%s of video memory")
	r.addIf(a, parts.KeyTDP, "%s board power")
	if length, ok := a.Number(parts.KeyLength); ok {
		if s.CaseMaxGPULength > 0 {
			r.add("Fits your case with %.0fmm to spare", s.CaseMaxGPULength-length)
		} else {
			r.add("%.0fmm long", length)
		}
	}
	r.addIf(a, parts.KeyPowerConnectors, "Powered by %s")
	if s.PSUWattage > 0 {
		if tdp, ok := a.Number(parts.KeyTDP); ok && tdp <= s.PSUWattage-s.NonGPUDraw {
			r.add("Runs within your %.0fW power supply", s.PSUWattage)
		}
	}
}

func storageReasons(r *reasonList, a parts.Attributes, s compat.Snapshot) {
	r.addIf(a, parts.KeyCapacity, "%s capacity")
	if v, ok := a.Get(parts.KeyCapacity); ok {
		if gb, ok := parts.ParseCapacityGB(v); ok && gb >= s.StorageCapacity.RecommendedGB && s.StorageCapacity.RecommendedGB > 0 {
			r.add("Meets the recommended %.0fGB for your budget", s.StorageCapacity.RecommendedGB)
		}
	}
	r.addIf(a, parts.KeyInterface, "%s interface")
	r.addIf(a, parts.KeyReadSpeed, "Reads up to %s")
	r.addIf(a, parts.KeyWriteSpeed, "Writes up to %s")
	r.addIf(a, parts.KeyFormFactor, "%s form factor")
}

func caseReasons(r *reasonList, a parts.Attributes, s compat.Snapshot) {
	if s.FormFactor != "" && parts.ContainsToken(a.List(parts.KeySupportedFormFactor), s.FormFactor) {
		r.add("Fits your %s motherboard", s.FormFactor)
	}
	if n, ok := a.Number(parts.KeyMaxGPULength); ok {
		r.add("Supports GPUs up to %.0fmm", n)
	}
	if w, ok := a.Number(parts.KeyWidth); ok && w > compat.CoolerWidthMargin {
		r.add("Room for coolers up to %.0fmm", w-compat.CoolerWidthMargin)
	}
	if n, ok := a.Int(parts.KeyFans); ok && n > 0 {
		r.add("Includes %d fans", n)
	}
	r.addIf(a, parts.KeyDriveBays, "%s drive bays")
}

func coolerReasons(r *reasonList, a parts.Attributes, s compat.Snapshot) {
	if s.CPUSocket != "" && compat.SocketIn(a.String(parts.KeySupportedSockets), s.CPUSocket) {
		r.add("Supports your %s socket", s.CPUSocket)
	}
	if rating, ok := a.Number(parts.KeyTDPRating); ok {
		if s.RequiredCoolerTDP > 0 {
			r.add("Rated for %.0fW, your CPU needs %.0fW", rating, s.RequiredCoolerTDP)
		} else {
			r.add("Rated for %.0fW", rating)
		}
	}
	if IsLiquidCooler(a) {
		r.add("Liquid cooling")
	}
	r.addIf(a, parts.KeyRadiatorSize, "%s radiator")
	if h, ok := a.Number(parts.KeyHeight); ok {
		if s.MaxCoolerHeight > 0 && h <= s.MaxCoolerHeight {
			r.add("Fits your case (max %.0fmm)", s.MaxCoolerHeight)
		} else {
			r.add("%.0fmm tall", h)
		}
	}
	r.addIf(a, parts.KeyNoiseLevel, "Noise level %s")
}

func psuReasons(r *reasonList, a parts.Attributes, s compat.Snapshot) {
	if w, ok := a.Number(parts.KeyWattage); ok {
		switch {
		case s.RecommendedWattage > 0 && w >= s.RecommendedWattage:
			r.add("%.0fW covers the recommended %.0fW", w, s.RecommendedWattage)
		default:
			r.add("%.0fW covers the estimated %.0fW draw", w, s.EstimatedWattage)
		}
	}
	if eff := a.String(parts.KeyEfficiency); eff != "" {
		for _, t := range efficiencyTiers {
			if parts.ContainsFold(eff, t.name) {
				r.add("80+ %s efficiency", strings.ToUpper(t.name[:1])+t.name[1:])
				break
			}
		}
	}
	switch Modularity(a.String(parts.KeyModular)) {
	case "full":
		r.add("Fully modular cabling")
	case "semi":
		r.add("Semi-modular cabling")
	}
}
