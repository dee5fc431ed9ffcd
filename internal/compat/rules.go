package compat

import (
	"fmt"
	"strings"

	"github.com/oxbowmantella/frameforge/pkg/parts"
)

// Rule is one compatibility check. Check returns false and a short reason
// when the candidate must be dropped.
type Rule struct {
	Name  string
	Check func(a parts.Attributes, s Snapshot) (bool, string)
}

// Verdict is the outcome of running a category's rules on one candidate.
type Verdict struct {
	OK     bool
	Rule   string
	Reason string
}

// rules is the single table of checks per category, applied in order.
var rules = map[parts.Category][]Rule{
	parts.CategoryMotherboard: {
		{Name: "board-platform", Check: checkBoardPlatform},
	},
	parts.CategoryCPU: {
		{Name: "cpu-socket", Check: checkCPUSocket},
		{Name: "cpu-brand", Check: checkCPUBrand},
	},
	parts.CategoryMemory: {
		{Name: "memory-form-factor", Check: checkMemoryFormFactor},
		{Name: "ddr-generation", Check: checkDDRGeneration},
	},
	parts.CategoryGPU: {
		{Name: "gpu-brand", Check: checkGPUBrand},
		{Name: "gpu-length", Check: checkGPULength},
		{Name: "gpu-power", Check: checkGPUPower},
	},
	parts.CategoryStorage: {
		{Name: "storage-capacity", Check: checkStorageCapacity},
		{Name: "m2-slots", Check: checkM2Slots},
		{Name: "sata-ports", Check: checkSATAPorts},
	},
	parts.CategoryCase: {
		{Name: "case-form-factor", Check: checkCaseFormFactor},
		{Name: "gpu-clearance", Check: checkGPUClearance},
	},
	parts.CategoryCooler: {
		{Name: "cooler-socket", Check: checkCoolerSocket},
		{Name: "cooler-tdp", Check: checkCoolerTDP},
		{Name: "cooler-height", Check: checkCoolerHeight},
	},
	parts.CategoryPSU: {
		{Name: "psu-wattage", Check: checkPSUWattage},
		{Name: "psu-connectors", Check: checkPSUConnectors},
	},
}

// Rules returns the checks for c in evaluation order.
func Rules(c parts.Category) []Rule {
	return rules[c]
}

// Evaluate runs every rule for c and stops at the first rejection.
func Evaluate(c parts.Category, a parts.Attributes, s Snapshot) Verdict {
	for _, r := range rules[c] {
		if ok, reason := r.Check(a, s); !ok {
			return Verdict{Rule: r.Name, Reason: reason}
		}
	}
	return Verdict{OK: true}
}

var brandAliases = map[string][]string{
	"nvidia": {"nvidia", "geforce", "rtx", "gtx"},
	"amd":    {"amd", "radeon", "ryzen", "threadripper"},
	"intel":  {"intel", "core i", "core ultra", "arc a", "arc b", "xeon"},
}

var platformSockets = map[string][]string{
	"amd":   {"am4", "am5", "str"},
	"intel": {"lga"},
}

// MatchesBrand reports whether the record's brand, name or chipset names
// brand or one of its product lines.
func MatchesBrand(a parts.Attributes, brand string) bool {
	brand = strings.ToLower(strings.TrimSpace(brand))
	if brand == "" {
		return true
	}
	needles := brandAliases[brand]
	if len(needles) == 0 {
		needles = []string{brand}
	}
	for _, field := range []string{parts.KeyBrand, parts.KeyName, parts.KeyChipset} {
		v := a.String(field)
		for _, n := range needles {
			if parts.ContainsFold(v, n) {
				return true
			}
		}
	}
	return false
}

// SocketFitsBrand reports whether socket belongs to the brand's platforms.
// Unknown brands and sockets fit.
func SocketFitsBrand(socket, brand string) bool {
	prefixes := platformSockets[strings.ToLower(strings.TrimSpace(brand))]
	if len(prefixes) == 0 || socket == "" {
		return true
	}
	lower := strings.ToLower(socket)
	for _, p := range prefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

func checkBoardPlatform(a parts.Attributes, s Snapshot) (bool, string) {
	socket := a.String(parts.KeySocket)
	if SocketFitsBrand(socket, s.CPUBrand) {
		return true, ""
	}
	return false, fmt.Sprintf("socket %s is not a %s platform", socket, s.CPUBrand)
}

func checkCPUSocket(a parts.Attributes, s Snapshot) (bool, string) {
	if s.Socket == "" {
		return true, ""
	}
	socket, ok := a.Get(parts.KeySocket)
	if !ok {
		return false, "socket unknown"
	}
	if !SocketIn(socket, s.Socket) {
		return false, fmt.Sprintf("socket %s does not fit %s motherboard", socket, s.Socket)
	}
	return true, ""
}

// SocketIn reports whether socket appears in list with spacing, case and
// hyphens ignored, so "LGA 1700" matches "LGA1700".
func SocketIn(list, socket string) bool {
	want := parts.NormalizeToken(socket)
	return want != "" && strings.Contains(parts.NormalizeToken(list), want)
}

func checkCPUBrand(a parts.Attributes, s Snapshot) (bool, string) {
	if MatchesBrand(a, s.CPUBrand) {
		return true, ""
	}
	return false, fmt.Sprintf("not a %s CPU", s.CPUBrand)
}

func checkMemoryFormFactor(a parts.Attributes, _ Snapshot) (bool, string) {
	ff, ok := a.Get(parts.KeyFormFactor)
	if !ok {
		return false, "form factor unknown"
	}
	n := parts.NormalizeToken(ff)
	if strings.Contains(n, "sodimm") || !strings.Contains(n, "dimm") {
		return false, fmt.Sprintf("%s is not desktop memory", ff)
	}
	return true, ""
}

func checkDDRGeneration(a parts.Attributes, s Snapshot) (bool, string) {
	if s.MemoryType == "" {
		return true, ""
	}
	gen, ok := DDRFromAttributes(a, parts.KeyMemoryType, parts.KeySpeed, parts.KeyName)
	if !ok || gen == s.MemoryType {
		return true, ""
	}
	return false, fmt.Sprintf("%s does not fit %s motherboard", strings.ToUpper(gen), strings.ToUpper(s.MemoryType))
}

func checkGPUBrand(a parts.Attributes, s Snapshot) (bool, string) {
	if MatchesBrand(a, s.GPUBrand) {
		return true, ""
	}
	return false, fmt.Sprintf("not a %s graphics card", s.GPUBrand)
}

func checkGPULength(a parts.Attributes, s Snapshot) (bool, string) {
	if s.CaseMaxGPULength <= 0 {
		return true, ""
	}
	length, ok := a.Number(parts.KeyLength)
	if !ok || length <= s.CaseMaxGPULength {
		return true, ""
	}
	return false, fmt.Sprintf("%.0fmm card exceeds %.0fmm case clearance", length, s.CaseMaxGPULength)
}

func checkGPUPower(a parts.Attributes, s Snapshot) (bool, string) {
	if s.PSUWattage <= 0 {
		return true, ""
	}
	tdp, ok := a.Number(parts.KeyTDP)
	if !ok {
		return true, ""
	}
	available := s.PSUWattage - s.NonGPUDraw
	if tdp > available {
		return false, fmt.Sprintf("%.0fW card exceeds %.0fW left on the power supply", tdp, available)
	}
	return true, ""
}

func checkStorageCapacity(a parts.Attributes, s Snapshot) (bool, string) {
	if s.StorageCapacity.MinGB <= 0 {
		return true, ""
	}
	v, ok := a.Get(parts.KeyCapacity)
	if !ok {
		return true, ""
	}
	gb, ok := parts.ParseCapacityGB(v)
	if !ok || gb >= s.StorageCapacity.MinGB {
		return true, ""
	}
	return false, fmt.Sprintf("%s is below the %.0fGB minimum", v, s.StorageCapacity.MinGB)
}

// IsM2 reports whether a drive uses an M.2 slot.
func IsM2(a parts.Attributes) bool {
	ff := a.String(parts.KeyFormFactor)
	iface := a.String(parts.KeyInterface)
	return parts.ContainsFold(ff, "m.2") || parts.ContainsFold(iface, "m.2") || parts.ContainsFold(iface, "nvme")
}

func checkM2Slots(a parts.Attributes, s Snapshot) (bool, string) {
	if s.M2Slots == nil || *s.M2Slots > 0 || !IsM2(a) {
		return true, ""
	}
	return false, "motherboard has no M.2 slots"
}

func checkSATAPorts(a parts.Attributes, s Snapshot) (bool, string) {
	if s.SATAPorts == nil || *s.SATAPorts > 0 || IsM2(a) {
		return true, ""
	}
	if !parts.ContainsFold(a.String(parts.KeyInterface), "sata") {
		return true, ""
	}
	return false, "motherboard has no SATA ports"
}

func checkCaseFormFactor(a parts.Attributes, s Snapshot) (bool, string) {
	if s.FormFactor == "" {
		return true, ""
	}
	supported := a.List(parts.KeySupportedFormFactor)
	if len(supported) == 0 || parts.ContainsToken(supported, s.FormFactor) {
		return true, ""
	}
	return false, fmt.Sprintf("does not fit a %s motherboard", s.FormFactor)
}

func checkGPUClearance(a parts.Attributes, s Snapshot) (bool, string) {
	clearance, ok := a.Number(parts.KeyMaxGPULength)
	if !ok || clearance >= s.RequiredClearance {
		return true, ""
	}
	return false, fmt.Sprintf("%.0fmm GPU clearance is under the %.0fmm required", clearance, s.RequiredClearance)
}

func checkCoolerSocket(a parts.Attributes, s Snapshot) (bool, string) {
	if s.CPUSocket == "" {
		return true, ""
	}
	supported, ok := a.Get(parts.KeySupportedSockets)
	if !ok || SocketIn(supported, s.CPUSocket) {
		return true, ""
	}
	return false, fmt.Sprintf("does not support %s", s.CPUSocket)
}

func checkCoolerTDP(a parts.Attributes, s Snapshot) (bool, string) {
	if s.RequiredCoolerTDP <= 0 {
		return true, ""
	}
	rating, ok := a.Number(parts.KeyTDPRating)
	if !ok || rating >= s.RequiredCoolerTDP {
		return true, ""
	}
	return false, fmt.Sprintf("%.0fW rating is under the %.0fW required", rating, s.RequiredCoolerTDP)
}

func checkCoolerHeight(a parts.Attributes, s Snapshot) (bool, string) {
	height, ok := a.Number(parts.KeyHeight)
	if !ok || height <= s.MaxCoolerHeight {
		return true, ""
	}
	return false, fmt.Sprintf("%.0fmm tall, case allows %.0fmm", height, s.MaxCoolerHeight)
}

func checkPSUWattage(a parts.Attributes, s Snapshot) (bool, string) {
	wattage, ok := a.Number(parts.KeyWattage)
	if !ok || wattage >= s.EstimatedWattage {
		return true, ""
	}
	return false, fmt.Sprintf("%.0fW is under the %.0fW estimated draw", wattage, s.EstimatedWattage)
}

func checkPSUConnectors(a parts.Attributes, s Snapshot) (bool, string) {
	checks := []struct {
		key   string
		need  int
		label string
	}{
		{parts.KeyEPSConnectors, s.Connectors.EPS, "EPS"},
		{parts.KeyPCIeConnectors, s.Connectors.PCIe, "PCIe 8-pin"},
		{parts.Key12VHPWRConnectors, s.Connectors.HighPower, "12VHPWR"},
	}
	for _, c := range checks {
		if c.need == 0 {
			continue
		}
		have, ok := a.Int(c.key)
		if ok && have < c.need {
			return false, fmt.Sprintf("has %d %s connectors, needs %d", have, c.label, c.need)
		}
	}
	return true, ""
}
