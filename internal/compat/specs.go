package compat

import (
	"strconv"
	"strings"

	"github.com/oxbowmantella/frameforge/pkg/parts"
)

// Normalized specification keys stored on selected components.
const (
	SpecBrand                = "brand"
	SpecSocket               = "socket"
	SpecFormFactor           = "formFactor"
	SpecMemoryType           = "memoryType"
	SpecChipset              = "chipset"
	SpecM2Slots              = "m2Slots"
	SpecSATAPorts            = "sataPorts"
	SpecMemorySlots          = "memorySlots"
	SpecMaxMemorySpeed       = "maxMemorySpeed"
	SpecCores                = "cores"
	SpecBoostClock           = "boostClock"
	SpecTDP                  = "tdp"
	SpecCoolerIncluded       = "coolerIncluded"
	SpecIntegratedGraphics   = "integratedGraphics"
	SpecSpeed                = "speed"
	SpecCapacity             = "capacity"
	SpecMemoryModules        = "memoryModules"
	SpecLength               = "length"
	SpecPowerConnectors      = "powerConnectors"
	SpecInterface            = "interface"
	SpecMaxGPULength         = "maxGpuLength"
	SpecWidth                = "width"
	SpecSupportedFormFactors = "supportedFormFactors"
	SpecCoolerType           = "coolerType"
	SpecHeight               = "height"
	SpecTDPRating            = "tdpRating"
	SpecWattage              = "wattage"
	SpecEfficiency           = "efficiency"
	SpecModular              = "modular"
	SpecSupportedSockets     = "supportedSockets"
)

// Specifications reduces a raw record to the normalized keys later rules
// read from the build. Absent attributes are omitted.
func Specifications(c parts.Category, a parts.Attributes) map[string]string {
	out := make(map[string]string)
	setString(out, SpecBrand, a.String(parts.KeyBrand))

	switch c {
	case parts.CategoryMotherboard:
		setString(out, SpecSocket, a.String(parts.KeySocket))
		setString(out, SpecFormFactor, a.String(parts.KeyFormFactor))
		setString(out, SpecChipset, a.String(parts.KeyChipset))
		if gen, ok := DDRFromAttributes(a, parts.KeyMemoryType); ok {
			out[SpecMemoryType] = gen
		}
		setNumber(out, SpecM2Slots, a, parts.KeyM2Slots)
		setNumber(out, SpecSATAPorts, a, parts.KeySATAPorts)
		setNumber(out, SpecMemorySlots, a, parts.KeyMemorySlots)
		if v, ok := a.Lookup(parts.KeyMaxMemorySpeed); ok {
			if n, ok := parts.LargestNumber(v); ok {
				out[SpecMaxMemorySpeed] = formatNumber(n)
			}
		}
	case parts.CategoryCPU:
		setString(out, SpecSocket, a.String(parts.KeySocket))
		setNumber(out, SpecTDP, a, parts.KeyTDP)
		setNumber(out, SpecCores, a, parts.KeyCores)
		if v, ok := a.Lookup(parts.KeyBoostClock); ok {
			if ghz, ok := parts.ParseClockGHz(v); ok {
				out[SpecBoostClock] = formatNumber(ghz)
			}
		}
		setBool(out, SpecCoolerIncluded, a, parts.KeyCoolerIncluded)
		if v, ok := a.Bool(parts.KeyIntegratedGraphics); ok {
			out[SpecIntegratedGraphics] = strconv.FormatBool(v)
		} else if a.String(parts.KeyIntegratedGraphics) != "" {
			// A named iGPU such as "Radeon Graphics".
			out[SpecIntegratedGraphics] = "true"
		}
	case parts.CategoryMemory:
		if gen, ok := DDRFromAttributes(a, parts.KeyMemoryType, parts.KeySpeed, parts.KeyName); ok {
			out[SpecMemoryType] = gen
		}
		setString(out, SpecFormFactor, a.String(parts.KeyFormFactor))
		if v, ok := a.Lookup(parts.KeySpeed); ok {
			if n, ok := parts.LargestNumber(v); ok {
				out[SpecSpeed] = formatNumber(n)
			}
		}
		if v, ok := a.Lookup(parts.KeyCapacity); ok {
			if gb, ok := parts.ParseCapacityGB(v); ok {
				out[SpecCapacity] = formatNumber(gb)
			}
		}
		setNumber(out, SpecMemoryModules, a, parts.KeyModules)
	case parts.CategoryGPU:
		setNumber(out, SpecLength, a, parts.KeyLength)
		setNumber(out, SpecTDP, a, parts.KeyTDP)
		setString(out, SpecPowerConnectors, a.String(parts.KeyPowerConnectors))
	case parts.CategoryStorage:
		if v, ok := a.Lookup(parts.KeyCapacity); ok {
			if gb, ok := parts.ParseCapacityGB(v); ok {
				out[SpecCapacity] = formatNumber(gb)
			}
		}
		setString(out, SpecInterface, a.String(parts.KeyInterface))
		setString(out, SpecFormFactor, a.String(parts.KeyFormFactor))
	case parts.CategoryCase:
		setNumber(out, SpecMaxGPULength, a, parts.KeyMaxGPULength)
		setNumber(out, SpecWidth, a, parts.KeyWidth)
		setString(out, SpecSupportedFormFactors, a.String(parts.KeySupportedFormFactor))
		setString(out, SpecFormFactor, a.String(parts.KeyFormFactor))
	case parts.CategoryCooler:
		setString(out, SpecCoolerType, a.String(parts.KeyType))
		setNumber(out, SpecHeight, a, parts.KeyHeight)
		setNumber(out, SpecTDPRating, a, parts.KeyTDPRating)
		setString(out, SpecSupportedSockets, a.String(parts.KeySupportedSockets))
	case parts.CategoryPSU:
		setNumber(out, SpecWattage, a, parts.KeyWattage)
		setString(out, SpecEfficiency, a.String(parts.KeyEfficiency))
		setString(out, SpecModular, a.String(parts.KeyModular))
	}
	return out
}

// DDRFromAttributes finds the DDR generation in the first key that names one.
func DDRFromAttributes(a parts.Attributes, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := a.Get(k); ok {
			if gen, ok := parts.DDRGeneration(v); ok {
				return gen, true
			}
		}
	}
	return "", false
}

func setString(out map[string]string, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		out[key] = value
	}
}

func setNumber(out map[string]string, key string, a parts.Attributes, attr string) {
	if n, ok := a.Number(attr); ok {
		out[key] = formatNumber(n)
	}
}

func setBool(out map[string]string, key string, a parts.Attributes, attr string) {
	if v, ok := a.Bool(attr); ok {
		out[key] = strconv.FormatBool(v)
	}
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// specNumber reads a numeric normalized spec.
func specNumber(specs map[string]string, key string) (float64, bool) {
	v, ok := specs[key]
	if !ok || v == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return parts.FirstNumber(v)
	}
	return n, true
}
