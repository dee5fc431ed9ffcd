package parts

import (
	"math"
	"strconv"
	"strings"
)

// Documented attribute keys. Records may carry other keys; these are the
// ones the compatibility rules and scorers read.
const (
	KeyID                  = "ID"
	KeyName                = "Name"
	KeyPrice               = "Price"
	KeyImage               = "Image"
	KeyBrand               = "Brand"
	KeySocket              = "Socket"
	KeyFormFactor          = "Form Factor"
	KeyMemoryType          = "Memory Type"
	KeyChipset             = "Chipset"
	KeyCores               = "Cores"
	KeyThreads             = "Threads"
	KeyBaseClock           = "Base Clock"
	KeyBoostClock          = "Boost Clock"
	KeyL3Cache             = "L3 Cache"
	KeyTDP                 = "TDP"
	KeyIntegratedGraphics  = "Integrated Graphics"
	KeyCoolerIncluded      = "Cooler Included"
	KeySpeed               = "Speed"
	KeyCapacity            = "Capacity"
	KeyModules             = "Modules"
	KeyCASLatency          = "CAS Latency"
	KeyTimings             = "Timings"
	KeyHeatSpreader        = "Heat Spreader"
	KeyLength              = "Length"
	KeyMemory              = "Memory"
	KeyPowerConnectors     = "Power Connectors"
	KeyRecommendedPSU      = "Recommended PSU"
	KeyInterface           = "Interface"
	KeyType                = "Type"
	KeyReadSpeed           = "Read Speed"
	KeyWriteSpeed          = "Write Speed"
	KeySupportedFormFactor = "Supported Form Factors"
	KeyMaxGPULength        = "Max GPU Length"
	KeyWidth               = "Width"
	KeyHeight              = "Height"
	KeyDriveBays           = "Drive Bays"
	KeyFans                = "Fans"
	KeySupportedSockets    = "Supported Sockets"
	KeyTDPRating           = "TDP Rating"
	KeyNoiseLevel          = "Noise Level"
	KeyRadiatorSize        = "Radiator Size"
	KeyWattage             = "Wattage"
	KeyEfficiency          = "Efficiency"
	KeyModular             = "Modular"
	KeyEPSConnectors       = "EPS Connectors"
	KeyPCIeConnectors      = "PCIe Connectors"
	Key12VHPWRConnectors   = "12VHPWR Connectors"
	KeyM2Slots             = "M.2 Slots"
	KeySATAPorts           = "SATA Ports"
	KeyMemorySlots         = "Memory Slots"
	KeyMaxMemory           = "Max Memory"
	KeyMaxMemorySpeed      = "Max Memory Speed"
	KeyPCIeSlots           = "PCIe Slots"
)

// Attributes is the parsed form of one raw catalog record. A missing key
// means the value is unknown, never an error.
type Attributes map[string]string

// ParseRecord turns free text of "Key: Value" lines into Attributes. Each
// line is split on its first colon only, both sides are trimmed, and lines
// without a colon or with an empty key or value are skipped. The first
// occurrence of a repeated key wins.
func ParseRecord(text string) Attributes {
	attrs := make(Attributes)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		line = strings.TrimPrefix(line, "- ")
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		if _, dup := attrs[key]; dup {
			continue
		}
		attrs[key] = value
	}
	return attrs
}

// Get returns the value for key. An exact match wins; otherwise keys are
// compared case-insensitively.
func (a Attributes) Get(key string) (string, bool) {
	if v, ok := a[key]; ok {
		return v, true
	}
	for k, v := range a {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

// Lookup returns the value of the first key present.
func (a Attributes) Lookup(keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := a.Get(k); ok {
			return v, true
		}
	}
	return "", false
}

// String returns the value for the first present key or "".
func (a Attributes) String(keys ...string) string {
	v, _ := a.Lookup(keys...)
	return v
}

// Number returns the first number found in the value of the first present
// key. "3200 MT/s" yields 3200 and "4.7 GHz" yields 4.7.
func (a Attributes) Number(keys ...string) (float64, bool) {
	v, ok := a.Lookup(keys...)
	if !ok {
		return 0, false
	}
	return FirstNumber(v)
}

// Int is Number truncated to an int.
func (a Attributes) Int(keys ...string) (int, bool) {
	n, ok := a.Number(keys...)
	if !ok {
		return 0, false
	}
	return int(n), true
}

// Bool interprets yes/no style values. Unknown spellings report ok=false.
func (a Attributes) Bool(keys ...string) (value, ok bool) {
	v, found := a.Lookup(keys...)
	if !found {
		return false, false
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "true", "y", "1", "included", "full":
		return true, true
	case "no", "false", "n", "0", "none", "not included":
		return false, true
	}
	return false, false
}

// List splits the value of the first present key on commas, slashes and
// semicolons, dropping empty entries.
func (a Attributes) List(keys ...string) []string {
	v, ok := a.Lookup(keys...)
	if !ok {
		return nil
	}
	return SplitList(v)
}

// Name returns the part name.
func (a Attributes) Name() (string, bool) {
	return a.Get(KeyName)
}

// Price returns the coerced price. Currency symbols, thousands separators
// and whitespace are stripped; NaN, infinities and non-positive values are
// reported as not ok.
func (a Attributes) Price() (float64, bool) {
	v, ok := a.Get(KeyPrice)
	if !ok {
		return 0, false
	}
	return ParsePrice(v)
}

// ParsePrice coerces a display price such as "$1,299.99" to a float. Only
// the first number counts, so "$149.99 (was $199.99)" reads as 149.99. A
// minus sign directly before it makes the price invalid.
func ParsePrice(s string) (float64, bool) {
	s = strings.ReplaceAll(s, ",", "")
	loc := numberPattern.FindStringIndex(s)
	if loc == nil {
		return 0, false
	}
	if loc[0] > 0 && s[loc[0]-1] == '-' {
		return 0, false
	}
	p, err := strconv.ParseFloat(s[loc[0]:loc[1]], 64)
	if err != nil || math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
		return 0, false
	}
	return p, true
}

// Clone returns an independent copy.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}
