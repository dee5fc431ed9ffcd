package parts

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)
	ddrPattern    = regexp.MustCompile(`(?i)ddr([0-9])`)
	kitPattern    = regexp.MustCompile(`(?i)(\d+)\s*[x×]\s*(\d+(?:\.\d+)?)\s*(gb|tb)`)
)

// formFactorAliases folds common spellings of the same board form factor.
var formFactorAliases = map[string]string{
	"matx":        "microatx",
	"uatx":        "microatx",
	"microatx":    "microatx",
	"mitx":        "miniitx",
	"miniitx":     "miniitx",
	"eatx":        "eatx",
	"extendedatx": "eatx",
}

// FirstNumber extracts the first decimal number in s. Thousands separators
// are removed first so "1,000W" reads as 1000.
func FirstNumber(s string) (float64, bool) {
	m := numberPattern.FindString(strings.ReplaceAll(s, ",", ""))
	if m == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// LargestNumber returns the largest number in s, so "DDR5-6000 CL30"
// reads as 6000.
func LargestNumber(s string) (float64, bool) {
	var best float64
	found := false
	for _, m := range numberPattern.FindAllString(strings.ReplaceAll(s, ",", ""), -1) {
		n, err := strconv.ParseFloat(m, 64)
		if err != nil {
			continue
		}
		if !found || n > best {
			best, found = n, true
		}
	}
	return best, found
}

// SplitList splits on commas, slashes and semicolons and trims entries.
func SplitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '/' || r == ';' || r == '|'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// ContainsFold reports whether substr occurs in s ignoring case. An empty
// substr never matches.
func ContainsFold(s, substr string) bool {
	if substr == "" {
		return false
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// NormalizeToken lowercases t and drops spaces, hyphens and underscores so
// "Micro-ATX", "micro atx" and "MicroATX" compare equal. Known form factor
// abbreviations are folded to one spelling.
func NormalizeToken(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	t = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(t)
	if alias, ok := formFactorAliases[t]; ok {
		return alias
	}
	return t
}

// ContainsToken reports whether list has an entry equal to token after
// normalization. Matching is exact per entry: "ATX" does not match
// "Micro-ATX".
func ContainsToken(list []string, token string) bool {
	want := NormalizeToken(token)
	if want == "" {
		return false
	}
	for _, entry := range list {
		if NormalizeToken(entry) == want {
			return true
		}
	}
	return false
}

// DDRGeneration returns the "ddrN" generation named anywhere in s, lowercased.
func DDRGeneration(s string) (string, bool) {
	m := ddrPattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return "ddr" + m[1], true
}

// ParseCapacityGB reads sizes like "2TB", "512 GB" or "1.5 TB" into
// gigabytes (1TB = 1000GB). Kits written "2 x 16GB" are multiplied out.
func ParseCapacityGB(s string) (float64, bool) {
	if m := kitPattern.FindStringSubmatch(s); m != nil {
		count, _ := strconv.ParseFloat(m[1], 64)
		size, _ := strconv.ParseFloat(m[2], 64)
		if total := count * size; total > 0 {
			if strings.EqualFold(m[3], "tb") {
				total *= 1000
			}
			return total, true
		}
	}
	n, ok := FirstNumber(s)
	if !ok || n <= 0 {
		return 0, false
	}
	if strings.Contains(strings.ToLower(s), "tb") {
		return n * 1000, true
	}
	return n, true
}

// ParseClockGHz reads clock speeds in GHz or MHz and returns GHz.
func ParseClockGHz(s string) (float64, bool) {
	n, ok := FirstNumber(s)
	if !ok || n <= 0 {
		return 0, false
	}
	if strings.Contains(strings.ToLower(s), "mhz") || n > 100 {
		return n / 1000, true
	}
	return n, true
}
