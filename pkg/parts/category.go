// Package parts defines the part categories of the build wizard, the parser
// that turns raw catalog records into attribute bags, and the token helpers
// every compatibility rule uses to read those bags.
package parts

import (
	"fmt"
	"strings"
)

// Category identifies one of the eight component kinds in the build wizard.
type Category string

const (
	CategoryMotherboard Category = "motherboard"
	CategoryCPU         Category = "cpu"
	CategoryMemory      Category = "memory"
	CategoryGPU         Category = "gpu"
	CategoryStorage     Category = "storage"
	CategoryCase        Category = "case"
	CategoryCooler      Category = "cooler"
	CategoryPSU         Category = "psu"
)

// wizardOrder is the order in which the wizard visits categories.
var wizardOrder = []Category{
	CategoryMotherboard,
	CategoryCPU,
	CategoryMemory,
	CategoryGPU,
	CategoryStorage,
	CategoryCase,
	CategoryCooler,
	CategoryPSU,
}

// Categories returns every category in wizard order.
func Categories() []Category {
	out := make([]Category, len(wizardOrder))
	copy(out, wizardOrder)
	return out
}

// ParseCategory validates s (case-insensitive) and returns the Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c.Valid() {
		return c, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Valid reports whether c is one of the eight wizard categories.
func (c Category) Valid() bool {
	for _, k := range wizardOrder {
		if k == c {
			return true
		}
	}
	return false
}

// Label returns the human-readable name used in messages.
func (c Category) Label() string {
	switch c {
	case CategoryCPU:
		return "CPU"
	case CategoryGPU:
		return "graphics card"
	case CategoryPSU:
		return "power supply"
	case CategoryCooler:
		return "CPU cooler"
	default:
		return string(c)
	}
}

func (c Category) String() string { return string(c) }
