package models

import (
	"time"

	"github.com/oxbowmantella/frameforge/pkg/parts"
)

// BuildSchemaVersion is the current shape of a persisted Build. Older
// documents are upgraded on load.
const BuildSchemaVersion = 2

// Component is a part the user has selected for one category.
type Component struct {
	ID             string            `json:"id" validate:"required"`
	Name           string            `json:"name" validate:"required"`
	Price          float64           `json:"price" validate:"gt=0"`
	Image          string            `json:"image,omitempty"`
	Type           parts.Category    `json:"type"`
	Specifications map[string]string `json:"specifications,omitempty"`
}

// Spec returns a normalized specification value.
func (c *Component) Spec(key string) (string, bool) {
	if c == nil || c.Specifications == nil {
		return "", false
	}
	v, ok := c.Specifications[key]
	return v, ok && v != ""
}

// Preferences holds the user's brand and feature preferences.
type Preferences struct {
	CPUBrand              string `json:"cpuBrand,omitempty"`
	GPUBrand              string `json:"gpuBrand,omitempty"`
	HasCPUCooler          bool   `json:"hasCpuCooler"`
	HasIntegratedGraphics bool   `json:"hasIntegratedGraphics"`
}

// Build is one user's in-progress configuration. The running total is
// never stored; TotalSpent derives it from the selected components.
type Build struct {
	SchemaVersion int                           `json:"schemaVersion"`
	ID            string                        `json:"id"`
	Budget        float64                       `json:"budget"`
	SelectedType  string                        `json:"selectedType,omitempty"`
	Components    map[parts.Category]*Component `json:"components"`
	Preferences   Preferences                   `json:"preferences"`
	CreatedAt     time.Time                     `json:"createdAt"`
	UpdatedAt     time.Time                     `json:"updatedAt"`
}

// NewBuild returns an empty build with the given id.
func NewBuild(id string) Build {
	return Build{
		SchemaVersion: BuildSchemaVersion,
		ID:            id,
		Components:    make(map[parts.Category]*Component),
	}
}

// TotalSpent sums the prices of every selected component.
func (b Build) TotalSpent() float64 {
	var total float64
	for _, c := range parts.Categories() {
		if comp := b.Components[c]; comp != nil {
			total += comp.Price
		}
	}
	return total
}

// Remaining is the budget left after TotalSpent. It may be negative.
func (b Build) Remaining() float64 {
	return b.Budget - b.TotalSpent()
}

// Component returns the selection for c, if any.
func (b Build) Component(c parts.Category) (*Component, bool) {
	comp := b.Components[c]
	return comp, comp != nil
}

// Has reports whether c has a selection.
func (b Build) Has(c parts.Category) bool {
	return b.Components[c] != nil
}

// Missing lists unfilled categories in wizard order.
func (b Build) Missing() []parts.Category {
	var out []parts.Category
	for _, c := range parts.Categories() {
		if !b.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Clone returns a deep copy so reducers never share component maps.
func (b Build) Clone() Build {
	out := b
	out.Components = make(map[parts.Category]*Component, len(b.Components))
	for c, comp := range b.Components {
		if comp == nil {
			continue
		}
		cp := *comp
		if comp.Specifications != nil {
			cp.Specifications = make(map[string]string, len(comp.Specifications))
			for k, v := range comp.Specifications {
				cp.Specifications[k] = v
			}
		}
		out.Components[c] = &cp
	}
	return out
}

// BuildView is the JSON shape returned to clients, carrying the derived
// totals alongside the stored state.
type BuildView struct {
	Build
	TotalSpent float64                 `json:"totalSpent"`
	Remaining  float64                 `json:"remaining"`
	Filled     map[parts.Category]bool `json:"filled"`
}

// View computes the derived fields.
func (b Build) View() BuildView {
	filled := make(map[parts.Category]bool, 8)
	for _, c := range parts.Categories() {
		filled[c] = b.Has(c)
	}
	return BuildView{
		Build:      b,
		TotalSpent: b.TotalSpent(),
		Remaining:  b.Remaining(),
		Filled:     filled,
	}
}
