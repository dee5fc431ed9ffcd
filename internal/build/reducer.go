// Package build owns build sessions: a pure reducer over models.Build, its
// SQLite persistence, the service that serializes mutations per session,
// and the HTTP handler under /api/v1/builds.
package build

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/oxbowmantella/frameforge/internal/compat"
	"github.com/oxbowmantella/frameforge/pkg/models"
	"github.com/oxbowmantella/frameforge/pkg/parts"
)

// Action names, also used as metric labels.
const (
	ActionSetBudget       = "set_budget"
	ActionSelectComponent = "select_component"
	ActionClearComponent  = "clear_component"
	ActionSetPreferences  = "set_preferences"
	ActionReset           = "reset"
)

// ErrInvalidBudget is returned for negative or non-finite budgets.
var ErrInvalidBudget = errors.New("budget must be a finite number of at least zero")

// InvalidComponentError rejects a selection that cannot be stored.
type InvalidComponentError struct {
	Reason string
}

func (e *InvalidComponentError) Error() string { return "invalid component: " + e.Reason }

// Action is one mutation of a build.
type Action interface {
	Name() string
}

// SetBudget replaces the total budget. Selected parts are kept.
type SetBudget struct{ Amount float64 }

// SelectComponent stores a part for its category. Selecting the part that
// is already chosen removes it.
type SelectComponent struct{ Component models.Component }

// ClearComponent removes the part for a category.
type ClearComponent struct{ Category parts.Category }

// SetPreferences replaces brand and feature preferences.
type SetPreferences struct{ Preferences models.Preferences }

// Reset empties the build, keeping its id and creation time.
type Reset struct{}

func (SetBudget) Name() string       { return ActionSetBudget }
func (SelectComponent) Name() string { return ActionSelectComponent }
func (ClearComponent) Name() string  { return ActionClearComponent }
func (SetPreferences) Name() string  { return ActionSetPreferences }
func (Reset) Name() string           { return ActionReset }

// Change describes what an applied action did.
type Change struct {
	Action   string         `json:"action"`
	Category parts.Category `json:"category,omitempty"`
	Removed  bool           `json:"removed,omitempty"`
}

// Reduce applies a to b and returns the new build. b is never modified.
func Reduce(b models.Build, a Action, now time.Time) (models.Build, Change, error) {
	next := b.Clone()
	if next.Components == nil {
		next.Components = make(map[parts.Category]*models.Component)
	}
	change := Change{Action: a.Name()}

	switch a := a.(type) {
	case SetBudget:
		if a.Amount < 0 || math.IsNaN(a.Amount) || math.IsInf(a.Amount, 0) {
			return b, change, ErrInvalidBudget
		}
		next.Budget = a.Amount

	case SelectComponent:
		comp := a.Component
		if err := checkComponent(comp); err != nil {
			return b, change, err
		}
		change.Category = comp.Type
		next.SelectedType = string(comp.Type)
		if cur, ok := next.Component(comp.Type); ok && cur.ID == comp.ID {
			delete(next.Components, comp.Type)
			change.Removed = true
			if comp.Type == parts.CategoryCPU {
				clearCPUFlags(&next)
			}
			break
		}
		stored := cloneComponent(comp)
		next.Components[comp.Type] = &stored
		if comp.Type == parts.CategoryCPU {
			applyCPUFlags(&next, stored)
		}

	case ClearComponent:
		if !a.Category.Valid() {
			return b, change, &InvalidComponentError{Reason: fmt.Sprintf("unknown category %q", a.Category)}
		}
		change.Category = a.Category
		next.SelectedType = string(a.Category)
		if next.Has(a.Category) {
			delete(next.Components, a.Category)
			change.Removed = true
			if a.Category == parts.CategoryCPU {
				clearCPUFlags(&next)
			}
		}

	case SetPreferences:
		next.Preferences = a.Preferences

	case Reset:
		fresh := models.NewBuild(b.ID)
		fresh.CreatedAt = b.CreatedAt
		next = fresh

	default:
		return b, change, fmt.Errorf("unknown build action %T", a)
	}

	next.SchemaVersion = models.BuildSchemaVersion
	next.UpdatedAt = now
	return next, change, nil
}

func checkComponent(c models.Component) error {
	switch {
	case !c.Type.Valid():
		return &InvalidComponentError{Reason: fmt.Sprintf("unknown category %q", c.Type)}
	case c.ID == "":
		return &InvalidComponentError{Reason: "id is required"}
	case c.Name == "":
		return &InvalidComponentError{Reason: "name is required"}
	case !(c.Price > 0) || math.IsInf(c.Price, 0):
		return &InvalidComponentError{Reason: "price must be a positive number"}
	}
	return nil
}

func cloneComponent(c models.Component) models.Component {
	out := c
	if c.Specifications != nil {
		out.Specifications = make(map[string]string, len(c.Specifications))
		for k, v := range c.Specifications {
			out.Specifications[k] = v
		}
	}
	return out
}

// applyCPUFlags copies what the chosen CPU implies into the preferences.
func applyCPUFlags(b *models.Build, cpu models.Component) {
	v, _ := cpu.Spec(compat.SpecCoolerIncluded)
	b.Preferences.HasCPUCooler = v == "true"
	v, _ = cpu.Spec(compat.SpecIntegratedGraphics)
	b.Preferences.HasIntegratedGraphics = v == "true"
	if b.Preferences.CPUBrand == "" {
		if brand, ok := cpu.Spec(compat.SpecBrand); ok {
			b.Preferences.CPUBrand = brand
		}
	}
}

func clearCPUFlags(b *models.Build) {
	b.Preferences.HasCPUCooler = false
	b.Preferences.HasIntegratedGraphics = false
}
