package testutil

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/oxbowmantella/frameforge/pkg/models"
	"github.com/oxbowmantella/frameforge/pkg/parts"
)

// NewComponent returns a selected part with sensible defaults for c.
// Override individual fields with options.
func NewComponent(c parts.Category, opts ...func(*models.Component)) models.Component {
	comp := models.Component{
		ID:             uuid.New().String(),
		Name:           "Test " + c.Label(),
		Price:          100,
		Type:           c,
		Specifications: map[string]string{},
	}
	for _, opt := range opts {
		opt(&comp)
	}
	return comp
}

// WithID sets the component id.
func WithID(id string) func(*models.Component) {
	return func(c *models.Component) { c.ID = id }
}

// WithName sets the component name.
func WithName(name string) func(*models.Component) {
	return func(c *models.Component) { c.Name = name }
}

// WithPrice sets the component price.
func WithPrice(p float64) func(*models.Component) {
	return func(c *models.Component) { c.Price = p }
}

// WithSpec sets one normalized specification.
func WithSpec(key, value string) func(*models.Component) {
	return func(c *models.Component) {
		if c.Specifications == nil {
			c.Specifications = map[string]string{}
		}
		c.Specifications[key] = value
	}
}

// NewBuild returns a build with a budget and the given selections.
func NewBuild(budget float64, comps ...models.Component) models.Build {
	b := models.NewBuild(uuid.New().String())
	b.Budget = budget
	b.CreatedAt = Epoch
	b.UpdatedAt = b.CreatedAt
	for i := range comps {
		c := comps[i]
		b.Components[c.Type] = &c
	}
	return b
}

// RecordText renders attributes in the "Key: Value" line format the parser
// reads. Name and Price come first; the rest are sorted for stable output.
func RecordText(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		if k == parts.KeyName || k == parts.KeyPrice {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range []string{parts.KeyName, parts.KeyPrice} {
		if v, ok := attrs[k]; ok {
			fmt.Fprintf(&sb, "%s: %s\n", k, v)
		}
	}
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s: %s\n", k, attrs[k])
	}
	return sb.String()
}
