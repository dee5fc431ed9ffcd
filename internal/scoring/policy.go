package scoring

import "github.com/oxbowmantella/frameforge/pkg/parts"

// Policy decides which ranked parts get the recommended badge. Exactly one
// of TopN or MinScore is set per category.
type Policy struct {
	TopN     int     `json:"topN,omitempty"`
	MinScore float64 `json:"minScore,omitempty"`
}

var policies = map[parts.Category]Policy{
	parts.CategoryMotherboard: {TopN: 3},
	parts.CategoryCPU:         {TopN: 3},
	parts.CategoryMemory:      {MinScore: 80},
	parts.CategoryGPU:         {MinScore: 70},
	parts.CategoryStorage:     {TopN: 5},
	parts.CategoryCase:        {TopN: 3},
	parts.CategoryCooler:      {MinScore: 70},
	parts.CategoryPSU:         {MinScore: 80},
}

// PolicyFor returns the badge policy for c.
func PolicyFor(c parts.Category) Policy {
	return policies[c]
}

// Recommended reports whether the part at zero-based rank with score earns
// the badge.
func (p Policy) Recommended(rank int, score float64) bool {
	if p.TopN > 0 {
		return rank < p.TopN
	}
	return p.MinScore > 0 && score >= p.MinScore
}
