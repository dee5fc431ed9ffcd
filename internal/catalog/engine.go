// Package catalog runs the per-category recommendation pipeline: it turns a
// build and a category into a search query, then parses, filters, scores,
// annotates and pages the records the search collaborator returns.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oxbowmantella/frameforge/internal/budget"
	"github.com/oxbowmantella/frameforge/internal/compat"
	"github.com/oxbowmantella/frameforge/internal/metrics"
	"github.com/oxbowmantella/frameforge/internal/scoring"
	"github.com/oxbowmantella/frameforge/internal/search"
	"github.com/oxbowmantella/frameforge/pkg/models"
	"github.com/oxbowmantella/frameforge/pkg/parts"
)

// Paging and retrieval defaults.
const (
	DefaultItemsPerPage = 10
	MaxItemsPerPage     = 100
	DefaultCandidates   = 100
	DefaultTimeout      = 10 * time.Second
)

// Rejection tally keys that are not compatibility rule names.
const (
	RejectInvalidRecord = "invalid-record"
	RejectDuplicate     = "duplicate"
	RejectPriceBand     = "price-band"
)

// partNamespace seeds deterministic ids for records that carry none.
var partNamespace = uuid.MustParse("6f1c3d2e-8a4b-5c7d-9e0f-1a2b3c4d5e6f")

// upstream lists what must be chosen before a category can be queried.
var upstream = map[parts.Category]parts.Category{
	parts.CategoryCPU:     parts.CategoryMotherboard,
	parts.CategoryMemory:  parts.CategoryMotherboard,
	parts.CategoryStorage: parts.CategoryMotherboard,
	parts.CategoryCase:    parts.CategoryMotherboard,
	parts.CategoryCooler:  parts.CategoryCPU,
	parts.CategoryPSU:     parts.CategoryCPU,
}

// EngineConfig tunes retrieval.
type EngineConfig struct {
	Candidates int           `mapstructure:"candidates"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

func (c *EngineConfig) applyDefaults() {
	if c.Candidates <= 0 {
		c.Candidates = DefaultCandidates
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
}

// Query is one recommendation request.
type Query struct {
	Category     parts.Category
	Build        models.Build
	Page         int
	ItemsPerPage int
	SearchTerm   string
	UseRemaining bool
	Strict       bool
}

// RankedPart is one scored candidate.
type RankedPart struct {
	ID             string            `json:"id"`
	Category       parts.Category    `json:"category"`
	Name           string            `json:"name"`
	Price          float64           `json:"price"`
	Image          string            `json:"image,omitempty"`
	Brand          string            `json:"brand,omitempty"`
	Score          float64           `json:"score"`
	Recommended    bool              `json:"recommended"`
	Reasons        []string          `json:"reasons"`
	Specifications map[string]string `json:"specifications"`
	Attributes     parts.Attributes  `json:"attributes"`
}

// Component converts p into the selection stored on a build.
func (p RankedPart) Component() models.Component {
	specs := make(map[string]string, len(p.Specifications))
	for k, v := range p.Specifications {
		specs[k] = v
	}
	return models.Component{
		ID:             p.ID,
		Name:           p.Name,
		Price:          p.Price,
		Image:          p.Image,
		Type:           p.Category,
		Specifications: specs,
	}
}

// Result is one page of ranked candidates.
type Result struct {
	Items          []RankedPart `json:"items"`
	TotalCount     int          `json:"totalCount"`
	Page           int          `json:"page"`
	ItemsPerPage   int          `json:"itemsPerPage"`
	TotalPages     int          `json:"totalPages"`
	SearchCriteria Criteria     `json:"searchCriteria"`
}

// Engine runs recommendation queries against a search collaborator.
type Engine struct {
	searcher search.Searcher
	cfg      EngineConfig
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewEngine creates an engine. logger and m may be nil.
func NewEngine(s search.Searcher, cfg EngineConfig, logger *zap.Logger, m *metrics.Metrics) *Engine {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{searcher: s, cfg: cfg, logger: logger, metrics: m}
}

// Recommend runs the full pipeline for q.
func (e *Engine) Recommend(ctx context.Context, q Query) (*Result, error) {
	res, err := e.recommend(ctx, q)
	e.metrics.Recommendation(string(q.Category), outcome(err))
	return res, err
}

func (e *Engine) recommend(ctx context.Context, q Query) (*Result, error) {
	if err := normalize(&q); err != nil {
		return nil, err
	}

	snap := compat.Derive(q.Build)
	band := budget.For(q.Category, q.Build.Budget, budget.Options{
		UseRemaining:    q.UseRemaining,
		Strict:          q.Strict,
		RequiredWattage: psuRequirement(q.Category, snap),
		CriticalCooling: snap.CriticalCooling(),
	})
	text := queryText(q.Category, snap, band, q.SearchTerm)
	criteria := newCriteria(q.Category, band, snap, text)

	if !budget.Valid(q.Build.Budget) {
		return nil, &NoMatchError{
			Category: q.Category,
			Reason:   "budget must be greater than zero",
			Criteria: criteria,
		}
	}

	records, err := e.search(ctx, text)
	if err != nil {
		return nil, &SearchError{Err: err}
	}
	e.metrics.Candidates(string(q.Category), "retrieved", len(records))

	ranked, rejections := e.rank(q.Category, records, snap, band)
	for rule, n := range rejections {
		e.metrics.Rejection(string(q.Category), rule, n)
	}
	e.metrics.Candidates(string(q.Category), "compatible", len(ranked))

	e.logger.Debug("recommendation pipeline",
		zap.String("category", string(q.Category)),
		zap.String("query", text),
		zap.Int("retrieved", len(records)),
		zap.Int("ranked", len(ranked)),
		zap.Any("rejections", rejections),
	)

	if len(ranked) == 0 {
		reason := "no candidates returned by search"
		if len(records) > 0 {
			reason = fmt.Sprintf("all %d candidates were filtered out", len(records))
		}
		return nil, &NoMatchError{
			Category:   q.Category,
			Reason:     reason,
			Criteria:   criteria,
			Rejections: rejections,
		}
	}

	policy := scoring.PolicyFor(q.Category)
	for i := range ranked {
		ranked[i].Recommended = policy.Recommended(i, ranked[i].Score)
	}

	page := Paginate(ranked, q.Page, q.ItemsPerPage)
	e.metrics.Candidates(string(q.Category), "returned", len(page.Items))
	return &Result{
		Items:          page.Items,
		TotalCount:     page.TotalCount,
		Page:           page.Page,
		ItemsPerPage:   page.PerPage,
		TotalPages:     page.TotalPages,
		SearchCriteria: criteria,
	}, nil
}

// normalize validates q and fills paging defaults.
func normalize(q *Query) error {
	if !q.Category.Valid() {
		return &InputError{Field: "category", Message: fmt.Sprintf("unknown category %q", q.Category)}
	}
	switch {
	case q.Page == 0:
		q.Page = 1
	case q.Page < 0:
		return &InputError{Field: "page", Message: "must be at least 1"}
	}
	switch {
	case q.ItemsPerPage == 0:
		q.ItemsPerPage = DefaultItemsPerPage
	case q.ItemsPerPage < 0 || q.ItemsPerPage > MaxItemsPerPage:
		return &InputError{Field: "itemsPerPage", Message: fmt.Sprintf("must be between 1 and %d", MaxItemsPerPage)}
	}
	q.SearchTerm = strings.TrimSpace(q.SearchTerm)

	if need, ok := upstream[q.Category]; ok && !q.Build.Has(need) {
		return &InputError{
			Field:   string(need),
			Message: fmt.Sprintf("select a %s before choosing a %s", need.Label(), q.Category.Label()),
		}
	}
	if q.Category == parts.CategoryGPU && q.Build.Preferences.GPUBrand == "" {
		return &InputError{Field: "gpuBrand", Message: "choose a GPU brand preference first"}
	}
	return nil
}

func psuRequirement(c parts.Category, s compat.Snapshot) float64 {
	if c != parts.CategoryPSU {
		return 0
	}
	return s.EstimatedWattage
}

func (e *Engine) search(ctx context.Context, text string) ([]search.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	start := time.Now()
	records, err := e.searcher.Search(ctx, text, e.cfg.Candidates)
	e.metrics.Search(time.Since(start), err)
	if err != nil {
		e.logger.Warn("search collaborator failed", zap.String("query", text), zap.Error(err))
	}
	return records, err
}

// rank parses, filters, scores and sorts records. The rejection tally is
// keyed by rule name.
func (e *Engine) rank(c parts.Category, records []search.Record, snap compat.Snapshot, band budget.Band) ([]RankedPart, map[string]int) {
	rejections := make(map[string]int)
	seen := make(map[string]bool, len(records))
	ranked := make([]RankedPart, 0, len(records))

	for _, rec := range records {
		attrs := parts.ParseRecord(rec.RawText)
		name, okName := attrs.Name()
		price, okPrice := attrs.Price()
		if !okName || !okPrice {
			rejections[RejectInvalidRecord]++
			continue
		}

		id := partID(c, attrs, name)
		if seen[id] {
			rejections[RejectDuplicate]++
			continue
		}
		seen[id] = true

		if v := compat.Evaluate(c, attrs, snap); !v.OK {
			rejections[v.Rule]++
			continue
		}
		if !band.Allows(price) {
			rejections[RejectPriceBand]++
			continue
		}

		ranked = append(ranked, RankedPart{
			ID:             id,
			Category:       c,
			Name:           name,
			Price:          price,
			Image:          attrs.String(parts.KeyImage),
			Brand:          attrs.String(parts.KeyBrand),
			Score:          scoring.Score(c, attrs, snap),
			Reasons:        scoring.Reasons(c, attrs, snap),
			Specifications: compat.Specifications(c, attrs),
			Attributes:     attrs,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Price != b.Price {
			return a.Price < b.Price
		}
		return a.Name < b.Name
	})
	return ranked, rejections
}

func partID(c parts.Category, a parts.Attributes, name string) string {
	if id, ok := a.Get(parts.KeyID); ok {
		return id
	}
	return uuid.NewSHA1(partNamespace, []byte(string(c)+"/"+strings.ToLower(name))).String()
}

func outcome(err error) string {
	var (
		in *InputError
		nm *NoMatchError
	)
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.As(err, &in):
		return metrics.OutcomeInput
	case errors.As(err, &nm):
		return metrics.OutcomeEmpty
	default:
		return metrics.OutcomeSearch
	}
}
