package search

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/oxbowmantella/frameforge/pkg/catalog"
	"github.com/oxbowmantella/frameforge/pkg/parts"
)

// categoryPhrases are the phrases query builders use to name a category.
// No phrase contains another.
var categoryPhrases = []struct {
	category parts.Category
	phrase   string
}{
	{parts.CategoryMotherboard, "motherboard"},
	{parts.CategoryCPU, "processor"},
	{parts.CategoryMemory, "desktop memory"},
	{parts.CategoryGPU, "graphics card"},
	{parts.CategoryStorage, "storage drive"},
	{parts.CategoryCase, "pc case"},
	{parts.CategoryCooler, "cpu cooler"},
	{parts.CategoryPSU, "power supply"},
}

// CategoryPhrase returns the phrase that names c in a query.
func CategoryPhrase(c parts.Category) string {
	for _, p := range categoryPhrases {
		if p.category == c {
			return p.phrase
		}
	}
	return string(c)
}

// DetectCategory finds the category a query names, if any. When several
// phrases appear the last one wins, since builders append the category
// phrase after any free-text search term.
func DetectCategory(query string) (parts.Category, bool) {
	lower := strings.ToLower(query)
	best, at := parts.Category(""), -1
	for _, p := range categoryPhrases {
		if i := strings.LastIndex(lower, p.phrase); i > at {
			best, at = p.category, i
		}
	}
	return best, at >= 0
}

// LocalSearcher ranks catalog entries by token overlap with the query. It
// stands in for the semantic index in development and tests.
type LocalSearcher struct {
	catalog *catalog.Catalog
	logger  *zap.Logger
}

// NewLocalSearcher creates a searcher over c.
func NewLocalSearcher(c *catalog.Catalog, logger *zap.Logger) *LocalSearcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalSearcher{catalog: c, logger: logger}
}

// Search returns up to k entries. When the query names a category only
// that category's entries are considered.
func (s *LocalSearcher) Search(ctx context.Context, query string, k int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, mapError("local catalog", err)
	}
	if k <= 0 {
		return nil, NewError(ErrCodeInvalid, "k must be positive", nil)
	}

	var entries []catalog.Entry
	var err error
	if c, ok := DetectCategory(query); ok {
		entries, err = s.catalog.ByCategory(c)
	} else {
		entries, err = s.catalog.Entries()
	}
	if err != nil {
		return nil, NewError(ErrCodeUpstream, "local catalog unavailable", err)
	}

	terms := tokenize(query)
	type hit struct {
		index int
		score int
	}
	hits := make([]hit, len(entries))
	for i, e := range entries {
		hits[i] = hit{index: i, score: overlap(terms, tokenize(e.Text))}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	if len(hits) > k {
		hits = hits[:k]
	}
	records := make([]Record, len(hits))
	for i, h := range hits {
		records[i] = Record{RawText: entries[h.index].Text}
	}

	s.logger.Debug("local search",
		zap.String("query", query),
		zap.Int("k", k),
		zap.Int("hits", len(records)),
	)
	return records, nil
}

// Ping always succeeds once the catalog parses.
func (s *LocalSearcher) Ping(_ context.Context) error {
	if _, err := s.catalog.Entries(); err != nil {
		return NewError(ErrCodeUpstream, "local catalog unavailable", err)
	}
	return nil
}

func tokenize(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, f := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(f) > 1 {
			out[f] = struct{}{}
		}
	}
	return out
}

func overlap(query, doc map[string]struct{}) int {
	n := 0
	for t := range query {
		if _, ok := doc[t]; ok {
			n++
		}
	}
	return n
}
