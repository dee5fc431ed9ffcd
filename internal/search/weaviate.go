package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"go.uber.org/zap"
)

// Query modes for the Weaviate searcher.
const (
	ModeNearText = "neartext"
	ModeBM25     = "bm25"
)

// WeaviateConfig configures a WeaviateSearcher.
type WeaviateConfig struct {
	URL          string `mapstructure:"url"`
	Class        string `mapstructure:"class"`
	TextProperty string `mapstructure:"text_property"`
	Mode         string `mapstructure:"mode"`
	APIKey       string `mapstructure:"api_key"`
	// CategoryProperty, when set, restricts hits to objects whose property
	// equals the category the query names.
	CategoryProperty string `mapstructure:"category_property"`
}

func (c *WeaviateConfig) applyDefaults() {
	if c.Class == "" {
		c.Class = "PcPart"
	}
	if c.TextProperty == "" {
		c.TextProperty = "text"
	}
	if c.Mode == "" {
		c.Mode = ModeNearText
	}
}

// WeaviateSearcher queries a Weaviate class and returns the configured text
// property of each hit as the raw record.
type WeaviateSearcher struct {
	client *weaviate.Client
	cfg    WeaviateConfig
	logger *zap.Logger
}

// NewWeaviateSearcher builds a client for cfg.URL. No network call is made.
func NewWeaviateSearcher(cfg WeaviateConfig, logger *zap.Logger) (*WeaviateSearcher, error) {
	cfg.applyDefaults()
	if cfg.URL == "" {
		return nil, fmt.Errorf("weaviate url must not be empty")
	}
	if cfg.Mode != ModeNearText && cfg.Mode != ModeBM25 {
		return nil, fmt.Errorf("unknown weaviate mode %q", cfg.Mode)
	}

	wc := weaviate.Config{Host: cfg.URL, Scheme: "http"}
	switch {
	case strings.HasPrefix(cfg.URL, "https://"):
		wc.Scheme = "https"
		wc.Host = strings.TrimPrefix(cfg.URL, "https://")
	case strings.HasPrefix(cfg.URL, "http://"):
		wc.Host = strings.TrimPrefix(cfg.URL, "http://")
	}
	if cfg.APIKey != "" {
		wc.Headers = map[string]string{"Authorization": "Bearer " + cfg.APIKey}
	}

	client, err := weaviate.NewClient(wc)
	if err != nil {
		return nil, fmt.Errorf("create weaviate client: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WeaviateSearcher{client: client, cfg: cfg, logger: logger}, nil
}

// Search runs a nearText or BM25 query limited to k hits.
func (s *WeaviateSearcher) Search(ctx context.Context, query string, k int) ([]Record, error) {
	if k <= 0 {
		return nil, NewError(ErrCodeInvalid, "k must be positive", nil)
	}

	get := s.client.GraphQL().Get().
		WithClassName(s.cfg.Class).
		WithFields(graphql.Field{Name: s.cfg.TextProperty}).
		WithLimit(k)

	if s.cfg.CategoryProperty != "" {
		if c, ok := DetectCategory(query); ok {
			get = get.WithWhere(filters.Where().
				WithPath([]string{s.cfg.CategoryProperty}).
				WithOperator(filters.Equal).
				WithValueString(string(c)))
		}
	}

	if s.cfg.Mode == ModeBM25 {
		get = get.WithBM25(s.client.GraphQL().Bm25ArgBuilder().WithQuery(query))
	} else {
		get = get.WithNearText(s.client.GraphQL().NearTextArgBuilder().WithConcepts([]string{query}))
	}

	result, err := get.Do(ctx)
	if err != nil {
		return nil, mapError("weaviate", err)
	}
	if len(result.Errors) > 0 {
		return nil, mapError("weaviate", &graphQLError{Message: result.Errors[0].Message})
	}

	records := parseGraphQL(result, s.cfg.Class, s.cfg.TextProperty)
	s.logger.Debug("weaviate search",
		zap.String("class", s.cfg.Class),
		zap.String("mode", s.cfg.Mode),
		zap.Int("k", k),
		zap.Int("hits", len(records)),
	)
	return records, nil
}

// Ping checks that the Weaviate instance is ready.
func (s *WeaviateSearcher) Ping(ctx context.Context) error {
	ready, err := s.client.Misc().ReadyChecker().Do(ctx)
	if err != nil {
		return mapError("weaviate", err)
	}
	if !ready {
		return NewError(ErrCodeUnreachable, "weaviate not ready", nil)
	}
	return nil
}

// parseGraphQL extracts the text property of each object, skipping
// malformed entries.
func parseGraphQL(result *models.GraphQLResponse, class, property string) []Record {
	if result == nil {
		return nil
	}
	data, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return nil
	}
	objects, ok := data[class].([]interface{})
	if !ok {
		return nil
	}

	records := make([]Record, 0, len(objects))
	for _, obj := range objects {
		m, ok := obj.(map[string]interface{})
		if !ok {
			continue
		}
		text, ok := m[property].(string)
		if !ok || strings.TrimSpace(text) == "" {
			continue
		}
		records = append(records, Record{RawText: text})
	}
	return records
}
