package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/oxbowmantella/frameforge/internal/catalog"
	"github.com/oxbowmantella/frameforge/internal/config"
	"github.com/oxbowmantella/frameforge/internal/search"
	partcatalog "github.com/oxbowmantella/frameforge/pkg/catalog"
)

func newLogger() (*zap.Logger, error) {
	if devLogging {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// newSearcher builds the configured collaborator wrapped in the
// singleflight deduplicator.
func newSearcher(cfg *config.Config, logger *zap.Logger) (search.Searcher, error) {
	var base search.Searcher
	switch backend := cfg.GetString("search.backend"); backend {
	case "local":
		c := partcatalog.NewCatalog()
		if path := cfg.GetString("search.local.path"); path != "" {
			var err error
			if c, err = partcatalog.NewCatalogFromFile(path); err != nil {
				return nil, err
			}
		}
		base = search.NewLocalSearcher(c, logger)
	case "weaviate":
		var wc search.WeaviateConfig
		if err := cfg.UnmarshalKey("search.weaviate", &wc); err != nil {
			return nil, fmt.Errorf("decode search.weaviate: %w", err)
		}
		ws, err := search.NewWeaviateSearcher(wc, logger)
		if err != nil {
			return nil, err
		}
		base = ws
	default:
		return nil, fmt.Errorf("unknown search backend %q", backend)
	}
	logger.Info("search backend ready", zap.String("backend", cfg.GetString("search.backend")))
	return search.Dedupe(base, cfg.GetDuration("search.timeout")), nil
}

func engineConfig(cfg *config.Config) (catalog.EngineConfig, error) {
	var ec catalog.EngineConfig
	if err := cfg.UnmarshalKey("search", &ec); err != nil {
		return ec, fmt.Errorf("decode search config: %w", err)
	}
	return ec, nil
}
