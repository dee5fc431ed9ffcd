package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/oxbowmantella/frameforge/internal/build"
	"github.com/oxbowmantella/frameforge/internal/catalog"
	"github.com/oxbowmantella/frameforge/internal/config"
	"github.com/oxbowmantella/frameforge/internal/store"
	"github.com/oxbowmantella/frameforge/internal/testutil"
	"github.com/oxbowmantella/frameforge/pkg/parts"
)

func TestMain(m *testing.M) {
	_ = godotenv.Load()
	os.Exit(m.Run())
}

func loadConfig(t *testing.T, overrides map[string]any) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	for k, v := range overrides {
		cfg.Viper().Set(k, v)
	}
	return cfg
}

func TestNewSearcherLocal(t *testing.T) {
	cfg := loadConfig(t, nil)
	s, err := newSearcher(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("newSearcher: %v", err)
	}
	recs, err := s.Search(context.Background(), "AMD processor", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(recs) == 0 {
		t.Fatal("local catalog returned no processors")
	}
	for _, r := range recs {
		if !strings.Contains(r.RawText, "Name:") {
			t.Errorf("record %q has no Name line", r.RawText)
		}
	}
}

func TestNewSearcherErrors(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]any
	}{
		{"unknown backend", map[string]any{"search.backend": "elastic"}},
		{"missing catalog file", map[string]any{"search.local.path": filepath.Join(t.TempDir(), "none.yaml")}},
		{"bad weaviate mode", map[string]any{"search.backend": "weaviate", "search.weaviate.mode": "hybrid"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := loadConfig(t, tt.overrides)
			if _, err := newSearcher(cfg, zap.NewNop()); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestEngineConfigFromSearchKeys(t *testing.T) {
	cfg := loadConfig(t, map[string]any{"search.candidates": 42, "search.timeout": "3s"})
	ec, err := engineConfig(cfg)
	if err != nil {
		t.Fatalf("engineConfig: %v", err)
	}
	if ec.Candidates != 42 {
		t.Errorf("Candidates = %d, want 42", ec.Candidates)
	}
	if ec.Timeout.String() != "3s" {
		t.Errorf("Timeout = %v, want 3s", ec.Timeout)
	}
}

func TestLoadBuildFlagsOverrideSaved(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "frameforge.db")
	db, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	repo, err := build.NewSQLiteRepository(ctx, db)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	saved := testutil.NewBuild(900, testutil.NewComponent(parts.CategoryCPU, testutil.WithSpec("socket", "AM5")))
	saved.Preferences.GPUBrand = "AMD"
	if err := repo.Save(ctx, saved); err != nil {
		t.Fatalf("Save: %v", err)
	}
	db.Close()

	cfg := loadConfig(t, map[string]any{"database.path": dbPath})
	b, err := loadBuild(ctx, cfg, recommendFlags{buildID: saved.ID, budget: 1400, cpuBrand: "Intel"})
	if err != nil {
		t.Fatalf("loadBuild: %v", err)
	}
	if b.Budget != 1400 {
		t.Errorf("Budget = %v, want 1400", b.Budget)
	}
	if b.Preferences.CPUBrand != "Intel" || b.Preferences.GPUBrand != "AMD" {
		t.Errorf("Preferences = %+v", b.Preferences)
	}
	if _, ok := b.Components[parts.CategoryCPU]; !ok {
		t.Error("saved CPU selection missing")
	}

	if _, err := loadBuild(ctx, cfg, recommendFlags{buildID: "missing"}); err == nil {
		t.Error("expected error for unknown build")
	}
}

func TestPrintResult(t *testing.T) {
	res := &catalog.Result{
		Items: []catalog.RankedPart{
			{Name: "AMD Ryzen 5 7600", Price: 229.99, Score: 87.5, Recommended: true, Reasons: []string{"Great value", "AM5 socket"}},
			{Name: "Intel Core i5-13400F", Price: 199.99, Score: 80},
		},
		TotalCount:     12,
		Page:           2,
		ItemsPerPage:   2,
		TotalPages:     6,
		SearchCriteria: catalog.Criteria{PriceRange: catalog.PriceRange{Min: 150, Max: 300}},
	}
	var buf bytes.Buffer
	if err := printResult(&buf, parts.CategoryCPU, res); err != nil {
		t.Fatalf("printResult: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"12 matches", "page 2 of 6", "$150-$300", "AMD Ryzen 5 7600 *", "Great value; AM5 socket", "$199.99"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "3  ") && !strings.Contains(out, "\n3 ") {
		t.Errorf("first item on page 2 should be ranked 3:\n%s", out)
	}
}
