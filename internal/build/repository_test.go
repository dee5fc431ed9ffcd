package build

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oxbowmantella/frameforge/internal/testutil"
	"github.com/oxbowmantella/frameforge/pkg/models"
	"github.com/oxbowmantella/frameforge/pkg/parts"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(context.Background(), testutil.NewStore(t))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	return repo
}

func TestRepositoryRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	b := testutil.NewBuild(1200,
		testutil.NewComponent(parts.CategoryCPU, testutil.WithID("cpu-1"), testutil.WithSpec("socket", "AM5")),
		testutil.NewComponent(parts.CategoryGPU, testutil.WithID("gpu-1"), testutil.WithPrice(499.99)),
	)
	b.Preferences.GPUBrand = "AMD"
	if err := repo.Save(ctx, b); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.Get(ctx, b.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Budget != 1200 || got.TotalSpent() != b.TotalSpent() {
		t.Errorf("got budget=%v total=%v, want 1200/%v", got.Budget, got.TotalSpent(), b.TotalSpent())
	}
	cpu, ok := got.Component(parts.CategoryCPU)
	if !ok || cpu.ID != "cpu-1" {
		t.Fatalf("cpu = %+v", cpu)
	}
	if v, _ := cpu.Spec("socket"); v != "AM5" {
		t.Errorf("socket = %q, want AM5", v)
	}
	if got.Preferences.GPUBrand != "AMD" {
		t.Errorf("GPUBrand = %q, want AMD", got.Preferences.GPUBrand)
	}
	if got.SchemaVersion != models.BuildSchemaVersion {
		t.Errorf("SchemaVersion = %d, want %d", got.SchemaVersion, models.BuildSchemaVersion)
	}

	// Overwrite keeps a single row.
	b.Budget = 1000
	if err := repo.Save(ctx, b); err != nil {
		t.Fatalf("Save again: %v", err)
	}
	res, err := repo.List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if res.Total != 1 || res.Items[0].Budget != 1000 {
		t.Errorf("List = %+v, want one build with budget 1000", res)
	}

	var budget, spent float64
	if err := repo.db.QueryRowContext(ctx,
		`SELECT budget, total_spent FROM builds WHERE id = ?`, b.ID,
	).Scan(&budget, &spent); err != nil {
		t.Fatalf("select columns: %v", err)
	}
	if budget != 1000 || spent != b.TotalSpent() {
		t.Errorf("columns budget=%v total_spent=%v, want 1000/%v", budget, spent, b.TotalSpent())
	}
}

func TestRepositoryOnMigratedStore(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewStore(t, testutil.Schema{Module: "builds", Migrations: migrations})

	repo, err := NewSQLiteRepository(ctx, db)
	if err != nil {
		t.Fatalf("NewSQLiteRepository on migrated store: %v", err)
	}
	versions, err := db.AppliedVersions(ctx, "builds")
	if err != nil {
		t.Fatalf("AppliedVersions: %v", err)
	}
	if len(versions) != len(migrations) {
		t.Errorf("versions = %v, want %d entries", versions, len(migrations))
	}
	if err := repo.Save(ctx, testutil.NewBuild(700)); err != nil {
		t.Errorf("Save: %v", err)
	}
}

func TestRepositoryNotFound(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get err = %v, want ErrNotFound", err)
	}
	if err := repo.Delete(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete err = %v, want ErrNotFound", err)
	}
}

func TestRepositoryUpgradesVersionOne(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	legacy := `{
		"id": "old",
		"budget": 800,
		"totalSpent": 9999,
		"selectedType": "GPU",
		"cpuBrand": "Intel",
		"hasCpuCooler": true,
		"components": {
			"GPU": {"id": "g1", "name": "Arc A750", "price": 199},
			"Toaster": {"id": "t", "name": "t", "price": 1}
		},
		"updatedAt": "2024-05-01T00:00:00Z"
	}`
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO builds (key, id, schema_version, data) VALUES (?, ?, 1, ?)`,
		storageKey("old"), "old", legacy)
	if err != nil {
		t.Fatalf("insert legacy row: %v", err)
	}

	b, err := repo.Get(ctx, "old")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if b.TotalSpent() != 199 {
		t.Errorf("TotalSpent = %v, want 199 (stored total ignored)", b.TotalSpent())
	}
	if len(b.Components) != 1 || !b.Has(parts.CategoryGPU) {
		t.Errorf("Components = %v, want only gpu", b.Components)
	}
	if b.Preferences.CPUBrand != "Intel" || !b.Preferences.HasCPUCooler {
		t.Errorf("Preferences = %+v", b.Preferences)
	}
	if want := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC); !b.UpdatedAt.Equal(want) {
		t.Errorf("UpdatedAt = %v, want %v", b.UpdatedAt, want)
	}
}

func TestRepositoryRejectsNewerVersion(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO builds (key, id, schema_version, data) VALUES (?, ?, 99, '{}')`,
		storageKey("future"), "future")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := repo.Get(ctx, "future"); !errors.Is(err, ErrSchemaVersion) {
		t.Errorf("err = %v, want ErrSchemaVersion", err)
	}
}

func TestRepositoryListOrderAndPaging(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		b := models.NewBuild(id)
		b.CreatedAt = base
		b.UpdatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := repo.Save(ctx, b); err != nil {
			t.Fatalf("Save %s: %v", id, err)
		}
	}

	res, err := repo.List(ctx, ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if res.Total != 3 || len(res.Items) != 2 {
		t.Fatalf("Total=%d len=%d, want 3/2", res.Total, len(res.Items))
	}
	if res.Items[0].ID != "c" || res.Items[1].ID != "b" {
		t.Errorf("order = %s,%s, want c,b", res.Items[0].ID, res.Items[1].ID)
	}

	res, err = repo.List(ctx, ListOptions{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("List page 2: %v", err)
	}
	if len(res.Items) != 1 || res.Items[0].ID != "a" {
		t.Errorf("page 2 = %+v, want [a]", res.Items)
	}
}
