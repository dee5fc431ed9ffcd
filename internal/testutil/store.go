package testutil

import (
	"context"
	"testing"

	"github.com/oxbowmantella/frameforge/internal/store"
	"github.com/oxbowmantella/frameforge/pkg/plugin"
)

// Schema is one module's migration set.
type Schema struct {
	Module     string
	Migrations []plugin.Migration
}

// NewStore opens a private in-memory database and applies schemas in
// order. The store closes when t finishes.
func NewStore(t testing.TB, schemas ...Schema) *store.SQLiteStore {
	t.Helper()
	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	for _, s := range schemas {
		if err := db.Migrate(context.Background(), s.Module, s.Migrations); err != nil {
			t.Fatalf("migrate %s: %v", s.Module, err)
		}
	}
	return db
}
