package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/oxbowmantella/frameforge/internal/build"
	"github.com/oxbowmantella/frameforge/internal/store"
	"github.com/oxbowmantella/frameforge/internal/testutil"
	"github.com/oxbowmantella/frameforge/pkg/parts"
)

// seedDatabase writes one build to a fresh database file and returns its id.
func seedDatabase(t *testing.T, dbPath string) string {
	t.Helper()
	ctx := context.Background()
	s, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	defer s.Close()

	repo, err := build.NewSQLiteRepository(ctx, s)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	b := testutil.NewBuild(1500, testutil.NewComponent(parts.CategoryCPU, testutil.WithID("cpu-1")))
	if err := repo.Save(ctx, b); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return b.ID
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := t.TempDir()
	dbPath := filepath.Join(src, "frameforge.db")
	cfgPath := filepath.Join(src, "frameforge.yaml")
	id := seedDatabase(t, dbPath)
	if err := os.WriteFile(cfgPath, []byte("server:\n  port: 9090\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	archive := filepath.Join(t.TempDir(), "backup.tar.gz")
	m, err := Backup(ctx, dbPath, cfgPath, archive)
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if m.Database != "frameforge.db" || m.Config != "frameforge.yaml" {
		t.Errorf("manifest = %+v", m)
	}

	dst := t.TempDir()
	got, err := Restore(ctx, archive, dst, false)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if got.Database != m.Database || got.Version != m.Version {
		t.Errorf("restored manifest = %+v, want %+v", got, m)
	}

	cfg, err := os.ReadFile(filepath.Join(dst, "frameforge.yaml"))
	if err != nil {
		t.Fatalf("read restored config: %v", err)
	}
	if string(cfg) != "server:\n  port: 9090\n" {
		t.Errorf("config = %q", cfg)
	}

	s, err := store.New(filepath.Join(dst, "frameforge.db"))
	if err != nil {
		t.Fatalf("open restored db: %v", err)
	}
	defer s.Close()
	repo, err := build.NewSQLiteRepository(ctx, s)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	b, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get restored build: %v", err)
	}
	if b.Budget != 1500 {
		t.Errorf("budget = %v, want 1500", b.Budget)
	}
	if _, ok := b.Components[parts.CategoryCPU]; !ok {
		t.Error("restored build lost its CPU")
	}
}

func TestBackupWithoutConfig(t *testing.T) {
	src := t.TempDir()
	dbPath := filepath.Join(src, "frameforge.db")
	seedDatabase(t, dbPath)

	m, err := Backup(context.Background(), dbPath, filepath.Join(src, "missing.yaml"), filepath.Join(src, "out.tar.gz"))
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if m.Config != "" {
		t.Errorf("Config = %q, want empty for missing file", m.Config)
	}
}

func TestBackupMissingDatabase(t *testing.T) {
	dir := t.TempDir()
	_, err := Backup(context.Background(), filepath.Join(dir, "nope.db"), "", filepath.Join(dir, "out.tar.gz"))
	if err == nil {
		t.Fatal("expected error for missing database")
	}
}

func TestRestoreRefusesOverwrite(t *testing.T) {
	ctx := context.Background()
	src := t.TempDir()
	dbPath := filepath.Join(src, "frameforge.db")
	seedDatabase(t, dbPath)
	archive := filepath.Join(src, "b.tar.gz")
	if _, err := Backup(ctx, dbPath, "", archive); err != nil {
		t.Fatalf("Backup: %v", err)
	}

	dst := t.TempDir()
	if err := os.WriteFile(filepath.Join(dst, "frameforge.db"), []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Restore(ctx, archive, dst, false); !errors.Is(err, ErrExists) {
		t.Fatalf("Restore err = %v, want ErrExists", err)
	}
	if _, err := Restore(ctx, archive, dst, true); err != nil {
		t.Fatalf("Restore with force: %v", err)
	}
}

func writeArchive(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crafted.tar.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gw := gzip.NewWriter(f)
	tw := tar.NewWriter(gw)
	for name, body := range entries {
		if err := tw.WriteHeader(&tar.Header{Name: name, Mode: 0o600, Size: int64(len(body)), Typeflag: tar.TypeReg}); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRestoreRejectsBadArchives(t *testing.T) {
	tests := []struct {
		name    string
		entries map[string]string
	}{
		{"no manifest", map[string]string{"frameforge.db": "x"}},
		{"path traversal", map[string]string{"../evil.db": "x"}},
		{"missing database", map[string]string{ManifestName: "version: dev\ndatabase: frameforge.db\n"}},
		{"corrupt database", map[string]string{
			ManifestName:    "version: dev\ndatabase: frameforge.db\n",
			"frameforge.db": "not a sqlite file",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			archive := writeArchive(t, tt.entries)
			dst := t.TempDir()
			if _, err := Restore(context.Background(), archive, dst, false); err == nil {
				t.Fatal("expected error")
			}
			if _, err := os.Stat(filepath.Join(dst, "frameforge.db")); err == nil {
				t.Error("failed restore left a database behind")
			}
		})
	}
}
