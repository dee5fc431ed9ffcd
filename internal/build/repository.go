package build

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oxbowmantella/frameforge/pkg/models"
	"github.com/oxbowmantella/frameforge/pkg/parts"
	"github.com/oxbowmantella/frameforge/pkg/plugin"
)

// Sentinel errors returned by repositories.
var (
	ErrNotFound      = errors.New("build not found")
	ErrSchemaVersion = errors.New("build document has an unsupported schema version")
)

// ListOptions controls pagination for List.
type ListOptions struct {
	Limit  int // Max results per page (default 50, max 500).
	Offset int
}

// ListResult wraps a page of builds with the total count.
type ListResult[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

func normalizeListOptions(opts ListOptions) ListOptions {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	if opts.Limit > 500 {
		opts.Limit = 500
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	return opts
}

// Repository persists builds.
type Repository interface {
	Get(ctx context.Context, id string) (models.Build, error)
	Save(ctx context.Context, b models.Build) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, opts ListOptions) (ListResult[models.Build], error)
}

var _ Repository = (*SQLiteRepository)(nil)

// SQLiteRepository stores each build as one JSON document keyed
// "build:<id>". The budget and total_spent columns mirror the document for
// SQL reporting; reads always decode the document.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository runs the builds migrations and returns a repository.
func NewSQLiteRepository(ctx context.Context, store plugin.Store) (*SQLiteRepository, error) {
	if err := store.Migrate(ctx, "builds", migrations); err != nil {
		return nil, fmt.Errorf("builds migrations: %w", err)
	}
	return &SQLiteRepository{db: store.DB()}, nil
}

func storageKey(id string) string { return "build:" + id }

func (r *SQLiteRepository) Get(ctx context.Context, id string) (models.Build, error) {
	var (
		version int
		data    string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT schema_version, data FROM builds WHERE key = ?`, storageKey(id),
	).Scan(&version, &data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Build{}, ErrNotFound
		}
		return models.Build{}, fmt.Errorf("get build %q: %w", id, err)
	}
	b, err := decode(version, []byte(data))
	if err != nil {
		return models.Build{}, fmt.Errorf("decode build %q: %w", id, err)
	}
	return b, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, b models.Build) error {
	b.SchemaVersion = models.BuildSchemaVersion
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode build %q: %w", b.ID, err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO builds (key, id, schema_version, data, budget, total_spent, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			schema_version = excluded.schema_version,
			data = excluded.data,
			budget = excluded.budget,
			total_spent = excluded.total_spent,
			updated_at = excluded.updated_at`,
		storageKey(b.ID), b.ID, b.SchemaVersion, string(data),
		b.Budget, b.TotalSpent(), b.CreatedAt.UTC(), b.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save build %q: %w", b.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM builds WHERE key = ?`, storageKey(id))
	if err != nil {
		return fmt.Errorf("delete build %q: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns builds most recently updated first.
func (r *SQLiteRepository) List(ctx context.Context, opts ListOptions) (ListResult[models.Build], error) {
	opts = normalizeListOptions(opts)
	out := ListResult[models.Build]{Items: []models.Build{}}

	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM builds`).Scan(&out.Total); err != nil {
		return out, fmt.Errorf("count builds: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT schema_version, data FROM builds ORDER BY updated_at DESC, id LIMIT ? OFFSET ?`,
		opts.Limit, opts.Offset)
	if err != nil {
		return out, fmt.Errorf("list builds: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			version int
			data    string
		)
		if err := rows.Scan(&version, &data); err != nil {
			return out, fmt.Errorf("scan build row: %w", err)
		}
		b, err := decode(version, []byte(data))
		if err != nil {
			return out, err
		}
		out.Items = append(out.Items, b)
	}
	return out, rows.Err()
}

// legacyBuild is the version 1 document: preferences sat at the top level
// and the running total was stored.
type legacyBuild struct {
	ID                    string                       `json:"id"`
	Budget                float64                      `json:"budget"`
	TotalSpent            float64                      `json:"totalSpent"`
	SelectedType          string                       `json:"selectedType"`
	Components            map[string]*models.Component `json:"components"`
	CPUBrand              string                       `json:"cpuBrand"`
	GPUBrand              string                       `json:"gpuBrand"`
	HasCPUCooler          bool                         `json:"hasCpuCooler"`
	HasIntegratedGraphics bool                         `json:"hasIntegratedGraphics"`
	UpdatedAt             time.Time                    `json:"updatedAt"`
}

// decode loads a stored document, upgrading older shapes. The stored total
// of version 1 documents is dropped; TotalSpent is always derived.
func decode(version int, data []byte) (models.Build, error) {
	switch {
	case version == models.BuildSchemaVersion:
		var b models.Build
		if err := json.Unmarshal(data, &b); err != nil {
			return models.Build{}, err
		}
		if b.Components == nil {
			b.Components = make(map[parts.Category]*models.Component)
		}
		return b, nil

	case version <= 1:
		var old legacyBuild
		if err := json.Unmarshal(data, &old); err != nil {
			return models.Build{}, err
		}
		b := models.NewBuild(old.ID)
		b.Budget = old.Budget
		b.SelectedType = old.SelectedType
		b.Preferences = models.Preferences{
			CPUBrand:              old.CPUBrand,
			GPUBrand:              old.GPUBrand,
			HasCPUCooler:          old.HasCPUCooler,
			HasIntegratedGraphics: old.HasIntegratedGraphics,
		}
		for key, comp := range old.Components {
			c, err := parts.ParseCategory(strings.ToLower(key))
			if err != nil || comp == nil {
				continue
			}
			comp.Type = c
			b.Components[c] = comp
		}
		b.CreatedAt = old.UpdatedAt
		b.UpdatedAt = old.UpdatedAt
		return b, nil

	default:
		return models.Build{}, fmt.Errorf("%w: %d", ErrSchemaVersion, version)
	}
}

var migrations = []plugin.Migration{
	{
		Version:     1,
		Description: "create builds table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE builds (
					key            TEXT PRIMARY KEY,
					id             TEXT NOT NULL UNIQUE,
					schema_version INTEGER NOT NULL,
					data           TEXT NOT NULL,
					budget         REAL NOT NULL DEFAULT 0,
					total_spent    REAL NOT NULL DEFAULT 0,
					created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`)
			return err
		},
	},
	{
		Version:     2,
		Description: "index builds by update time",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE INDEX idx_builds_updated_at ON builds(updated_at)`)
			return err
		},
	},
}
