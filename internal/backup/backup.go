// Package backup provides tar.gz backup and restore of the FrameForge build
// database and its config file.
package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/oxbowmantella/frameforge/internal/version"
)

// ManifestName is the archive entry describing its contents.
const ManifestName = "manifest.yaml"

// ErrExists is returned by Restore when a target file exists and force is
// not set.
var ErrExists = errors.New("restore target exists")

// Manifest is written first in every archive.
type Manifest struct {
	Version   string    `yaml:"version"`
	CreatedAt time.Time `yaml:"created_at"`
	Database  string    `yaml:"database"`
	Config    string    `yaml:"config,omitempty"`
}

// Backup writes a tar.gz archive holding a manifest, the SQLite database and
// the config file when configPath names an existing file. The WAL is
// checkpointed before the database is copied.
func Backup(ctx context.Context, dbPath, configPath, outputPath string) (*Manifest, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("database file not found: %w", err)
	}
	if err := checkpointWAL(ctx, dbPath); err != nil {
		return nil, fmt.Errorf("WAL checkpoint failed: %w", err)
	}

	m := &Manifest{
		Version:   version.Short(),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Database:  filepath.Base(dbPath),
	}
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			m.Config = filepath.Base(configPath)
		}
	}

	outFile, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("creating output file: %w", err)
	}
	defer outFile.Close()

	gw := gzip.NewWriter(outFile)
	tw := tar.NewWriter(gw)

	if err := writeManifest(tw, m); err != nil {
		return nil, fmt.Errorf("adding manifest to archive: %w", err)
	}
	if err := addFileToTar(tw, dbPath, m.Database); err != nil {
		return nil, fmt.Errorf("adding database to archive: %w", err)
	}
	if m.Config != "" {
		if err := addFileToTar(tw, configPath, m.Config); err != nil {
			return nil, fmt.Errorf("adding config to archive: %w", err)
		}
	}

	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return m, outFile.Close()
}

// Restore extracts archivePath into dataDir. The archive is unpacked to a
// staging directory and the database integrity-checked before any file in
// dataDir is replaced.
func Restore(ctx context.Context, archivePath, dataDir string, force bool) (*Manifest, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	staging, err := os.MkdirTemp(dataDir, ".restore-*")
	if err != nil {
		return nil, fmt.Errorf("creating staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	m, files, err := extract(ctx, f, staging)
	if err != nil {
		return nil, err
	}
	if !files[m.Database] {
		return nil, fmt.Errorf("archive is missing database %q", m.Database)
	}
	if m.Config != "" && !files[m.Config] {
		return nil, fmt.Errorf("archive is missing config %q", m.Config)
	}
	if err := integrityCheck(ctx, filepath.Join(staging, m.Database)); err != nil {
		return nil, fmt.Errorf("restored database failed integrity check: %w", err)
	}

	names := []string{m.Database}
	if m.Config != "" {
		names = append(names, m.Config)
	}
	if !force {
		for _, name := range names {
			if _, err := os.Stat(filepath.Join(dataDir, name)); err == nil {
				return nil, fmt.Errorf("%w: %s (use force to overwrite)", ErrExists, name)
			}
		}
	}
	for _, name := range names {
		dst := filepath.Join(dataDir, name)
		// Stale WAL files would be replayed over the restored database.
		_ = os.Remove(dst + "-wal")
		_ = os.Remove(dst + "-shm")
		if err := os.Rename(filepath.Join(staging, name), dst); err != nil {
			return nil, fmt.Errorf("restoring %s: %w", name, err)
		}
	}
	return m, nil
}

func extract(ctx context.Context, r io.Reader, dir string) (*Manifest, map[string]bool, error) {
	gr, err := gzip.NewReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("reading gzip: %w", err)
	}
	defer gr.Close()

	var m *Manifest
	files := make(map[string]bool)
	tr := tar.NewReader(gr)
	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name := hdr.Name
		if name != filepath.Base(name) || name == "." || name == ".." {
			return nil, nil, fmt.Errorf("unsafe archive entry %q", hdr.Name)
		}

		if name == ManifestName {
			m = &Manifest{}
			if err := yaml.NewDecoder(tr).Decode(m); err != nil {
				return nil, nil, fmt.Errorf("decoding manifest: %w", err)
			}
			continue
		}
		if err := writeFile(filepath.Join(dir, name), tr); err != nil {
			return nil, nil, fmt.Errorf("extracting %s: %w", name, err)
		}
		files[name] = true
	}
	if m == nil {
		return nil, nil, errors.New("archive has no manifest")
	}
	return m, files, nil
}

func writeFile(path string, r io.Reader) error {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func writeManifest(tw *tar.Writer, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	hdr := &tar.Header{
		Name:    ManifestName,
		Mode:    0o600,
		Size:    int64(len(data)),
		ModTime: m.CreatedAt,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err = tw.Write(data)
	return err
}

// checkpointWAL runs a TRUNCATE checkpoint to flush the WAL into the main
// database file.
func checkpointWAL(ctx context.Context, dbPath string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}

func integrityCheck(ctx context.Context, dbPath string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return err
	}
	if result != "ok" {
		return errors.New(result)
	}
	return nil
}

// addFileToTar adds a single file to the tar archive under the given name.
func addFileToTar(tw *tar.Writer, filePath, archiveName string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = archiveName

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}

	_, err = io.Copy(tw, f)
	return err
}
