// Package catalog embeds a sample catalog of raw part records, used as the
// local retrieval backend in development and tests.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/oxbowmantella/frameforge/pkg/parts"
)

//go:embed parts.yaml
var catalogRawData []byte

// Entry is one raw part record tagged with its category.
type Entry struct {
	Category parts.Category `yaml:"category"`
	Text     string         `yaml:"text"`
}

// catalogFile is the top-level structure of the YAML.
type catalogFile struct {
	Entries []Entry `yaml:"entries"`
}

// Catalog provides lazy-loaded access to a parts catalog.
type Catalog struct {
	once    sync.Once
	raw     []byte
	entries []Entry
	err     error
}

// NewCatalog creates a Catalog over the embedded sample data. The YAML is
// parsed on first access.
func NewCatalog() *Catalog {
	return &Catalog{raw: catalogRawData}
}

// NewCatalogFromFile creates a Catalog over a YAML file with the same shape
// as the embedded data.
func NewCatalogFromFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return &Catalog{raw: data}, nil
}

// Entries returns a copy of all catalog entries.
func (c *Catalog) Entries() ([]Entry, error) {
	c.once.Do(c.load)
	if c.err != nil {
		return nil, c.err
	}
	cp := make([]Entry, len(c.entries))
	copy(cp, c.entries)
	return cp, nil
}

// ByCategory returns the entries of one category.
func (c *Catalog) ByCategory(cat parts.Category) ([]Entry, error) {
	all, err := c.Entries()
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, e := range all {
		if e.Category == cat {
			out = append(out, e)
		}
	}
	return out, nil
}

// load parses the YAML catalog data.
func (c *Catalog) load() {
	var f catalogFile
	if err := yaml.Unmarshal(c.raw, &f); err != nil {
		c.err = fmt.Errorf("catalog: parse yaml: %w", err)
		return
	}
	for i, e := range f.Entries {
		if !e.Category.Valid() {
			c.err = fmt.Errorf("catalog: entry %d: unknown category %q", i, e.Category)
			return
		}
	}
	c.entries = f.Entries
}
