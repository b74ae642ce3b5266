package passages

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"versereel/internal/config"
	"versereel/internal/textutil"
)

//go:embed sample_catalog.yaml
var sampleCatalog []byte

// SampleSource names the bundled corpus in readiness metadata.
const SampleSource = "builtin:sample"

type catalogFile struct {
	Version     string           `yaml:"version"`
	Collections []collectionFile `yaml:"collections"`
}

type collectionFile struct {
	Name     string     `yaml:"name"`
	Chapters [][]string `yaml:"chapters"`
}

// Collection is one book of the catalog.
type Collection struct {
	Key      string
	Name     string
	Chapters [][]string
}

// Catalog is an in-memory, read-only passage corpus.
type Catalog struct {
	version     string
	source      string
	collections []Collection
	index       map[string]int
	verses      int
}

// Open loads the catalog configured in cfg, falling back to the bundled
// sample when no catalog path is set.
func Open(cfg config.Passages) (*Catalog, error) {
	if strings.TrimSpace(cfg.CatalogPath) == "" {
		catalog, err := Sample()
		if err != nil {
			return nil, err
		}
		if cfg.Version != "" {
			catalog.version = cfg.Version
		}
		return catalog, nil
	}
	catalog, err := Load(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	if catalog.version == "" {
		catalog.version = cfg.Version
	}
	return catalog, nil
}

// Sample returns the bundled corpus.
func Sample() (*Catalog, error) {
	return Parse(sampleCatalog, SampleSource)
}

// Load reads a YAML catalog from path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read passage catalog: %w", err)
	}
	return Parse(data, path)
}

// Parse decodes and validates catalog YAML. Verse text is whitespace
// normalized; empty verses are kept so positions stay stable.
func Parse(data []byte, source string) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse passage catalog %s: %w", source, err)
	}
	if len(file.Collections) == 0 {
		return nil, errors.New("passage catalog has no collections")
	}

	catalog := &Catalog{
		version:     strings.TrimSpace(file.Version),
		source:      source,
		collections: make([]Collection, 0, len(file.Collections)),
		index:       make(map[string]int, len(file.Collections)),
	}
	for i, raw := range file.Collections {
		key := NormalizeName(raw.Name)
		if key == "" {
			return nil, fmt.Errorf("passage catalog: collection %d has no name", i+1)
		}
		if _, dup := catalog.index[key]; dup {
			return nil, fmt.Errorf("passage catalog: duplicate collection %s", key)
		}
		if len(raw.Chapters) == 0 {
			return nil, fmt.Errorf("passage catalog: collection %s has no chapters", key)
		}
		chapters := make([][]string, len(raw.Chapters))
		for c, verses := range raw.Chapters {
			chapters[c] = make([]string, len(verses))
			for v, text := range verses {
				chapters[c][v] = textutil.NormalizeSpace(text)
			}
			catalog.verses += len(verses)
		}
		catalog.index[key] = len(catalog.collections)
		catalog.collections = append(catalog.collections, Collection{
			Key:      key,
			Name:     strings.TrimSpace(raw.Name),
			Chapters: chapters,
		})
	}
	return catalog, nil
}

// Version returns the translation label, e.g. KJV.
func (c *Catalog) Version() string { return c.version }

// Source returns the catalog path or SampleSource.
func (c *Catalog) Source() string { return c.source }

// VerseCount returns the number of verse slots across the catalog.
func (c *Catalog) VerseCount() int { return c.verses }

// Collections returns collection keys in catalog order.
func (c *Catalog) Collections() []string {
	keys := make([]string, len(c.collections))
	for i, col := range c.collections {
		keys[i] = col.Key
	}
	return keys
}

// Chapters returns the chapter count of a collection, zero when unknown.
func (c *Catalog) Chapters(collection string) int {
	col, ok := c.lookup(collection)
	if !ok {
		return 0
	}
	return len(col.Chapters)
}

// Verses returns the verse count of a chapter, zero when unknown.
func (c *Catalog) Verses(collection string, chapter int) int {
	col, ok := c.lookup(collection)
	if !ok || chapter < 1 || chapter > len(col.Chapters) {
		return 0
	}
	return len(col.Chapters[chapter-1])
}

// Text returns a verse. The boolean is false when the position does not exist.
func (c *Catalog) Text(collection string, chapter, verse int) (string, bool) {
	col, ok := c.lookup(collection)
	if !ok || chapter < 1 || chapter > len(col.Chapters) {
		return "", false
	}
	verses := col.Chapters[chapter-1]
	if verse < 1 || verse > len(verses) {
		return "", false
	}
	return verses[verse-1], true
}

func (c *Catalog) lookup(collection string) (Collection, bool) {
	idx, ok := c.index[NormalizeName(collection)]
	if !ok {
		return Collection{}, false
	}
	return c.collections[idx], true
}
