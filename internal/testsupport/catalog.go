package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"versereel/internal/passages"
)

// CatalogYAML is a three-verse catalog; its natural keys are TEST_1_1
// through TEST_1_3.
const CatalogYAML = `version: TEST
collections:
  - name: Test
    chapters:
      - - "In the beginning was the word"
        - "The light shines in the darkness"
        - "Grace and truth came through him"
`

// NewCatalog parses CatalogYAML.
func NewCatalog(t testing.TB) *passages.Catalog {
	t.Helper()
	catalog, err := passages.Parse([]byte(CatalogYAML), "inline")
	if err != nil {
		t.Fatalf("passages.Parse: %v", err)
	}
	return catalog
}

// WriteCatalog writes CatalogYAML under dir and returns its path.
func WriteCatalog(t testing.TB, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "catalog.yaml")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	if err := os.WriteFile(path, []byte(CatalogYAML), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}
