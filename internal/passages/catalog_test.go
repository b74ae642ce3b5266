package passages_test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"versereel/internal/config"
	"versereel/internal/passages"
)

func TestSampleCatalogLoads(t *testing.T) {
	catalog, err := passages.Sample()
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}
	want := []string{"GENESIS", "PSALMS", "PROVERBS", "JOHN"}
	if got := catalog.Collections(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Collections = %v, want %v", got, want)
	}
	if catalog.Version() != "KJV" || catalog.Source() != passages.SampleSource {
		t.Fatalf("unexpected catalog identity %q %q", catalog.Version(), catalog.Source())
	}
	text, ok := catalog.Text("john", 1, 1)
	if !ok || text != "In the beginning was the Word, and the Word was with God, and the Word was God." {
		t.Fatalf("unexpected John 1:1 %q ok=%v", text, ok)
	}
	if _, ok := catalog.Text("JOHN", 1, 99); ok {
		t.Fatal("expected missing verse")
	}
	if catalog.Chapters("PSALMS") != 1 || catalog.Verses("PSALMS", 1) != 6 {
		t.Fatalf("unexpected Psalms shape: %d chapters", catalog.Chapters("PSALMS"))
	}
	if catalog.Verses("PSALMS", 2) != 0 || catalog.Chapters("REVELATION") != 0 {
		t.Fatal("expected zero counts for unknown positions")
	}
}

func TestLoadCatalogFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	body := `version: WEB
collections:
  - name: 1 John
    chapters:
      - - "  That which was   from the beginning "
        - ""
      - - "My little children"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	catalog, err := passages.Open(config.Passages{CatalogPath: path, Version: "KJV"})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if catalog.Version() != "WEB" {
		t.Fatalf("file version should win, got %q", catalog.Version())
	}
	text, ok := catalog.Text("1 john", 1, 1)
	if !ok || text != "That which was from the beginning" {
		t.Fatalf("unexpected normalized text %q", text)
	}
	if text, ok := catalog.Text("1_JOHN", 1, 2); !ok || text != "" {
		t.Fatalf("expected empty verse slot, got %q ok=%v", text, ok)
	}
	if catalog.VerseCount() != 3 {
		t.Fatalf("expected 3 verse slots, got %d", catalog.VerseCount())
	}
}

func TestParseRejectsInvalidCatalogs(t *testing.T) {
	cases := map[string]string{
		"empty":      "version: KJV\n",
		"no name":    "collections:\n  - chapters: [[\"a\"]]\n",
		"duplicate":  "collections:\n  - name: John\n    chapters: [[\"a\"]]\n  - name: JOHN\n    chapters: [[\"b\"]]\n",
		"no chapter": "collections:\n  - name: John\n",
		"bad yaml":   "collections: [",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := passages.Parse([]byte(body), name); err == nil {
				t.Fatal("expected parse error")
			}
		})
	}
}

func TestNamesAndReferences(t *testing.T) {
	if got := passages.NormalizeName(" song of-solomon "); got != "SONG_OF_SOLOMON" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := passages.DisplayName("1_JOHN"); got != "1 John" {
		t.Fatalf("unexpected display name %q", got)
	}
	if got := passages.Reference("JOHN", 3, 16); got != "John 3:16" {
		t.Fatalf("unexpected reference %q", got)
	}
}

func TestResolveCollections(t *testing.T) {
	all := []string{"GENESIS", "PSALMS", "PROVERBS", "JOHN"}
	tests := []struct {
		name  string
		allow []string
		deny  []string
		want  []string
	}{
		{"allow keeps catalog order", []string{"john", "Psalms"}, nil, []string{"PSALMS", "JOHN"}},
		{"deny wins", []string{"John", "Psalms"}, []string{"psalms"}, []string{"JOHN"}},
		{"empty allow selects all", nil, []string{"Genesis"}, []string{"PSALMS", "PROVERBS", "JOHN"}},
		{"unmatched allow falls back", []string{"Revelation"}, []string{"John"}, []string{"GENESIS", "PSALMS", "PROVERBS"}},
		{"everything denied", nil, all, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := passages.ResolveCollections(all, tt.allow, tt.deny)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ResolveCollections = %v, want %v", got, tt.want)
			}
		})
	}
}
