// Package passages loads the passage catalog: collections (books) made of
// chapters made of verses.
//
// Catalogs are YAML files listing each collection's chapters in order. When
// no catalog is configured the bundled sample corpus is used. Collection names
// are normalized to UPPER_UNDERSCORE keys, which also form the first part of
// a work item's natural key.
package passages
