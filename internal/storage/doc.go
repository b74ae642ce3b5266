// Package storage lays out generated artifacts under the output directory and
// applies the archive and retention policy: moving uploaded finals aside,
// deleting intermediates, and trimming old archives when the output
// directory grows past its size limit.
package storage
