// Package config loads, normalizes, and validates versereel configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, applies an optional .env file for upload credentials and honours
// YOUTUBE_* environment fallbacks. Every knob the CLI and scheduler need lives
// on Config so callers receive sanitized paths and clear validation errors.
package config
