// Package config loads, normalizes, and validates hanzireader configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours HANZIREADER_* environment
// overrides. The Config type centralizes every knob the store, the reading
// progress tracker, the lookup service, and the CLI need, so data directories
// and cache lifetimes are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
