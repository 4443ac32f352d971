// Package config loads, normalizes, and validates plenum configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PLENUM_NTFY_TOPIC. The Config type centralizes every knob the CLI and
// pipeline need, so directories, tool overrides, and processing limits are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
