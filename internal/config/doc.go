// Package config loads, normalizes, and validates sigil configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob
// the worker, daemon, and CLI need: identity endpoints, signing credentials,
// provenance tool binaries, and directory layout.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical endpoints, and clear validation errors.
package config
