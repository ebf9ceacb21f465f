// Package config loads, normalizes, and validates photowall configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// PHOTOWALL_PHOTO_DIR, optionally seeded from a .env file next to the config.
// The Config type centralizes every knob the daemon and CLI need so the photo
// tree, frames, and engine cadence are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
