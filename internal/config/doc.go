// Package config loads, normalizes, and validates airdate configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files from ~/.config/airdate/config.toml or a
// project-local airdate.toml. The Config type centralizes every knob the
// daemon and CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
