// Package config loads, normalizes, and validates filebutler configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// FILEBUTLER_PLANNER_API_KEY. The Config type centralizes every knob the
// watcher and CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
