// Package config loads, normalizes, and validates the fretforge TOML
// configuration file.
package config
