// Package sourcedata provides inline configuration sources: raw YAML,
// TOML, or JSON literals and in-process value maps. Useful for
// baked-in defaults, tests, and programmatic overrides.
package sourcedata
