// Package sourcefile provides a configuration source backed by YAML,
// TOML, or JSON files. The format is inferred from the file extension
// unless forced through Options.
package sourcefile
