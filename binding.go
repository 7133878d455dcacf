package strata

import (
	"strings"
)

// tagConfig holds parsed directives from a struct field's `conf` tag.
type tagConfig struct {
	name       string // Custom key (name:api_key), a single path segment
	prefix     string // Key override for nested structs (prefix:foo), single segment
	defValue   string // Default value (default:value)
	secret     bool   // Field is secret (secret or secret:true)
	hasDefault bool   // Whether a default directive was present
	skip       bool   // Field is ignored (conf:"-")
}

// parseTag parses a `conf` struct tag into a structured tagConfig.
// Tag format: "directive1:value1,directive2:value2,..."
// Boolean directives can omit `:true` (e.g., "secret" == "secret:true").
// name and prefix values must be a single path segment (no dots);
// the schema builder rejects dotted keys. Default values containing
// commas must be declared via Builder.WithDefault instead of the tag.
func parseTag(tag string) tagConfig {
	cfg := tagConfig{}

	if tag == "" {
		return cfg
	}

	if tag == "-" {
		cfg.skip = true
		return cfg
	}

	for _, directive := range strings.Split(tag, ",") {
		directive = strings.TrimSpace(directive)
		if directive == "" {
			continue
		}

		// Split by colon to separate directive name from value
		parts := strings.SplitN(directive, ":", 2)
		name := strings.TrimSpace(parts[0])
		var value string
		if len(parts) > 1 {
			value = parts[1] // Don't trim value - empty strings may be intentional
		}

		switch name {
		case "name":
			cfg.name = value
		case "prefix":
			cfg.prefix = value
		case "default":
			cfg.defValue = value
			cfg.hasDefault = true
		case "secret":
			// Boolean directive: no value or explicit "true" means true
			if value == "" || value == "true" {
				cfg.secret = true
			} else if value == "false" {
				cfg.secret = false
			} else {
				// Invalid value, default to true for safety
				cfg.secret = true
			}
		}
	}

	return cfg
}
