package sourcedata

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Source is an inline configuration source. The zero value is not
// useful; construct with YAML, TOML, JSON, or Values.
type Source struct {
	name   string
	secure bool
	load   func() (map[string]any, error)
}

// YAML creates a source from a raw YAML document.
func YAML(contents string) *Source {
	return &Source{
		name: "inline:yaml",
		load: func() (map[string]any, error) {
			var raw map[string]any
			if err := yaml.Unmarshal([]byte(contents), &raw); err != nil {
				return nil, fmt.Errorf("parse YAML literal: %w", err)
			}
			return emptyIfNil(raw), nil
		},
	}
}

// TOML creates a source from a raw TOML document.
func TOML(contents string) *Source {
	return &Source{
		name: "inline:toml",
		load: func() (map[string]any, error) {
			var raw map[string]any
			if err := toml.Unmarshal([]byte(contents), &raw); err != nil {
				return nil, fmt.Errorf("parse TOML literal: %w", err)
			}
			return emptyIfNil(raw), nil
		},
	}
}

// JSON creates a source from a raw JSON document.
func JSON(contents string) *Source {
	return &Source{
		name: "inline:json",
		load: func() (map[string]any, error) {
			var raw map[string]any
			if err := json.Unmarshal([]byte(contents), &raw); err != nil {
				return nil, fmt.Errorf("parse JSON literal: %w", err)
			}
			return emptyIfNil(raw), nil
		},
	}
}

// Values creates a source from an in-process nested value map. The map
// is not copied; callers must not mutate it after handing it over.
func Values(values map[string]any) *Source {
	return &Source{
		name: "inline:values",
		load: func() (map[string]any, error) {
			return emptyIfNil(values), nil
		},
	}
}

// AllowSecrets marks this source as trusted to carry secret values and
// returns it for chaining.
func (s *Source) AllowSecrets() *Source {
	s.secure = true
	return s
}

// Load parses the literal into a nested raw map.
func (s *Source) Load(ctx context.Context) (map[string]any, error) {
	return s.load()
}

// Name returns a human-readable identifier for this source.
func (s *Source) Name() string {
	return s.name
}

// Secure reports whether the caller opted this source into carrying secrets.
func (s *Source) Secure() bool {
	return s.secure
}

func emptyIfNil(m map[string]any) map[string]any {
	if m == nil {
		return make(map[string]any)
	}
	return m
}
