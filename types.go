package strata

import "context"

// Source provides one layer of partial configuration data.
// Load returns a nested map mirroring the target struct's shape
// (map[string]any values for nested sections, raw scalars for leaves).
// Keys must be normalized to lowercase paths at each level.
type Source interface {
	// Load returns the raw partial data. Missing optional backends
	// should return an empty map, not an error.
	Load(ctx context.Context) (map[string]any, error)

	// Name identifies the source in errors and provenance
	// (e.g., "file:config.yaml", "env:APP_").
	Name() string

	// Secure reports whether this source is trusted to carry values
	// for secret-tagged fields. Implementations should default to
	// false and let callers opt in explicitly.
	Secure() bool
}

// Optional distinguishes "not set" from "zero value". A field of this
// type is never reported missing: if no source supplies it, the built
// configuration carries Set == false.
type Optional[T any] struct {
	Value T
	Set   bool
}

// Get returns the wrapped value and whether it was set.
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Set
}

// OrDefault returns the wrapped value or the provided default.
func (o Optional[T]) OrDefault(defaultVal T) T {
	if o.Set {
		return o.Value
	}
	return defaultVal
}
