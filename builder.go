package strata

import (
	"context"
	"fmt"
	"reflect"
)

// Builder accumulates ordered partial sources for a target type T and
// finalizes them into an immutable configuration value. Sources are
// applied lowest priority first: each merge's incoming values
// overwrite previously-set slots, so the last source wins.
//
// A Builder drives a single, synchronous build; it is not safe for
// concurrent use. Builds of different Builder instances share nothing.
type Builder[T any] struct {
	schema      *typeSpec
	root        *node
	sources     []Source
	strict      bool
	defaults    map[string]any
	conversions map[string]ConvertFunc
}

// New creates a Builder for T with an all-unset partial, no sources,
// and strict mode enabled. It fails if T is not a struct type or its
// `conf` tags are malformed.
func New[T any]() (*Builder[T], error) {
	var zero T
	schema, err := schemaFor(reflect.TypeOf(zero))
	if err != nil {
		return nil, err
	}

	return &Builder[T]{
		schema:      schema,
		root:        newNode(schema),
		strict:      true, // Default to strict mode
		defaults:    make(map[string]any),
		conversions: make(map[string]ConvertFunc),
	}, nil
}

// WithSource queues a source. Sources are applied in order by Load;
// later sources override earlier ones.
func (b *Builder[T]) WithSource(src Source) *Builder[T] {
	b.sources = append(b.sources, src)
	return b
}

// Strict controls whether unknown keys in a source cause an error.
// Default: true.
func (b *Builder[T]) Strict(strict bool) *Builder[T] {
	b.strict = strict
	return b
}

// WithDefault declares a fallback for the field at a dotted key path
// (e.g., "database.pool"). It accepts raw values of any shape the
// field can bind (scalars, maps, slices) and overrides any tag-level
// default. Like tag defaults, it applies only if no source ever set
// the field.
func (b *Builder[T]) WithDefault(path string, value any) *Builder[T] {
	b.defaults[path] = value
	return b
}

// WithConversion registers a conversion rule for the leaf field at a
// dotted key path. The rule runs at finalize time on the raw parsed
// value; its failure surfaces as a ConversionError at that path. For
// container elements the path addresses the element's field without
// entry keys (e.g., "servers.host" for every element of "servers").
func (b *Builder[T]) WithConversion(path string, fn ConvertFunc) *Builder[T] {
	b.conversions[path] = fn
	return b
}

// OverrideWith loads one source and merges its partial into the
// accumulated state. The merge is transactional: on any error
// (source failure, unknown keys in strict mode, shape mismatch,
// secret violation) the accumulated partial is left unchanged.
func (b *Builder[T]) OverrideWith(ctx context.Context, src Source) error {
	raw, err := src.Load(ctx)
	if err != nil {
		return &SourceError{Source: src.Name(), Err: err}
	}

	var unknown []string
	incoming, err := bindRaw(b.schema, raw, src.Secure(), src.Name(), &unknown)
	if err != nil {
		return err
	}
	if b.strict && len(unknown) > 0 {
		return &UnknownKeysError{Source: src.Name(), Keys: unknown}
	}

	return merge(b.root, incoming, b.schema, src.Secure(), src.Name())
}

// TryBuild resolves defaults and finalizes the accumulated partial
// into a configuration value. Any field still unset without a default
// fails with a path-qualified MissingValueError; there is no partial
// result. The accumulated partial is not consumed: defaults are
// resolved on a copy, so further overrides and rebuilds stay valid.
func (b *Builder[T]) TryBuild() (*T, error) {
	resolved := b.root.clone()
	if err := applyDefaults(resolved, b.schema, "", b.defaults); err != nil {
		return nil, err
	}

	value, err := finalize(resolved, b.schema, b.conversions)
	if err != nil {
		return nil, err
	}

	cfg := new(T)
	reflect.ValueOf(cfg).Elem().Set(value)

	storeProvenance(cfg, collectProvenance(resolved, b.schema))
	return cfg, nil
}

// Load applies all queued sources in order, then builds. It is the
// one-shot form of repeated OverrideWith calls followed by TryBuild.
func (b *Builder[T]) Load(ctx context.Context) (*T, error) {
	for _, src := range b.sources {
		if err := b.OverrideWith(ctx, src); err != nil {
			return nil, fmt.Errorf("apply source %s: %w", src.Name(), err)
		}
	}
	return b.TryBuild()
}
