package strata

import (
	"encoding"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"
)

// fieldKind selects which merge/default/finalize rule applies to a field.
type fieldKind int

const (
	kindLeaf    fieldKind = iota // Scalar, time, TextUnmarshaler, Optional
	kindStruct                   // Nested aggregate
	kindKeyed                    // Map-like container, merged key-wise
	kindUnkeyed                  // Slice/array, replaced wholesale
)

// ConvertFunc transforms a raw parsed value into a field's target type.
// Registered via Builder.WithConversion and applied at finalize time.
type ConvertFunc func(raw any) (any, error)

// typeSpec describes the partial shape of one target type.
type typeSpec struct {
	kind   fieldKind
	typ    reflect.Type // Target type, pointer/Optional already unwrapped
	fields []*fieldSpec // kindStruct: fields in declaration order
	byKey  map[string]*fieldSpec
	elem   *typeSpec    // kindKeyed/kindUnkeyed: element shape
	keyTyp reflect.Type // kindKeyed: key type
}

// fieldSpec carries the metadata table entry for one struct field.
type fieldSpec struct {
	name       string // Go field name
	key        string // Normalized config key
	index      int    // Struct field index
	pos        int    // Position among exported, non-skipped fields
	secret     bool   // Values must come from secure sources
	hasDefault bool   // A tag default was declared
	defValue   any    // Raw default, materialized only if never set
	optional   bool   // Optional[T] or pointer: absence is not an error
	spec       *typeSpec
}

var (
	specCache sync.Map // reflect.Type -> *typeSpec

	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
	timeType            = reflect.TypeOf(time.Time{})
	optionalPkgPath     = reflect.TypeOf(Optional[int]{}).PkgPath()
)

// schemaFor returns the cached typeSpec for a target type, building it
// on first use. The target must be a struct type.
func schemaFor(t reflect.Type) (*typeSpec, error) {
	if cached, ok := specCache.Load(t); ok {
		return cached.(*typeSpec), nil
	}

	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("strata: configuration target must be a struct, got %s", t)
	}

	spec, err := buildTypeSpec(t, make(map[reflect.Type]bool))
	if err != nil {
		return nil, err
	}

	specCache.Store(t, spec)
	return spec, nil
}

// buildTypeSpec classifies a type and recurses into its structure.
// visited holds the struct types on the current descent path; a type
// reaching itself has no finite partial shape and is rejected.
func buildTypeSpec(t reflect.Type, visited map[reflect.Type]bool) (*typeSpec, error) {
	if isLeafType(t) {
		return &typeSpec{kind: kindLeaf, typ: t}, nil
	}

	switch t.Kind() {
	case reflect.Struct:
		return buildStructSpec(t, visited)

	case reflect.Map:
		if !isDisplayableKey(t.Key()) {
			return nil, fmt.Errorf("strata: map key type %s is not displayable (string or integer keys only)", t.Key())
		}
		elem, err := buildElemSpec(t.Elem(), visited)
		if err != nil {
			return nil, err
		}
		return &typeSpec{kind: kindKeyed, typ: t, elem: elem, keyTyp: t.Key()}, nil

	case reflect.Slice, reflect.Array:
		elem, err := buildElemSpec(t.Elem(), visited)
		if err != nil {
			return nil, err
		}
		return &typeSpec{kind: kindUnkeyed, typ: t, elem: elem}, nil

	default:
		return nil, fmt.Errorf("strata: unsupported configuration field type %s", t)
	}
}

// buildElemSpec builds the shape of a container element, unwrapping a
// pointer element type.
func buildElemSpec(t reflect.Type, visited map[reflect.Type]bool) (*typeSpec, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return buildTypeSpec(t, visited)
}

func buildStructSpec(t reflect.Type, visited map[reflect.Type]bool) (*typeSpec, error) {
	if visited[t] {
		return nil, fmt.Errorf("strata: recursive configuration type %s is unsupported", t)
	}
	visited[t] = true
	defer delete(visited, t)

	spec := &typeSpec{
		kind:  kindStruct,
		typ:   t,
		byKey: make(map[string]*fieldSpec),
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		tagCfg := parseTag(field.Tag.Get("conf"))
		if tagCfg.skip {
			continue
		}

		fieldType := field.Type
		optional := false

		if fieldType.Kind() == reflect.Ptr {
			optional = true
			fieldType = fieldType.Elem()
		}
		if isOptionalType(fieldType) {
			optional = true
			fieldType = fieldType.Field(0).Type // Inner Value type
		}

		inner, err := buildTypeSpec(fieldType, visited)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}

		key := strings.ToLower(field.Name)
		if tagCfg.name != "" {
			key = strings.ToLower(tagCfg.name)
		}
		if tagCfg.prefix != "" && inner.kind == kindStruct {
			key = strings.ToLower(tagCfg.prefix)
		}
		if strings.Contains(key, ".") {
			return nil, fmt.Errorf("field %s: key %q must be a single path segment", field.Name, key)
		}

		fs := &fieldSpec{
			name:     field.Name,
			key:      key,
			index:    i,
			pos:      len(spec.fields),
			secret:   tagCfg.secret,
			optional: optional,
			spec:     inner,
		}

		if tagCfg.hasDefault {
			if inner.kind != kindLeaf {
				return nil, fmt.Errorf("field %s: tag defaults apply to leaf fields only, use WithDefault for aggregates", field.Name)
			}
			fs.hasDefault = true
			fs.defValue = tagCfg.defValue
		}

		if _, dup := spec.byKey[key]; dup {
			return nil, fmt.Errorf("field %s: duplicate configuration key %q", field.Name, key)
		}
		spec.byKey[key] = fs
		spec.fields = append(spec.fields, fs)
	}

	return spec, nil
}

// isLeafType reports whether a type is bound as a single slot rather
// than descended into: scalars, time values, text-unmarshable types,
// and Optional wrappers (whose inner type is classified separately).
func isLeafType(t reflect.Type) bool {
	if t == timeType || t.PkgPath() == "time" {
		return true
	}
	if reflect.PtrTo(t).Implements(textUnmarshalerType) {
		return true
	}
	if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
		return true // []byte binds as a single scalar
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// isOptionalType reports whether a type is this package's Optional[T].
func isOptionalType(t reflect.Type) bool {
	return t.Kind() == reflect.Struct &&
		t.PkgPath() == optionalPkgPath &&
		strings.HasPrefix(t.Name(), "Optional[") &&
		t.NumField() == 2 &&
		t.Field(0).Name == "Value" &&
		t.Field(1).Name == "Set"
}

// isDisplayableKey reports whether a map key type can appear in error
// paths and be parsed back from source data.
func isDisplayableKey(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}
