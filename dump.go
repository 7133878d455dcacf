package strata

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Redacted replaces secret values in dump output.
const Redacted = "***redacted***"

// DumpOption configures dump behavior using the functional options pattern.
type DumpOption func(*dumpConfig)

// dumpConfig holds options for DumpEffective.
type dumpConfig struct {
	withSources bool   // Include source attribution for each field
	asJSON      bool   // Output as JSON instead of text format
	indent      string // Indentation for JSON output (default: "  ")
}

// WithSources includes source attribution for each field in the output.
func WithSources() DumpOption {
	return func(cfg *dumpConfig) {
		cfg.withSources = true
	}
}

// AsJSON outputs configuration as JSON instead of text format.
func AsJSON() DumpOption {
	return func(cfg *dumpConfig) {
		cfg.asJSON = true
	}
}

// WithIndent sets the indentation for JSON output.
// Default is two spaces ("  ").
func WithIndent(indent string) DumpOption {
	return func(cfg *dumpConfig) {
		cfg.indent = indent
	}
}

// DumpEffective writes a human-readable rendering of a built
// configuration. Secret fields are redacted; WithSources adds the
// origin recorded in provenance. Returns an error if writing fails.
func DumpEffective[T any](w io.Writer, cfg *T, opts ...DumpOption) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	config := dumpConfig{indent: "  "}
	for _, opt := range opts {
		opt(&config)
	}

	// Provenance drives secret redaction and source attribution.
	provByField := make(map[string]*FieldProvenance)
	if prov, ok := GetProvenance(cfg); ok {
		for i := range prov.Fields {
			provByField[prov.Fields[i].FieldPath] = &prov.Fields[i]
		}
	}

	v := reflect.ValueOf(cfg).Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("config must be a struct")
	}

	if config.asJSON {
		tree := make(map[string]any)
		dumpStruct(v, "", func(keyPath string, value any, _ *FieldProvenance) {
			insertDotted(tree, keyPath, value)
		}, provByField)

		data, err := json.MarshalIndent(tree, "", config.indent)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	}

	var writeErr error
	dumpStruct(v, "", func(keyPath string, value any, prov *FieldProvenance) {
		if writeErr != nil {
			return
		}
		line := fmt.Sprintf("%s: %v", keyPath, value)
		if config.withSources && prov != nil && prov.SourceName != "" {
			line += fmt.Sprintf(" (source: %s)", prov.SourceName)
		}
		_, writeErr = fmt.Fprintln(w, line)
	}, provByField)
	return writeErr
}

// dumpStruct walks a built configuration in declaration order, calling
// emit once per leaf-ish field with its key path and display value.
func dumpStruct(v reflect.Value, fieldPrefix string, emit func(keyPath string, value any, prov *FieldProvenance), provByField map[string]*FieldProvenance) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		tagCfg := parseTag(field.Tag.Get("conf"))
		if tagCfg.skip {
			continue
		}

		fieldPath := joinKeyPath(fieldPrefix, field.Name)
		prov := provByField[fieldPath]

		key := strings.ToLower(field.Name)
		if tagCfg.name != "" {
			key = strings.ToLower(tagCfg.name)
		}

		fieldValue := v.Field(i)
		fieldType := field.Type

		if fieldType.Kind() == reflect.Ptr {
			if fieldValue.IsNil() {
				continue
			}
			fieldValue = fieldValue.Elem()
			fieldType = fieldType.Elem()
		}

		if isOptionalType(fieldType) {
			if !fieldValue.Field(1).Bool() {
				continue // Unset optionals are omitted
			}
			fieldValue = fieldValue.Field(0)
			fieldType = fieldValue.Type()
		}

		secret := tagCfg.secret || (prov != nil && prov.Secret)

		if hasStructElems(fieldType) {
			if secret {
				emit(key, Redacted, prov)
				continue
			}
			// Collections of structs recurse per element so secret
			// tags on element fields still redact.
			dumpContainer(fieldValue, key, fieldPath, emit, provByField, prov)
			continue
		}

		if fieldType.Kind() == reflect.Struct && !isLeafType(fieldType) {
			if tagCfg.prefix != "" {
				key = strings.ToLower(tagCfg.prefix)
			}
			if secret {
				emit(key, Redacted, prov)
				continue
			}
			// Nested aggregates recurse; the key path grows a segment.
			nested := fieldValue
			prefix := key
			dumpStruct(nested, fieldPath, func(childKey string, value any, childProv *FieldProvenance) {
				emit(prefix+"."+childKey, value, childProv)
			}, provByField)
			continue
		}

		emit(key, formatDumpValue(fieldValue, secret), prov)
	}
}

// hasStructElems reports whether a field type is a slice, array, or map
// whose elements are structs (pointer elements unwrapped). Byte slices
// and other leaf containers report false.
func hasStructElems(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
	default:
		return false
	}
	if isLeafType(t) {
		return false
	}
	elem := t.Elem()
	if elem.Kind() == reflect.Ptr {
		elem = elem.Elem()
	}
	return elem.Kind() == reflect.Struct && !isLeafType(elem)
}

// dumpContainer walks a collection of structs element by element, the
// entry key or index becoming a path segment. Element fields share the
// container's provenance record; their own secret tags still apply.
func dumpContainer(v reflect.Value, keyPrefix, fieldPrefix string, emit func(keyPath string, value any, prov *FieldProvenance), provByField map[string]*FieldProvenance, prov *FieldProvenance) {
	each := func(segment string, elem reflect.Value) {
		if elem.Kind() == reflect.Ptr {
			if elem.IsNil() {
				return
			}
			elem = elem.Elem()
		}
		dumpStruct(elem, fieldPrefix, func(childKey string, value any, _ *FieldProvenance) {
			emit(keyPrefix+"."+segment+"."+childKey, value, prov)
		}, provByField)
	}

	if v.Kind() == reflect.Map {
		keys := make([]string, 0, v.Len())
		byKey := make(map[string]reflect.Value, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			key := fmt.Sprintf("%v", iter.Key().Interface())
			keys = append(keys, key)
			byKey[key] = iter.Value()
		}
		sort.Strings(keys)
		for _, key := range keys {
			each(key, byKey[key])
		}
		return
	}

	for i := 0; i < v.Len(); i++ {
		each(strconv.Itoa(i), v.Index(i))
	}
}

// formatDumpValue renders one field value for display, redacting
// secrets and normalizing time values.
func formatDumpValue(v reflect.Value, secret bool) any {
	if secret {
		return Redacted
	}

	switch v.Kind() {
	case reflect.Int64:
		if v.Type() == durationType {
			return v.Interface().(time.Duration).String()
		}
	case reflect.Struct:
		if v.Type() == timeType {
			return v.Interface().(time.Time).Format(time.RFC3339)
		}
	}
	return v.Interface()
}

// insertDotted places a value into a nested map under a dotted key.
func insertDotted(tree map[string]any, key string, value any) {
	segments := strings.Split(key, ".")
	current := tree
	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[segment] = next
		}
		current = next
	}
	current[segments[len(segments)-1]] = value
}
