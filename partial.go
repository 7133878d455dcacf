package strata

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// node is the partial-value representation of one field: a leaf slot,
// a struct aggregate, a keyed container, or an unkeyed container. The
// variant is fixed by the schema; only slot states and container
// contents change after creation.
type node struct {
	kind fieldKind

	// Slot state for leaf/keyed/unkeyed nodes. Struct nodes derive
	// their state from their children.
	set       bool
	secure    bool   // Origin flag, recorded when the slot was last set
	source    string // Source name, for provenance
	defaulted bool   // Filled by the default resolver

	value    any              // kindLeaf: raw parsed value (nil = explicit null)
	children []*node          // kindStruct: parallel to typeSpec.fields
	entries  map[string]*node // kindKeyed: display key -> element
	elems    []*node          // kindUnkeyed
}

// newNode creates an all-unset partial matching a shape.
func newNode(spec *typeSpec) *node {
	n := &node{kind: spec.kind}
	switch spec.kind {
	case kindStruct:
		n.children = make([]*node, len(spec.fields))
		for _, fs := range spec.fields {
			n.children[fs.pos] = newNode(fs.spec)
		}
	case kindKeyed:
		n.entries = make(map[string]*node)
	}
	return n
}

// anySet reports whether the node or any descendant slot is set.
// A partially-set aggregate is "not unset" for default purposes even
// though it cannot finalize on its own.
func (n *node) anySet() bool {
	if n.kind != kindStruct {
		return n.set
	}
	for _, child := range n.children {
		if child.anySet() {
			return true
		}
	}
	return false
}

// clone deep-copies a node tree. TryBuild resolves defaults on a copy
// so the accumulated partial stays untouched by a build attempt.
func (n *node) clone() *node {
	out := &node{
		kind:      n.kind,
		set:       n.set,
		secure:    n.secure,
		source:    n.source,
		defaulted: n.defaulted,
		value:     n.value,
	}
	if n.children != nil {
		out.children = make([]*node, len(n.children))
		for i, child := range n.children {
			out.children[i] = child.clone()
		}
	}
	if n.entries != nil {
		out.entries = make(map[string]*node, len(n.entries))
		for k, child := range n.entries {
			out.entries[k] = child.clone()
		}
	}
	if n.elems != nil {
		out.elems = make([]*node, len(n.elems))
		for i, child := range n.elems {
			out.elems[i] = child.clone()
		}
	}
	return out
}

// sortedKeys returns a keyed node's entry keys in deterministic order,
// used so error paths and finalized maps are stable.
func (n *node) sortedKeys() []string {
	keys := make([]string, 0, len(n.entries))
	for k := range n.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// bindRaw converts one source's raw data into a partial matching the
// schema. Unknown struct keys are collected into unknown (as dotted
// paths) rather than failing, so the caller can report them all at
// once in strict mode. Shape mismatches fail with a path-qualified
// ConversionError.
func bindRaw(spec *typeSpec, raw any, secure bool, source string, unknown *[]string) (*node, error) {
	switch spec.kind {
	case kindLeaf:
		if isRawMapping(raw) {
			return nil, &ConversionError{Err: fmt.Errorf("expected a scalar value, got a mapping")}
		}
		return &node{kind: kindLeaf, set: true, secure: secure, source: source, value: raw}, nil

	case kindStruct:
		return bindStruct(spec, raw, secure, source, unknown)

	case kindKeyed:
		return bindKeyed(spec, raw, secure, source, unknown)

	case kindUnkeyed:
		return bindUnkeyed(spec, raw, secure, source, unknown)
	}
	return nil, fmt.Errorf("strata: unknown field kind %d", spec.kind)
}

func bindStruct(spec *typeSpec, raw any, secure bool, source string, unknown *[]string) (*node, error) {
	n := newNode(spec)
	if raw == nil {
		return n, nil
	}

	mapping, ok := asStringMap(raw)
	if !ok {
		return nil, &ConversionError{Err: fmt.Errorf("expected a mapping, got %T", raw)}
	}

	for key, value := range mapping {
		fs, known := spec.byKey[strings.ToLower(key)]
		if !known {
			*unknown = append(*unknown, key)
			continue
		}

		var childUnknown []string
		child, err := bindRaw(fs.spec, value, secure, source, &childUnknown)
		if err != nil {
			return nil, prependPath(err, fs.key)
		}
		for _, uk := range childUnknown {
			*unknown = append(*unknown, fs.key+"."+uk)
		}
		n.children[fs.pos] = child
	}

	return n, nil
}

func bindKeyed(spec *typeSpec, raw any, secure bool, source string, unknown *[]string) (*node, error) {
	mapping, ok := asStringMap(raw)
	if !ok {
		return nil, &ConversionError{Err: fmt.Errorf("expected a mapping, got %T", raw)}
	}

	n := &node{
		kind:    kindKeyed,
		set:     true, // Explicit empty mapping is still set
		secure:  secure,
		source:  source,
		entries: make(map[string]*node, len(mapping)),
	}

	for key, value := range mapping {
		var childUnknown []string
		child, err := bindRaw(spec.elem, value, secure, source, &childUnknown)
		if err != nil {
			return nil, prependPath(err, key)
		}
		for _, uk := range childUnknown {
			*unknown = append(*unknown, key+"."+uk)
		}
		n.entries[key] = child
	}

	return n, nil
}

func bindUnkeyed(spec *typeSpec, raw any, secure bool, source string, unknown *[]string) (*node, error) {
	items, ok := asSlice(raw)
	if !ok {
		return nil, &ConversionError{Err: fmt.Errorf("expected a sequence, got %T", raw)}
	}

	n := &node{
		kind:   kindUnkeyed,
		set:    true, // Explicit empty sequence is still set
		secure: secure,
		source: source,
		elems:  make([]*node, 0, len(items)),
	}

	for i, item := range items {
		var childUnknown []string
		child, err := bindRaw(spec.elem, item, secure, source, &childUnknown)
		if err != nil {
			return nil, prependPath(err, fmt.Sprintf("%d", i))
		}
		for _, uk := range childUnknown {
			*unknown = append(*unknown, fmt.Sprintf("%d.%s", i, uk))
		}
		n.elems = append(n.elems, child)
	}

	return n, nil
}

// asStringMap converts raw mapping representations (decoder output or
// Go map values supplied as defaults) to a uniform string-keyed map.
func asStringMap(raw any) (map[string]any, bool) {
	switch m := raw.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[fmt.Sprintf("%v", k)] = v
		}
		return out, true
	}

	rv := reflect.ValueOf(raw)
	if !rv.IsValid() || rv.Kind() != reflect.Map {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[fmt.Sprintf("%v", iter.Key().Interface())] = iter.Value().Interface()
	}
	return out, true
}

// asSlice converts raw sequence representations ([]any from decoders,
// typed Go slices supplied as defaults) to []any.
func asSlice(raw any) ([]any, bool) {
	if items, ok := raw.([]any); ok {
		return items, true
	}

	rv := reflect.ValueOf(raw)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		// []byte is scalar-ish, not a sequence of config values.
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// isRawMapping reports whether a raw value is mapping-shaped.
func isRawMapping(raw any) bool {
	_, ok := asStringMap(raw)
	return ok
}
