package strata

import (
	"encoding"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/spf13/cast"
)

var durationType = reflect.TypeOf(time.Duration(0))

// finalize converts a fully-resolved partial into the concrete target
// value. It surfaces the first error in field declaration order (keyed
// entries in sorted key order), path-qualified as it unwinds outward.
// The result is all-or-nothing: no partially-built configuration is
// ever returned.
func finalize(n *node, spec *typeSpec, conversions map[string]ConvertFunc) (reflect.Value, error) {
	return buildValue(n, spec, "", conversions)
}

func buildValue(n *node, spec *typeSpec, path string, conversions map[string]ConvertFunc) (reflect.Value, error) {
	switch spec.kind {
	case kindLeaf:
		return buildLeaf(n, spec, path, conversions)

	case kindStruct:
		out := reflect.New(spec.typ).Elem()
		for _, fs := range spec.fields {
			child := n.children[fs.pos]
			if err := buildField(out.Field(fs.index), child, fs, joinKeyPath(path, fs.key), conversions); err != nil {
				return reflect.Value{}, prependPath(err, fs.key)
			}
		}
		return out, nil

	case kindKeyed:
		out := reflect.MakeMapWithSize(spec.typ, len(n.entries))
		for _, key := range n.sortedKeys() {
			elem, err := buildElem(n.entries[key], spec.elem, spec.typ.Elem(), path, conversions)
			if err != nil {
				return reflect.Value{}, prependPath(err, key)
			}
			mapKey, err := coerceKey(key, spec.keyTyp)
			if err != nil {
				return reflect.Value{}, prependPath(err, key)
			}
			out.SetMapIndex(mapKey, elem)
		}
		return out, nil

	case kindUnkeyed:
		return buildUnkeyed(n, spec, path, conversions)
	}

	return reflect.Value{}, fmt.Errorf("strata: unknown field kind %d", spec.kind)
}

// buildField resolves one struct field's slot into its concrete form,
// honoring optionality and explicit nulls.
func buildField(target reflect.Value, child *node, fs *fieldSpec, path string, conversions map[string]ConvertFunc) error {
	absent := !child.anySet()
	if !absent && fs.spec.kind == kindLeaf && child.value == nil && !child.defaulted {
		// Explicit null: set, but carries no value.
		if fs.optional {
			return nil
		}
		return &ConversionError{Err: errors.New("null value for required field")}
	}

	if absent {
		if fs.optional {
			return nil // Zero Optional / nil pointer
		}
		if fs.spec.kind != kindStruct {
			return &MissingValueError{}
		}
		// A never-touched required aggregate is resolved field by
		// field so the precise missing child is reported.
	}

	value, err := buildValue(child, fs.spec, path, conversions)
	if err != nil {
		return err
	}
	return assignField(target, value, fs)
}

// assignField stores a built value into the target field, wrapping it
// for Optional and pointer fields.
func assignField(target reflect.Value, value reflect.Value, fs *fieldSpec) error {
	if !fs.optional {
		target.Set(value)
		return nil
	}

	if target.Kind() == reflect.Ptr {
		ptr := reflect.New(value.Type())
		ptr.Elem().Set(value)
		target.Set(ptr)
		return nil
	}

	// Optional[T]: Value then Set.
	target.Field(0).Set(value)
	target.Field(1).SetBool(true)
	return nil
}

func buildElem(n *node, spec *typeSpec, targetType reflect.Type, path string, conversions map[string]ConvertFunc) (reflect.Value, error) {
	value, err := buildValue(n, spec, path, conversions)
	if err != nil {
		return reflect.Value{}, err
	}
	if targetType.Kind() == reflect.Ptr {
		ptr := reflect.New(value.Type())
		ptr.Elem().Set(value)
		return ptr, nil
	}
	return value, nil
}

func buildUnkeyed(n *node, spec *typeSpec, path string, conversions map[string]ConvertFunc) (reflect.Value, error) {
	if spec.typ.Kind() == reflect.Array {
		if len(n.elems) != spec.typ.Len() {
			return reflect.Value{}, &ConversionError{
				Err: fmt.Errorf("expected %d elements, got %d", spec.typ.Len(), len(n.elems)),
			}
		}
		out := reflect.New(spec.typ).Elem()
		for i, elem := range n.elems {
			value, err := buildElem(elem, spec.elem, spec.typ.Elem(), path, conversions)
			if err != nil {
				return reflect.Value{}, prependPath(err, indexSegment(i))
			}
			out.Index(i).Set(value)
		}
		return out, nil
	}

	out := reflect.MakeSlice(spec.typ, 0, len(n.elems))
	for i, elem := range n.elems {
		value, err := buildElem(elem, spec.elem, spec.typ.Elem(), path, conversions)
		if err != nil {
			return reflect.Value{}, prependPath(err, indexSegment(i))
		}
		out = reflect.Append(out, value)
	}
	return out, nil
}

// buildLeaf unwraps a set slot, running the registered conversion rule
// (if any) before coercing the raw value to the target type.
func buildLeaf(n *node, spec *typeSpec, path string, conversions map[string]ConvertFunc) (reflect.Value, error) {
	if !n.set {
		return reflect.Value{}, &MissingValueError{}
	}

	raw := n.value
	if fn, ok := conversions[path]; ok {
		converted, err := fn(raw)
		if err != nil {
			return reflect.Value{}, &ConversionError{Err: err}
		}
		raw = converted
	}

	value, err := coerceLeaf(raw, spec.typ)
	if err != nil {
		return reflect.Value{}, &ConversionError{Err: err}
	}
	return value, nil
}

// coerceLeaf converts a raw parsed value into the target leaf type.
// Exact type matches pass through; everything else goes through cast,
// a TextUnmarshaler hook, or a checked numeric conversion.
func coerceLeaf(raw any, typ reflect.Type) (reflect.Value, error) {
	if raw == nil {
		return reflect.Value{}, errors.New("null value")
	}

	rv := reflect.ValueOf(raw)
	if rv.Type() == typ {
		return rv, nil
	}

	switch {
	case typ == timeType:
		t, err := cast.ToTimeE(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(t), nil

	case typ == durationType:
		d, err := cast.ToDurationE(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(d), nil

	// Named byte-slice types like net.IP parse through their
	// TextUnmarshaler; only plain byte slices take raw string bytes.
	case typ.Kind() == reflect.Slice && typ.Elem().Kind() == reflect.Uint8 &&
		!reflect.PtrTo(typ).Implements(textUnmarshalerType):
		s, err := cast.ToStringE(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf([]byte(s)).Convert(typ), nil
	}

	switch typ.Kind() {
	case reflect.Bool:
		b, err := cast.ToBoolE(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(b).Convert(typ), nil

	case reflect.String:
		s, err := cast.ToStringE(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(s).Convert(typ), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := cast.ToInt64E(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(typ).Elem()
		if out.OverflowInt(i) {
			return reflect.Value{}, fmt.Errorf("value %d overflows %s", i, typ)
		}
		out.SetInt(i)
		return out, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := cast.ToUint64E(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(typ).Elem()
		if out.OverflowUint(u) {
			return reflect.Value{}, fmt.Errorf("value %d overflows %s", u, typ)
		}
		out.SetUint(u)
		return out, nil

	case reflect.Float32, reflect.Float64:
		f, err := cast.ToFloat64E(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(f).Convert(typ), nil
	}

	if reflect.PtrTo(typ).Implements(textUnmarshalerType) {
		s, err := cast.ToStringE(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(typ)
		if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
			return reflect.Value{}, err
		}
		return ptr.Elem(), nil
	}

	if rv.Type().AssignableTo(typ) {
		return rv, nil
	}
	return reflect.Value{}, fmt.Errorf("cannot convert %T to %s", raw, typ)
}

// coerceKey parses a keyed container's display key back into the
// declared map key type.
func coerceKey(key string, typ reflect.Type) (reflect.Value, error) {
	switch typ.Kind() {
	case reflect.String:
		return reflect.ValueOf(key).Convert(typ), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return reflect.Value{}, &ConversionError{Err: fmt.Errorf("invalid map key %q: %w", key, err)}
		}
		out := reflect.New(typ).Elem()
		if out.OverflowInt(i) {
			return reflect.Value{}, &ConversionError{Err: fmt.Errorf("map key %d overflows %s", i, typ)}
		}
		out.SetInt(i)
		return out, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return reflect.Value{}, &ConversionError{Err: fmt.Errorf("invalid map key %q: %w", key, err)}
		}
		out := reflect.New(typ).Elem()
		if out.OverflowUint(u) {
			return reflect.Value{}, &ConversionError{Err: fmt.Errorf("map key %d overflows %s", u, typ)}
		}
		out.SetUint(u)
		return out, nil
	}
	return reflect.Value{}, &ConversionError{Err: fmt.Errorf("unsupported map key type %s", typ)}
}

func indexSegment(i int) string {
	return strconv.Itoa(i)
}
