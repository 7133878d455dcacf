package strata

// defaultSourceName attributes defaulted slots in provenance output.
const defaultSourceName = "default"

// applyDefaults fills still-unset fields from their declared defaults,
// in one pass after all sources are merged. overrides maps dotted
// schema paths to values registered via Builder.WithDefault and wins
// over tag defaults.
//
// A field is only defaulted when none of its descendants carry data.
// A partially-set aggregate keeps its state so the finalizer reports
// the precise missing child instead of silently substituting the
// aggregate's default. Container elements are descended into so their
// own field defaults still apply.
func applyDefaults(n *node, spec *typeSpec, path string, overrides map[string]any) error {
	switch spec.kind {
	case kindStruct:
		for _, fs := range spec.fields {
			child := n.children[fs.pos]
			fieldPath := joinKeyPath(path, fs.key)

			if !child.anySet() {
				if value, ok := declaredDefault(fs, fieldPath, overrides); ok {
					filled, err := materializeDefault(fs.spec, value)
					if err != nil {
						return prependPath(err, fs.key)
					}
					*child = *filled
					continue
				}
				if fs.spec.kind != kindStruct || fs.optional {
					// An untouched optional aggregate stays absent;
					// inner defaults must not materialize it.
					continue
				}
				// An entirely absent required aggregate still gets
				// its own fields' defaults, field by field.
			}

			if err := applyDefaults(child, fs.spec, fieldPath, overrides); err != nil {
				return prependPath(err, fs.key)
			}
		}

	case kindKeyed:
		for _, key := range n.sortedKeys() {
			if err := applyDefaults(n.entries[key], spec.elem, path, overrides); err != nil {
				return prependPath(err, key)
			}
		}

	case kindUnkeyed:
		for i, elem := range n.elems {
			if err := applyDefaults(elem, spec.elem, path, overrides); err != nil {
				return prependPath(err, indexSegment(i))
			}
		}
	}

	return nil
}

// declaredDefault resolves the default for a field, if any.
func declaredDefault(fs *fieldSpec, fieldPath string, overrides map[string]any) (any, bool) {
	if value, ok := overrides[fieldPath]; ok {
		return value, true
	}
	if fs.hasDefault {
		return fs.defValue, true
	}
	return nil, false
}

// materializeDefault evaluates a default value into a fully-set
// partial. Defaults are not "from" any source, so the slot is recorded
// as securely originated; a default can never trip the secret gate.
func materializeDefault(spec *typeSpec, value any) (*node, error) {
	var unknown []string
	filled, err := bindRaw(spec, value, true, defaultSourceName, &unknown)
	if err != nil {
		return nil, err
	}
	markDefaulted(filled)
	return filled, nil
}

func markDefaulted(n *node) {
	if n.set {
		n.defaulted = true
	}
	for _, child := range n.children {
		markDefaulted(child)
	}
	for _, child := range n.entries {
		markDefaulted(child)
	}
	for _, child := range n.elems {
		markDefaulted(child)
	}
}

func joinKeyPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
