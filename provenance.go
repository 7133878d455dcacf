package strata

import "sync"

// Provenance contains origin information for configuration fields.
type Provenance struct {
	Fields []FieldProvenance
}

// FieldProvenance describes where a field's value came from.
type FieldProvenance struct {
	FieldPath  string // Dot notation over Go field names (e.g., "Database.Host")
	KeyPath    string // Normalized key (e.g., "database.host")
	SourceName string // Source identifier (e.g., "env:APP_"), or "default"
	Secure     bool   // Whether the origin was marked secure
	Secret     bool   // Whether the field is secret-tagged
	Defaulted  bool   // Whether the value came from a default declaration
}

var provenanceStore sync.Map

// GetProvenance returns provenance metadata for a built configuration.
// Thread-safe.
func GetProvenance[T any](cfg *T) (*Provenance, bool) {
	if cfg == nil {
		return nil, false
	}

	value, ok := provenanceStore.Load(cfg)
	if !ok {
		return nil, false
	}

	prov, ok := value.(*Provenance)
	return prov, ok
}

func storeProvenance[T any](cfg *T, prov *Provenance) {
	if cfg != nil && prov != nil {
		provenanceStore.Store(cfg, prov)
	}
}

// collectProvenance walks a resolved partial and records the origin of
// every set field. Containers are recorded at the container level, the
// granularity at which their slots are written.
func collectProvenance(root *node, schema *typeSpec) *Provenance {
	prov := &Provenance{}
	collectFieldProvenance(root, schema, "", "", false, prov)
	return prov
}

func collectFieldProvenance(n *node, spec *typeSpec, fieldPath, keyPath string, secret bool, prov *Provenance) {
	switch spec.kind {
	case kindStruct:
		for _, fs := range spec.fields {
			child := n.children[fs.pos]
			collectFieldProvenance(
				child,
				fs.spec,
				joinKeyPath(fieldPath, fs.name),
				joinKeyPath(keyPath, fs.key),
				secret || fs.secret,
				prov,
			)
		}

	default:
		if !n.set {
			return
		}
		prov.Fields = append(prov.Fields, FieldProvenance{
			FieldPath:  fieldPath,
			KeyPath:    keyPath,
			SourceName: n.source,
			Secure:     n.secure,
			Secret:     secret,
			Defaulted:  n.defaulted,
		})
	}
}
