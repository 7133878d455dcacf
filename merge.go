package strata

import "strconv"

// merge combines an incoming partial into the accumulated one.
// Last write wins: any slot the incoming side set overwrites the
// accumulated slot, value and origin flag together. The secret gate
// runs over the whole incoming partial before anything is mutated, so
// a failed merge leaves the accumulated partial exactly as it was.
func merge(acc, in *node, spec *typeSpec, secure bool, source string) error {
	if err := checkSecrets(in, spec, false, secure, source); err != nil {
		return err
	}
	mergeNodes(acc, in, spec)
	return nil
}

// checkSecrets rejects any set slot under a secret-tagged field when
// the source is not secure. The check fires on every write, even if
// the field already holds a securely-sourced value. Paths gain
// segments as the error unwinds outward.
func checkSecrets(n *node, spec *typeSpec, secret, secure bool, source string) error {
	if secret && !secure {
		switch spec.kind {
		case kindKeyed:
			if !n.set {
				return nil
			}
			// Report the offending entry, not the whole container.
			for _, key := range n.sortedKeys() {
				if n.entries[key].anySet() {
					return &SecretViolationError{Path: Path{key}, Source: source}
				}
			}
			// An explicit empty container is still data being written
			// to a secret field.
			return &SecretViolationError{Path: Path{}, Source: source}

		case kindUnkeyed:
			if !n.set {
				return nil
			}
			for i, elem := range n.elems {
				if elem.anySet() {
					return &SecretViolationError{Path: Path{strconv.Itoa(i)}, Source: source}
				}
			}
			return &SecretViolationError{Path: Path{}, Source: source}

		default:
			if n.anySet() {
				return &SecretViolationError{Path: Path{}, Source: source}
			}
			return nil
		}
	}

	switch spec.kind {
	case kindStruct:
		for _, fs := range spec.fields {
			if err := checkSecrets(n.children[fs.pos], fs.spec, fs.secret, secure, source); err != nil {
				return prependPath(err, fs.key)
			}
		}

	case kindKeyed:
		for _, key := range n.sortedKeys() {
			if err := checkSecrets(n.entries[key], spec.elem, false, secure, source); err != nil {
				return prependPath(err, key)
			}
		}

	case kindUnkeyed:
		for i, elem := range n.elems {
			if err := checkSecrets(elem, spec.elem, false, secure, source); err != nil {
				return prependPath(err, strconv.Itoa(i))
			}
		}
	}

	return nil
}

// mergeNodes applies the per-kind override rules. It cannot fail; the
// secret gate has already validated the incoming partial.
func mergeNodes(acc, in *node, spec *typeSpec) {
	switch spec.kind {
	case kindLeaf:
		// Value and origin flag move together, as one unit.
		if in.set {
			acc.set = true
			acc.secure = in.secure
			acc.source = in.source
			acc.defaulted = false
			acc.value = in.value
		}

	case kindStruct:
		for _, fs := range spec.fields {
			mergeNodes(acc.children[fs.pos], in.children[fs.pos], fs.spec)
		}

	case kindKeyed:
		// Key-wise union; entries on both sides merge recursively.
		if !in.set {
			return
		}
		acc.set = true
		acc.secure = in.secure
		acc.source = in.source
		acc.defaulted = false
		for key, incoming := range in.entries {
			if existing, ok := acc.entries[key]; ok {
				mergeNodes(existing, incoming, spec.elem)
			} else {
				acc.entries[key] = incoming
			}
		}

	case kindUnkeyed:
		// Wholesale replacement; elements carry no identity to merge by.
		if !in.set {
			return
		}
		acc.set = true
		acc.secure = in.secure
		acc.source = in.source
		acc.defaulted = false
		acc.elems = in.elems
	}
}
