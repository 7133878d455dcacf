package strata

import (
	"fmt"
	"sort"
	"strings"
)

// Path locates a field inside a configuration, as dotted segments.
// Container entries appear as their display key (maps) or index (slices).
type Path []string

// String renders the path in dotted notation (e.g., "database.hosts.0").
func (p Path) String() string {
	return strings.Join(p, ".")
}

// prepend adds a segment at the front as an error unwinds outward
// through the enclosing aggregates.
func (p Path) prepend(segment string) Path {
	out := make(Path, 0, len(p)+1)
	out = append(out, segment)
	return append(out, p...)
}

// MissingValueError reports a required field that no source set and
// no default covered.
type MissingValueError struct {
	Path Path
}

func (e *MissingValueError) Error() string {
	return fmt.Sprintf("strata: missing value for %q", e.Path.String())
}

// SecretViolationError reports a secret-tagged field populated from a
// source that is not marked secure.
type SecretViolationError struct {
	Path   Path
	Source string // Offending source name
}

func (e *SecretViolationError) Error() string {
	return fmt.Sprintf("strata: secret field %q set from insecure source %s", e.Path.String(), e.Source)
}

// ConversionError reports a raw value that could not be converted to
// its field's type, or source data whose shape does not match the
// schema at Path.
type ConversionError struct {
	Path Path
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("strata: cannot convert value for %q: %v", e.Path.String(), e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// SourceError wraps an opaque failure from a Source. No path context is
// added; the source is responsible for any internal location info.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("strata: source %s failed: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// UnknownKeysError reports keys a source supplied that the schema does
// not declare. Only produced in strict mode.
type UnknownKeysError struct {
	Source string
	Keys   []string // Dotted key paths, sorted
}

func (e *UnknownKeysError) Error() string {
	keys := append([]string(nil), e.Keys...)
	sort.Strings(keys)
	return fmt.Sprintf("strata: source %s supplied unknown keys: %s", e.Source, strings.Join(keys, ", "))
}

// prependPath pushes a path segment onto the path-carrying error kinds,
// leaving opaque errors untouched.
func prependPath(err error, segment string) error {
	switch e := err.(type) {
	case *MissingValueError:
		return &MissingValueError{Path: e.Path.prepend(segment)}
	case *SecretViolationError:
		return &SecretViolationError{Path: e.Path.prepend(segment), Source: e.Source}
	case *ConversionError:
		return &ConversionError{Path: e.Path.prepend(segment), Err: e.Err}
	default:
		return err
	}
}
