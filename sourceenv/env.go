package sourceenv

import (
	"context"
	"os"
	"strings"

	"github.com/Azhovan/strata"
	"github.com/Azhovan/strata/internal/normalize"
)

// Options configures environment variable source behavior.
type Options struct {
	// Prefix filters vars starting with prefix (stripped before normalization).
	// Empty = load all vars.
	// Prefix matching behavior is controlled by CaseSensitive.
	Prefix string

	// CaseSensitive controls prefix matching (default: false).
	// When false, prefix matching is case-insensitive (APP_ matches app_, App_, etc.).
	// When true, prefix must match exactly.
	// Keys are always normalized to lowercase after prefix stripping.
	CaseSensitive bool

	// Secure marks this source as trusted to carry secret values.
	// Default: false.
	Secure bool
}

type envSource struct {
	opts Options
}

// New creates an environment variable source.
func New(opts Options) strata.Source {
	return &envSource{opts: opts}
}

// Load scans environment variables, filters by prefix, and assembles a
// nested raw map. FOO__BAR=x becomes {"foo": {"bar": "x"}}.
func (e *envSource) Load(ctx context.Context) (map[string]any, error) {
	result := make(map[string]any)

	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := parts[0]
		value := parts[1]

		if e.opts.Prefix != "" {
			var hasPrefix bool
			if e.opts.CaseSensitive {
				hasPrefix = strings.HasPrefix(key, e.opts.Prefix)
			} else {
				hasPrefix = strings.HasPrefix(strings.ToUpper(key), strings.ToUpper(e.opts.Prefix))
			}

			if !hasPrefix {
				continue
			}
			key = key[len(e.opts.Prefix):]
		}

		if key == "" {
			continue
		}

		// Normalize: FOO__BAR → foo.bar, then nest on the dots.
		segments := normalize.Segments(normalize.ToLowerDotPath(key))
		if len(segments) == 0 {
			continue
		}
		setNested(result, segments, value)
	}

	return result, nil
}

// Name returns a human-readable identifier for this source.
func (e *envSource) Name() string {
	return "env:" + e.opts.Prefix
}

// Secure reports whether the caller opted this source into carrying secrets.
func (e *envSource) Secure() bool {
	return e.opts.Secure
}

// setNested writes a value into a nested map along the key segments.
// A scalar already present where a section is needed is overwritten;
// env var ordering is not meaningful enough to merge scalars with
// sections.
func setNested(m map[string]any, segments []string, value string) {
	for _, segment := range segments[:len(segments)-1] {
		next, ok := m[segment].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[segment] = next
		}
		m = next
	}
	m[segments[len(segments)-1]] = value
}
