package normalize

import "strings"

// ToLowerDotPath normalizes a configuration key to a lowercase dot-separated path.
// Double underscores (__) are treated as level separators and converted to dots.
// Single underscores within a level are preserved.
// Examples:
//   - "FOO__BAR" → "foo.bar"
//   - "DB_MAX_CONNECTIONS" → "db_max_connections"
//   - "API__RATE_LIMIT" → "api.rate_limit"
func ToLowerDotPath(key string) string {
	normalized := strings.ReplaceAll(key, "__", ".")
	return strings.ToLower(normalized)
}

// Segments splits a dot path into its levels, dropping empty segments
// produced by stray separators.
// Examples:
//   - "database.host" → ["database", "host"]
//   - ".host." → ["host"]
func Segments(path string) []string {
	parts := strings.Split(path, ".")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
