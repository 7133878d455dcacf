// Package sourceenv provides a configuration source backed by
// environment variables. Variable names map to nested keys through
// double-underscore separators (APP_DATABASE__HOST → database.host).
package sourceenv
