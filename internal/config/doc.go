// Package config holds the chanhop configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// CHANHOP_* environment variables. Command-line flags are applied by the
// caller before Validate.
package config
