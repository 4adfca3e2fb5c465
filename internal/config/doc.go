// Package config loads, normalizes, and validates callpipe configuration.
//
// Configuration lives in a TOML file resolved from an explicit path, the
// default user config location, or a project-local callpipe.toml. Defaults
// cover every field so a minimal file only needs the telephony and
// transcriber connection settings. Path fields are expanded (including ~)
// and made absolute during load.
package config
