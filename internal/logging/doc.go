// Package logging provides the slog-based loggers used across callpipe.
//
// New builds a logger from explicit options; NewFromConfig derives options
// from application configuration and tees output to the process log file.
// Console output uses a compact single-line handler; JSON output is intended
// for scheduled or supervised runs and is auto-selected when stdout is not a
// terminal. Attr helpers and the Field* constants keep structured keys
// consistent across components.
package logging
