// Package logging builds the slog loggers used by the airdate daemon and CLI.
//
// Two output formats are supported: a compact console format for interactive
// use and JSON for log shipping. Attr helpers and standardized field names
// keep job/component attributes consistent across packages; use
// NewComponentLogger so every subsystem tags its records uniformly.
package logging
