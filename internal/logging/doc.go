// Package logging constructs the slog loggers used across sigil.
//
// Loggers are built from configuration (level, text or JSON format) and
// optionally duplicate output into the configured log directory. Components
// tag themselves via WithComponent so daemon logs can be filtered per
// subsystem.
package logging
