// Package logging builds slog loggers with filebutler's console and JSON
// output formats and supplies the standardized attribute keys shared across
// components.
package logging
