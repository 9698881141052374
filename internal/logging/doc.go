// Package logging builds the slog loggers used across distill and defines the
// standardized attribute keys shared by every component. The console handler
// renders compact single-line output for interactive use; the JSON handler is
// intended for log shipping.
package logging
