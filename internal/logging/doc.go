// Package logging assembles the structured slog loggers used by themesubmit.
//
// It owns the console and JSON handlers, fans records out to the terminal and
// the persistent log file, and exposes attribute helpers so packages tag log
// lines with the same component, item, and kind keys. A no-op logger is
// provided for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits records with the same shape.
package logging
