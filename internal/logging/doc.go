// Package logging assembles the structured slog loggers used across plenum.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so stage code can automatically
// tag log lines with item identifiers, stage names, and run IDs. The package
// also provides a no-op logger for tests and wiring code that cannot fail.
package logging
