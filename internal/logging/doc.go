// Package logging builds slog loggers with console and JSON handlers plus
// shared attribute helpers so every component logs with consistent keys.
package logging
