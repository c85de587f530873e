// Package logging provides slog construction and typed attribute helpers
// shared across the medkey commands and services.
package logging
