// Package logger provides slog construction helpers and typed attribute
// constructors shared across authkit services.
package logger
