// Package logger configures the application's structured logging with
// log/slog. All output is JSON so it can be shipped to a log collector
// without further parsing.
package logger
