// Package logger provides structured logging functionality for the application.
//
// It utilizes Go's standard library log/slog package to implement structured logging
// with configurable log levels: JSON output for services and log shippers, text
// output when attached to a terminal.
package logger
