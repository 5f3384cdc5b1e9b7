// Package logging constructs the slog loggers used across fretforge.
// The console format is a compact single-line layout for interactive use;
// the json format is for log files and machine consumers.
package logging
