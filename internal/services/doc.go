// Package services defines the shared error taxonomy for the import
// pipeline. Components tag failures with one of the sentinel markers so
// callers can decide whether an error sinks the whole archive, a single
// song, or just one arrangement.
package services
