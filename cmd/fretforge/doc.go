// Package main hosts the fretforge CLI entrypoint and command graph.
//
// The Cobra-based command tree surfaces the import pipeline, archive
// inspection, library maintenance, timing-map lookups, and configuration
// scaffolding. It centralizes configuration resolution and logger setup so
// subcommands stay declarative; the heavy lifting lives in the internal
// packages.
package main
