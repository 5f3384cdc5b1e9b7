// Package library persists imported songs and their arrangements in a
// SQLite database stored alongside the media library, and owns the on-disk
// artifact layout for a song's audio, notation, and timing files.
package library
