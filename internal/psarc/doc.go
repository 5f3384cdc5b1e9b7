// Package psarc reads the proprietary song-archive container. An archive is
// a big-endian header, a table of contents, a table of zlib block lengths,
// and the block data itself. Entry 0 is a newline-separated manifest of the
// internal paths for the remaining entries.
//
// The archive holds only the compressed buffer plus the TOC; entries are
// inflated lazily per ReadEntry call and each call returns a fresh owned
// buffer. Entry order is stable across calls and is the sole addressing
// mechanism for later lookups.
package psarc
