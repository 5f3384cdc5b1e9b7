// Package sng decodes per-arrangement chart blobs. A chart is a little-endian
// stream of typed, length-prefixed sections (beats, sections, phrases, chord
// templates, notes, metadata, tuning); unknown section tags are skipped by
// length so newer archives still decode the sections this reader understands.
package sng
