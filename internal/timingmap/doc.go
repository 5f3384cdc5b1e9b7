// Package timingmap derives the audio-time to notation-time correspondence
// table for an arrangement and interpolates playback positions against it.
// A map is generated once at import, persisted as JSON, and treated as
// immutable afterwards.
package timingmap
