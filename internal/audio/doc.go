// Package audio locates the full-mix stream inside an archive and transcodes
// it to the library's playback format via ffmpeg.
package audio
