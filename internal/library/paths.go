package library

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SongDirName renders the on-disk directory for a song, "Artist - Title"
// with filesystem-hostile characters stripped.
func SongDirName(artist, title string) string {
	return fmt.Sprintf("%s - %s", sanitizeComponent(artist), sanitizeComponent(title))
}

// SongDir returns the absolute artifact directory for a song.
func SongDir(libraryDir, artist, title string) string {
	return filepath.Join(libraryDir, SongDirName(artist, title))
}

// AudioFileName names the song's single audio artifact.
func AudioFileName(extension string) string {
	return "audio" + extension
}

// NotationFileName names an arrangement's notation artifact.
func NotationFileName(arrangementName string) string {
	return sanitizeComponent(strings.ToLower(arrangementName)) + ".tex"
}

// TimingFileName names an arrangement's timing-map artifact.
func TimingFileName(arrangementName string) string {
	return sanitizeComponent(strings.ToLower(arrangementName)) + ".sync.json"
}

var componentReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	"\x00", "_",
)

func sanitizeComponent(value string) string {
	cleaned := strings.TrimSpace(componentReplacer.Replace(value))
	cleaned = strings.Trim(cleaned, ".")
	if cleaned == "" {
		return "unknown"
	}
	return cleaned
}
