package library

import "time"

// Song is one imported jam track. A song owns exactly one audio artifact and
// at least one arrangement.
type Song struct {
	ID        string
	Artist    string
	Title     string
	AudioFile string
	CreatedAt time.Time
}

// Arrangement is one instrument part of a song with its generated artifacts.
type Arrangement struct {
	ID           string
	SongID       string
	Name         string
	SortOrder    int
	NotationFile string
	TimingFile   string
}
