package psarc

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"fretforge/internal/logging"
)

const (
	manifestPrefix = "manifests/"
	manifestSuffix = ".json"
)

// Manifest describes one arrangement published in the archive. Multiple
// manifests can share the same (artist, song) pair, one per instrument part.
type Manifest struct {
	PersistentID      string
	SongName          string
	ArtistName        string
	ArrangementName   string
	SongLengthSeconds float64
	// Key is the manifest file stem; chart blobs share it by convention.
	Key string
	// Attributes holds the raw metadata map for consumers that need more
	// than the promoted fields.
	Attributes map[string]any
}

type manifestFile struct {
	Entries map[string]struct {
		Attributes map[string]any `json:"Attributes"`
	} `json:"Entries"`
}

// Manifests scans entries under the manifest naming convention and parses
// each as structured metadata. A malformed manifest is skipped and logged so
// one corrupt arrangement cannot block the rest of the archive. An archive
// without manifests yields an empty map, which callers must treat as "no
// arrangements found", not a parse failure.
func (a *Archive) Manifests(logger *slog.Logger) map[string]Manifest {
	if logger == nil {
		logger = logging.NewNop()
	}
	result := make(map[string]Manifest)
	for _, index := range a.Find(manifestPrefix) {
		entry := a.entries[index]
		if !strings.HasSuffix(entry.Path, manifestSuffix) {
			continue
		}
		manifest, err := a.parseManifest(index)
		if err != nil {
			logger.Warn("skipping malformed manifest",
				logging.String(logging.FieldManifest, entry.Path),
				logging.Error(err),
			)
			continue
		}
		result[manifest.PersistentID] = manifest
	}
	return result
}

func (a *Archive) parseManifest(index int) (Manifest, error) {
	raw, err := a.ReadEntry(index)
	if err != nil {
		return Manifest{}, err
	}

	var file manifestFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest JSON: %w", err)
	}
	if len(file.Entries) != 1 {
		return Manifest{}, fmt.Errorf("manifest holds %d entries, expected 1", len(file.Entries))
	}

	stem := strings.TrimSuffix(path.Base(a.entries[index].Path), manifestSuffix)
	for id, body := range file.Entries {
		manifest := Manifest{
			PersistentID: id,
			Key:          stem,
			Attributes:   body.Attributes,
		}
		manifest.SongName, _ = body.Attributes["SongName"].(string)
		manifest.ArtistName, _ = body.Attributes["ArtistName"].(string)
		manifest.ArrangementName, _ = body.Attributes["ArrangementName"].(string)
		if length, ok := body.Attributes["SongLength"].(float64); ok {
			manifest.SongLengthSeconds = length
		}
		if manifest.PersistentID == "" {
			return Manifest{}, fmt.Errorf("manifest %s has an empty persistent id", stem)
		}
		if manifest.SongName == "" || manifest.ArtistName == "" {
			return Manifest{}, fmt.Errorf("manifest %s is missing song or artist name", stem)
		}
		return manifest, nil
	}
	return Manifest{}, fmt.Errorf("manifest %s is empty", stem)
}
