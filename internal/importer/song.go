package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"fretforge/internal/audio"
	"fretforge/internal/fileutil"
	"fretforge/internal/library"
	"fretforge/internal/logging"
	"fretforge/internal/notation"
	"fretforge/internal/psarc"
	"fretforge/internal/services"
	"fretforge/internal/sng"
	"fretforge/internal/timingmap"
)

const (
	chartEntryPrefix = "songs/"
	chartEntrySuffix = ".chart"
	audioEntrySuffix = ".wem"
)

// decodedArrangement carries everything generated for one instrument part.
type decodedArrangement struct {
	Manifest psarc.Manifest
	Document notation.Document
	Timing   *timingmap.Map
}

// importSong runs the per-song pipeline sequentially: decode arrangements,
// transcode audio, stage artifacts, then commit. The library record is
// written only after every artifact is in place, so cancellation or a crash
// never leaves a half-imported song visible.
func (i *Importer) importSong(ctx context.Context, archive *psarc.Archive, group songGroup) error {
	logger := i.logger.With(
		logging.String(logging.FieldSong, group.Title),
		logging.String(logging.FieldArtist, group.Artist),
	)

	arrangements, err := i.decodeArrangements(archive, group, logger)
	if err != nil {
		return err
	}
	if len(arrangements) == 0 {
		return services.Wrap(services.ErrChartFormat, "importer", "decode arrangements",
			"failed to parse any arrangements", nil)
	}

	audioBytes, err := i.transcodeFullMix(ctx, archive, group, logger)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	stageDir, records, err := i.stageArtifacts(group, arrangements, audioBytes)
	if err != nil {
		return err
	}
	defer func() { _ = os.RemoveAll(stageDir) }()
	if err := ctx.Err(); err != nil {
		return err
	}

	return i.commit(ctx, group, stageDir, records, logger)
}

// decodeArrangements decodes every non-vocal arrangement. Chart errors are
// per-arrangement: a bad chart is logged and skipped, the rest survive.
// Archive-level corruption is not recoverable and fails the song.
func (i *Importer) decodeArrangements(archive *psarc.Archive, group songGroup, logger *slog.Logger) ([]decodedArrangement, error) {
	var arrangements []decodedArrangement
	for _, manifest := range group.Manifests {
		if isVocalArrangement(manifest.ArrangementName) {
			logger.Debug("skipping vocal arrangement", logging.String(logging.FieldArrangement, manifest.ArrangementName))
			continue
		}

		chartPath := chartEntryPrefix + manifest.Key + chartEntrySuffix
		index, ok := findEntry(archive, chartPath)
		if !ok {
			logger.Warn("chart entry missing, skipping arrangement",
				logging.String(logging.FieldArrangement, manifest.ArrangementName),
				logging.String(logging.FieldEntry, chartPath))
			continue
		}
		blob, err := archive.ReadEntry(index)
		if err != nil {
			if services.ArchiveFatal(err) {
				return nil, err
			}
			logger.Warn("chart entry unreadable, skipping arrangement",
				logging.String(logging.FieldArrangement, manifest.ArrangementName),
				logging.Error(err))
			continue
		}
		song, err := sng.Decode(blob)
		if err != nil {
			logger.Warn("chart undecodable, skipping arrangement",
				logging.String(logging.FieldArrangement, manifest.ArrangementName),
				logging.Error(err))
			continue
		}

		timing, err := timingmap.Generate(song, logger)
		if err != nil {
			logger.Warn("timing map generation failed, skipping arrangement",
				logging.String(logging.FieldArrangement, manifest.ArrangementName),
				logging.Error(err))
			continue
		}
		document := notation.Generate(song, manifest.ArrangementName, group.Title, group.Artist)
		arrangements = append(arrangements, decodedArrangement{
			Manifest: manifest,
			Document: document,
			Timing:   timing,
		})
	}
	dedupeArrangementNames(arrangements)
	return arrangements, nil
}

// transcodeFullMix finds the song's backing stream among the archive's audio
// entries and converts it to the library format.
func (i *Importer) transcodeFullMix(ctx context.Context, archive *psarc.Archive, group songGroup, logger *slog.Logger) ([]byte, error) {
	var candidates []audio.Candidate
	for index, path := range archive.List() {
		if !strings.HasSuffix(path, audioEntrySuffix) {
			continue
		}
		entry, err := archive.Entry(index)
		if err != nil {
			continue
		}
		candidates = append(candidates, audio.Candidate{Path: path, Size: entry.UncompressedSize})
	}

	ids := make([]string, 0, len(group.Manifests))
	for _, manifest := range group.Manifests {
		ids = append(ids, manifest.PersistentID)
	}
	picked, ok := audio.SelectFullMix(candidates, ids)
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "importer", "locate audio",
			fmt.Sprintf("no audio entry matches the song's persistent ids (%d candidates)", len(candidates)), nil)
	}
	logger.Debug("full mix selected",
		logging.String(logging.FieldEntry, picked.Path),
		logging.Int64("bytes", picked.Size))

	index, ok := findEntry(archive, picked.Path)
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "importer", "locate audio", picked.Path, nil)
	}
	raw, err := archive.ReadEntry(index)
	if err != nil {
		return nil, err
	}
	return i.transcoder.Transcode(ctx, raw)
}

// stageArtifacts writes every file for the song under the staging dir and
// returns the arrangement records pointing at their final relative paths.
func (i *Importer) stageArtifacts(group songGroup, arrangements []decodedArrangement, audioBytes []byte) (string, []library.Arrangement, error) {
	dirName := library.SongDirName(group.Artist, group.Title)
	stageDir := filepath.Join(i.cfg.Paths.StagingDir, dirName)
	if err := os.RemoveAll(stageDir); err != nil {
		return "", nil, fmt.Errorf("clear stage dir: %w", err)
	}
	if err := os.MkdirAll(stageDir, 0o755); err != nil {
		return "", nil, fmt.Errorf("create stage dir: %w", err)
	}

	audioName := library.AudioFileName(i.cfg.Audio.OutputExtension)
	if err := fileutil.WriteFileAtomic(filepath.Join(stageDir, audioName), audioBytes, 0o644); err != nil {
		return "", nil, fmt.Errorf("stage audio: %w", err)
	}

	records := make([]library.Arrangement, 0, len(arrangements))
	for _, arr := range arrangements {
		notationName := library.NotationFileName(arr.Document.ArrangementName)
		if err := fileutil.WriteFileAtomic(filepath.Join(stageDir, notationName), []byte(arr.Document.Content), 0o644); err != nil {
			return "", nil, fmt.Errorf("stage notation %q: %w", arr.Document.ArrangementName, err)
		}

		timingName := library.TimingFileName(arr.Document.ArrangementName)
		timingJSON, err := json.Marshal(arr.Timing)
		if err != nil {
			return "", nil, fmt.Errorf("marshal timing map: %w", err)
		}
		if err := fileutil.WriteFileAtomic(filepath.Join(stageDir, timingName), timingJSON, 0o644); err != nil {
			return "", nil, fmt.Errorf("stage timing map %q: %w", arr.Document.ArrangementName, err)
		}

		records = append(records, library.Arrangement{
			Name:         arr.Document.ArrangementName,
			SortOrder:    arr.Document.SortOrder,
			NotationFile: filepath.Join(dirName, notationName),
			TimingFile:   filepath.Join(dirName, timingName),
		})
	}
	library.SortArrangements(records)
	return stageDir, records, nil
}

// commit replaces any prior import of the song, moves the staged directory
// into the library, and writes the database rows last.
func (i *Importer) commit(ctx context.Context, group songGroup, stageDir string, records []library.Arrangement, logger *slog.Logger) error {
	existing, err := i.store.FindSongByTitle(ctx, group.Artist, group.Title)
	if err != nil {
		return err
	}
	if existing != nil {
		if _, err := i.store.DeleteSong(ctx, existing.ID); err != nil {
			return err
		}
		logger.Info("replacing previously imported song")
	}

	finalDir := library.SongDir(i.cfg.Paths.LibraryDir, group.Artist, group.Title)
	if err := os.RemoveAll(finalDir); err != nil {
		return fmt.Errorf("clear library dir: %w", err)
	}
	if err := moveDir(stageDir, finalDir); err != nil {
		return fmt.Errorf("commit artifacts: %w", err)
	}

	dirName := library.SongDirName(group.Artist, group.Title)
	song := &library.Song{
		Artist:    group.Artist,
		Title:     group.Title,
		AudioFile: filepath.Join(dirName, library.AudioFileName(i.cfg.Audio.OutputExtension)),
	}
	if _, err := i.store.CreateSong(ctx, song, records); err != nil {
		_ = os.RemoveAll(finalDir)
		return err
	}
	logger.Info("song imported", logging.Int("arrangements", len(records)))
	return nil
}

func isVocalArrangement(name string) bool {
	return strings.Contains(strings.ToLower(name), "vocal")
}

func findEntry(archive *psarc.Archive, path string) (int, bool) {
	for index, candidate := range archive.List() {
		if candidate == path {
			return index, true
		}
	}
	return 0, false
}

// dedupeArrangementNames suffixes repeated display names so artifact file
// names never collide within one song.
func dedupeArrangementNames(arrangements []decodedArrangement) {
	seen := make(map[string]int)
	for idx := range arrangements {
		name := arrangements[idx].Document.ArrangementName
		seen[name]++
		if count := seen[name]; count > 1 {
			arrangements[idx].Document.ArrangementName = fmt.Sprintf("%s %d", name, count)
		}
	}
}

// moveDir renames the staged directory into place, falling back to a
// file-by-file copy when staging and library live on different filesystems.
func moveDir(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			if err := moveDir(filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name())); err != nil {
				return err
			}
			continue
		}
		if err := fileutil.MoveFile(filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name())); err != nil {
			return err
		}
	}
	return os.Remove(src)
}
