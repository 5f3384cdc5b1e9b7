package importer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"fretforge/internal/audio"
	"fretforge/internal/config"
	"fretforge/internal/library"
	"fretforge/internal/logging"
	"fretforge/internal/psarc"
	"fretforge/internal/services"
)

// SongError names a song that failed to import and why.
type SongError struct {
	Song string
	Err  error
}

// Result summarizes one archive import.
type Result struct {
	Imported []string
	Errors   []SongError
}

// Importer runs the import pipeline against a library store.
type Importer struct {
	cfg        *config.Config
	store      *library.Store
	transcoder *audio.Transcoder
	logger     *slog.Logger

	// Progress, when set, is called once per finished song. The import
	// command feeds a progress bar through it.
	Progress func(song string, err error)
}

// New builds an Importer.
func New(cfg *config.Config, store *library.Store, logger *slog.Logger) *Importer {
	return &Importer{
		cfg:        cfg,
		store:      store,
		transcoder: audio.NewTranscoder(cfg, logger),
		logger:     logging.NewComponentLogger(logger, "importer"),
	}
}

// songGroup is every manifest sharing one (artist, title) key, one library
// song in the making.
type songGroup struct {
	Artist    string
	Title     string
	Manifests []psarc.Manifest
}

func (g songGroup) displayName() string {
	return g.Artist + " - " + g.Title
}

// Run imports every song found in the archive at path. Archive-level errors
// abort and are returned; per-song errors land in the result.
func (i *Importer) Run(ctx context.Context, archivePath string) (*Result, error) {
	if ext := strings.ToLower(filepath.Ext(archivePath)); ext != i.cfg.Import.ArchiveExtension {
		return nil, services.Wrap(services.ErrValidation, "importer", "run",
			fmt.Sprintf("%q is not a %s archive", archivePath, i.cfg.Import.ArchiveExtension), nil)
	}

	// A file that cannot be read was never parsed; that is not archive
	// corruption.
	buffer, err := os.ReadFile(archivePath)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "importer", "read archive", archivePath, err)
	}
	archive, err := psarc.Open(buffer)
	if err != nil {
		return nil, err
	}
	i.logger.Info("archive opened",
		logging.String(logging.FieldArchive, filepath.Base(archivePath)),
		logging.Int("entries", archive.EntryCount()))

	// An archive that parses but holds no manifests is valid input with
	// nothing to import, not a failure.
	groups := groupManifests(archive.Manifests(i.logger))
	if len(groups) == 0 {
		i.logger.Warn("archive contains no song manifests",
			logging.String(logging.FieldArchive, filepath.Base(archivePath)))
		return &Result{}, nil
	}

	result := i.runGroups(ctx, archive, groups)
	i.logger.Info("import finished",
		logging.String(logging.FieldArchive, filepath.Base(archivePath)),
		logging.Int("imported", len(result.Imported)),
		logging.Int("failed", len(result.Errors)))
	return result, nil
}

// runGroups processes songs concurrently under a bounded worker pool. Each
// song's stages still run sequentially; only distinct songs overlap, and
// they touch disjoint archive entries.
func (i *Importer) runGroups(ctx context.Context, archive *psarc.Archive, groups []songGroup) *Result {
	workers := i.cfg.Import.Workers
	if workers < 1 {
		workers = 1
	}

	// Archive-level corruption discovered mid-song stops the remaining
	// songs; their reads would hit the same broken container.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		sem    = make(chan struct{}, workers)
		result = &Result{}
	)
	for _, group := range groups {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			mu.Lock()
			result.Errors = append(result.Errors, SongError{Song: group.displayName(), Err: ctx.Err()})
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(group songGroup) {
			defer wg.Done()
			defer func() { <-sem }()

			err := i.importSong(ctx, archive, group)
			name := group.displayName()
			mu.Lock()
			if err != nil {
				if services.ArchiveFatal(err) {
					cancel()
				}
				result.Errors = append(result.Errors, SongError{Song: name, Err: err})
			} else {
				result.Imported = append(result.Imported, name)
			}
			mu.Unlock()
			if i.Progress != nil {
				i.Progress(name, err)
			}
		}(group)
	}
	wg.Wait()

	sort.Strings(result.Imported)
	sort.Slice(result.Errors, func(a, b int) bool { return result.Errors[a].Song < result.Errors[b].Song })
	return result
}

func groupManifests(manifests map[string]psarc.Manifest) []songGroup {
	byKey := make(map[string]*songGroup)
	for _, manifest := range manifests {
		key := manifest.ArtistName + "\x00" + manifest.SongName
		group, ok := byKey[key]
		if !ok {
			group = &songGroup{Artist: manifest.ArtistName, Title: manifest.SongName}
			byKey[key] = group
		}
		group.Manifests = append(group.Manifests, manifest)
	}

	groups := make([]songGroup, 0, len(byKey))
	for _, group := range byKey {
		sort.Slice(group.Manifests, func(a, b int) bool {
			return group.Manifests[a].Key < group.Manifests[b].Key
		})
		groups = append(groups, *group)
	}
	sort.Slice(groups, func(a, b int) bool {
		return groups[a].displayName() < groups[b].displayName()
	})
	return groups
}
