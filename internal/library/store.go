package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"fretforge/internal/config"
)

// Store manages song persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the library database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LibraryDir, "library.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// CreateSong inserts a song and its arrangements in one transaction. IDs are
// assigned when empty; arrangements inherit the song's ID. The song row and
// its arrangements become visible together or not at all.
func (s *Store) CreateSong(ctx context.Context, song *Song, arrangements []Arrangement) (*Song, error) {
	if song == nil {
		return nil, errors.New("song is nil")
	}
	if len(arrangements) == 0 {
		return nil, errors.New("song has no arrangements")
	}

	stored := *song
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	err := s.withTxRetry(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO songs (id, artist, title, audio_file, created_at) VALUES (?, ?, ?, ?, ?)`,
			stored.ID,
			stored.Artist,
			stored.Title,
			stored.AudioFile,
			stored.CreatedAt.Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("insert song: %w", err)
		}
		for _, arr := range arrangements {
			id := arr.ID
			if id == "" {
				id = uuid.NewString()
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO arrangements (id, song_id, name, sort_order, notation_file, timing_file)
                 VALUES (?, ?, ?, ?, ?, ?)`,
				id,
				stored.ID,
				arr.Name,
				arr.SortOrder,
				arr.NotationFile,
				arr.TimingFile,
			)
			if err != nil {
				return fmt.Errorf("insert arrangement %q: %w", arr.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// FindSongByTitle returns the song matching (artist, title), or nil when the
// library has none.
func (s *Store) FindSongByTitle(ctx context.Context, artist, title string) (*Song, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, artist, title, audio_file, created_at FROM songs WHERE artist = ? AND title = ? LIMIT 1`,
		artist, title,
	)
	song, err := scanSong(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find song: %w", err)
	}
	return song, nil
}

// ListSongs returns every song ordered by artist then title.
func (s *Store) ListSongs(ctx context.Context) ([]*Song, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, artist, title, audio_file, created_at FROM songs ORDER BY artist, title`,
	)
	if err != nil {
		return nil, fmt.Errorf("list songs: %w", err)
	}
	defer rows.Close()

	var songs []*Song
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}
	return songs, rows.Err()
}

// SongArrangements returns a song's arrangements in display order.
func (s *Store) SongArrangements(ctx context.Context, songID string) ([]*Arrangement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, song_id, name, sort_order, notation_file, timing_file
         FROM arrangements WHERE song_id = ? ORDER BY sort_order, name`,
		songID,
	)
	if err != nil {
		return nil, fmt.Errorf("list arrangements: %w", err)
	}
	defer rows.Close()

	var arrangements []*Arrangement
	for rows.Next() {
		arr := &Arrangement{}
		if err := rows.Scan(&arr.ID, &arr.SongID, &arr.Name, &arr.SortOrder, &arr.NotationFile, &arr.TimingFile); err != nil {
			return nil, err
		}
		arrangements = append(arrangements, arr)
	}
	return arrangements, rows.Err()
}

// DeleteSong removes a song; arrangements cascade. Reports whether a row
// was deleted.
func (s *Store) DeleteSong(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM songs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete song: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// CountArrangements returns the total number of arrangements in the library.
func (s *Store) CountArrangements(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM arrangements`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count arrangements: %w", err)
	}
	return count, nil
}

func scanSong(scanner interface{ Scan(dest ...any) error }) (*Song, error) {
	var (
		song       Song
		createdRaw string
	)
	if err := scanner.Scan(&song.ID, &song.Artist, &song.Title, &song.AudioFile, &createdRaw); err != nil {
		return nil, err
	}
	if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		song.CreatedAt = created
	}
	return &song, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) withTxRetry(ctx context.Context, fn func(tx *sql.Tx) error) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

// SortArrangements orders arrangements for display without touching the
// database, matching the query ordering.
func SortArrangements(arrangements []Arrangement) {
	sort.SliceStable(arrangements, func(i, j int) bool {
		if arrangements[i].SortOrder != arrangements[j].SortOrder {
			return arrangements[i].SortOrder < arrangements[j].SortOrder
		}
		return arrangements[i].Name < arrangements[j].Name
	})
}
