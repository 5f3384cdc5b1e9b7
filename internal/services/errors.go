package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCorruptArchive means the container header or TOC is unusable.
	// Unrecoverable for that archive.
	ErrCorruptArchive = errors.New("corrupt archive")
	// ErrDecompression is a per-entry inflate failure. Recoverable by
	// skipping the entry.
	ErrDecompression = errors.New("decompression error")
	// ErrChartFormat is a per-arrangement chart decode failure. Other
	// arrangements of the same song keep processing.
	ErrChartFormat = errors.New("chart format error")
	// ErrTranscode is fatal for the song whose audio failed, never for
	// the archive.
	ErrTranscode = errors.New("transcode error")
	// ErrInsufficientSyncData means a timing map has too few points to
	// interpolate. Callers fall back to an unsynced display.
	ErrInsufficientSyncData = errors.New("insufficient sync data")

	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrValidation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ArchiveFatal reports whether an error should abort the whole import rather
// than fail a single song.
func ArchiveFatal(err error) bool {
	return errors.Is(err, ErrCorruptArchive) || errors.Is(err, ErrConfiguration)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
