package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"fretforge/internal/config"
)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LibraryDir = filepath.Join(base, "library")
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// StubFFmpeg writes a stub ffmpeg executable that copies stdin to stdout
// after a fixed marker, and prepends its directory to PATH for the duration
// of the test. Returns the marker bytes the stub emits.
func StubFFmpeg(t testing.TB) []byte {
	t.Helper()
	StubFFmpegScript(t, "#!/bin/sh\nprintf 'OggS'\ncat\n")
	return []byte("OggS")
}

// StubFFmpegScript installs a custom stub ffmpeg script on PATH.
func StubFFmpegScript(t testing.TB, script string) {
	t.Helper()

	binDir := filepath.Join(t.TempDir(), "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	target := filepath.Join(binDir, "ffmpeg")
	if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub ffmpeg: %v", err)
	}

	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
		t.Fatalf("set PATH: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
}
