package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"fretforge/internal/config"
	"fretforge/internal/sng"
	"fretforge/internal/testsupport"
	"fretforge/internal/timingmap"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func isolateHome(t *testing.T) string {
	t.Helper()
	home := filepath.Join(t.TempDir(), "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)
	return home
}

func writeTestConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	rendered, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, rendered, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func requireContains(t *testing.T, output, fragment string) {
	t.Helper()
	if !strings.Contains(output, fragment) {
		t.Fatalf("output missing %q:\n%s", fragment, output)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	isolateHome(t)

	out, err := runCLI(t, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, err = runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("second init without --overwrite should fail")
	}
}

func TestConfigShowPrintsDefaults(t *testing.T) {
	isolateHome(t)

	out, err := runCLI(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "# defaults (no config file found)")
	requireContains(t, out, "output_format = 'ogg'")
}

func TestSyncCommandResolvesPosition(t *testing.T) {
	song, err := sng.Decode(testsupport.StandardChart())
	if err != nil {
		t.Fatalf("decode chart: %v", err)
	}
	m, err := timingmap.Generate(song, nil)
	if err != nil {
		t.Fatalf("generate timing map: %v", err)
	}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal timing map: %v", err)
	}
	path := filepath.Join(t.TempDir(), "lead.sync.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write timing map: %v", err)
	}

	out, err := runCLI(t, "sync", path, "2.25")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	requireContains(t, out, "notation: 2250.000 ms")
	requireContains(t, out, "120.00 bpm")

	if _, err := runCLI(t, "sync", path, "not-a-number"); err == nil {
		t.Fatal("non-numeric timestamp should fail")
	}
}

func TestArchiveCommands(t *testing.T) {
	entries := []testsupport.ArchiveEntry{
		{Path: "manifests/demo_lead.json", Data: testsupport.ManifestJSON("DEMO1", "Demo Song", "Demo Artist", "lead", 8)},
		{Path: "songs/demo_lead.chart", Data: testsupport.StandardChart()},
		{Path: "audio/DEMO1.wem", Data: bytes.Repeat([]byte{0x0F}, 500)},
	}
	data := testsupport.BuildArchive(t, entries, testsupport.ArchiveOptions{})
	path := filepath.Join(t.TempDir(), "demo.psarc")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}

	out, err := runCLI(t, "archive", "entries", path)
	if err != nil {
		t.Fatalf("archive entries: %v", err)
	}
	requireContains(t, out, "songs/demo_lead.chart")
	requireContains(t, out, "audio/DEMO1.wem")

	out, err = runCLI(t, "archive", "manifests", path)
	if err != nil {
		t.Fatalf("archive manifests: %v", err)
	}
	requireContains(t, out, "Demo Artist")
	requireContains(t, out, "Demo Song")
	requireContains(t, out, "lead")
}

func TestImportAndLibraryCommands(t *testing.T) {
	isolateHome(t)
	testsupport.StubFFmpeg(t)
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)

	entries := []testsupport.ArchiveEntry{
		{Path: "manifests/demo_lead.json", Data: testsupport.ManifestJSON("DEMO1", "Demo Song", "Demo Artist", "lead", 8)},
		{Path: "songs/demo_lead.chart", Data: testsupport.StandardChart()},
		{Path: "audio/DEMO1.wem", Data: bytes.Repeat([]byte{0x0F}, 2000)},
	}
	data := testsupport.BuildArchive(t, entries, testsupport.ArchiveOptions{})
	archivePath := filepath.Join(t.TempDir(), "demo.psarc")
	if err := os.WriteFile(archivePath, data, 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}

	out, err := runCLI(t, "--config", configPath, "import", archivePath)
	if err != nil {
		t.Fatalf("import: %v\n%s", err, out)
	}
	requireContains(t, out, "1 imported, 0 failed")
	requireContains(t, out, "Demo Artist - Demo Song")

	out, err = runCLI(t, "--config", configPath, "library", "list")
	if err != nil {
		t.Fatalf("library list: %v", err)
	}
	requireContains(t, out, "Demo Artist")
	requireContains(t, out, "Demo Song")

	out, err = runCLI(t, "--config", configPath, "library", "show", "Demo Artist", "Demo Song")
	if err != nil {
		t.Fatalf("library show: %v", err)
	}
	requireContains(t, out, "lead.tex")
	requireContains(t, out, "lead.sync.json")

	out, err = runCLI(t, "--config", configPath, "library", "remove", "Demo Artist", "Demo Song")
	if err != nil {
		t.Fatalf("library remove: %v", err)
	}
	requireContains(t, out, "Removed Demo Artist - Demo Song")

	out, err = runCLI(t, "--config", configPath, "library", "list")
	if err != nil {
		t.Fatalf("library list after remove: %v", err)
	}
	requireContains(t, out, "Library is empty")
}
