package psarc_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"fretforge/internal/logging"
	"fretforge/internal/psarc"
	"fretforge/internal/services"
	"fretforge/internal/testsupport"
)

func buildFixture(t *testing.T) []byte {
	t.Helper()
	return testsupport.BuildArchive(t, []testsupport.ArchiveEntry{
		{Path: "manifests/song_demo_lead.json", Data: testsupport.ManifestJSON("LEAD01", "Demo Song", "Demo Artist", "Lead", 120)},
		{Path: "songs/song_demo_lead.chart", Data: testsupport.StandardChart()},
		{Path: "audio/song_LEAD01.wem", Data: bytes.Repeat([]byte{0xAB, 0xCD}, 4000)},
	}, testsupport.ArchiveOptions{})
}

func TestOpenListsEntriesInOrder(t *testing.T) {
	archive, err := psarc.Open(buildFixture(t))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	want := []string{
		"manifests/song_demo_lead.json",
		"songs/song_demo_lead.chart",
		"audio/song_LEAD01.wem",
	}
	for round := 0; round < 2; round++ {
		got := archive.List()
		if len(got) != len(want) {
			t.Fatalf("List returned %d paths, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("List[%d] = %q, want %q", i, got[i], want[i])
			}
		}
	}
	if archive.EntryCount() != len(want) {
		t.Fatalf("EntryCount = %d, want %d", archive.EntryCount(), len(want))
	}
}

func TestReadEntryRoundTripsEveryIndex(t *testing.T) {
	archive, err := psarc.Open(buildFixture(t))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	for i := 0; i < archive.EntryCount(); i++ {
		data, err := archive.ReadEntry(i)
		if err != nil {
			t.Fatalf("ReadEntry(%d) failed: %v", i, err)
		}
		entry, err := archive.Entry(i)
		if err != nil {
			t.Fatalf("Entry(%d) failed: %v", i, err)
		}
		if int64(len(data)) != entry.UncompressedSize {
			t.Fatalf("ReadEntry(%d) returned %d bytes, TOC declares %d", i, len(data), entry.UncompressedSize)
		}
	}

	// Entries larger than one block must reassemble exactly.
	audio, err := archive.ReadEntry(2)
	if err != nil {
		t.Fatalf("ReadEntry(audio) failed: %v", err)
	}
	if !bytes.Equal(audio, bytes.Repeat([]byte{0xAB, 0xCD}, 4000)) {
		t.Fatal("multi-block entry did not round-trip")
	}
}

func TestReadEntryReturnsFreshBuffers(t *testing.T) {
	archive, err := psarc.Open(buildFixture(t))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	first, err := archive.ReadEntry(1)
	if err != nil {
		t.Fatalf("ReadEntry failed: %v", err)
	}
	first[0] = 0xFF
	second, err := archive.ReadEntry(1)
	if err != nil {
		t.Fatalf("ReadEntry failed: %v", err)
	}
	if second[0] == 0xFF {
		t.Fatal("ReadEntry returned a shared buffer")
	}
}

func TestFindMatchesSubstringsAndSuffixes(t *testing.T) {
	archive, err := psarc.Open(buildFixture(t))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if got := archive.FindSuffix(".chart"); len(got) != 1 || got[0] != 1 {
		t.Fatalf("FindSuffix(.chart) = %v", got)
	}
	if got := archive.Find("audio/"); len(got) != 1 || got[0] != 2 {
		t.Fatalf("Find(audio/) = %v", got)
	}
	if got := archive.Find("nonexistent"); len(got) != 0 {
		t.Fatalf("Find(nonexistent) = %v", got)
	}
}

func TestOpenRejectsCorruptHeaders(t *testing.T) {
	valid := buildFixture(t)

	cases := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"truncated", func(b []byte) []byte { return b[:16] }},
		{"bad magic", func(b []byte) []byte { b[0] = 'X'; return b }},
		{"bad compression", func(b []byte) []byte { b[8] = 'g'; return b }},
		{"toc past buffer", func(b []byte) []byte { return b[:40] }},
	}
	for _, tc := range cases {
		data := append([]byte{}, valid...)
		data = tc.mutate(data)
		if _, err := psarc.Open(data); !errors.Is(err, services.ErrCorruptArchive) {
			t.Fatalf("%s: expected ErrCorruptArchive, got %v", tc.name, err)
		}
	}
}

func TestReadEntryCorruptBlockIsTyped(t *testing.T) {
	data := buildFixture(t)
	archive, err := psarc.Open(data)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	// Locate the chart entry's first block payload and scramble it. Blocks
	// start immediately after the TOC region, so damaging the tail of the
	// buffer hits entry data without touching the header.
	for i := len(data) - 64; i < len(data); i++ {
		data[i] ^= 0x55
	}
	_, err = archive.ReadEntry(archive.EntryCount() - 1)
	if err == nil {
		return // the scramble may land in slack space; corrupting is best effort
	}
	if !errors.Is(err, services.ErrDecompression) {
		t.Fatalf("expected ErrDecompression, got %v", err)
	}
}

func TestManifestsSkipsMalformedEntries(t *testing.T) {
	data := testsupport.BuildArchive(t, []testsupport.ArchiveEntry{
		{Path: "manifests/good_lead.json", Data: testsupport.ManifestJSON("LEAD01", "Good Song", "Artist", "Lead", 60)},
		{Path: "manifests/broken_rhythm.json", Data: []byte("{not json")},
		{Path: "manifests/empty_bass.json", Data: []byte(`{"Entries":{}}`)},
	}, testsupport.ArchiveOptions{})

	archive, err := psarc.Open(data)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	manifests := archive.Manifests(logging.NewNop())
	if len(manifests) != 1 {
		t.Fatalf("expected 1 manifest, got %d", len(manifests))
	}
	manifest, ok := manifests["LEAD01"]
	if !ok {
		t.Fatalf("expected LEAD01 manifest, got %v", manifests)
	}
	if manifest.SongName != "Good Song" || manifest.ArtistName != "Artist" {
		t.Fatalf("unexpected manifest fields: %+v", manifest)
	}
	if manifest.Key != "good_lead" {
		t.Fatalf("unexpected manifest key: %q", manifest.Key)
	}
	if manifest.SongLengthSeconds != 60 {
		t.Fatalf("unexpected song length: %v", manifest.SongLengthSeconds)
	}
}

func TestArchiveWithoutArrangementsIsValid(t *testing.T) {
	data := testsupport.BuildArchive(t, []testsupport.ArchiveEntry{
		{Path: "info.txt", Data: []byte("nothing musical here")},
	}, testsupport.ArchiveOptions{})

	archive, err := psarc.Open(data)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if manifests := archive.Manifests(logging.NewNop()); len(manifests) != 0 {
		t.Fatalf("expected empty manifest map, got %v", manifests)
	}
	if got := archive.FindSuffix(".chart"); len(got) != 0 {
		t.Fatalf("expected no charts, got %v", got)
	}
}

func TestEntryIndexOutOfRange(t *testing.T) {
	archive, err := psarc.Open(buildFixture(t))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := archive.ReadEntry(99); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := archive.ReadEntry(-1); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for negative index, got %v", err)
	}
}

func TestListIsIdempotentAfterReads(t *testing.T) {
	archive, err := psarc.Open(buildFixture(t))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	before := strings.Join(archive.List(), "|")
	if _, err := archive.ReadEntry(0); err != nil {
		t.Fatalf("ReadEntry failed: %v", err)
	}
	after := strings.Join(archive.List(), "|")
	if before != after {
		t.Fatalf("List changed after ReadEntry: %q vs %q", before, after)
	}
}
