package services_test

import (
	"errors"
	"strings"
	"testing"

	"fretforge/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("bad block length")
	err := services.Wrap(services.ErrDecompression, "psarc", "read entry", "entry 3", base)
	if !errors.Is(err, services.ErrDecompression) {
		t.Fatalf("expected ErrDecompression, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped cause to survive, got %v", err)
	}
	for _, fragment := range []string{"psarc", "read entry", "entry 3"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("expected %q in message %q", fragment, err.Error())
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "importer", "", "no marker", nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation fallback, got %v", err)
	}
}

func TestArchiveFatal(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"corrupt archive", services.Wrap(services.ErrCorruptArchive, "psarc", "open", "bad magic", nil), true},
		{"configuration", services.ErrConfiguration, true},
		{"chart format", services.Wrap(services.ErrChartFormat, "sng", "decode", "short section", nil), false},
		{"transcode", services.ErrTranscode, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		if got := services.ArchiveFatal(tc.err); got != tc.fatal {
			t.Fatalf("%s: ArchiveFatal = %v, want %v", tc.name, got, tc.fatal)
		}
	}
}
