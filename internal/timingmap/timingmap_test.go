package timingmap

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"fretforge/internal/services"
	"fretforge/internal/sng"
	"fretforge/internal/testsupport"
)

func standardSong(t *testing.T) *sng.Song {
	t.Helper()
	song, err := sng.Decode(testsupport.StandardChart())
	if err != nil {
		t.Fatalf("decode fixture chart: %v", err)
	}
	return song
}

func TestGenerateStandardChart(t *testing.T) {
	song := standardSong(t)
	m, err := Generate(song, nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if math.Abs(m.BPMEstimate-120) > 1e-9 {
		t.Fatalf("BPMEstimate = %v, want 120", m.BPMEstimate)
	}
	if m.RestBars != 1 {
		t.Fatalf("RestBars = %d, want 1 (first note starts in the second measure)", m.RestBars)
	}
	if len(m.Points) != 16 {
		t.Fatalf("expected one point per beat, got %d", len(m.Points))
	}
	// At 120 BPM a beat is 500 notation ms.
	if m.Points[0].NotationMs != 0 || math.Abs(m.Points[4].NotationMs-2000) > 1e-9 {
		t.Fatalf("notation coordinates misderived: %+v", m.Points[:5])
	}
}

func TestGenerateMonotonicity(t *testing.T) {
	song := standardSong(t)
	m, err := Generate(song, nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	for i := 1; i < len(m.Points); i++ {
		if m.Points[i].AudioSeconds <= m.Points[i-1].AudioSeconds {
			t.Fatalf("audio time not strictly increasing at %d", i)
		}
		if m.Points[i].NotationMs <= m.Points[i-1].NotationMs {
			t.Fatalf("notation time not strictly increasing at %d", i)
		}
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate rejected a generated map: %v", err)
	}
}

func TestGenerateDropsCorruptBeats(t *testing.T) {
	song := &sng.Song{Beats: []sng.Beat{
		{TimeSeconds: 0, MeasureStart: true},
		{TimeSeconds: 0.5},
		{TimeSeconds: 0.5}, // duplicate timestamp
		{TimeSeconds: 0.4}, // reversed
		{TimeSeconds: 1.0},
	}}
	m, err := Generate(song, nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(m.Points) != 3 {
		t.Fatalf("expected corrupt beats dropped, got %d points", len(m.Points))
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("map with dropped beats should still validate: %v", err)
	}
}

func TestGenerateInsufficientBeats(t *testing.T) {
	song := &sng.Song{Beats: []sng.Beat{
		{TimeSeconds: 1.0},
		{TimeSeconds: 1.0},
		{TimeSeconds: 0.5},
	}}
	if _, err := Generate(song, nil); !errors.Is(err, services.ErrInsufficientSyncData) {
		t.Fatalf("expected ErrInsufficientSyncData, got %v", err)
	}
}

func TestPositionAtGridPointsAreExact(t *testing.T) {
	m, err := Generate(standardSong(t), nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	for i, point := range m.Points {
		got, err := m.PositionAt(point.AudioSeconds)
		if err != nil {
			t.Fatalf("PositionAt(%v): %v", point.AudioSeconds, err)
		}
		if got != point.NotationMs {
			t.Fatalf("point %d: PositionAt = %v, want exactly %v", i, got, point.NotationMs)
		}
	}
}

func TestPositionAtInterpolatesBetweenPoints(t *testing.T) {
	m := &Map{Points: []Point{
		{AudioSeconds: 0, NotationMs: 0},
		{AudioSeconds: 1, NotationMs: 1000},
		{AudioSeconds: 3, NotationMs: 2000},
	}}
	got, err := m.PositionAt(2)
	if err != nil {
		t.Fatalf("PositionAt failed: %v", err)
	}
	if math.Abs(got-1500) > 1e-9 {
		t.Fatalf("PositionAt(2) = %v, want 1500", got)
	}
}

func TestPositionAtExtrapolatesBothEnds(t *testing.T) {
	m := &Map{Points: []Point{
		{AudioSeconds: 1, NotationMs: 1000},
		{AudioSeconds: 2, NotationMs: 2000},
	}}
	before, err := m.PositionAt(0)
	if err != nil {
		t.Fatalf("PositionAt failed: %v", err)
	}
	if math.Abs(before-0) > 1e-9 {
		t.Fatalf("extrapolation before first point = %v, want 0", before)
	}
	after, err := m.PositionAt(10)
	if err != nil {
		t.Fatalf("PositionAt failed: %v", err)
	}
	if math.Abs(after-10000) > 1e-9 {
		t.Fatalf("extrapolation past last point = %v, want 10000 (no clamping)", after)
	}
}

func TestPositionAtTooFewPoints(t *testing.T) {
	m := &Map{Points: []Point{{AudioSeconds: 0, NotationMs: 0}}}
	if _, err := m.PositionAt(1); !errors.Is(err, services.ErrInsufficientSyncData) {
		t.Fatalf("expected ErrInsufficientSyncData, got %v", err)
	}
}

func TestPositionAtDoesNotAllocate(t *testing.T) {
	m, err := Generate(standardSong(t), nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	allocs := testing.AllocsPerRun(100, func() {
		if _, err := m.PositionAt(3.3); err != nil {
			t.Fatalf("PositionAt failed: %v", err)
		}
	})
	if allocs != 0 {
		t.Fatalf("PositionAt allocates %v times per call", allocs)
	}
}

func TestMapJSONRoundTrip(t *testing.T) {
	m, err := Generate(standardSong(t), nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, fragment := range []string{`"bpm":120`, `"restBars":1`, `"points":[[0,0],[0.5,500]`} {
		if !bytes.Contains(data, []byte(fragment)) {
			t.Fatalf("serialized map missing %q:\n%s", fragment, data)
		}
	}

	var restored Map
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := restored.Validate(); err != nil {
		t.Fatalf("restored map failed validation: %v", err)
	}
	if len(restored.Points) != len(m.Points) || restored.Points[3] != m.Points[3] {
		t.Fatalf("round trip mutated points: %+v", restored.Points[:4])
	}
}
