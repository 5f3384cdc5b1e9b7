package sng_test

import (
	"errors"
	"math"
	"testing"

	"fretforge/internal/services"
	"fretforge/internal/sng"
	"fretforge/internal/testsupport"
)

func TestDecodeStandardChart(t *testing.T) {
	song, err := sng.Decode(testsupport.StandardChart())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if len(song.Beats) != 16 {
		t.Fatalf("expected 16 beats, got %d", len(song.Beats))
	}
	if !song.Beats[0].MeasureStart || song.Beats[1].MeasureStart {
		t.Fatalf("measure-start flags misdecoded: %+v", song.Beats[:2])
	}
	if len(song.Sections) != 2 || song.Sections[1].Name != "verse" {
		t.Fatalf("sections misdecoded: %+v", song.Sections)
	}
	if len(song.Notes) != 3 {
		t.Fatalf("expected 3 notes, got %d", len(song.Notes))
	}
	if song.Notes[1].Techniques != sng.TechBend {
		t.Fatalf("technique flags misdecoded: %v", song.Notes[1].Techniques)
	}
	if !song.Notes[2].IsChord() || song.Notes[2].ChordID != 0 {
		t.Fatalf("chord reference misdecoded: %+v", song.Notes[2])
	}
	if len(song.ChordTemplates) != 1 || song.ChordTemplates[0].Name != "E5" {
		t.Fatalf("chord templates misdecoded: %+v", song.ChordTemplates)
	}
	if song.Metadata.SongLengthSeconds != 8 {
		t.Fatalf("metadata misdecoded: %+v", song.Metadata)
	}
}

func TestDecodeSkipsUnknownSections(t *testing.T) {
	builder := &testsupport.ChartBuilder{}
	builder.Beats([]sng.Beat{
		{TimeSeconds: 0, MeasureStart: true},
		{TimeSeconds: 0.5},
	})
	// A section tag from a future format revision, 3 records of 10 bytes.
	builder.RawSection(99, 3, 10, make([]byte, 30))
	builder.Notes([]sng.Note{{TimeSeconds: 0, ChordID: sng.NoChord, Fret: 2}})

	song, err := sng.Decode(builder.Build())
	if err != nil {
		t.Fatalf("Decode failed on unknown tag: %v", err)
	}
	if len(song.Beats) != 2 || len(song.Notes) != 1 {
		t.Fatalf("sections around the unknown tag misdecoded: %d beats, %d notes", len(song.Beats), len(song.Notes))
	}
}

func TestDecodeRejectsMalformedBlobs(t *testing.T) {
	valid := testsupport.StandardChart()

	cases := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", append([]byte("XXXX"), valid[4:]...)},
		{"truncated section", valid[:len(valid)-5]},
		{"trailing garbage", append(append([]byte{}, valid...), 1, 2, 3)},
	}
	for _, tc := range cases {
		if _, err := sng.Decode(tc.data); !errors.Is(err, services.ErrChartFormat) {
			t.Fatalf("%s: expected ErrChartFormat, got %v", tc.name, err)
		}
	}
}

func TestDecodeRejectsKnownTagSizeMismatch(t *testing.T) {
	builder := &testsupport.ChartBuilder{}
	builder.RawSection(1, 2, 8, make([]byte, 16)) // beats records are 16 bytes, not 8
	if _, err := sng.Decode(builder.Build()); !errors.Is(err, services.ErrChartFormat) {
		t.Fatalf("expected ErrChartFormat for size mismatch, got %v", err)
	}
}

func TestDecodeRequiresBeatGrid(t *testing.T) {
	builder := &testsupport.ChartBuilder{}
	builder.Notes([]sng.Note{{TimeSeconds: 1, ChordID: sng.NoChord}})
	if _, err := sng.Decode(builder.Build()); !errors.Is(err, services.ErrChartFormat) {
		t.Fatalf("expected ErrChartFormat for missing beats, got %v", err)
	}
}

func TestDecodeKeepsBookkeepingSections(t *testing.T) {
	builder := &testsupport.ChartBuilder{}
	builder.Beats([]sng.Beat{{TimeSeconds: 0, MeasureStart: true}, {TimeSeconds: 0.5}})
	builder.Sections([]sng.Section{
		{Name: "intro", StartTimeSeconds: 0},
		{Name: "noguitar", StartTimeSeconds: 0.5},
	})
	song, err := sng.Decode(builder.Build())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(song.Sections) != 2 || song.Sections[1].Name != "noguitar" {
		t.Fatalf("bookkeeping section dropped: %+v", song.Sections)
	}
}

func TestEstimatedBPMFromMeasureSpacing(t *testing.T) {
	var beats []sng.Beat
	for i := 0; i < 16; i++ {
		beats = append(beats, sng.Beat{
			TimeSeconds:  float64(i) * 0.5, // 120 BPM grid
			Measure:      int32(i / 4),
			MeasureStart: i%4 == 0,
		})
	}
	song := &sng.Song{Beats: beats}
	if bpm := song.EstimatedBPM(); math.Abs(bpm-120) > 1e-9 {
		t.Fatalf("EstimatedBPM = %v, want 120", bpm)
	}
	if got := song.BeatsPerMeasure(); got != 4 {
		t.Fatalf("BeatsPerMeasure = %d, want 4", got)
	}
}

func TestEstimatedBPMIgnoresStaleOutliers(t *testing.T) {
	// One stretched measure must not move the median.
	var beats []sng.Beat
	time := 0.0
	for measure := 0; measure < 7; measure++ {
		spacing := 0.5
		if measure == 3 {
			spacing = 2.0
		}
		for beat := 0; beat < 4; beat++ {
			beats = append(beats, sng.Beat{
				TimeSeconds:  time,
				Measure:      int32(measure),
				MeasureStart: beat == 0,
			})
			time += spacing
		}
	}
	song := &sng.Song{Beats: beats}
	if bpm := song.EstimatedBPM(); math.Abs(bpm-120) > 1e-9 {
		t.Fatalf("EstimatedBPM = %v, want 120 despite outlier measure", bpm)
	}
}

func TestEstimatedBPMWithoutMeasureFlags(t *testing.T) {
	song := &sng.Song{Beats: []sng.Beat{
		{TimeSeconds: 0}, {TimeSeconds: 0.25}, {TimeSeconds: 0.5}, {TimeSeconds: 0.75},
	}}
	if bpm := song.EstimatedBPM(); math.Abs(bpm-240) > 1e-9 {
		t.Fatalf("EstimatedBPM = %v, want 240", bpm)
	}
}

func TestEstimatedBPMDegenerateGrids(t *testing.T) {
	if bpm := (&sng.Song{}).EstimatedBPM(); bpm != 0 {
		t.Fatalf("empty grid: EstimatedBPM = %v, want 0", bpm)
	}
	song := &sng.Song{Beats: []sng.Beat{{TimeSeconds: 1}, {TimeSeconds: 1}}}
	if bpm := song.EstimatedBPM(); bpm != 0 {
		t.Fatalf("zero-spacing grid: EstimatedBPM = %v, want 0", bpm)
	}
}
