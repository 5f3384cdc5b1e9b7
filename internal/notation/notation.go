package notation

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"fretforge/internal/sng"
)

// Document is one generated notation artifact per arrangement.
type Document struct {
	Content         string
	ArrangementName string
	SortOrder       int
}

// Arrangement sort ranks. Lead renders first in the viewer, then rhythm,
// then bass; anything else sorts after in name order.
const (
	sortLead = iota
	sortRhythm
	sortBass
	sortOther
)

const (
	barsPerLine     = 4
	fallbackBPM     = 120.0
	defaultDuration = 4
)

// MIDI numbers of standard six-string tuning, low E first.
var standardTuningMIDI = [6]int{40, 45, 50, 55, 59, 64}

var noteNames = [12]string{"c", "c#", "d", "d#", "e", "f", "f#", "g", "g#", "a", "a#", "b"}

// Quantized duration denominators understood by the renderer, whole note
// through thirty-second.
var durations = [6]int{1, 2, 4, 8, 16, 32}

// Generate renders song into a notation document.
func Generate(song *sng.Song, arrangementName, songTitle, artistName string) Document {
	bpm := song.EstimatedBPM()
	if bpm <= 0 {
		bpm = fallbackBPM
	}
	beatSeconds := 60 / bpm

	var b strings.Builder
	writeHeader(&b, song, songTitle, artistName, bpm)
	writeBody(&b, song, beatSeconds)

	// A cases.Caser carries transformer state across calls and is not safe
	// to share between goroutines; the importer runs Generate from its
	// worker pool, so build one per call.
	display := cases.Title(language.English).String(strings.ToLower(strings.TrimSpace(arrangementName)))
	return Document{
		Content:         b.String(),
		ArrangementName: display,
		SortOrder:       SortOrder(arrangementName),
	}
}

// SortOrder ranks arrangement names for display.
func SortOrder(arrangementName string) int {
	name := strings.ToLower(arrangementName)
	switch {
	case strings.Contains(name, "lead"):
		return sortLead
	case strings.Contains(name, "rhythm"):
		return sortRhythm
	case strings.Contains(name, "bass"):
		return sortBass
	default:
		return sortOther
	}
}

func writeHeader(b *strings.Builder, song *sng.Song, title, artist string, bpm float64) {
	fmt.Fprintf(b, "\\title %q\n", title)
	fmt.Fprintf(b, "\\artist %q\n", artist)
	fmt.Fprintf(b, "\\tempo %d\n", int(math.Round(bpm)))
	if song.Metadata.CapoFret > 0 {
		fmt.Fprintf(b, "\\capo %d\n", song.Metadata.CapoFret)
	}
	fmt.Fprintf(b, "\\tuning %s\n", tuningSpec(song.Tuning))
	b.WriteString(".\n")
}

// tuningSpec renders string pitches high to low, the order the renderer
// expects. Tuning offsets are semitone shifts from standard per string.
func tuningSpec(offsets [6]int16) string {
	names := make([]string, 6)
	for i := 0; i < 6; i++ {
		midi := standardTuningMIDI[i] + int(offsets[i])
		names[5-i] = pitchName(midi)
	}
	return strings.Join(names, " ")
}

func pitchName(midi int) string {
	if midi < 0 {
		midi = 0
	}
	octave := midi/12 - 1
	return fmt.Sprintf("%s%d", noteNames[midi%12], octave)
}

func writeBody(b *strings.Builder, song *sng.Song, beatSeconds float64) {
	boundaries := measureBoundaries(song.Beats)
	bars := splitIntoBars(song.Notes, boundaries)

	rendered := make([]string, 0, len(bars))
	for _, bar := range bars {
		rendered = append(rendered, renderBar(song, bar, beatSeconds))
	}
	// Trailing empty measures carry no information.
	for len(rendered) > 0 && rendered[len(rendered)-1] == "r.1" {
		rendered = rendered[:len(rendered)-1]
	}
	if len(rendered) == 0 {
		rendered = append(rendered, "r.1")
	}

	for i := 0; i < len(rendered); i += barsPerLine {
		end := i + barsPerLine
		if end > len(rendered) {
			end = len(rendered)
		}
		b.WriteString(strings.Join(rendered[i:end], " | "))
		if end < len(rendered) {
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}
}

// measureBoundaries returns the start time of each measure. Charts without
// measure flags are treated as one long measure.
func measureBoundaries(beats []sng.Beat) []float64 {
	var starts []float64
	for _, beat := range beats {
		if beat.MeasureStart {
			starts = append(starts, beat.TimeSeconds)
		}
	}
	if len(starts) == 0 && len(beats) > 0 {
		starts = append(starts, beats[0].TimeSeconds)
	}
	return starts
}

func splitIntoBars(notes []sng.Note, boundaries []float64) [][]sng.Note {
	if len(boundaries) == 0 {
		return nil
	}
	bars := make([][]sng.Note, len(boundaries))
	for _, note := range notes {
		idx := 0
		for idx+1 < len(boundaries) && note.TimeSeconds >= boundaries[idx+1] {
			idx++
		}
		bars[idx] = append(bars[idx], note)
	}
	return bars
}

func renderBar(song *sng.Song, notes []sng.Note, beatSeconds float64) string {
	if len(notes) == 0 {
		return "r.1"
	}
	tokens := make([]string, 0, len(notes))
	for i, note := range notes {
		tokens = append(tokens, renderNote(song, note, noteSpanSeconds(notes, i, note), beatSeconds))
	}
	return strings.Join(tokens, " ")
}

// noteSpanSeconds is the time a note occupies: the gap to the next event in
// the bar, or the sustain for the last one. Ties across the barline use the
// same math, there is no carry-over form.
func noteSpanSeconds(notes []sng.Note, i int, note sng.Note) float64 {
	if i+1 < len(notes) {
		return notes[i+1].TimeSeconds - note.TimeSeconds
	}
	return note.SustainSeconds
}

func renderNote(song *sng.Song, note sng.Note, spanSeconds, beatSeconds float64) string {
	duration := quantizeDuration(spanSeconds, beatSeconds)
	var token string
	if note.IsChord() && int(note.ChordID) < len(song.ChordTemplates) {
		token = fmt.Sprintf("(%s).%d", chordFrets(song.ChordTemplates[note.ChordID]), duration)
	} else {
		token = fmt.Sprintf("%d.%d.%d", note.Fret, notationString(note.String), duration)
	}
	if suffix := techniqueSuffix(note.Techniques); suffix != "" {
		token += "{" + suffix + "}"
	}
	return token
}

// chordFrets renders the fretted strings of a template, low string first.
// A fret of -1 means the string is not played.
func chordFrets(template sng.ChordTemplate) string {
	var parts []string
	for string6 := 0; string6 < 6; string6++ {
		if template.Frets[string6] < 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%d.%d", template.Frets[string6], notationString(int8(string6))))
	}
	if len(parts) == 0 {
		return "r"
	}
	return strings.Join(parts, " ")
}

// notationString converts the chart's string index (0 = low E) to the
// renderer's numbering (1 = high E).
func notationString(chartString int8) int {
	s := int(chartString)
	if s < 0 || s > 5 {
		s = 0
	}
	return 6 - s
}

// quantizeDuration maps a span in seconds to the nearest denominator.
// A quarter note is one beat.
func quantizeDuration(spanSeconds, beatSeconds float64) int {
	if spanSeconds <= 0 || beatSeconds <= 0 {
		return defaultDuration
	}
	beats := spanSeconds / beatSeconds
	best := defaultDuration
	bestDiff := math.MaxFloat64
	for _, d := range durations {
		diff := math.Abs(4/float64(d) - beats)
		if diff < bestDiff {
			best, bestDiff = d, diff
		}
	}
	return best
}

func techniqueSuffix(flags sng.TechniqueFlags) string {
	var parts []string
	if flags.Has(sng.TechHammerOn) {
		parts = append(parts, "h")
	}
	if flags.Has(sng.TechPullOff) {
		parts = append(parts, "p")
	}
	if flags.Has(sng.TechBend) {
		parts = append(parts, "b")
	}
	if flags.Has(sng.TechSlide) {
		parts = append(parts, "sl")
	}
	if flags.Has(sng.TechPalmMute) {
		parts = append(parts, "pm")
	}
	if flags.Has(sng.TechHarmonic) {
		parts = append(parts, "harm")
	}
	if flags.Has(sng.TechAccent) {
		parts = append(parts, "ac")
	}
	if flags.Has(sng.TechTremolo) {
		parts = append(parts, "tr")
	}
	return strings.Join(parts, " ")
}
