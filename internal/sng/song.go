package sng

import "sort"

// TechniqueFlags is the per-note technique bitmask.
type TechniqueFlags uint8

const (
	TechBend TechniqueFlags = 1 << iota
	TechSlide
	TechPalmMute
	TechHammerOn
	TechPullOff
	TechHarmonic
	TechAccent
	TechTremolo
)

// Has reports whether flag is set.
func (t TechniqueFlags) Has(flag TechniqueFlags) bool {
	return t&flag != 0
}

// Beat is one point of the chart's beat grid.
type Beat struct {
	TimeSeconds  float64
	Measure      int32
	MeasureStart bool
}

// Section is a named region of the song ("verse", "chorus", "noguitar").
// Bookkeeping names are retained as-is; filtering is the caller's concern.
type Section struct {
	Name             string
	StartTimeSeconds float64
}

// Phrase is an authored difficulty phrase.
type Phrase struct {
	Name           string
	MaxDifficulty  int32
	IterationCount int32
}

// ChordTemplate names a chord shape referenced by note events.
type ChordTemplate struct {
	Name    string
	Frets   [6]int8
	Fingers [6]int8
}

// NoChord marks a note event that is a single note rather than a chord.
const NoChord int32 = -1

// Note is one note or chord event. ChordID >= 0 references a chord template;
// otherwise String/Fret describe a single note.
type Note struct {
	TimeSeconds    float64
	SustainSeconds float64
	String         int8
	Fret           int8
	Techniques     TechniqueFlags
	ChordID        int32
}

// IsChord reports whether the event references a chord template.
func (n Note) IsChord() bool {
	return n.ChordID != NoChord
}

// Metadata carries the chart's own bookkeeping fields. SongLengthSeconds is
// trusted; embedded tempo values are not, which is why the type carries none.
type Metadata struct {
	SongLengthSeconds float64
	FirstNoteSeconds  float64
	CapoFret          int32
}

// Song is the fully decoded chart for one arrangement.
type Song struct {
	Tuning         [6]int16
	Beats          []Beat
	Sections       []Section
	Phrases        []Phrase
	ChordTemplates []ChordTemplate
	Notes          []Note
	Metadata       Metadata
}

// EstimatedBPM derives the tempo from the beat grid rather than metadata:
// the median per-beat spacing between consecutive measure-start beats is
// converted to beats per minute. Embedded tempo fields are sometimes stale
// relative to the authored grid, so they are never consulted.
func (s *Song) EstimatedBPM() float64 {
	if len(s.Beats) < 2 {
		return 0
	}

	var spacings []float64
	lastStart := -1
	for i, beat := range s.Beats {
		if !beat.MeasureStart {
			continue
		}
		if lastStart >= 0 {
			interval := beat.TimeSeconds - s.Beats[lastStart].TimeSeconds
			beatsBetween := i - lastStart
			if interval > 0 && beatsBetween > 0 {
				spacings = append(spacings, interval/float64(beatsBetween))
			}
		}
		lastStart = i
	}

	// Charts without measure flags fall back to raw beat spacing.
	if len(spacings) == 0 {
		for i := 1; i < len(s.Beats); i++ {
			interval := s.Beats[i].TimeSeconds - s.Beats[i-1].TimeSeconds
			if interval > 0 {
				spacings = append(spacings, interval)
			}
		}
	}
	if len(spacings) == 0 {
		return 0
	}

	sort.Float64s(spacings)
	median := spacings[len(spacings)/2]
	if len(spacings)%2 == 0 {
		median = (spacings[len(spacings)/2-1] + spacings[len(spacings)/2]) / 2
	}
	if median <= 0 {
		return 0
	}
	return 60 / median
}

// BeatsPerMeasure reports the most common beat count between measure starts,
// defaulting to 4 when the grid carries no measure flags.
func (s *Song) BeatsPerMeasure() int {
	counts := make(map[int]int)
	lastStart := -1
	for i, beat := range s.Beats {
		if !beat.MeasureStart {
			continue
		}
		if lastStart >= 0 {
			counts[i-lastStart]++
		}
		lastStart = i
	}
	best, bestCount := 4, 0
	for beats, count := range counts {
		if count > bestCount || (count == bestCount && beats < best) {
			best, bestCount = beats, count
		}
	}
	return best
}
