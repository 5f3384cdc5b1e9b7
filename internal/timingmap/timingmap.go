package timingmap

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"fretforge/internal/logging"
	"fretforge/internal/services"
	"fretforge/internal/sng"
)

// Point is one correspondence pair. It marshals as a two-element array,
// [audioSeconds, notationMs].
type Point struct {
	AudioSeconds float64
	NotationMs   float64
}

// MarshalJSON renders the compact array form.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.AudioSeconds, p.NotationMs})
}

// UnmarshalJSON accepts the array form.
func (p *Point) UnmarshalJSON(data []byte) error {
	var pair [2]float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	p.AudioSeconds = pair[0]
	p.NotationMs = pair[1]
	return nil
}

// Map is the persisted timing map for one arrangement. Points are strictly
// increasing in both coordinates.
type Map struct {
	BPMEstimate float64 `json:"bpm"`
	RestBars    int     `json:"restBars"`
	Points      []Point `json:"points"`
}

const fallbackBPM = 120.0

// Generate builds the timing map from the chart's beat grid. Each surviving
// beat contributes one point whose notation coordinate advances by one beat
// duration at the estimated tempo. Beats that do not advance audio time
// (zero-length or reversed intervals from corrupt charts) are dropped and
// logged instead of aborting the map.
func Generate(song *sng.Song, logger *slog.Logger) (*Map, error) {
	logger = logging.NewComponentLogger(logger, "timingmap")

	bpm := song.EstimatedBPM()
	if bpm <= 0 {
		bpm = fallbackBPM
	}
	beatMs := 60000 / bpm

	points := make([]Point, 0, len(song.Beats))
	notation := 0.0
	dropped := 0
	for i, beat := range song.Beats {
		if len(points) > 0 && beat.TimeSeconds <= points[len(points)-1].AudioSeconds {
			dropped++
			logger.Warn("dropping non-monotonic beat",
				logging.Int("beat_index", i),
				logging.Float64("beat_seconds", beat.TimeSeconds))
			continue
		}
		points = append(points, Point{AudioSeconds: beat.TimeSeconds, NotationMs: notation})
		notation += beatMs
	}
	if dropped > 0 {
		logger.Warn("beat grid contained non-monotonic intervals", logging.Int("dropped", dropped))
	}
	if len(points) < 2 {
		return nil, services.Wrap(services.ErrInsufficientSyncData, "timingmap", "generate",
			fmt.Sprintf("beat grid yields %d usable points, need at least 2", len(points)), nil)
	}

	return &Map{
		BPMEstimate: bpm,
		RestBars:    restBars(song),
		Points:      points,
	}, nil
}

// restBars counts the complete count-in measures before the first note, so
// the viewer can show a rest lead-in instead of negative time.
func restBars(song *sng.Song) int {
	firstNote := song.Metadata.FirstNoteSeconds
	if firstNote <= 0 && len(song.Notes) > 0 {
		firstNote = song.Notes[0].TimeSeconds
	}
	if firstNote <= 0 {
		return 0
	}

	var starts []float64
	for _, beat := range song.Beats {
		if beat.MeasureStart {
			starts = append(starts, beat.TimeSeconds)
		}
	}
	const epsilon = 1e-9
	bars := 0
	for i := 0; i+1 < len(starts); i++ {
		if starts[i+1] <= firstNote+epsilon {
			bars++
		}
	}
	return bars
}

// Validate reports whether the point list satisfies the map's monotonicity
// contract, used when loading persisted maps back from disk.
func (m *Map) Validate() error {
	if len(m.Points) < 2 {
		return services.Wrap(services.ErrInsufficientSyncData, "timingmap", "validate",
			fmt.Sprintf("map has %d points, need at least 2", len(m.Points)), nil)
	}
	for i := 1; i < len(m.Points); i++ {
		prev, cur := m.Points[i-1], m.Points[i]
		if cur.AudioSeconds <= prev.AudioSeconds || cur.NotationMs <= prev.NotationMs {
			return services.Wrap(services.ErrValidation, "timingmap", "validate",
				fmt.Sprintf("point %d does not advance both coordinates", i), nil)
		}
		if math.IsNaN(cur.AudioSeconds) || math.IsNaN(cur.NotationMs) {
			return services.Wrap(services.ErrValidation, "timingmap", "validate",
				fmt.Sprintf("point %d is not a number", i), nil)
		}
	}
	return nil
}
