package timingmap

import "fretforge/internal/services"

// PositionAt converts a live audio timestamp into a notation position in
// milliseconds. It runs on the playback render path at frame rate, so it
// never allocates, never blocks, and never touches the map's contents.
// Timestamps outside the mapped range extrapolate linearly along the
// nearest segment rather than clamping.
func (m *Map) PositionAt(audioSeconds float64) (float64, error) {
	points := m.Points
	if len(points) < 2 {
		return 0, services.ErrInsufficientSyncData
	}

	if audioSeconds <= points[0].AudioSeconds {
		return interpolate(points[0], points[1], audioSeconds), nil
	}
	last := len(points) - 1
	if audioSeconds >= points[last].AudioSeconds {
		return interpolate(points[last-1], points[last], audioSeconds), nil
	}

	// Find the greatest lo with points[lo].AudioSeconds <= audioSeconds.
	lo, hi := 0, last
	for hi-lo > 1 {
		mid := int(uint(lo+hi) >> 1)
		if points[mid].AudioSeconds <= audioSeconds {
			lo = mid
		} else {
			hi = mid
		}
	}
	return interpolate(points[lo], points[hi], audioSeconds), nil
}

func interpolate(lo, hi Point, audioSeconds float64) float64 {
	if audioSeconds == lo.AudioSeconds {
		return lo.NotationMs
	}
	if audioSeconds == hi.AudioSeconds {
		return hi.NotationMs
	}
	span := hi.AudioSeconds - lo.AudioSeconds
	frac := (audioSeconds - lo.AudioSeconds) / span
	return lo.NotationMs + frac*(hi.NotationMs-lo.NotationMs)
}
