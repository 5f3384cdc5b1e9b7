package audio

import "strings"

// Candidate is one audio entry pulled from an archive.
type Candidate struct {
	Path string
	Size int64
}

// SelectFullMix picks the full-mix stream from the archive's audio entries.
// Manifests reference their backing stream by persistent ID embedded in the
// entry path, so a single ID match is authoritative. When several candidates
// match (some titles ship the full mix and the preview under the same ID),
// the largest wins. Without any ID match there is nothing to trust and the
// caller reports the song as unimportable.
func SelectFullMix(candidates []Candidate, persistentIDs []string) (Candidate, bool) {
	var matched []Candidate
	for _, candidate := range candidates {
		for _, id := range persistentIDs {
			if id != "" && strings.Contains(candidate.Path, id) {
				matched = append(matched, candidate)
				break
			}
		}
	}
	if len(matched) == 0 {
		return Candidate{}, false
	}
	best := matched[0]
	for _, candidate := range matched[1:] {
		if candidate.Size > best.Size {
			best = candidate
		}
	}
	return best, true
}
