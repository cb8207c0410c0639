// ABOUTME: Channel layout selection policy
// ABOUTME: Picks the closest layout an output accepts for a requested layout
package chmap

import "slices"

// Selector holds the layouts an output is able to play
type Selector struct {
	layouts  []Map
	allowAny bool
}

// speakers that may stand in for each other when no exact match exists
var replacements = map[SpeakerID]SpeakerID{
	SpeakerSL: SpeakerBL,
	SpeakerSR: SpeakerBR,
	SpeakerBL: SpeakerSL,
	SpeakerBR: SpeakerSR,
}

// Add allows layout m
func (s *Selector) Add(m Map) {
	if !m.Valid() {
		return
	}
	for _, l := range s.layouts {
		if l.Equal(m) {
			return
		}
	}
	s.layouts = append(s.layouts, slices.Clone(m))
}

// AddAny allows every valid layout unchanged
func (s *Selector) AddAny() {
	s.allowAny = true
}

// AddWaveExtDefaults allows the default layout of every channel count from
// 1 to 8, reordered to waveext order
func (s *Selector) AddWaveExtDefaults() {
	for n := 1; n <= 8; n++ {
		s.Add(DefaultLayout(n).WaveExt())
	}
}

// Layouts returns the allowed layouts
func (s *Selector) Layouts() []Map {
	return s.layouts
}

// Adjust returns the allowed layout that best matches requested.
// An allowed layout with the same speakers wins outright and its channel
// order is used. Otherwise the layout losing the fewest requested speakers
// wins, ties going to the one adding the fewest extra channels.
func (s *Selector) Adjust(requested Map) (Map, bool) {
	if !requested.Valid() {
		return nil, false
	}
	if s.allowAny {
		return slices.Clone(requested), true
	}
	for _, l := range s.layouts {
		if l.SameSpeakers(requested) {
			return slices.Clone(l), true
		}
	}

	var best Map
	bestMissing, bestExtra := 0, 0
	for _, l := range s.layouts {
		missing, extra := score(requested, l)
		if best == nil || missing < bestMissing || (missing == bestMissing && extra < bestExtra) {
			best, bestMissing, bestExtra = l, missing, extra
		}
	}
	if best == nil {
		return nil, false
	}
	return slices.Clone(best), true
}

// Default returns a layout with n channels. A current layout that already
// has n channels is kept; otherwise the first allowed layout with n channels
// is used, falling back to DefaultLayout(n).
func (s *Selector) Default(current Map, n int) (Map, bool) {
	if n <= 0 || n > MaxChannels {
		return nil, false
	}
	if len(current) == n && current.Valid() {
		return current, true
	}
	for _, l := range s.layouts {
		if len(l) == n {
			return slices.Clone(l), true
		}
	}
	return DefaultLayout(n), true
}

// score counts requested speakers the candidate cannot play and candidate
// channels nothing was requested for
func score(requested, candidate Map) (missing, extra int) {
	used := make([]bool, len(candidate))
	for _, sp := range requested {
		idx := slices.Index(candidate, sp)
		if idx < 0 {
			if r, ok := replacements[sp]; ok && !requested.Contains(r) {
				idx = slices.Index(candidate, r)
			}
		}
		if idx < 0 || used[idx] {
			missing++
			continue
		}
		used[idx] = true
	}
	for _, u := range used {
		if !u {
			extra++
		}
	}
	return missing, extra
}
