// ABOUTME: Channel layout definitions
// ABOUTME: Speaker positions, named layouts, parsing and waveext ordering
package chmap

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// MaxChannels is the largest channel count a Map may hold
const MaxChannels = 16

// SpeakerID is a logical speaker position.
// The first 18 values follow WAVEFORMATEXTENSIBLE channel mask order.
type SpeakerID int

const (
	SpeakerFL SpeakerID = iota
	SpeakerFR
	SpeakerFC
	SpeakerLFE
	SpeakerBL
	SpeakerBR
	SpeakerFLC
	SpeakerFRC
	SpeakerBC
	SpeakerSL
	SpeakerSR
	SpeakerTC
	SpeakerTFL
	SpeakerTFC
	SpeakerTFR
	SpeakerTBL
	SpeakerTBC
	SpeakerTBR
	SpeakerLFE2
	SpeakerNA

	// SpeakerCount is the number of known speaker ids
	SpeakerCount
)

var speakerNames = [SpeakerCount]string{
	SpeakerFL:   "fl",
	SpeakerFR:   "fr",
	SpeakerFC:   "fc",
	SpeakerLFE:  "lfe",
	SpeakerBL:   "bl",
	SpeakerBR:   "br",
	SpeakerFLC:  "flc",
	SpeakerFRC:  "frc",
	SpeakerBC:   "bc",
	SpeakerSL:   "sl",
	SpeakerSR:   "sr",
	SpeakerTC:   "tc",
	SpeakerTFL:  "tfl",
	SpeakerTFC:  "tfc",
	SpeakerTFR:  "tfr",
	SpeakerTBL:  "tbl",
	SpeakerTBC:  "tbc",
	SpeakerTBR:  "tbr",
	SpeakerLFE2: "lfe2",
	SpeakerNA:   "na",
}

func (s SpeakerID) String() string {
	if s >= 0 && s < SpeakerCount {
		return speakerNames[s]
	}
	return fmt.Sprintf("sp%d", int(s))
}

// Valid reports whether s is a known speaker id
func (s SpeakerID) Valid() bool {
	return s >= 0 && s < SpeakerCount
}

// Map is an ordered list of speakers, one per channel
type Map []SpeakerID

var (
	Mono   = Map{SpeakerFC}
	Stereo = Map{SpeakerFL, SpeakerFR}
)

type namedLayout struct {
	name string
	m    Map
}

var namedLayouts = []namedLayout{
	{"mono", Mono},
	{"stereo", Stereo},
	{"2.1", Map{SpeakerFL, SpeakerFR, SpeakerLFE}},
	{"3.0", Map{SpeakerFL, SpeakerFR, SpeakerFC}},
	{"4.0", Map{SpeakerFL, SpeakerFR, SpeakerFC, SpeakerBC}},
	{"quad", Map{SpeakerFL, SpeakerFR, SpeakerBL, SpeakerBR}},
	{"5.0", Map{SpeakerFL, SpeakerFR, SpeakerFC, SpeakerBL, SpeakerBR}},
	{"5.1", Map{SpeakerFL, SpeakerFR, SpeakerFC, SpeakerLFE, SpeakerBL, SpeakerBR}},
	{"6.0", Map{SpeakerFL, SpeakerFR, SpeakerFC, SpeakerBC, SpeakerSL, SpeakerSR}},
	{"6.1", Map{SpeakerFL, SpeakerFR, SpeakerFC, SpeakerLFE, SpeakerBC, SpeakerSL, SpeakerSR}},
	{"7.0", Map{SpeakerFL, SpeakerFR, SpeakerFC, SpeakerBL, SpeakerBR, SpeakerSL, SpeakerSR}},
	{"7.1", Map{SpeakerFL, SpeakerFR, SpeakerFC, SpeakerLFE, SpeakerBL, SpeakerBR, SpeakerSL, SpeakerSR}},
}

// default layout name per channel count
var defaultLayouts = [...]string{1: "mono", 2: "stereo", 3: "2.1", 4: "4.0", 5: "5.0", 6: "5.1", 7: "6.1", 8: "7.1"}

// Named returns a copy of a standard layout such as "5.1"
func Named(name string) (Map, bool) {
	for _, l := range namedLayouts {
		if l.name == name {
			return slices.Clone(l.m), true
		}
	}
	return nil, false
}

// DefaultLayout returns the default layout for n channels.
// Counts above 8 take speakers in waveext order.
func DefaultLayout(n int) Map {
	if n <= 0 || n > MaxChannels {
		return nil
	}
	if n < len(defaultLayouts) {
		m, _ := Named(defaultLayouts[n])
		return m
	}
	m := make(Map, n)
	for i := range m {
		m[i] = SpeakerID(i)
	}
	return m
}

// Parse parses "5.1", "fl-fr-lfe" or a bare channel count
func Parse(s string) (Map, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil, fmt.Errorf("empty channel layout")
	}
	if m, ok := Named(s); ok {
		return m, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		m := DefaultLayout(n)
		if m == nil {
			return nil, fmt.Errorf("unsupported channel count: %d", n)
		}
		return m, nil
	}

	parts := strings.Split(s, "-")
	if len(parts) > MaxChannels {
		return nil, fmt.Errorf("too many channels: %d (max %d)", len(parts), MaxChannels)
	}
	m := make(Map, 0, len(parts))
	for _, p := range parts {
		id := slices.Index(speakerNames[:], p)
		if id < 0 {
			return nil, fmt.Errorf("unknown speaker %q in layout %q", p, s)
		}
		m = append(m, SpeakerID(id))
	}
	return m, nil
}

// Len returns the channel count
func (m Map) Len() int {
	return len(m)
}

// Equal reports whether both maps list the same speakers in the same order
func (m Map) Equal(o Map) bool {
	return slices.Equal(m, o)
}

// IsMono reports whether m is the single-channel layout
func (m Map) IsMono() bool {
	return m.Equal(Mono)
}

// Valid reports whether m holds 1..MaxChannels known, distinct speakers
func (m Map) Valid() bool {
	if len(m) == 0 || len(m) > MaxChannels {
		return false
	}
	var seen [SpeakerCount]bool
	for _, s := range m {
		if !s.Valid() {
			return false
		}
		if s != SpeakerNA && seen[s] {
			return false
		}
		seen[s] = true
	}
	return true
}

// SameSpeakers reports whether both maps hold the same speakers in any order
func (m Map) SameSpeakers(o Map) bool {
	if len(m) != len(o) {
		return false
	}
	a, b := slices.Clone(m), slices.Clone(o)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}

// Contains reports whether speaker s is part of m
func (m Map) Contains(s SpeakerID) bool {
	return slices.Contains(m, s)
}

// WaveExt returns m reordered to waveext channel order
func (m Map) WaveExt() Map {
	w := slices.Clone(m)
	slices.SortStableFunc(w, func(a, b SpeakerID) int {
		return int(a) - int(b)
	})
	return w
}

func (m Map) String() string {
	for _, l := range namedLayouts {
		if l.m.Equal(m) {
			return l.name
		}
	}
	if len(m) == 0 {
		return "empty"
	}
	names := make([]string, len(m))
	for i, s := range m {
		names[i] = s.String()
	}
	return strings.Join(names, "-")
}
