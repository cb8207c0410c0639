// ABOUTME: Tests for channel layouts and layout selection
// ABOUTME: Tests parsing, waveext ordering and Selector fallbacks
package chmap

import (
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input    string
		expected Map
	}{
		{"mono", Mono},
		{"stereo", Stereo},
		{"5.1", Map{SpeakerFL, SpeakerFR, SpeakerFC, SpeakerLFE, SpeakerBL, SpeakerBR}},
		{"fl-fr-lfe", Map{SpeakerFL, SpeakerFR, SpeakerLFE}},
		{" FL-FR ", Stereo},
		{"1", Mono},
		{"8", Map{SpeakerFL, SpeakerFR, SpeakerFC, SpeakerLFE, SpeakerBL, SpeakerBR, SpeakerSL, SpeakerSR}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			m, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if !m.Equal(tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, m)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{"", "fl-xx", "0", "17", "surround"} {
		if _, err := Parse(input); err == nil {
			t.Errorf("expected error for %q", input)
		}
	}
}

func TestDefaultLayout(t *testing.T) {
	for n := 1; n <= MaxChannels; n++ {
		m := DefaultLayout(n)
		if m.Len() != n {
			t.Errorf("DefaultLayout(%d) has %d channels", n, m.Len())
		}
		if !m.Valid() {
			t.Errorf("DefaultLayout(%d) = %v is not valid", n, m)
		}
	}
	if DefaultLayout(0) != nil || DefaultLayout(MaxChannels+1) != nil {
		t.Error("expected nil for out-of-range channel counts")
	}
}

func TestMapString(t *testing.T) {
	if s := Mono.String(); s != "mono" {
		t.Errorf("expected mono, got %s", s)
	}
	if s := (Map{SpeakerFR, SpeakerFL}).String(); s != "fr-fl" {
		t.Errorf("expected fr-fl, got %s", s)
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		name     string
		m        Map
		expected bool
	}{
		{"stereo", Stereo, true},
		{"empty", Map{}, false},
		{"duplicate", Map{SpeakerFL, SpeakerFL}, false},
		{"repeated na", Map{SpeakerNA, SpeakerNA}, true},
		{"unknown id", Map{SpeakerCount}, false},
		{"negative id", Map{-1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.m.Valid(); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestWaveExt(t *testing.T) {
	m := Map{SpeakerSR, SpeakerFL, SpeakerLFE, SpeakerFR}
	expected := Map{SpeakerFL, SpeakerFR, SpeakerLFE, SpeakerSR}
	if got := m.WaveExt(); !got.Equal(expected) {
		t.Errorf("expected %v, got %v", expected, got)
	}
	// original untouched
	if m[0] != SpeakerSR {
		t.Error("WaveExt modified its receiver")
	}
}

func TestSelectorAdjust(t *testing.T) {
	var sel Selector
	sel.AddWaveExtDefaults()

	tests := []struct {
		name      string
		requested string
		expected  string
	}{
		{"exact", "stereo", "stereo"},
		{"reordered", "fl-fr-bl-br-fc-lfe", "5.1"},
		{"superset", "7.0", "7.1"},
		{"quad", "quad", "5.0"},
		{"side replaced by back", "fl-fr-sl-sr", "5.0"},
		{"mono", "mono", "mono"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := Parse(tt.requested)
			if err != nil {
				t.Fatal(err)
			}
			want, err := Parse(tt.expected)
			if err != nil {
				t.Fatal(err)
			}

			got, ok := sel.Adjust(req)
			if !ok {
				t.Fatal("adjust failed")
			}
			if !got.Equal(want) {
				t.Errorf("expected %v, got %v", want, got)
			}
		})
	}
}

func TestSelectorAdjustEmpty(t *testing.T) {
	var sel Selector
	if _, ok := sel.Adjust(Stereo); ok {
		t.Error("expected empty selector to reject every layout")
	}

	sel.AddAny()
	m := Map{SpeakerTFL, SpeakerTFR}
	got, ok := sel.Adjust(m)
	if !ok || !got.Equal(m) {
		t.Errorf("expected %v unchanged, got %v (ok=%v)", m, got, ok)
	}
}

func TestSelectorDefault(t *testing.T) {
	var sel Selector
	sel.AddWaveExtDefaults()

	got, ok := sel.Default(Stereo, 2)
	if !ok || !got.Equal(Stereo) {
		t.Errorf("expected stereo to be kept, got %v", got)
	}

	six, _ := Named("5.1")
	got, ok = sel.Default(Stereo, 6)
	if !ok || !got.Equal(six) {
		t.Errorf("expected 5.1, got %v", got)
	}

	got, ok = sel.Default(nil, 12)
	if !ok || got.Len() != 12 {
		t.Errorf("expected 12 channel default, got %v", got)
	}

	if _, ok := sel.Default(nil, 0); ok {
		t.Error("expected failure for zero channels")
	}
}
