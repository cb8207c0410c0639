// ABOUTME: Test tone generator
// ABOUTME: Generates a sine wave, 440Hz by default
package source

import (
	"io"
	"math"
	"sync"
	"time"

	"github.com/Resonate-Protocol/resonate-ao/pkg/audio"
)

// Tone defaults
const (
	DefaultToneFrequency = 440.0 // A4 note
	DefaultSampleRate    = 48000
	DefaultChannels      = 2
	DefaultToneAmplitude = 0.5
)

// ToneConfig configures a tone. Zero fields take the defaults.
type ToneConfig struct {
	Frequency  float64
	SampleRate int
	Channels   int
	Amplitude  float64
	// Duration limits the tone; zero plays forever
	Duration time.Duration
}

// Tone generates a sine wave on every channel
type Tone struct {
	cfg         ToneConfig
	sampleIndex uint64
	limit       uint64
	sampleMu    sync.Mutex
}

// NewTone creates a new tone generator
func NewTone(cfg ToneConfig) *Tone {
	if cfg.Frequency <= 0 {
		cfg.Frequency = DefaultToneFrequency
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.Channels <= 0 {
		cfg.Channels = DefaultChannels
	}
	if cfg.Amplitude <= 0 || cfg.Amplitude > 1 {
		cfg.Amplitude = DefaultToneAmplitude
	}

	t := &Tone{cfg: cfg}
	if cfg.Duration > 0 {
		t.limit = uint64(cfg.Duration.Seconds() * float64(cfg.SampleRate))
	}
	return t
}

func (s *Tone) Read(samples []int32) (int, error) {
	s.sampleMu.Lock()
	defer s.sampleMu.Unlock()

	numFrames := len(samples) / s.cfg.Channels
	if s.limit > 0 {
		if s.sampleIndex >= s.limit {
			return 0, io.EOF
		}
		numFrames = int(min(uint64(numFrames), s.limit-s.sampleIndex))
	}

	for i := 0; i < numFrames; i++ {
		t := float64(s.sampleIndex+uint64(i)) / float64(s.cfg.SampleRate)
		sample := math.Sin(2 * math.Pi * s.cfg.Frequency * t)
		value := int32(sample * audio.Max24Bit * s.cfg.Amplitude)

		for ch := 0; ch < s.cfg.Channels; ch++ {
			samples[i*s.cfg.Channels+ch] = value
		}
	}

	s.sampleIndex += uint64(numFrames)
	return numFrames * s.cfg.Channels, nil
}

func (s *Tone) SampleRate() int { return s.cfg.SampleRate }
func (s *Tone) Channels() int   { return s.cfg.Channels }
func (s *Tone) Metadata() (string, string, string) {
	return "Test Tone", "resonate-ao", ""
}
func (s *Tone) Close() error { return nil }
