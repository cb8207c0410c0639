// ABOUTME: WAV file reader
// ABOUTME: Reads PCM WAV files through go-audio/wav
package source

import (
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVReader reads a PCM WAV file
type WAVReader struct {
	file       *os.File
	decoder    *wav.Decoder
	sampleRate int
	channels   int
	bitDepth   int
	title      string
	buf        *goaudio.IntBuffer
}

// OpenWAV opens a WAV file and seeks to its sample data
func OpenWAV(path string) (*WAVReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		_ = f.Close()
		return nil, fmt.Errorf("invalid wav file: %s", path)
	}
	if err := d.FwdToPCM(); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to find wav data: %w", err)
	}

	switch d.BitDepth {
	case 8, 16, 24, 32:
	default:
		_ = f.Close()
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 8, 16, 24, 32)", d.BitDepth)
	}

	return &WAVReader{
		file:       f,
		decoder:    d,
		sampleRate: int(d.SampleRate),
		channels:   int(d.NumChans),
		bitDepth:   int(d.BitDepth),
		title:      titleFromPath(path),
		buf: &goaudio.IntBuffer{
			Format: &goaudio.Format{
				SampleRate:  int(d.SampleRate),
				NumChannels: int(d.NumChans),
			},
			SourceBitDepth: int(d.BitDepth),
		},
	}, nil
}

func (s *WAVReader) Read(samples []int32) (int, error) {
	want := len(samples) / s.channels * s.channels
	if want == 0 {
		return 0, nil
	}
	if cap(s.buf.Data) < want {
		s.buf.Data = make([]int, want)
	}
	s.buf.Data = s.buf.Data[:want]

	n, err := s.decoder.PCMBuffer(s.buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("wav decode failed: %w", err)
	}
	if n == 0 {
		return 0, io.EOF
	}

	for i, v := range s.buf.Data[:n] {
		if s.bitDepth == 8 {
			// 8-bit wav samples are unsigned
			samples[i] = int32(v-128) << 16
			continue
		}
		samples[i] = scaleTo24(int32(v), s.bitDepth)
	}
	return n, nil
}

func (s *WAVReader) SampleRate() int { return s.sampleRate }
func (s *WAVReader) Channels() int   { return s.channels }
func (s *WAVReader) Metadata() (string, string, string) {
	return s.title, "Unknown Artist", "Unknown Album"
}
func (s *WAVReader) Close() error { return s.file.Close() }
