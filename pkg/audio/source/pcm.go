// ABOUTME: Raw PCM file reader
// ABOUTME: Decodes headerless little-endian 16-bit and 24-bit PCM
package source

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Resonate-Protocol/resonate-ao/pkg/audio"
)

// RawFormat describes headerless PCM. Zero fields take 48kHz 16-bit stereo.
type RawFormat struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

func (f RawFormat) withDefaults() RawFormat {
	if f.SampleRate <= 0 {
		f.SampleRate = DefaultSampleRate
	}
	if f.Channels <= 0 {
		f.Channels = DefaultChannels
	}
	if f.BitDepth <= 0 {
		f.BitDepth = 16
	}
	return f
}

// RawReader reads a headerless PCM stream
type RawReader struct {
	r      io.Reader
	closer io.Closer
	format RawFormat
	title  string
	buf    []byte
}

// OpenRaw opens a raw PCM file
func OpenRaw(path string, format RawFormat) (*RawReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	r, err := NewRaw(f, format)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	r.closer = f
	r.title = titleFromPath(path)
	return r, nil
}

// NewRaw reads raw PCM from r
func NewRaw(r io.Reader, format RawFormat) (*RawReader, error) {
	format = format.withDefaults()
	if format.BitDepth != 16 && format.BitDepth != 24 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16, 24)", format.BitDepth)
	}

	return &RawReader{
		r:      r,
		format: format,
		title:  "Raw PCM",
	}, nil
}

func (s *RawReader) Read(samples []int32) (int, error) {
	bps := s.format.BitDepth / 8
	frameBytes := bps * s.format.Channels
	numBytes := len(samples) / s.format.Channels * frameBytes
	if numBytes == 0 {
		return 0, nil
	}
	if cap(s.buf) < numBytes {
		s.buf = make([]byte, numBytes)
	}
	data := s.buf[:numBytes]

	n, err := io.ReadFull(s.r, data)
	switch {
	case errors.Is(err, io.ErrUnexpectedEOF):
	case errors.Is(err, io.EOF):
		return 0, io.EOF
	case err != nil:
		return 0, fmt.Errorf("pcm read failed: %w", err)
	}
	data = data[:n/frameBytes*frameBytes]

	numSamples := len(data) / bps
	if bps == 3 {
		for i := 0; i < numSamples; i++ {
			samples[i] = audio.SampleFrom24Bit([3]byte{data[i*3], data[i*3+1], data[i*3+2]})
		}
	} else {
		for i := 0; i < numSamples; i++ {
			samples[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(data[i*2:])))
		}
	}
	if numSamples == 0 {
		return 0, io.EOF
	}
	return numSamples, nil
}

func (s *RawReader) SampleRate() int { return s.format.SampleRate }
func (s *RawReader) Channels() int   { return s.format.Channels }
func (s *RawReader) Metadata() (string, string, string) {
	return s.title, "Unknown Artist", "Unknown Album"
}

func (s *RawReader) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
