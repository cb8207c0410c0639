// ABOUTME: FLAC file reader
// ABOUTME: Decodes FLAC frames with mewkiz/flac and interleaves them
package source

import (
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
)

// FLACReader reads a FLAC file frame by frame
type FLACReader struct {
	stream     *flac.Stream
	sampleRate int
	channels   int
	bitDepth   int
	title      string

	// decoded samples of the current frame not yet returned
	pending []int32
	frame   []int32
}

// OpenFLAC opens a FLAC file
func OpenFLAC(path string) (*FLACReader, error) {
	stream, err := flac.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create flac decoder: %w", err)
	}

	info := stream.Info
	if info.NChannels == 0 || info.SampleRate == 0 {
		_ = stream.Close()
		return nil, fmt.Errorf("invalid flac stream info: %d channels at %d Hz", info.NChannels, info.SampleRate)
	}

	return &FLACReader{
		stream:     stream,
		sampleRate: int(info.SampleRate),
		channels:   int(info.NChannels),
		bitDepth:   int(info.BitsPerSample),
		title:      titleFromPath(path),
	}, nil
}

func (s *FLACReader) Read(samples []int32) (int, error) {
	n := 0
	for n < len(samples) {
		if len(s.pending) == 0 {
			if err := s.nextFrame(); err != nil {
				if errors.Is(err, io.EOF) && n > 0 {
					return n, nil
				}
				return n, err
			}
		}
		c := copy(samples[n:], s.pending)
		s.pending = s.pending[c:]
		n += c
	}
	return n, nil
}

func (s *FLACReader) nextFrame() error {
	frame, err := s.stream.ParseNext()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return fmt.Errorf("flac decode failed: %w", err)
	}

	blockSize := int(frame.BlockSize)
	size := blockSize * s.channels
	if cap(s.frame) < size {
		s.frame = make([]int32, size)
	}
	buf := s.frame[:size]

	for i := 0; i < blockSize; i++ {
		for ch := 0; ch < s.channels; ch++ {
			var sample int32
			if ch < len(frame.Subframes) {
				sample = frame.Subframes[ch].Samples[i]
			}
			buf[i*s.channels+ch] = scaleTo24(sample, s.bitDepth)
		}
	}

	s.pending = buf
	return nil
}

func (s *FLACReader) SampleRate() int { return s.sampleRate }
func (s *FLACReader) Channels() int   { return s.channels }
func (s *FLACReader) Metadata() (string, string, string) {
	return s.title, "Unknown Artist", "Unknown Album"
}
func (s *FLACReader) Close() error { return s.stream.Close() }
