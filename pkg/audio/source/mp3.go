// ABOUTME: MP3 file reader
// ABOUTME: Decodes MP3 with go-mp3 into 24-bit stereo samples
package source

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Resonate-Protocol/resonate-ao/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// MP3Reader reads an MP3 file. go-mp3 always produces 16-bit stereo.
type MP3Reader struct {
	file       *os.File
	decoder    *mp3.Decoder
	sampleRate int
	title      string
	buf        []byte
}

// OpenMP3 opens an MP3 file
func OpenMP3(path string) (*MP3Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	return &MP3Reader{
		file:       f,
		decoder:    decoder,
		sampleRate: decoder.SampleRate(),
		title:      titleFromPath(path),
	}, nil
}

func (s *MP3Reader) Read(samples []int32) (int, error) {
	// 2 bytes per sample, whole stereo frames only
	numBytes := len(samples) / 2 * 4
	if numBytes == 0 {
		return 0, nil
	}
	if cap(s.buf) < numBytes {
		s.buf = make([]byte, numBytes)
	}
	buf := s.buf[:numBytes]

	n, err := io.ReadFull(s.decoder, buf)
	switch {
	case errors.Is(err, io.ErrUnexpectedEOF):
		err = nil
	case errors.Is(err, io.EOF):
		return 0, io.EOF
	case err != nil:
		return 0, fmt.Errorf("mp3 decode failed: %w", err)
	}

	numSamples := n / 4 * 2
	for i := 0; i < numSamples; i++ {
		samples[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(buf[i*2:])))
	}
	return numSamples, err
}

func (s *MP3Reader) SampleRate() int { return s.sampleRate }
func (s *MP3Reader) Channels() int   { return 2 }
func (s *MP3Reader) Metadata() (string, string, string) {
	return s.title, "Unknown Artist", "Unknown Album"
}
func (s *MP3Reader) Close() error { return s.file.Close() }
