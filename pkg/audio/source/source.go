// ABOUTME: Reader interface and file type dispatch
// ABOUTME: Opens the right decoder for a path, optionally looping at EOF
package source

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Reader provides PCM audio samples
type Reader interface {
	// Read fills samples with interleaved frames and returns the number of
	// samples read. It returns io.EOF once the source is exhausted.
	Read(samples []int32) (int, error)
	// SampleRate returns the sample rate of the audio
	SampleRate() int
	// Channels returns the number of channels
	Channels() int
	// Metadata returns title, artist, album
	Metadata() (title, artist, album string)
	// Close closes the audio source
	Close() error
}

// ErrUnsupportedFile is returned for files no reader understands
var ErrUnsupportedFile = errors.New("unsupported audio file")

// Options configure Open
type Options struct {
	// Raw describes headerless .raw and .pcm files
	Raw RawFormat
	// Loop restarts file sources at EOF
	Loop bool
	// Tone configures the generator used for an empty path
	Tone   ToneConfig
	Logger *slog.Logger
}

// Open creates a reader for a file path. An empty path gives a test tone.
func Open(path string, opts Options) (Reader, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if path == "" {
		return NewTone(opts.Tone), nil
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("audio file not found: %w", err)
	}

	var open func() (Reader, error)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		open = func() (Reader, error) { return OpenMP3(path) }
	case ".flac":
		open = func() (Reader, error) { return OpenFLAC(path) }
	case ".wav", ".wave":
		open = func() (Reader, error) { return OpenWAV(path) }
	case ".raw", ".pcm":
		open = func() (Reader, error) { return OpenRaw(path, opts.Raw) }
	default:
		return nil, fmt.Errorf("%w: %s (supported: .mp3, .flac, .wav, .raw)", ErrUnsupportedFile, ext)
	}

	r, err := open()
	if err != nil {
		return nil, err
	}

	title, _, _ := r.Metadata()
	opts.Logger.Info("Loaded audio file",
		"title", title,
		"rate", r.SampleRate(),
		"channels", r.Channels())

	if opts.Loop {
		return &loopReader{Reader: r, open: open, logger: opts.Logger}, nil
	}
	return r, nil
}

// titleFromPath extracts the filename without extension
func titleFromPath(path string) string {
	filename := filepath.Base(path)
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

// scaleTo24 converts a sample of the given bit depth to 24-bit range
func scaleTo24(sample int32, bitDepth int) int32 {
	switch {
	case bitDepth == 24:
		return sample
	case bitDepth > 24:
		return sample >> (bitDepth - 24)
	default:
		return sample << (24 - bitDepth)
	}
}

// loopReader reopens its source at EOF
type loopReader struct {
	Reader
	open   func() (Reader, error)
	logger *slog.Logger
}

func (l *loopReader) Read(samples []int32) (int, error) {
	n, err := l.Reader.Read(samples)
	if !errors.Is(err, io.EOF) || n > 0 {
		return n, err
	}

	next, openErr := l.open()
	if openErr != nil {
		return 0, fmt.Errorf("failed to restart source: %w", openErr)
	}
	if closeErr := l.Reader.Close(); closeErr != nil {
		l.logger.Warn("Failed to close source", "error", closeErr)
	}
	l.Reader = next
	l.logger.Debug("Source restarted")

	// an empty file must not loop forever
	return l.Reader.Read(samples)
}
