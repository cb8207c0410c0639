// ABOUTME: Shared stream implementation for device-backed engines
// ABOUTME: Negotiates the format, hands out buffers and runs the process cycle
// Package engine holds the parts of a stream every device-backed engine shares.
//
// An engine supplies a Device. The Stream parses the connect parameters,
// opens the device with the negotiated format and attaches itself to the
// thread loop. While the loop runs, the device's audio callback calls Cycle
// with the number of frames it needs and copies the returned buffer out with
// Render or RenderFloat32.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Resonate-Protocol/resonate-ao/pkg/pw"
	"github.com/Resonate-Protocol/resonate-ao/pkg/pw/spa"
)

// Device is the engine-specific half of a stream
type Device interface {
	// Open prepares the device for the negotiated format
	Open(s *Stream, info spa.AudioInfoRaw) error
	// Start begins calling s.Cycle from the device thread
	Start() error
	// Stop halts callbacks. It may block until the current callback returns.
	Stop()
	Close()
}

var (
	// ErrUnsupportedFormat is returned when the device cannot play a format
	ErrUnsupportedFormat = errors.New("unsupported stream format")
	// ErrDirection is returned for capture streams
	ErrDirection = errors.New("only output streams are supported")
)

type bufferState int

const (
	bufferIdle bufferState = iota
	bufferPending
	bufferDequeued
	bufferQueued
)

// Stream implements pw.Stream on top of a Device
type Stream struct {
	name   string
	props  pw.Properties
	loop   *pw.ThreadLoop
	events pw.StreamEvents
	dev    Device
	logger *slog.Logger
	start  time.Time

	mu       sync.Mutex
	state    pw.StreamState
	info     spa.AudioInfoRaw
	flags    pw.StreamFlags
	active   bool
	buf      pw.Buffer
	bufState bufferState
	delay    int64
	queued   uint64
	ticks    uint64
	cycles   uint64
	xruns    uint64
}

// NewStream creates an unconnected stream bound to loop
func NewStream(loop *pw.ThreadLoop, name string, props pw.Properties, events pw.StreamEvents, dev Device) *Stream {
	return &Stream{
		name:   name,
		props:  props,
		loop:   loop,
		events: events,
		dev:    dev,
		logger: slog.Default().With("stream", name, "stream_id", uuid.NewString()),
		start:  time.Now(),
		state:  pw.StreamStateUnconnected,
	}
}

// Logger returns the stream's logger
func (s *Stream) Logger() *slog.Logger {
	return s.logger
}

// Props returns the stream properties
func (s *Stream) Props() pw.Properties {
	return s.props
}

// Info returns the negotiated format
func (s *Stream) Info() spa.AudioInfoRaw {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// State returns the connection state
func (s *Stream) State() pw.StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Stream) setState(state pw.StreamState, err error) {
	s.mu.Lock()
	old := s.state
	s.state = state
	s.mu.Unlock()

	if old != state && s.events.StateChanged != nil {
		s.events.StateChanged(old, state, err)
	}
}

// Connect negotiates the first usable format parameter and opens the device
func (s *Stream) Connect(dir pw.Direction, target uint32, flags pw.StreamFlags, params []spa.Pod) error {
	if dir != pw.DirectionOutput {
		return ErrDirection
	}

	info, err := negotiate(params)
	if err != nil {
		s.setState(pw.StreamStateError, err)
		return err
	}

	s.setState(pw.StreamStateConnecting, nil)
	if err := s.dev.Open(s, info); err != nil {
		s.setState(pw.StreamStateError, err)
		return fmt.Errorf("failed to open device: %w", err)
	}

	s.mu.Lock()
	s.info = info
	s.flags = flags
	s.active = !flags.Has(pw.FlagInactive)
	s.mu.Unlock()

	if err := s.loop.Attach(s); err != nil {
		s.dev.Close()
		s.setState(pw.StreamStateError, err)
		return fmt.Errorf("failed to attach stream: %w", err)
	}

	s.setState(pw.StreamStatePaused, nil)
	s.logger.Info("Stream connected",
		"format", info.Format,
		"rate", info.Rate,
		"channels", info.Channels,
		"target", target)
	return nil
}

func negotiate(params []spa.Pod) (spa.AudioInfoRaw, error) {
	var errs []error
	for _, p := range params {
		_, info, err := spa.ParseAudioRaw(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if info.Format.SampleSize() == 0 || info.Rate == 0 || info.Channels == 0 {
			errs = append(errs, fmt.Errorf("%w: %s %dHz %dch", ErrUnsupportedFormat, info.Format, info.Rate, info.Channels))
			continue
		}
		return info, nil
	}
	if len(errs) == 0 {
		return spa.AudioInfoRaw{}, pw.ErrNoFormat
	}
	return spa.AudioInfoRaw{}, fmt.Errorf("%w: %w", pw.ErrNoFormat, errors.Join(errs...))
}

// SetActive enables or pauses processing
func (s *Stream) SetActive(active bool) error {
	s.mu.Lock()
	if s.state == pw.StreamStateUnconnected || s.state == pw.StreamStateError {
		s.mu.Unlock()
		return pw.ErrNotConnected
	}
	s.active = active
	s.mu.Unlock()

	if active {
		s.setState(pw.StreamStateStreaming, nil)
	} else {
		s.setState(pw.StreamStatePaused, nil)
	}
	return nil
}

// DequeueBuffer returns the buffer offered by the running cycle
func (s *Stream) DequeueBuffer() *pw.Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bufState != bufferPending {
		return nil
	}
	s.bufState = bufferDequeued
	return &s.buf
}

// QueueBuffer hands a filled buffer back
func (s *Stream) QueueBuffer(b *pw.Buffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b != &s.buf || s.bufState != bufferDequeued {
		return pw.ErrUnknownBuffer
	}
	s.bufState = bufferQueued
	return nil
}

// Time returns the stream timing as last reported by the device
func (s *Stream) Time() (pw.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == pw.StreamStateUnconnected {
		return pw.Time{}, pw.ErrNotConnected
	}
	return pw.Time{
		Now:    time.Since(s.start).Nanoseconds(),
		Rate:   pw.Fraction{Num: 1, Denom: s.info.Rate},
		Ticks:  s.ticks,
		Delay:  s.delay,
		Queued: s.queued,
	}, nil
}

// SetDelay records the device delay in frames
func (s *Stream) SetDelay(frames int64) {
	s.mu.Lock()
	s.delay = frames
	s.mu.Unlock()
}

// SetQueued records the bytes buffered between the stream and the device
func (s *Stream) SetQueued(bytes uint64) {
	s.mu.Lock()
	s.queued = bytes
	s.mu.Unlock()
}

// Destroy disconnects the stream and closes the device
func (s *Stream) Destroy() {
	s.loop.Detach(s)

	s.mu.Lock()
	if s.state == pw.StreamStateUnconnected {
		s.mu.Unlock()
		return
	}
	cycles, xruns := s.cycles, s.xruns
	s.mu.Unlock()

	s.dev.Close()
	s.setState(pw.StreamStateUnconnected, nil)
	s.logger.Info("Stream destroyed", "cycles", cycles, "xruns", xruns)
}

// StartDriving is called by the loop when it starts
func (s *Stream) StartDriving() error {
	if err := s.dev.Start(); err != nil {
		return fmt.Errorf("failed to start device: %w", err)
	}
	return nil
}

// StopDriving is called by the loop when it stops
func (s *Stream) StopDriving() {
	s.dev.Stop()
}

// Cycle runs one process cycle for a device that needs frames frames.
// Planes are offered with room for twice that many frames. It returns the
// queued buffer, or nil if the loop is stopped, the stream is paused or the
// handler did not queue anything.
func (s *Stream) Cycle(frames int) *pw.Buffer {
	if !s.loop.Enter() {
		return nil
	}
	defer s.loop.Leave()

	s.mu.Lock()
	if !s.active || s.events.Process == nil || frames <= 0 {
		s.mu.Unlock()
		return nil
	}
	s.prepare(frames)
	s.mu.Unlock()

	s.events.Process()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycles++
	s.ticks += uint64(frames)
	if s.bufState != bufferQueued {
		s.bufState = bufferIdle
		s.xruns++
		return nil
	}
	s.bufState = bufferIdle
	return &s.buf
}

// prepare sizes the reusable buffer for frames frames; s.mu must be held
func (s *Stream) prepare(frames int) {
	planes := s.info.Planes()
	size := 2 * frames * s.info.Stride()

	if len(s.buf.Datas) != planes {
		s.buf.Datas = make([]pw.Data, planes)
	}
	for i := range s.buf.Datas {
		d := &s.buf.Datas[i]
		if cap(d.Data) < size {
			d.Data = make([]byte, size)
		}
		d.Data = d.Data[:size]
		d.MaxSize = uint32(size)
		if d.Chunk == nil {
			d.Chunk = &pw.Chunk{}
		}
		*d.Chunk = pw.Chunk{}
	}
	s.buf.Size = 0
	s.bufState = bufferPending
}
