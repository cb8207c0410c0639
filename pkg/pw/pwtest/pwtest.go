// ABOUTME: Scriptable in-memory engine for tests
// ABOUTME: Records stream calls and triggers process callbacks on demand
// Package pwtest provides a fake pw.Engine whose streams are driven by hand.
package pwtest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Resonate-Protocol/resonate-ao/pkg/pw"
	"github.com/Resonate-Protocol/resonate-ao/pkg/pw/spa"
)

// DefaultMaxSize is the per-plane capacity of buffers handed to Process
const DefaultMaxSize = 4096

// Engine is a fake engine. Fields must be set before the engine is used.
type Engine struct {
	name string

	// FailInit is returned from Init when set
	FailInit error
	// FailNewStream is returned from NewStream when set
	FailNewStream error
	// Configure is called on every new stream before it is returned
	Configure func(*Stream)

	mu      sync.Mutex
	inits   int
	deinits int
	streams []*Stream
}

// NewEngine creates a fake engine with the given name
func NewEngine(name string) *Engine {
	return &Engine{name: name}
}

func (e *Engine) Name() string {
	return e.name
}

func (e *Engine) Init() error {
	if e.FailInit != nil {
		return e.FailInit
	}
	e.mu.Lock()
	e.inits++
	e.mu.Unlock()
	return nil
}

func (e *Engine) Deinit() {
	e.mu.Lock()
	e.deinits++
	e.mu.Unlock()
}

// Inits returns how many times Init succeeded
func (e *Engine) Inits() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inits
}

// Deinits returns how many times Deinit was called
func (e *Engine) Deinits() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.deinits
}

func (e *Engine) NewStream(loop *pw.ThreadLoop, name string, props pw.Properties, events pw.StreamEvents) (pw.Stream, error) {
	if e.FailNewStream != nil {
		return nil, e.FailNewStream
	}

	s := &Stream{
		Name:     name,
		Props:    props,
		Loop:     loop,
		Events:   events,
		MaxSize:  DefaultMaxSize,
		NilPlane: -1,
	}
	if e.Configure != nil {
		e.Configure(s)
	}

	e.mu.Lock()
	e.streams = append(e.streams, s)
	e.mu.Unlock()
	return s, nil
}

// Streams returns every stream created so far
func (e *Engine) Streams() []*Stream {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Stream(nil), e.streams...)
}

// LastStream returns the most recently created stream, nil if none
func (e *Engine) LastStream() *Stream {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.streams) == 0 {
		return nil
	}
	return e.streams[len(e.streams)-1]
}

// Stream is a fake stream. Exported knobs must be set before Connect.
type Stream struct {
	Name   string
	Props  pw.Properties
	Loop   *pw.ThreadLoop
	Events pw.StreamEvents

	// FailConnect is returned from Connect when set
	FailConnect error
	// Starve makes DequeueBuffer return nil
	Starve bool
	// NilPlane is the index of a plane left unmapped, -1 for none
	NilPlane int
	// MaxSize is the capacity of every plane
	MaxSize uint32
	// TimeInfo is returned from Time
	TimeInfo pw.Time

	mu        sync.Mutex
	direction pw.Direction
	target    uint32
	flags     pw.StreamFlags
	params    []spa.Pod
	info      spa.AudioInfoRaw
	connected bool
	active    bool
	driving   bool
	destroyed int
	pending   *pw.Buffer
	dequeued  *pw.Buffer
	queued    []*pw.Buffer
}

// Connect records its arguments and parses the first parameter
func (s *Stream) Connect(dir pw.Direction, target uint32, flags pw.StreamFlags, params []spa.Pod) error {
	if s.FailConnect != nil {
		return s.FailConnect
	}
	if len(params) == 0 {
		return pw.ErrNoFormat
	}
	_, info, err := spa.ParseAudioRaw(params[0])
	if err != nil {
		return fmt.Errorf("%w: %w", pw.ErrNoFormat, err)
	}

	s.mu.Lock()
	s.direction = dir
	s.target = target
	s.flags = flags
	s.params = params
	s.info = info
	s.connected = true
	s.mu.Unlock()

	return s.Loop.Attach(s)
}

func (s *Stream) SetActive(active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return pw.ErrNotConnected
	}
	s.active = active
	return nil
}

func (s *Stream) DequeueBuffer() *pw.Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Starve || s.pending == nil {
		return nil
	}
	s.dequeued, s.pending = s.pending, nil
	return s.dequeued
}

func (s *Stream) QueueBuffer(b *pw.Buffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b == nil || b != s.dequeued {
		return pw.ErrUnknownBuffer
	}
	s.dequeued = nil
	s.queued = append(s.queued, b)
	return nil
}

func (s *Stream) Time() (pw.Time, error) {
	return s.TimeInfo, nil
}

func (s *Stream) Destroy() {
	s.Loop.Detach(s)
	s.mu.Lock()
	s.destroyed++
	s.connected = false
	s.mu.Unlock()
}

func (s *Stream) StartDriving() error {
	s.mu.Lock()
	s.driving = true
	s.mu.Unlock()
	return nil
}

func (s *Stream) StopDriving() {
	s.mu.Lock()
	s.driving = false
	s.mu.Unlock()
}

// Trigger offers a fresh buffer and invokes the process handler once, the
// way the service's realtime thread would. It returns the buffer if the
// handler queued it.
func (s *Stream) Trigger() *pw.Buffer {
	s.mu.Lock()
	planes := max(s.info.Planes(), 1)
	b := &pw.Buffer{Datas: make([]pw.Data, planes)}
	for i := range b.Datas {
		b.Datas[i] = pw.Data{MaxSize: s.MaxSize, Chunk: &pw.Chunk{}}
		if i != s.NilPlane {
			b.Datas[i].Data = make([]byte, s.MaxSize)
		}
	}
	s.pending = b
	queuedBefore := len(s.queued)
	s.mu.Unlock()

	if s.Events.Process != nil {
		s.Events.Process()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
	if len(s.queued) > queuedBefore {
		return s.queued[len(s.queued)-1]
	}
	s.dequeued = nil
	return nil
}

// Direction returns the direction passed to Connect
func (s *Stream) Direction() pw.Direction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.direction
}

// Target returns the target id passed to Connect
func (s *Stream) Target() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// Flags returns the flags passed to Connect
func (s *Stream) Flags() pw.StreamFlags {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flags
}

// Params returns the parameters passed to Connect
func (s *Stream) Params() []spa.Pod {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// Info returns the format parsed from the first Connect parameter
func (s *Stream) Info() spa.AudioInfoRaw {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// Connected reports whether Connect succeeded and Destroy was not called
func (s *Stream) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Active reports the last value passed to SetActive
func (s *Stream) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Driving reports whether the loop asked the stream to produce callbacks
func (s *Stream) Driving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.driving
}

// Destroyed returns how many times Destroy was called
func (s *Stream) Destroyed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

// Queued returns every buffer queued so far
func (s *Stream) Queued() []*pw.Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*pw.Buffer(nil), s.queued...)
}

// ErrInjected is a convenience error for failure injection
var ErrInjected = errors.New("injected failure")
