// ABOUTME: Engine backed by the oto portable audio library
// ABOUTME: Each stream is an oto player whose reads drive stream cycles
// Package oto implements a pw engine on github.com/ebitengine/oto/v3.
//
// oto allows a single context per process, so the first connected stream
// fixes the rate and channel count. Later streams must use the same layout.
package oto

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/Resonate-Protocol/resonate-ao/pkg/pw"
	"github.com/Resonate-Protocol/resonate-ao/pkg/pw/engine"
	"github.com/Resonate-Protocol/resonate-ao/pkg/pw/spa"
)

// Name is the registered engine name
const Name = "oto"

// ErrLayoutLocked is returned when a stream asks for a layout other than
// the one the process-wide context was created with
var ErrLayoutLocked = errors.New("oto context already opened with a different layout")

// formats the context is created with; the first one is the fallback
var deviceFormats = []spa.AudioFormat{
	spa.AudioFormatF32,
	spa.AudioFormatS16,
	spa.AudioFormatU8,
}

func init() {
	pw.RegisterEngine(New())
}

type player interface {
	Play()
	Pause()
	Close() error
	BufferedSize() int
}

func newPlayer(ctx *oto.Context, r io.Reader) player {
	return ctx.NewPlayer(r)
}

var (
	otoNewContext = oto.NewContext
	otoNewPlayer  = newPlayer
	otoSuspend    = (*oto.Context).Suspend
	otoResume     = (*oto.Context).Resume
)

type layout struct {
	rate     uint32
	channels uint32
	format   spa.AudioFormat
}

// Engine owns the process-wide oto context
type Engine struct {
	mu        sync.Mutex
	ctx       *oto.Context
	layout    layout
	suspended bool
}

// New creates an engine without a context
func New() *Engine {
	return &Engine{}
}

func (e *Engine) Name() string {
	return Name
}

// Init resumes a context suspended by Deinit
func (e *Engine) Init() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctx != nil && e.suspended {
		if err := otoResume(e.ctx); err != nil {
			return fmt.Errorf("failed to resume oto context: %w", err)
		}
		e.suspended = false
	}
	return nil
}

// Deinit suspends the context; oto cannot close it
func (e *Engine) Deinit() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctx != nil && !e.suspended {
		_ = otoSuspend(e.ctx)
		e.suspended = true
	}
}

func (e *Engine) NewStream(loop *pw.ThreadLoop, name string, props pw.Properties, events pw.StreamEvents) (pw.Stream, error) {
	return engine.NewStream(loop, name, props, events, &device{engine: e}), nil
}

// context returns the shared context, creating it on first use
func (e *Engine) context(want layout, latency time.Duration) (*oto.Context, spa.AudioFormat, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctx != nil {
		if want.rate != e.layout.rate || want.channels != e.layout.channels {
			return nil, 0, fmt.Errorf("%w: have %dHz %dch, want %dHz %dch", ErrLayoutLocked,
				e.layout.rate, e.layout.channels, want.rate, want.channels)
		}
		return e.ctx, e.layout.format, nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   int(want.rate),
		ChannelCount: int(want.channels),
		Format:       otoFormat(want.format),
		BufferSize:   latency,
	}
	ctx, ready, err := otoNewContext(op)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	e.ctx = ctx
	e.layout = want
	return ctx, want.format, nil
}

// queueInterval is how often the player's buffer depth is sampled
const queueInterval = 5 * time.Millisecond

// device plays one stream through an oto player
type device struct {
	engine *Engine
	player player
	stream *engine.Stream
	info   spa.AudioInfoRaw
	format spa.AudioFormat
	stride int

	monitorStop chan struct{}
	monitorDone chan struct{}
}

func (d *device) Open(s *engine.Stream, info spa.AudioInfoRaw) error {
	want := layout{
		rate:     info.Rate,
		channels: info.Channels,
		format:   engine.DeviceFormat(info.Format, deviceFormats...),
	}

	var latency time.Duration
	if frames := engine.LatencyFrames(s.Props(), info.Rate); frames > 0 {
		latency = time.Duration(frames) * time.Second / time.Duration(info.Rate)
	}

	ctx, format, err := d.engine.context(want, latency)
	if err != nil {
		return err
	}

	d.stream = s
	d.info = info
	d.format = format
	d.stride = format.SampleSize() * int(info.Channels)
	d.player = otoNewPlayer(ctx, d)

	// the player buffer sits between the stream and the device
	if latency > 0 {
		s.SetDelay(int64(engine.LatencyFrames(s.Props(), info.Rate)))
	}
	return nil
}

func (d *device) Start() error {
	if d.player == nil {
		return pw.ErrNotConnected
	}
	d.player.Play()
	d.startMonitor()
	return nil
}

func (d *device) Stop() {
	d.stopMonitor()
	if d.player != nil {
		d.player.Pause()
	}
}

func (d *device) Close() {
	d.stopMonitor()
	if d.player == nil {
		return
	}
	if err := d.player.Close(); err != nil {
		d.stream.Logger().Warn("oto player close failed", "error", err)
	}
	d.player = nil
}

// startMonitor reports the player's buffer depth as the stream's queued
// bytes. BufferedSize takes the player lock that Read runs under, so it is
// sampled from its own goroutine.
func (d *device) startMonitor() {
	if d.monitorStop != nil {
		return
	}
	stop, done := make(chan struct{}), make(chan struct{})
	d.monitorStop, d.monitorDone = stop, done

	p := d.player
	go func() {
		defer close(done)
		ticker := time.NewTicker(queueInterval)
		defer ticker.Stop()
		for {
			d.reportQueued(p)
			select {
			case <-ticker.C:
			case <-stop:
				return
			}
		}
	}()
}

func (d *device) stopMonitor() {
	if d.monitorStop == nil {
		return
	}
	close(d.monitorStop)
	<-d.monitorDone
	d.monitorStop, d.monitorDone = nil, nil
}

// reportQueued converts buffered device bytes to bytes in the stream format
func (d *device) reportQueued(p player) {
	frames := p.BufferedSize() / d.stride
	d.stream.SetQueued(uint64(frames * d.info.Format.SampleSize() * int(d.info.Channels)))
}

// Read is called by oto's mixer goroutine with the player lock held
func (d *device) Read(p []byte) (int, error) {
	frames := len(p) / d.stride
	if frames == 0 {
		return 0, nil
	}
	n := frames * d.stride
	b := d.stream.Cycle(frames)
	engine.Render(p[:n], d.format, b, &d.info)
	return n, nil
}

func otoFormat(f spa.AudioFormat) oto.Format {
	switch f {
	case spa.AudioFormatU8:
		return oto.FormatUnsignedInt8
	case spa.AudioFormatS16:
		return oto.FormatSignedInt16LE
	}
	return oto.FormatFloat32LE
}
