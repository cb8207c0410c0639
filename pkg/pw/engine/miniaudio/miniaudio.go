// ABOUTME: Engine backed by miniaudio through malgo
// ABOUTME: Drives stream cycles from the miniaudio device callback
// Package miniaudio implements a pw engine on a native miniaudio device.
// miniaudio picks PipeWire, PulseAudio or ALSA, whichever the system offers.
package miniaudio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/Resonate-Protocol/resonate-ao/pkg/pw"
	"github.com/Resonate-Protocol/resonate-ao/pkg/pw/engine"
	"github.com/Resonate-Protocol/resonate-ao/pkg/pw/spa"
)

// Name is the registered engine name
const Name = "miniaudio"

// ErrNotInitialized is returned when streams are created before Init
var ErrNotInitialized = errors.New("miniaudio engine not initialized")

// formats the device is opened with; the first one is the fallback
var deviceFormats = []spa.AudioFormat{
	spa.AudioFormatF32,
	spa.AudioFormatS16,
	spa.AudioFormatS32,
	spa.AudioFormatU8,
}

func init() {
	pw.RegisterEngine(New())
}

// Engine owns the malgo context
type Engine struct {
	mu  sync.Mutex
	ctx *malgo.AllocatedContext
}

// New creates an uninitialized engine
func New() *Engine {
	return &Engine{}
}

func (e *Engine) Name() string {
	return Name
}

// Init creates the malgo context
func (e *Engine) Init() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctx != nil {
		return nil
	}
	ctx, err := malgoInitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	e.ctx = ctx
	return nil
}

// Deinit releases the malgo context
func (e *Engine) Deinit() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctx == nil {
		return
	}
	_ = malgoContextUninit(e.ctx)
	malgoContextFree(e.ctx)
	e.ctx = nil
}

func (e *Engine) NewStream(loop *pw.ThreadLoop, name string, props pw.Properties, events pw.StreamEvents) (pw.Stream, error) {
	e.mu.Lock()
	ctx := e.ctx
	e.mu.Unlock()

	if ctx == nil {
		return nil, ErrNotInitialized
	}
	return engine.NewStream(loop, name, props, events, &device{ctx: ctx}), nil
}

// device plays one stream on a miniaudio playback device
type device struct {
	ctx    *malgo.AllocatedContext
	dev    *malgo.Device
	stream *engine.Stream
	info   spa.AudioInfoRaw
	format spa.AudioFormat
}

func (d *device) Open(s *engine.Stream, info spa.AudioInfoRaw) error {
	format := engine.DeviceFormat(info.Format, deviceFormats...)

	cfg := malgoDefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgoFormat(format)
	cfg.Playback.Channels = info.Channels
	cfg.SampleRate = info.Rate
	cfg.Alsa.NoMMap = 1
	if frames := engine.LatencyFrames(s.Props(), info.Rate); frames > 0 {
		cfg.PeriodSizeInFrames = uint32(frames)
	}

	d.stream = s
	d.info = info
	d.format = format

	callbacks := malgo.DeviceCallbacks{
		Data: func(out, _ []byte, frames uint32) {
			d.fill(out, frames)
		},
	}

	dev, err := malgoInitDevice(d.ctx.Context, cfg, callbacks)
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}
	d.dev = dev

	s.Logger().Debug("miniaudio device opened", "device_format", format, "period", cfg.PeriodSizeInFrames)
	return nil
}

func (d *device) Start() error {
	if d.dev == nil {
		return pw.ErrNotConnected
	}
	return malgoDeviceStart(d.dev)
}

func (d *device) Stop() {
	if d.dev == nil {
		return
	}
	if err := malgoDeviceStop(d.dev); err != nil {
		d.stream.Logger().Warn("miniaudio device stop failed", "error", err)
	}
}

func (d *device) Close() {
	if d.dev == nil {
		return
	}
	malgoDeviceUninit(d.dev)
	d.dev = nil
}

// fill runs on the miniaudio thread
func (d *device) fill(out []byte, frames uint32) {
	d.stream.SetDelay(int64(frames))
	b := d.stream.Cycle(int(frames))
	engine.Render(out, d.format, b, &d.info)
}

func malgoFormat(f spa.AudioFormat) malgo.FormatType {
	switch f {
	case spa.AudioFormatU8:
		return malgo.FormatU8
	case spa.AudioFormatS16:
		return malgo.FormatS16
	case spa.AudioFormatS32:
		return malgo.FormatS32
	}
	return malgo.FormatF32
}
