// ABOUTME: Push-style player on top of a pull-driven output device
// ABOUTME: Buffers interleaved int32 samples and encodes them for the driver
package output

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/resonate-ao/pkg/audio"
	"github.com/Resonate-Protocol/resonate-ao/pkg/audio/chmap"
)

var (
	// ErrNotOpen is returned when writing to a player that has no device
	ErrNotOpen = errors.New("output not initialized")
	// ErrFormatChanged is returned to a writer whose channel layout was
	// replaced while it waited
	ErrFormatChanged = errors.New("output format changed")
)

const (
	// DefaultBuffer is how much audio the player queues ahead of the device
	DefaultBuffer = 500 * time.Millisecond
	// DefaultDrivers is the driver list used when none is configured
	DefaultDrivers = "pipewire"
)

// PlayerConfig configures a Player
type PlayerConfig struct {
	// Drivers is a driver list as accepted by Open
	Drivers string
	// Format is the sample format requested from the driver
	Format  audio.SampleFormat
	Options map[string]string
	Buffer  time.Duration
	Logger  *slog.Logger
}

// Stats describe playback progress in frames
type Stats struct {
	Written   uint64
	Played    uint64
	Underruns uint64
	Buffered  int
	// Latency is how far ahead of the speaker the last pull was
	Latency time.Duration
}

// Player implements Output by feeding a ring buffer that the driver pulls from
type Player struct {
	cfg    PlayerConfig
	logger *slog.Logger

	mu      sync.Mutex
	dev     *Device
	ring    *RingBuffer
	rate    int
	in      chmap.Map
	volume  int
	muted   bool
	closed  bool
	opening bool
	closeCh chan struct{}

	// set before the device starts, read by Pull
	format  audio.SampleFormat
	routes  []int
	scratch []int32

	space     chan struct{}
	written   atomic.Uint64
	played    atomic.Uint64
	underruns atomic.Uint64
	latency   atomic.Int64
}

// NewPlayer creates a player. Nothing is opened until Open.
func NewPlayer(cfg PlayerConfig) *Player {
	if cfg.Drivers == "" {
		cfg.Drivers = DefaultDrivers
	}
	if cfg.Format == audio.FormatUnknown {
		cfg.Format = audio.FormatFloat
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultBuffer
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Player{
		cfg:     cfg,
		logger:  cfg.Logger.With("component", "player"),
		volume:  100,
		closeCh: make(chan struct{}),
		space:   make(chan struct{}, 1),
	}
}

// Open initializes the output with the default layout for channels
func (p *Player) Open(sampleRate, channels int) error {
	layout := chmap.DefaultLayout(channels)
	if layout == nil {
		return fmt.Errorf("%w: %d channels", ErrInvalidParams, channels)
	}
	return p.OpenLayout(sampleRate, layout)
}

// OpenLayout initializes the output for samples in the given channel order.
// Reopening with the same format keeps the running device.
func (p *Player) OpenLayout(sampleRate int, layout chmap.Map) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	if p.dev != nil && p.rate == sampleRate && p.in.Equal(layout) {
		p.logger.Debug("Audio output already initialized with same format, reusing device")
		return nil
	}

	p.opening = true
	defer func() {
		p.opening = false
		p.signalSpace()
	}()

	if p.dev != nil {
		p.logger.Info("Format change detected, reinitializing device",
			"from_rate", p.rate, "from_channels", p.in,
			"to_rate", sampleRate, "to_channels", layout)
		p.closeDevice()
	}

	dev, err := Open(p.cfg.Drivers, Params{
		Format:     p.cfg.Format,
		SampleRate: sampleRate,
		Channels:   layout,
		Source:     p,
		Options:    p.cfg.Options,
		Logger:     p.cfg.Logger,
	})
	if err != nil {
		return err
	}

	ao := dev.AO()
	p.rate = sampleRate
	p.in = slices.Clone(layout)
	p.format = ao.Format
	p.routes = routeChannels(layout, ao.Channels)
	p.ring = NewRingBuffer(int(p.cfg.Buffer.Seconds()*float64(sampleRate)) * len(layout))
	p.dev = dev

	if err := dev.Start(); err != nil {
		p.closeDevice()
		return err
	}

	p.logger.Info("Audio output initialized",
		"driver", dev.Driver().Name,
		"rate", sampleRate,
		"channels", ao.Channels,
		"format", ao.Format)
	return nil
}

// routeChannels maps every output channel to the input channel carrying the
// same speaker, or -1 for silence
func routeChannels(in, out chmap.Map) []int {
	routes := make([]int, len(out))
	for i, sp := range out {
		routes[i] = slices.Index(in, sp)
	}
	if len(in) == 1 && len(out) > 1 && !slices.ContainsFunc(routes, func(r int) bool { return r >= 0 }) {
		// mono source without a center speaker plays on the front pair
		routes[0], routes[1] = 0, 0
	}
	return routes
}

// Write queues interleaved samples, blocking while the buffer is full
func (p *Player) Write(samples []int32) error {
	return p.WriteContext(context.Background(), samples)
}

// WriteContext is Write with cancellation. A write blocked across a reopen
// continues into the new device; one whose channel count changed returns
// ErrFormatChanged with the rest of samples unwritten.
func (p *Player) WriteContext(ctx context.Context, samples []int32) error {
	p.mu.Lock()
	channels := len(p.in)
	p.mu.Unlock()
	if channels > 0 {
		samples = samples[:len(samples)/channels*channels]
	}

	for len(samples) > 0 {
		p.mu.Lock()
		ring, in, closed, opening := p.ring, len(p.in), p.closed, p.opening
		p.mu.Unlock()

		if closed {
			return ErrClosed
		}
		if ring == nil && !opening {
			return ErrNotOpen
		}
		if ring != nil && channels == 0 {
			// opened while this write waited
			channels = in
			samples = samples[:len(samples)/channels*channels]
			continue
		}
		if ring != nil && in != channels {
			return fmt.Errorf("%w: %d to %d channels", ErrFormatChanged, channels, in)
		}

		if ring != nil {
			n := ring.Write(samples)
			p.written.Add(uint64(n / channels))
			samples = samples[n:]
			if len(samples) == 0 {
				break
			}
		}

		select {
		case <-p.space:
		case <-p.closeCh:
			return ErrClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Pull implements Source. It runs on the driver's realtime thread.
func (p *Player) Pull(planes [][]byte, frames int, deadline time.Time) int {
	p.latency.Store(int64(time.Until(deadline)))

	p.mu.Lock()
	ring, in, volume, muted := p.ring, len(p.in), p.volume, p.muted
	p.mu.Unlock()
	if ring == nil || in == 0 {
		return 0
	}

	want := frames * in
	if cap(p.scratch) < want {
		p.scratch = make([]int32, want)
	}
	buf := p.scratch[:want]
	n := ring.Read(buf) / in
	buf = buf[:n*in]

	p.signalSpace()

	if n < frames {
		p.underruns.Add(1)
	}
	if n == 0 {
		return 0
	}

	applyVolume(buf, volume, muted)
	p.encode(planes, buf, n, in)
	p.played.Add(uint64(n))
	return n
}

// signalSpace wakes a blocked writer without blocking
func (p *Player) signalSpace() {
	select {
	case p.space <- struct{}{}:
	default:
	}
}

func (p *Player) encode(planes [][]byte, buf []int32, frames, in int) {
	bps := p.format.BytesPerSample()
	out := len(p.routes)
	planar := p.format.IsPlanar()

	for f := range frames {
		for c, src := range p.routes {
			var s int32
			if src >= 0 {
				s = buf[f*in+src]
			}
			if planar {
				audio.PutSample(planes[c][f*bps:], p.format, s)
			} else {
				audio.PutSample(planes[0][(f*out+c)*bps:], p.format, s)
			}
		}
	}
}

// Drain waits until everything written has been pulled by the device
func (p *Player) Drain(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		p.mu.Lock()
		ring := p.ring
		p.mu.Unlock()
		if ring == nil || ring.Available() == 0 {
			return nil
		}

		select {
		case <-ticker.C:
		case <-p.closeCh:
			return ErrClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Stats returns playback counters
func (p *Player) Stats() Stats {
	p.mu.Lock()
	var buffered int
	if p.ring != nil && len(p.in) > 0 {
		buffered = p.ring.Available() / len(p.in)
	}
	p.mu.Unlock()

	return Stats{
		Written:   p.written.Load(),
		Played:    p.played.Load(),
		Underruns: p.underruns.Load(),
		Buffered:  buffered,
		Latency:   time.Duration(p.latency.Load()),
	}
}

// Device returns the open device, or nil
func (p *Player) Device() *Device {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dev
}

// Close releases output resources
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	close(p.closeCh)
	p.closeDevice()
	return nil
}

// closeDevice must be called with p.mu held
func (p *Player) closeDevice() {
	if p.dev == nil {
		return
	}
	dev := p.dev
	p.dev = nil
	p.ring = nil

	// Uninit waits for in-flight pulls, which take p.mu
	p.mu.Unlock()
	if err := dev.Close(); err != nil {
		p.logger.Warn("Failed to close device", "error", err)
	}
	p.mu.Lock()
}

// SetVolume sets the volume (0-100)
func (p *Player) SetVolume(volume int) {
	p.mu.Lock()
	p.volume = clampVolume(volume)
	p.mu.Unlock()
	p.logger.Debug("Volume set", "volume", volume)
}

// SetMuted sets mute state
func (p *Player) SetMuted(muted bool) {
	p.mu.Lock()
	p.muted = muted
	p.mu.Unlock()
	p.logger.Debug("Mute set", "muted", muted)
}

// GetVolume returns current volume
func (p *Player) GetVolume() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// IsMuted returns mute state
func (p *Player) IsMuted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.muted
}
