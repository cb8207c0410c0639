// ABOUTME: Engine speaking the PulseAudio protocol
// ABOUTME: Reaches the PipeWire graph through pipewire-pulse without cgo
// Package pulse implements a pw engine on top of github.com/jfreymuth/pulse.
//
// PipeWire serves the PulseAudio protocol, so every stream shows up as a
// regular node in the PipeWire graph. Stream properties are passed on as
// the client name and playback latency.
package pulse

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"

	"github.com/Resonate-Protocol/resonate-ao/pkg/pw"
	"github.com/Resonate-Protocol/resonate-ao/pkg/pw/engine"
	"github.com/Resonate-Protocol/resonate-ao/pkg/pw/spa"
)

// Name is the registered engine name
const Name = "pulse"

// DefaultLatency is used when a stream has no node.latency property
const DefaultLatency = 0.05

// ErrNotInitialized is returned when streams are created before Init
var ErrNotInitialized = errors.New("pulse engine not initialized")

// AppName is sent to the server when connecting
var AppName = "resonate-ao"

func init() {
	pw.RegisterEngine(New())
}

// Engine holds the connection to the sound server
type Engine struct {
	mu     sync.Mutex
	client *pulse.Client
}

// New creates an unconnected engine
func New() *Engine {
	return &Engine{}
}

func (e *Engine) Name() string {
	return Name
}

// Init connects to the sound server
func (e *Engine) Init() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.client != nil {
		return nil
	}
	client, err := pulseNewClient(pulse.ClientApplicationName(AppName))
	if err != nil {
		return fmt.Errorf("failed to connect to sound server: %w", err)
	}
	e.client = client
	return nil
}

// Deinit closes the server connection
func (e *Engine) Deinit() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.client == nil {
		return
	}
	pulseClose(e.client)
	e.client = nil
}

func (e *Engine) NewStream(loop *pw.ThreadLoop, name string, props pw.Properties, events pw.StreamEvents) (pw.Stream, error) {
	e.mu.Lock()
	client := e.client
	e.mu.Unlock()

	if client == nil {
		return nil, ErrNotInitialized
	}
	return engine.NewStream(loop, name, props, events, &device{client: client}), nil
}

// device is one playback stream on the server
type device struct {
	client *pulse.Client
	pb     playback
	stream *engine.Stream
	info   spa.AudioInfoRaw
}

func (d *device) Open(s *engine.Stream, info spa.AudioInfoRaw) error {
	latency := DefaultLatency
	if frames := engine.LatencyFrames(s.Props(), info.Rate); frames > 0 {
		latency = float64(frames) / float64(info.Rate)
	}

	d.stream = s
	d.info = info

	pb, err := pulseNewPlayback(d.client,
		pulseFloat32Reader(d.fill),
		pulse.PlaybackSampleRate(int(info.Rate)),
		pulse.PlaybackChannels(channelMap(info.Positions())),
		pulse.PlaybackLatency(latency),
	)
	if err != nil {
		return fmt.Errorf("failed to create playback stream: %w", err)
	}
	d.pb = pb

	s.SetDelay(int64(latency * float64(info.Rate)))
	s.Logger().Debug("pulse playback opened", "latency", latency)
	return nil
}

func (d *device) Start() error {
	if d.pb == nil {
		return pw.ErrNotConnected
	}
	d.pb.Start()
	return d.pb.Error()
}

func (d *device) Stop() {
	if d.pb != nil {
		d.pb.Stop()
	}
}

func (d *device) Close() {
	if d.pb == nil {
		return
	}
	d.pb.Close()
	d.pb = nil
}

// fill runs on the pulse client goroutine. It always returns a full buffer;
// silence is played while the stream has nothing queued.
func (d *device) fill(out []float32) (int, error) {
	frames := len(out) / int(d.info.Channels)
	b := d.stream.Cycle(frames)
	engine.RenderFloat32(out, b, &d.info)
	return len(out), nil
}

// server channel positions
var positions = map[spa.AudioChannel]byte{
	spa.ChannelMono: 0,
	spa.ChannelFL:   1,
	spa.ChannelFR:   2,
	spa.ChannelFC:   3,
	spa.ChannelRC:   4,
	spa.ChannelRL:   5,
	spa.ChannelRR:   6,
	spa.ChannelLFE:  7,
	spa.ChannelFLC:  8,
	spa.ChannelFRC:  9,
	spa.ChannelSL:   10,
	spa.ChannelSR:   11,
	spa.ChannelTC:   44,
	spa.ChannelTFL:  45,
	spa.ChannelTFR:  46,
	spa.ChannelTFC:  47,
	spa.ChannelTRL:  48,
	spa.ChannelTRR:  49,
	spa.ChannelTRC:  50,
}

// first auxiliary position
const positionAux0 = 12

func channelMap(pos []spa.AudioChannel) proto.ChannelMap {
	m := make(proto.ChannelMap, len(pos))
	aux := byte(positionAux0)
	for i, p := range pos {
		if v, ok := positions[p]; ok {
			m[i] = v
			continue
		}
		m[i] = aux
		aux++
	}
	return m
}
