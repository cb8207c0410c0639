// ABOUTME: PipeWire audio output driver
// ABOUTME: Negotiates format and channels, connects a realtime playback stream
// Package pipewire is the "pipewire" output driver.
//
// The driver acquires the process-wide client of the configured engine,
// opens one playback stream on its own thread loop and, on every process
// callback, pulls audio from the output layer straight into the stream's
// buffers.
//
// Options:
//
//	engine      engine implementing the service (default "pulse")
//	latency     node.latency hint such as "1024/48000"
//	role        media.role (default "Music")
//	clientname  application.name (default "resonate-ao")
package pipewire

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Resonate-Protocol/resonate-ao/pkg/audio/chmap"
	"github.com/Resonate-Protocol/resonate-ao/pkg/audio/output"
	"github.com/Resonate-Protocol/resonate-ao/pkg/pw"
	"github.com/Resonate-Protocol/resonate-ao/pkg/pw/spa"
)

const (
	// DriverName is the name the driver registers under
	DriverName = "pipewire"
	// DefaultRole is the media.role of the stream
	DefaultRole = "Music"
	// DefaultClientName is the application.name of the stream
	DefaultClientName = "resonate-ao"

	loopName   = "ao-pipewire"
	streamName = "audio-src"
)

// ErrNotInitialized is returned by Start before a successful Init
var ErrNotInitialized = errors.New("pipewire output not initialized")

func init() {
	output.Register(output.Driver{
		Name:        DriverName,
		Description: "PipeWire audio output",
		New: func() output.Backend {
			return New()
		},
		Options: map[string]string{
			"engine":     pw.DefaultEngine,
			"latency":    "",
			"role":       DefaultRole,
			"clientname": DefaultClientName,
		},
	})
}

// Backend is one pipewire output instance
type Backend struct {
	lookupEngine func(name string) (pw.Engine, error)
	now          func() time.Time

	ao     *output.AO
	logger *slog.Logger
	client *pw.Client
	loop   *pw.ThreadLoop
	stream pw.Stream

	// per-callback plane views, reused across callbacks
	planes [spa.MaxChannels][]byte
}

// New creates an uninitialized backend
func New() *Backend {
	return &Backend{
		lookupEngine: pw.LookupEngine,
		now:          time.Now,
		logger:       slog.Default(),
	}
}

// Init acquires the client, negotiates the format and connects the stream.
// On failure everything acquired so far is released.
func (b *Backend) Init(ao *output.AO) error {
	if err := b.init(ao); err != nil {
		b.Uninit()
		return err
	}
	return nil
}

func (b *Backend) init(ao *output.AO) error {
	b.ao = ao
	if ao.Logger != nil {
		b.logger = ao.Logger
	}

	engine, err := b.lookupEngine(ao.Option("engine", pw.DefaultEngine))
	if err != nil {
		return err
	}
	client, err := pw.Acquire(engine)
	if err != nil {
		return err
	}
	b.client = client

	b.loop = client.NewThreadLoop(loopName)

	props := pw.Properties{
		pw.KeyMediaType:     "Audio",
		pw.KeyMediaCategory: "Playback",
		pw.KeyMediaRole:     ao.Option("role", DefaultRole),
		pw.KeyAppName:       ao.Option("clientname", DefaultClientName),
	}
	if latency := ao.Option("latency", ""); latency != "" {
		props[pw.KeyNodeLatency] = latency
	}
	stream, err := client.NewStream(b.loop, streamName, props, pw.StreamEvents{
		Process: b.onProcess,
	})
	if err != nil {
		return err
	}
	b.stream = stream

	desc, err := lookupFormat(ao.Format)
	if err != nil {
		return err
	}

	var sel chmap.Selector
	sel.AddWaveExtDefaults()
	if !ao.ChmapSelAdjust(&sel) {
		return fmt.Errorf("%w: %s", ErrUnmappedSpeaker, ao.Channels)
	}
	if !ao.ChmapSelGetDef(&sel, ao.Channels.Len()) {
		return fmt.Errorf("%w: %s", ErrUnmappedSpeaker, ao.Channels)
	}

	ao.SStride = desc.frameStride(ao.Channels.Len())

	info := spa.AudioInfoRaw{
		Format:   desc.spaFormat,
		Rate:     uint32(ao.SampleRate),
		Channels: uint32(ao.Channels.Len()),
	}
	if err := fillPositions(&info, ao.Channels); err != nil {
		return err
	}

	params := []spa.Pod{spa.BuildAudioRaw(spa.ParamEnumFormat, &info)}
	flags := pw.FlagAutoconnect | pw.FlagMapBuffers | pw.FlagRTProcess
	if err := stream.Connect(pw.DirectionOutput, pw.IDAny, flags, params); err != nil {
		return fmt.Errorf("failed to connect stream: %w", err)
	}
	if err := stream.SetActive(true); err != nil {
		return fmt.Errorf("failed to activate stream: %w", err)
	}

	b.logger.Info("PipeWire stream connected",
		"engine", engine.Name(),
		"format", info.Format,
		"rate", info.Rate,
		"channels", ao.Channels,
		"sstride", ao.SStride)
	return nil
}

// Uninit stops the loop and releases the stream, the loop and the client,
// in that order. It is safe after a failed Init and when called twice.
func (b *Backend) Uninit() {
	if b.loop != nil {
		b.loop.Stop()
	}
	if b.stream != nil {
		b.stream.Destroy()
		b.stream = nil
	}
	if b.loop != nil {
		b.loop.Destroy()
		b.loop = nil
	}
	if b.client != nil {
		b.client.Release()
		b.client = nil
	}
}

// Reset stops callbacks. The stream stays connected.
func (b *Backend) Reset() {
	if b.loop != nil {
		b.loop.Stop()
	}
}

// Start begins callbacks
func (b *Backend) Start() error {
	if b.loop == nil || b.stream == nil {
		return ErrNotInitialized
	}
	return b.loop.Start()
}
