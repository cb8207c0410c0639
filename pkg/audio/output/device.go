// ABOUTME: Opens audio output drivers with fallback
// ABOUTME: Device wraps an initialized driver instance and its lifecycle
package output

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Resonate-Protocol/resonate-ao/pkg/audio"
	"github.com/Resonate-Protocol/resonate-ao/pkg/audio/chmap"
)

// ErrInvalidParams is returned by Open for an unusable format
var ErrInvalidParams = errors.New("invalid output parameters")

// ErrClosed is returned when starting a closed device
var ErrClosed = errors.New("output device closed")

// Params describe the stream an application wants to play
type Params struct {
	Format     audio.SampleFormat
	SampleRate int
	Channels   chmap.Map
	Source     Source
	// Options override driver option defaults
	Options map[string]string
	Logger  *slog.Logger
}

// Device is an initialized driver instance
type Device struct {
	ao      *AO
	backend Backend
	driver  Driver

	mu      sync.Mutex
	started bool
	closed  bool
}

// Open tries each entry of a comma separated driver list and returns the
// first one that initializes. An entry may name an engine after a slash,
// as in "pipewire/null", which sets the driver's engine option.
func Open(list string, p Params) (*Device, error) {
	if p.Format == audio.FormatUnknown || p.SampleRate <= 0 || !p.Channels.Valid() {
		return nil, fmt.Errorf("%w: %s %dHz %s", ErrInvalidParams, p.Format, p.SampleRate, p.Channels)
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}

	var errs []error
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, engine, _ := strings.Cut(entry, "/")

		d, err := Lookup(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		dev, err := openDriver(d, engine, p)
		if err != nil {
			p.Logger.Warn("Audio output failed to open", "driver", entry, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", entry, err))
			continue
		}
		return dev, nil
	}

	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: empty driver list", ErrNoDriver)
	}
	return nil, fmt.Errorf("%w: %w", ErrNoDriver, errors.Join(errs...))
}

func openDriver(d Driver, engine string, p Params) (*Device, error) {
	options := maps.Clone(d.Options)
	if options == nil {
		options = make(map[string]string)
	}
	maps.Copy(options, p.Options)
	if engine != "" {
		options["engine"] = engine
	}

	ao := &AO{
		Format:     p.Format,
		SampleRate: p.SampleRate,
		Channels:   slices.Clone(p.Channels),
		Logger:     p.Logger.With("ao", d.Name, "ao_id", uuid.NewString()),
		Source:     p.Source,
		driver:     d.Name,
		options:    options,
	}

	backend := d.New()
	if err := backend.Init(ao); err != nil {
		return nil, err
	}

	ao.Logger.Info("Audio output opened",
		"driver", d.Name,
		"format", ao.Format,
		"rate", ao.SampleRate,
		"channels", ao.Channels)

	return &Device{ao: ao, backend: backend, driver: d}, nil
}

// AO returns the negotiated output state
func (d *Device) AO() *AO {
	return d.ao
}

// Driver returns the driver that was opened
func (d *Device) Driver() Driver {
	return d.driver
}

// Start begins playback
func (d *Device) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	if err := d.backend.Start(); err != nil {
		return fmt.Errorf("failed to start %s output: %w", d.driver.Name, err)
	}
	d.started = true
	return nil
}

// Reset stops playback and keeps the device open
func (d *Device) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed || !d.started {
		return
	}
	d.backend.Reset()
	d.started = false
}

// Close releases the driver instance. Calling it again is a no-op.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.backend.Uninit()
	d.closed = true
	d.started = false
	return nil
}
