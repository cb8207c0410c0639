// ABOUTME: Audio output driver interfaces and registry
// ABOUTME: Drivers register a Backend factory that pulls audio from a Source
package output

import (
	"errors"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"
)

// Output is the push interface applications play through
type Output interface {
	// Open initializes the output device
	Open(sampleRate, channels int) error

	// Write outputs audio samples (blocks until written)
	Write(samples []int32) error

	// Close releases output resources
	Close() error
}

// Source supplies audio to a driver
type Source interface {
	// Pull writes up to frames frames into planes, one plane per channel for
	// planar formats and a single plane otherwise. deadline is when the first
	// frame written will be heard. It returns the frames written; 0 is valid.
	Pull(planes [][]byte, frames int, deadline time.Time) int
}

// SourceFunc adapts a function to Source
type SourceFunc func(planes [][]byte, frames int, deadline time.Time) int

func (f SourceFunc) Pull(planes [][]byte, frames int, deadline time.Time) int {
	return f(planes, frames, deadline)
}

// Backend is one instance of a driver
type Backend interface {
	// Init negotiates the format in ao and connects. It may change
	// ao.Channels and must set ao.SStride.
	Init(ao *AO) error
	// Uninit releases everything Init acquired. It must tolerate a failed Init.
	Uninit()
	// Reset stops playback; Start may be called again afterwards
	Reset()
	// Start begins pulling audio
	Start() error
}

// Driver describes an output driver
type Driver struct {
	Name        string
	Description string
	New         func() Backend
	// Options are the driver options and their defaults
	Options map[string]string
}

var (
	// ErrUnknownDriver is returned for driver names nobody registered
	ErrUnknownDriver = errors.New("unknown audio output driver")
	// ErrNoDriver is returned when every driver in a list failed
	ErrNoDriver = errors.New("no audio output driver could be opened")
)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// Register makes a driver available by name.
// It panics if the name is already taken.
func Register(d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()

	if _, dup := drivers[d.Name]; dup {
		panic(fmt.Sprintf("output: driver %q registered twice", d.Name))
	}
	d.Options = maps.Clone(d.Options)
	drivers[d.Name] = d
}

// Lookup returns the driver registered under name
func Lookup(name string) (Driver, error) {
	driversMu.RLock()
	defer driversMu.RUnlock()

	d, ok := drivers[name]
	if !ok {
		return Driver{}, fmt.Errorf("%w: %q", ErrUnknownDriver, name)
	}
	return d, nil
}

// Drivers returns all registered drivers sorted by name
func Drivers() []Driver {
	driversMu.RLock()
	defer driversMu.RUnlock()

	list := make([]Driver, 0, len(drivers))
	for _, d := range drivers {
		list = append(list, d)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
	return list
}
