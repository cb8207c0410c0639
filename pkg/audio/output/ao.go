// ABOUTME: State shared between the output layer and a driver instance
// ABOUTME: Carries the negotiated format, channel layout, options and source
package output

import (
	"log/slog"
	"time"

	"github.com/Resonate-Protocol/resonate-ao/pkg/audio"
	"github.com/Resonate-Protocol/resonate-ao/pkg/audio/chmap"
)

// AO is the audio output instance handed to a Backend
type AO struct {
	Format     audio.SampleFormat
	SampleRate int
	Channels   chmap.Map
	// SStride is the size in bytes of one frame in one plane, set by Init
	SStride int

	Logger *slog.Logger
	Source Source

	driver  string
	options map[string]string
}

// Option returns a driver option, or def when it is unset or empty
func (ao *AO) Option(key, def string) string {
	if v, ok := ao.options[key]; ok && v != "" {
		return v
	}
	return def
}

// Driver returns the name of the driver the instance belongs to
func (ao *AO) Driver() string {
	return ao.driver
}

// logger returns ao.Logger, or the default logger when none is set
func (ao *AO) logger() *slog.Logger {
	if ao.Logger == nil {
		return slog.Default()
	}
	return ao.Logger
}

// Planes returns the number of data planes of the negotiated format
func (ao *AO) Planes() int {
	if ao.Format.IsPlanar() {
		return ao.Channels.Len()
	}
	return 1
}

// ReadData pulls up to frames frames from the source into planes. It is
// called from the driver's realtime thread.
func (ao *AO) ReadData(planes [][]byte, frames int, deadline time.Time) int {
	if ao.Source == nil || frames <= 0 {
		return 0
	}
	n := ao.Source.Pull(planes, frames, deadline)
	return max(min(n, frames), 0)
}

// ChmapSelAdjust replaces ao.Channels with the closest layout sel allows
func (ao *AO) ChmapSelAdjust(sel *chmap.Selector) bool {
	m, ok := sel.Adjust(ao.Channels)
	if !ok {
		ao.logger().Error("Channel layout not supported by output", "channels", ao.Channels)
		return false
	}
	if !m.Equal(ao.Channels) {
		ao.logger().Debug("Channel layout adjusted", "from", ao.Channels, "to", m)
	}
	ao.Channels = m
	return true
}

// ChmapSelGetDef makes sure ao.Channels is a layout with n channels
func (ao *AO) ChmapSelGetDef(sel *chmap.Selector, n int) bool {
	m, ok := sel.Default(ao.Channels, n)
	if !ok {
		ao.logger().Error("No default channel layout", "channels", n)
		return false
	}
	ao.Channels = m
	return true
}
