// ABOUTME: Indirections over pulse client calls
// ABOUTME: Tests replace these to run without a sound server
package pulse

import "github.com/jfreymuth/pulse"

type playback interface {
	Start()
	Stop()
	Close()
	Error() error
}

// serverPlayback adapts *pulse.PlaybackStream to playback
type serverPlayback struct {
	s *pulse.PlaybackStream
}

func (p serverPlayback) Start()       { p.s.Start() }
func (p serverPlayback) Stop()        { p.s.Stop() }
func (p serverPlayback) Close()       { p.s.Close() }
func (p serverPlayback) Error() error { return p.s.Error() }

func newServerPlayback(c *pulse.Client, r pulse.Reader, opts ...pulse.PlaybackOption) (playback, error) {
	s, err := c.NewPlayback(r, opts...)
	if err != nil {
		return nil, err
	}
	return serverPlayback{s}, nil
}

func closeClient(c *pulse.Client) {
	c.Close()
}

var (
	pulseNewClient     = pulse.NewClient
	pulseClose         = closeClient
	pulseNewPlayback   = newServerPlayback
	pulseFloat32Reader = func(fill func([]float32) (int, error)) pulse.Reader { return pulse.Float32Reader(fill) }
)
