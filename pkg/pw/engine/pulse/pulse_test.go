// ABOUTME: Tests for the pulse engine with server calls replaced
// ABOUTME: Verifies channel maps, unwinding and the reader to stream cycle path
package pulse

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Resonate-Protocol/resonate-ao/pkg/pw"
	"github.com/Resonate-Protocol/resonate-ao/pkg/pw/spa"
)

type fakePlayback struct {
	starts, stops, closes int
}

func (f *fakePlayback) Start()       { f.starts++ }
func (f *fakePlayback) Stop()        { f.stops++ }
func (f *fakePlayback) Close()       { f.closes++ }
func (f *fakePlayback) Error() error { return nil }

type fakeServer struct {
	playback   *fakePlayback
	fill       func([]float32) (int, error)
	options    int
	clientDone int
}

func installFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	origNewClient, origClose := pulseNewClient, pulseClose
	origNewPlayback, origReader := pulseNewPlayback, pulseFloat32Reader
	t.Cleanup(func() {
		pulseNewClient, pulseClose = origNewClient, origClose
		pulseNewPlayback, pulseFloat32Reader = origNewPlayback, origReader
	})

	f := &fakeServer{playback: &fakePlayback{}}
	pulseNewClient = func(...pulse.ClientOption) (*pulse.Client, error) {
		return &pulse.Client{}, nil
	}
	pulseClose = func(*pulse.Client) {
		f.clientDone++
	}
	pulseFloat32Reader = func(fill func([]float32) (int, error)) pulse.Reader {
		f.fill = fill
		return nil
	}
	pulseNewPlayback = func(_ *pulse.Client, _ pulse.Reader, opts ...pulse.PlaybackOption) (playback, error) {
		f.options = len(opts)
		return f.playback, nil
	}
	return f
}

func params(format spa.AudioFormat, channels ...spa.AudioChannel) []spa.Pod {
	info := spa.AudioInfoRaw{Format: format, Rate: 48000, Channels: uint32(len(channels))}
	copy(info.Position[:], channels)
	return []spa.Pod{spa.BuildAudioRaw(spa.ParamEnumFormat, &info)}
}

func TestChannelMap(t *testing.T) {
	got := channelMap([]spa.AudioChannel{spa.ChannelFL, spa.ChannelFR, spa.ChannelLFE, spa.ChannelRL, spa.ChannelNA, spa.ChannelLFE2})
	assert.Equal(t, proto.ChannelMap{1, 2, 7, 5, 12, 13}, got)

	assert.Equal(t, proto.ChannelMap{0}, channelMap([]spa.AudioChannel{spa.ChannelMono}))
}

func TestInitFailure(t *testing.T) {
	installFakeServer(t)
	pulseNewClient = func(...pulse.ClientOption) (*pulse.Client, error) {
		return nil, errors.New("connection refused")
	}

	_, err := pw.Acquire(New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to sound server")
}

func TestPlaybackFailure(t *testing.T) {
	f := installFakeServer(t)
	pulseNewPlayback = func(*pulse.Client, pulse.Reader, ...pulse.PlaybackOption) (playback, error) {
		return nil, errors.New("no sink")
	}

	c, err := pw.Acquire(New())
	require.NoError(t, err)
	s, err := c.NewStream(pw.NewThreadLoop("l"), "audio-src", nil, pw.StreamEvents{})
	require.NoError(t, err)

	err = s.Connect(pw.DirectionOutput, pw.IDAny, 0, params(spa.AudioFormatS16, spa.ChannelFL, spa.ChannelFR))
	require.Error(t, err)
	s.Destroy()
	c.Release()
	assert.Equal(t, 1, f.clientDone)
}

func TestReaderDrivesProcess(t *testing.T) {
	f := installFakeServer(t)
	c, err := pw.Acquire(New())
	require.NoError(t, err)
	defer c.Release()

	loop := pw.NewThreadLoop("l")
	var s pw.Stream
	process := func() {
		b := s.DequeueBuffer()
		require.NotNil(t, b)
		// one frame, s16 stereo
		binary.LittleEndian.PutUint16(b.Datas[0].Data[0:], uint16(16384))
		binary.LittleEndian.PutUint16(b.Datas[0].Data[2:], uint16(0xc000))
		b.Datas[0].Chunk.Size = 4
		b.Size = 4
		require.NoError(t, s.QueueBuffer(b))
	}
	s, err = c.NewStream(loop, "audio-src", pw.Properties{pw.KeyNodeLatency: "480/48000"}, pw.StreamEvents{Process: process})
	require.NoError(t, err)
	require.NoError(t, s.Connect(pw.DirectionOutput, pw.IDAny, pw.FlagAutoconnect, params(spa.AudioFormatS16, spa.ChannelFL, spa.ChannelFR)))
	require.NoError(t, s.SetActive(true))
	assert.Equal(t, 4, f.options)

	tm, err := s.Time()
	require.NoError(t, err)
	assert.Equal(t, int64(480), tm.Delay)
	assert.Equal(t, uint32(48000), tm.Rate.Denom)

	require.NoError(t, loop.Start())
	assert.Equal(t, 1, f.playback.starts)

	out := make([]float32, 8)
	n, err := f.fill(out)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.InDelta(t, 0.5, out[0], 1e-6)
	assert.InDelta(t, -0.5, out[1], 1e-6)
	for _, v := range out[2:] {
		assert.Zero(t, v)
	}

	loop.Stop()
	assert.Equal(t, 1, f.playback.stops)

	// stopped loop plays silence without calling process
	out[0] = 1
	_, _ = f.fill(out)
	assert.Zero(t, out[0])

	s.Destroy()
	assert.Equal(t, 1, f.playback.closes)
}
