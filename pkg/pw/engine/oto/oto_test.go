// ABOUTME: Tests for the oto engine with the oto context replaced
// ABOUTME: Verifies the shared context layout lock and player reads
package oto

import (
	"encoding/binary"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Resonate-Protocol/resonate-ao/pkg/pw"
	"github.com/Resonate-Protocol/resonate-ao/pkg/pw/spa"
)

type fakePlayer struct {
	r             io.Reader
	plays, pauses int
	closed        bool
	buffered      atomic.Int64
}

func (p *fakePlayer) BufferedSize() int { return int(p.buffered.Load()) }

func (p *fakePlayer) Play()  { p.plays++ }
func (p *fakePlayer) Pause() { p.pauses++ }

func (p *fakePlayer) Close() error {
	p.closed = true
	return nil
}

type fakeOto struct {
	options  *oto.NewContextOptions
	contexts int
	players  []*fakePlayer
}

func installFakeOto(t *testing.T) *fakeOto {
	t.Helper()
	origNewContext, origNewPlayer := otoNewContext, otoNewPlayer
	origSuspend, origResume := otoSuspend, otoResume
	t.Cleanup(func() {
		otoNewContext, otoNewPlayer = origNewContext, origNewPlayer
		otoSuspend, otoResume = origSuspend, origResume
	})

	f := &fakeOto{}
	otoNewContext = func(op *oto.NewContextOptions) (*oto.Context, chan struct{}, error) {
		f.contexts++
		f.options = op
		ready := make(chan struct{})
		close(ready)
		return &oto.Context{}, ready, nil
	}
	otoNewPlayer = func(_ *oto.Context, r io.Reader) player {
		p := &fakePlayer{r: r}
		f.players = append(f.players, p)
		return p
	}
	otoSuspend = func(*oto.Context) error { return nil }
	otoResume = func(*oto.Context) error { return nil }
	return f
}

func params(format spa.AudioFormat, rate, channels uint32) []spa.Pod {
	info := spa.AudioInfoRaw{Format: format, Rate: rate, Channels: channels}
	return []spa.Pod{spa.BuildAudioRaw(spa.ParamEnumFormat, &info)}
}

func TestContextCreatedOnce(t *testing.T) {
	f := installFakeOto(t)
	e := New()
	c, err := pw.Acquire(e)
	require.NoError(t, err)
	defer c.Release()

	loop := pw.NewThreadLoop("l")
	s1, err := c.NewStream(loop, "a", pw.Properties{pw.KeyNodeLatency: "2400/48000"}, pw.StreamEvents{})
	require.NoError(t, err)
	require.NoError(t, s1.Connect(pw.DirectionOutput, pw.IDAny, 0, params(spa.AudioFormatS16P, 48000, 2)))
	defer s1.Destroy()

	require.NotNil(t, f.options)
	assert.Equal(t, 48000, f.options.SampleRate)
	assert.Equal(t, 2, f.options.ChannelCount)
	assert.Equal(t, oto.FormatSignedInt16LE, f.options.Format)
	assert.Equal(t, int64(50), f.options.BufferSize.Milliseconds())

	s2, err := c.NewStream(loop, "b", nil, pw.StreamEvents{})
	require.NoError(t, err)
	require.NoError(t, s2.Connect(pw.DirectionOutput, pw.IDAny, 0, params(spa.AudioFormatF32, 48000, 2)))
	defer s2.Destroy()
	assert.Equal(t, 1, f.contexts)

	s3, err := c.NewStream(loop, "c", nil, pw.StreamEvents{})
	require.NoError(t, err)
	err = s3.Connect(pw.DirectionOutput, pw.IDAny, 0, params(spa.AudioFormatF32, 44100, 2))
	assert.True(t, errors.Is(err, ErrLayoutLocked), "got %v", err)
}

func TestPlayerReadDrivesProcess(t *testing.T) {
	f := installFakeOto(t)
	e := New()
	c, err := pw.Acquire(e)
	require.NoError(t, err)
	defer c.Release()

	loop := pw.NewThreadLoop("l")
	var s pw.Stream
	process := func() {
		b := s.DequeueBuffer()
		require.NotNil(t, b)
		// planar s16, one frame per plane
		binary.LittleEndian.PutUint16(b.Datas[0].Data, 1000)
		binary.LittleEndian.PutUint16(b.Datas[1].Data, 2000)
		for i := range b.Datas {
			b.Datas[i].Chunk.Size = 2
		}
		b.Size = 4
		require.NoError(t, s.QueueBuffer(b))
	}
	s, err = c.NewStream(loop, "a", nil, pw.StreamEvents{Process: process})
	require.NoError(t, err)
	require.NoError(t, s.Connect(pw.DirectionOutput, pw.IDAny, 0, params(spa.AudioFormatS16P, 48000, 2)))
	require.NoError(t, s.SetActive(true))
	require.NoError(t, loop.Start())

	require.Len(t, f.players, 1)
	p := f.players[0]
	assert.Equal(t, 1, p.plays)

	buf := make([]byte, 16)
	n, err := p.r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 16, n)
	assert.Equal(t, int16(1000), int16(binary.LittleEndian.Uint16(buf[0:])))
	assert.Equal(t, int16(2000), int16(binary.LittleEndian.Uint16(buf[2:])))
	assert.Equal(t, make([]byte, 12), buf[4:])

	loop.Stop()
	assert.Equal(t, 1, p.pauses)

	s.Destroy()
	assert.True(t, p.closed)
}

func TestPlayerBufferReportedAsQueued(t *testing.T) {
	f := installFakeOto(t)
	e := New()
	c, err := pw.Acquire(e)
	require.NoError(t, err)
	defer c.Release()

	loop := pw.NewThreadLoop("l")
	s, err := c.NewStream(loop, "a", nil, pw.StreamEvents{Process: func() {}})
	require.NoError(t, err)
	require.NoError(t, s.Connect(pw.DirectionOutput, pw.IDAny, 0, params(spa.AudioFormatS16P, 48000, 2)))
	defer s.Destroy()
	require.NoError(t, s.SetActive(true))

	require.NoError(t, loop.Start())
	require.Len(t, f.players, 1)
	// 100 stereo s16 frames waiting in the player
	f.players[0].buffered.Store(400)

	require.Eventually(t, func() bool {
		tm, err := s.Time()
		return err == nil && tm.Queued == 400
	}, time.Second, time.Millisecond)

	loop.Stop()
	f.players[0].buffered.Store(40)
	time.Sleep(3 * queueInterval)
	tm, err := s.Time()
	require.NoError(t, err)
	assert.Equal(t, uint64(400), tm.Queued, "no sampling while stopped")
}
