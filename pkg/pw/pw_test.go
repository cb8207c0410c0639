// ABOUTME: Tests for the client handle, engine registry and thread loop
// ABOUTME: Uses the pwtest fake engine to observe init and deinit calls
package pw_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Resonate-Protocol/resonate-ao/pkg/pw"
	"github.com/Resonate-Protocol/resonate-ao/pkg/pw/pwtest"
	"github.com/Resonate-Protocol/resonate-ao/pkg/pw/spa"
)

func TestAcquireRelease(t *testing.T) {
	e := pwtest.NewEngine("refcount")

	c1, err := pw.Acquire(e)
	require.NoError(t, err)
	c2, err := pw.Acquire(e)
	require.NoError(t, err)

	assert.Equal(t, 1, e.Inits(), "engine initialized once")
	assert.Equal(t, 2, pw.Refs(e))

	c1.Release()
	c1.Release()
	assert.Equal(t, 1, pw.Refs(e), "double release drops one reference")
	assert.Equal(t, 0, e.Deinits())

	c2.Release()
	assert.Equal(t, 0, pw.Refs(e))
	assert.Equal(t, 1, e.Deinits())

	var nilClient *pw.Client
	nilClient.Release()
}

func TestAcquireInitFailure(t *testing.T) {
	e := pwtest.NewEngine("broken")
	e.FailInit = pwtest.ErrInjected

	c, err := pw.Acquire(e)
	require.Error(t, err)
	assert.Nil(t, c)
	assert.True(t, errors.Is(err, pwtest.ErrInjected))
	assert.Equal(t, 0, pw.Refs(e))
}

func TestNewStreamAfterRelease(t *testing.T) {
	e := pwtest.NewEngine("released")
	c, err := pw.Acquire(e)
	require.NoError(t, err)
	c.Release()

	_, err = c.NewStream(c.NewThreadLoop("l"), "s", nil, pw.StreamEvents{})
	assert.Error(t, err)
}

func TestEngineRegistry(t *testing.T) {
	e := pwtest.NewEngine("registry-test")
	pw.RegisterEngine(e)

	got, err := pw.LookupEngine("registry-test")
	require.NoError(t, err)
	assert.Same(t, e, got)
	assert.Contains(t, pw.Engines(), "registry-test")

	_, err = pw.LookupEngine("does-not-exist")
	assert.ErrorIs(t, err, pw.ErrUnknownEngine)

	assert.Panics(t, func() { pw.RegisterEngine(pwtest.NewEngine("registry-test")) })
}

func TestThreadLoopDrivers(t *testing.T) {
	e := pwtest.NewEngine("loop-drivers")
	c, err := pw.Acquire(e)
	require.NoError(t, err)
	defer c.Release()

	loop := c.NewThreadLoop("test")
	s, err := c.NewStream(loop, "audio-src", nil, pw.StreamEvents{})
	require.NoError(t, err)

	info := spa.AudioInfoRaw{Format: spa.AudioFormatS16, Rate: 48000, Channels: 2}
	require.NoError(t, s.Connect(pw.DirectionOutput, pw.IDAny, pw.FlagAutoconnect, []spa.Pod{spa.BuildAudioRaw(spa.ParamEnumFormat, &info)}))

	fake := e.LastStream()
	assert.False(t, fake.Driving())

	require.NoError(t, loop.Start())
	assert.True(t, loop.Running())
	assert.True(t, fake.Driving())

	loop.Stop()
	assert.False(t, loop.Running())
	assert.False(t, fake.Driving())

	// restartable
	require.NoError(t, loop.Start())
	assert.True(t, fake.Driving())

	s.Destroy()
	assert.False(t, fake.Driving())

	loop.Destroy()
	assert.ErrorIs(t, loop.Start(), pw.ErrLoopDestroyed)
}

func TestThreadLoopStopWaitsForCallbacks(t *testing.T) {
	loop := pw.NewThreadLoop("wait")
	require.NoError(t, loop.Start())

	entered := make(chan struct{})
	var finished atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if !loop.Enter() {
			t.Error("expected Enter to succeed on a running loop")
			close(entered)
			return
		}
		close(entered)
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
		loop.Leave()
	}()

	<-entered
	loop.Stop()
	assert.True(t, finished.Load(), "Stop returned before the callback left")
	assert.False(t, loop.Enter(), "Enter must fail on a stopped loop")
	wg.Wait()
}

func TestThreadLoopLock(t *testing.T) {
	loop := pw.NewThreadLoop("lock")
	loop.Lock()
	assert.False(t, loop.TryLock())
	loop.Unlock()
	assert.True(t, loop.TryLock())
	loop.Unlock()
}

func TestStreamFlags(t *testing.T) {
	flags := pw.FlagAutoconnect | pw.FlagMapBuffers | pw.FlagRTProcess
	assert.True(t, flags.Has(pw.FlagMapBuffers))
	assert.True(t, flags.Has(pw.FlagAutoconnect|pw.FlagRTProcess))
	assert.False(t, flags.Has(pw.FlagInactive))
}
