// ABOUTME: Engine that discards audio at the device rate
// ABOUTME: A locked goroutine paced by a ticker stands in for the audio thread
// Package null implements a pw engine without an audio device. Streams are
// cycled in realtime and their output is dropped, which is useful for
// benchmarks and for machines without sound.
package null

import (
	"runtime"
	"sync"
	"time"

	"github.com/Resonate-Protocol/resonate-ao/pkg/pw"
	"github.com/Resonate-Protocol/resonate-ao/pkg/pw/engine"
	"github.com/Resonate-Protocol/resonate-ao/pkg/pw/spa"
)

// Name is the registered engine name
const Name = "null"

// DefaultPeriod is the cycle length when a stream has no node.latency
const DefaultPeriod = 20 * time.Millisecond

func init() {
	pw.RegisterEngine(New())
}

// Engine needs no process-wide state
type Engine struct{}

// New creates a null engine
func New() *Engine {
	return &Engine{}
}

func (e *Engine) Name() string { return Name }
func (e *Engine) Init() error  { return nil }
func (e *Engine) Deinit()      {}

func (e *Engine) NewStream(loop *pw.ThreadLoop, name string, props pw.Properties, events pw.StreamEvents) (pw.Stream, error) {
	return engine.NewStream(loop, name, props, events, &device{}), nil
}

type device struct {
	stream *engine.Stream
	info   spa.AudioInfoRaw
	frames int
	period time.Duration

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func (d *device) Open(s *engine.Stream, info spa.AudioInfoRaw) error {
	d.stream = s
	d.info = info
	d.frames = engine.LatencyFrames(s.Props(), info.Rate)
	if d.frames <= 0 {
		d.frames = int(time.Duration(info.Rate) * DefaultPeriod / time.Second)
	}
	d.period = time.Duration(d.frames) * time.Second / time.Duration(info.Rate)
	s.SetDelay(int64(d.frames))
	return nil
}

func (d *device) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return nil
	}
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	go d.run(d.stop, d.done)
	return nil
}

func (d *device) run(stop <-chan struct{}, done chan<- struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(done)

	ticker := time.NewTicker(d.period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			d.stream.Cycle(d.frames)
		}
	}
}

func (d *device) Stop() {
	d.mu.Lock()
	stop, done := d.stop, d.done
	d.stop, d.done = nil, nil
	d.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (d *device) Close() {
	d.Stop()
}
