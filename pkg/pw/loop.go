// ABOUTME: Thread loop that drives stream callbacks
// ABOUTME: Provides the loop lock and waits for in-flight callbacks on Stop
package pw

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// LoopDriver is something that produces callbacks while the loop runs,
// usually a connected stream
type LoopDriver interface {
	StartDriving() error
	StopDriving()
}

// ErrLoopDestroyed is returned when starting a destroyed loop
var ErrLoopDestroyed = errors.New("thread loop destroyed")

// ThreadLoop runs stream callbacks on engine threads.
//
// The loop lock (Lock/Unlock) serializes callbacks against control code.
// Engines bracket every callback with Enter/Leave; Stop returns only once
// all callbacks that entered have left.
type ThreadLoop struct {
	name   string
	logger *slog.Logger

	lock sync.Mutex

	mu        sync.Mutex
	idle      *sync.Cond
	running   bool
	destroyed bool
	inflight  int
	drivers   []LoopDriver
}

// NewThreadLoop creates a stopped thread loop
func NewThreadLoop(name string) *ThreadLoop {
	l := &ThreadLoop{
		name:   name,
		logger: slog.Default().With("loop", name, "loop_id", uuid.NewString()),
	}
	l.idle = sync.NewCond(&l.mu)
	return l
}

// Name returns the loop name
func (l *ThreadLoop) Name() string {
	return l.name
}

// Lock acquires the loop lock
func (l *ThreadLoop) Lock() {
	l.lock.Lock()
}

// Unlock releases the loop lock
func (l *ThreadLoop) Unlock() {
	l.lock.Unlock()
}

// TryLock acquires the loop lock if it is free
func (l *ThreadLoop) TryLock() bool {
	return l.lock.TryLock()
}

// Running reports whether the loop has been started and not stopped
func (l *ThreadLoop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Attach registers a driver. It starts driving at once if the loop is running.
func (l *ThreadLoop) Attach(d LoopDriver) error {
	l.mu.Lock()
	if slices.Contains(l.drivers, d) {
		l.mu.Unlock()
		return nil
	}
	l.drivers = append(l.drivers, d)
	running := l.running
	l.mu.Unlock()

	if running {
		return d.StartDriving()
	}
	return nil
}

// Detach unregisters a driver and stops it
func (l *ThreadLoop) Detach(d LoopDriver) {
	l.mu.Lock()
	idx := slices.Index(l.drivers, d)
	if idx < 0 {
		l.mu.Unlock()
		return
	}
	l.drivers = slices.Delete(l.drivers, idx, idx+1)
	running := l.running
	l.mu.Unlock()

	if running {
		d.StopDriving()
	}
}

// Start begins delivering callbacks. Starting a running loop is a no-op.
func (l *ThreadLoop) Start() error {
	l.mu.Lock()
	if l.destroyed {
		l.mu.Unlock()
		return ErrLoopDestroyed
	}
	if l.running {
		l.mu.Unlock()
		return nil
	}
	l.running = true
	drivers := slices.Clone(l.drivers)
	l.mu.Unlock()

	var errs []error
	for _, d := range drivers {
		if err := d.StartDriving(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		l.Stop()
		return fmt.Errorf("failed to start loop %s: %w", l.name, err)
	}

	l.logger.Debug("Thread loop started", "drivers", len(drivers))
	return nil
}

// Stop halts callbacks and waits for in-flight ones to finish.
// It must not be called with the loop lock held.
func (l *ThreadLoop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	drivers := slices.Clone(l.drivers)
	l.mu.Unlock()

	for _, d := range drivers {
		d.StopDriving()
	}

	l.mu.Lock()
	for l.inflight > 0 {
		l.idle.Wait()
	}
	l.mu.Unlock()

	l.logger.Debug("Thread loop stopped")
}

// Destroy stops the loop and marks it unusable
func (l *ThreadLoop) Destroy() {
	l.Stop()

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.drivers) > 0 {
		l.logger.Warn("Thread loop destroyed with attached streams", "streams", len(l.drivers))
	}
	l.drivers = nil
	l.destroyed = true
}

// Enter marks the start of a callback. It returns false when the loop is
// not running, in which case the callback must be skipped and Leave not called.
func (l *ThreadLoop) Enter() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return false
	}
	l.inflight++
	return true
}

// Leave marks the end of a callback started with Enter
func (l *ThreadLoop) Leave() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inflight--
	if l.inflight <= 0 {
		l.inflight = 0
		l.idle.Broadcast()
	}
}
