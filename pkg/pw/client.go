// ABOUTME: Reference-counted process-wide client handle
// ABOUTME: The first Acquire initializes an engine, the last Release deinitializes it
package pw

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Client is one reference on an initialized engine
type Client struct {
	engine   Engine
	released atomic.Bool
}

var (
	clientsMu sync.Mutex
	refs      = make(map[Engine]int)
)

// Acquire returns a client for e, initializing the engine if no other client holds it
func Acquire(e Engine) (*Client, error) {
	clientsMu.Lock()
	defer clientsMu.Unlock()

	if refs[e] == 0 {
		if err := e.Init(); err != nil {
			return nil, fmt.Errorf("failed to initialize %s engine: %w", e.Name(), err)
		}
	}
	refs[e]++

	return &Client{engine: e}, nil
}

// Release drops the reference. Calling it more than once, or on nil, is a no-op.
func (c *Client) Release() {
	if c == nil || !c.released.CompareAndSwap(false, true) {
		return
	}

	clientsMu.Lock()
	defer clientsMu.Unlock()

	refs[c.engine]--
	if refs[c.engine] <= 0 {
		delete(refs, c.engine)
		c.engine.Deinit()
	}
}

// Engine returns the engine behind the client
func (c *Client) Engine() Engine {
	return c.engine
}

// NewThreadLoop creates a stopped thread loop
func (c *Client) NewThreadLoop(name string) *ThreadLoop {
	return NewThreadLoop(name)
}

// NewStream creates an unconnected stream bound to loop
func (c *Client) NewStream(loop *ThreadLoop, name string, props Properties, events StreamEvents) (Stream, error) {
	if c.released.Load() {
		return nil, fmt.Errorf("failed to create stream %q: client released", name)
	}
	s, err := c.engine.NewStream(loop, name, props, events)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream %q: %w", name, err)
	}
	return s, nil
}

// Refs returns the number of clients currently holding e
func Refs(e Engine) int {
	clientsMu.Lock()
	defer clientsMu.Unlock()
	return refs[e]
}
