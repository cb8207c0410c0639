// ABOUTME: Engine interface and registry
// ABOUTME: Engines self-register by name and are looked up when a client is acquired
package pw

import (
	"fmt"
	"sort"
	"sync"
)

// DefaultEngine is used when no engine is configured
const DefaultEngine = "pulse"

// Engine is a process-wide implementation of the service
type Engine interface {
	Name() string
	// Init is called when the first client acquires the engine
	Init() error
	// Deinit is called when the last client releases the engine
	Deinit()
	NewStream(loop *ThreadLoop, name string, props Properties, events StreamEvents) (Stream, error)
}

var (
	enginesMu sync.RWMutex
	engines   = make(map[string]Engine)
)

// RegisterEngine makes an engine available by name.
// It panics if the name is already taken.
func RegisterEngine(e Engine) {
	enginesMu.Lock()
	defer enginesMu.Unlock()

	name := e.Name()
	if _, dup := engines[name]; dup {
		panic(fmt.Sprintf("pw: engine %q registered twice", name))
	}
	engines[name] = e
}

// LookupEngine returns the engine registered under name.
// An empty name selects DefaultEngine.
func LookupEngine(name string) (Engine, error) {
	if name == "" {
		name = DefaultEngine
	}

	enginesMu.RLock()
	defer enginesMu.RUnlock()

	e, ok := engines[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
	return e, nil
}

// Engines returns the sorted names of all registered engines
func Engines() []string {
	enginesMu.RLock()
	defer enginesMu.RUnlock()

	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
