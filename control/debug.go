// control/debug.go
// Author: momentics <momentics@gmail.com>
//
// Runtime probe registry for internal inspection. Components register
// named snapshot functions; an operator surface dumps them on demand.

package control

import "sync"

// DebugProbes holds registered probe functions.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

// NewDebugProbes creates a probe registry.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{
		probes: make(map[string]func() any),
	}
}

// RegisterProbe inserts a named debug hook, replacing any previous one
// under the same name.
func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.probes[name] = fn
}

// Probe runs a single named probe. The second result is false when no
// probe is registered under the name.
func (dp *DebugProbes) Probe(name string) (any, bool) {
	dp.mu.RLock()
	fn, ok := dp.probes[name]
	dp.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return fn(), true
}

// DumpState returns output of all probes.
func (dp *DebugProbes) DumpState() map[string]any {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	out := make(map[string]any)
	for k, fn := range dp.probes {
		out[k] = fn()
	}
	return out
}
