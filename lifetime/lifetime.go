// File: lifetime/lifetime.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Reference-counted management of process-wide engine state. Many transfer
// engines require a single global init and cleanup around all instances;
// Lifetime owns that reference count so individual bridges only acquire and
// release.

package lifetime

import "sync"

// Lifetime guards process-wide init/cleanup behind a reference count.
// The init function runs on the first acquire, the cleanup function on the
// release that drops the count back to zero. A failed init leaves the count
// at zero so a later acquire retries.
type Lifetime struct {
	mu      sync.Mutex
	refs    int
	init    func() error
	cleanup func()
}

// New creates a Lifetime around the given init and cleanup functions.
// Either may be nil.
func New(init func() error, cleanup func()) *Lifetime {
	return &Lifetime{init: init, cleanup: cleanup}
}

// Acquire takes a reference, running init if this is the first one.
func (l *Lifetime) Acquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.refs == 0 && l.init != nil {
		if err := l.init(); err != nil {
			return err
		}
	}
	l.refs++
	return nil
}

// Release drops a reference, running cleanup when the last one goes.
// Releasing an unacquired Lifetime is a no-op.
func (l *Lifetime) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.refs == 0 {
		return
	}
	l.refs--
	if l.refs == 0 && l.cleanup != nil {
		l.cleanup()
	}
}

// Refs returns the current reference count.
func (l *Lifetime) Refs() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.refs
}
