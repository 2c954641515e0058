// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Reactor contract: asynchronous one-shot readiness and deadline waits.

package api

import "time"

// WaitHandle identifies one outstanding asynchronous wait. Zero is never a
// valid handle.
type WaitHandle uint64

// CompletionFunc receives the outcome of a wait. A nil error means the
// awaited condition holds (descriptor ready, deadline reached); a non-nil
// error is a reactor-level failure and is delivered as data, not panics.
// Completion functions may be invoked from the reactor's own goroutine and
// must not block.
type CompletionFunc func(err error)

// Reactor supplies non-blocking wait primitives for sockets and timers.
// Every wait is one-shot: it delivers at most one completion and is then
// spent. A cancelled wait never delivers its completion.
//
// Implementations must be safe for concurrent use from multiple goroutines.
type Reactor interface {
	// WaitReadable arms a one-shot wait for read-readiness of fd.
	WaitReadable(fd uintptr, cb CompletionFunc) WaitHandle

	// WaitWritable arms a one-shot wait for write-readiness of fd.
	WaitWritable(fd uintptr, cb CompletionFunc) WaitHandle

	// WaitDeadline arms a one-shot wait that completes once the wall clock
	// reaches t. Deadlines in the past complete promptly.
	WaitDeadline(t time.Time, cb CompletionFunc) WaitHandle

	// Cancel discards an outstanding wait without delivering it. Cancelling
	// an already-delivered or unknown handle is a no-op.
	Cancel(h WaitHandle)
}
