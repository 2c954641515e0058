// File: api/engine.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Transfer engine contract. The engine multiplexes many concurrent network
// transfers over raw socket descriptors and exposes no async model of its
// own: it reports which descriptors it needs watched and when it wants to be
// woken, and it must be told when those descriptors become ready or the
// deadline elapses.

package api

import "time"

// WatchKind is the watch state the engine requests for one descriptor
// through its SocketFunc callback.
type WatchKind int

const (
	// WatchNone asks for the descriptor to be tracked with no direction
	// currently wanted.
	WatchNone WatchKind = iota
	// WatchRead asks for read-readiness only.
	WatchRead
	// WatchWrite asks for write-readiness only.
	WatchWrite
	// WatchReadWrite asks for both directions.
	WatchReadWrite
	// WatchRemove asks for the descriptor to be forgotten entirely.
	WatchRemove
)

// Flags maps a watch request onto the readiness directions it asks for.
// WatchRemove carries no directions.
func (k WatchKind) Flags() EventFlags {
	switch k {
	case WatchRead:
		return EventRead
	case WatchWrite:
		return EventWrite
	case WatchReadWrite:
		return EventRead | EventWrite
	default:
		return 0
	}
}

func (k WatchKind) String() string {
	switch k {
	case WatchNone:
		return "none"
	case WatchRead:
		return "read"
	case WatchWrite:
		return "write"
	case WatchReadWrite:
		return "read|write"
	case WatchRemove:
		return "remove"
	default:
		return "invalid"
	}
}

// EventFlags describes a readiness event reported into the engine.
type EventFlags uint32

const (
	// EventRead marks read-readiness on the descriptor.
	EventRead EventFlags = 1 << iota
	// EventWrite marks write-readiness on the descriptor.
	EventWrite
	// EventError marks a reactor-level failure on the descriptor. The error
	// is forwarded as part of the event; the engine decides what it means
	// for the transfers using that socket.
	EventError
)

// SocketFunc is the engine's socket-registration callback. The engine
// invokes it while being driven (never spontaneously) to request watch-state
// changes for a descriptor. A non-nil return tells the engine the
// registration could not be honored; the descriptor is then left untracked.
type SocketFunc func(fd uintptr, kind WatchKind) error

// TimerFunc is the engine's timer-deadline callback. delay < 0 cancels any
// pending wake-up; delay == 0 requests an immediate one; delay > 0 requests
// a wake-up after that duration, superseding any earlier request.
type TimerFunc func(delay time.Duration)

// Completion is one finished transfer reported by DrainCompleted.
type Completion struct {
	Transfer Transfer
	Code     ResultCode
}

// Engine is the opaque multiplexing transfer engine.
//
// The engine is neither thread-safe nor reentrant. All methods must be
// invoked from a single serializing context, and the engine invokes its
// SocketFunc/TimerFunc callbacks only from within Register, Notify and
// NotifyTimeout, thus always inside that same context.
type Engine interface {
	// Register begins tracking a transfer and installs the callbacks the
	// engine will use to request socket watches and timer deadlines.
	// A code other than ResultOK is a synchronous rejection; the engine
	// does not retain the transfer in that case.
	Register(t Transfer, socketCB SocketFunc, timerCB TimerFunc) ResultCode

	// Unregister stops tracking a transfer. Safe to call for transfers the
	// engine no longer tracks.
	Unregister(t Transfer)

	// Notify reports a readiness event on a watched descriptor and lets the
	// engine make whatever non-blocking progress it can.
	Notify(fd uintptr, flags EventFlags) error

	// NotifyTimeout reports that the deadline requested via TimerFunc has
	// elapsed with no socket activity.
	NotifyTimeout() error

	// DrainCompleted returns and clears the queue of transfers the engine
	// has finished with, successfully or not, since the last drain.
	DrainCompleted() []Completion
}
