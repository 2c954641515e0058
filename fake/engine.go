// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-multi/api"
)

// NotifyRecord is one readiness event the engine was driven with.
type NotifyRecord struct {
	Fd    uintptr
	Flags api.EventFlags
}

// Engine is a scripted api.Engine. Behavior is injected through the On*
// hooks; everything observable is recorded. Every contract method checks
// that it is not entered concurrently or reentrantly, which is how the
// bridge's total-ordering guarantee is verified.
//
// The Request* helpers invoke the callbacks captured at registration and
// must only be called from inside an On* hook (so from the serializing
// context), mirroring a real engine that speaks only while being driven.
type Engine struct {
	// OnRegister decides the registration result. Default: ResultOK.
	OnRegister func(e *Engine, t api.Transfer) api.ResultCode
	// OnNotify reacts to a readiness event. Default: nil error, no action.
	OnNotify func(e *Engine, fd uintptr, flags api.EventFlags) error
	// OnTimeout reacts to a timeout drive. Default: nil error, no action.
	OnTimeout func(e *Engine) error

	entered   atomic.Int32
	reentered atomic.Bool

	mu           sync.Mutex
	socketCB     api.SocketFunc
	timerCB      api.TimerFunc
	registered   map[uint64]api.Transfer
	regOrder     []uint64
	unregistered []uint64
	notifies     []NotifyRecord
	timeouts     int
	completed    []api.Completion
}

// NewEngine creates an engine that accepts every registration.
func NewEngine() *Engine {
	return &Engine{registered: make(map[uint64]api.Transfer)}
}

func (e *Engine) enter() {
	if !e.entered.CompareAndSwap(0, 1) {
		e.reentered.Store(true)
	}
}

func (e *Engine) leave() { e.entered.Store(0) }

// Register implements api.Engine.
func (e *Engine) Register(t api.Transfer, socketCB api.SocketFunc, timerCB api.TimerFunc) api.ResultCode {
	e.enter()
	defer e.leave()
	e.mu.Lock()
	e.socketCB = socketCB
	e.timerCB = timerCB
	e.mu.Unlock()

	code := api.ResultOK
	if e.OnRegister != nil {
		code = e.OnRegister(e, t)
	}
	if code == api.ResultOK {
		e.mu.Lock()
		e.registered[t.ID()] = t
		e.regOrder = append(e.regOrder, t.ID())
		e.mu.Unlock()
	}
	return code
}

// Unregister implements api.Engine.
func (e *Engine) Unregister(t api.Transfer) {
	e.enter()
	defer e.leave()
	e.mu.Lock()
	delete(e.registered, t.ID())
	e.unregistered = append(e.unregistered, t.ID())
	e.mu.Unlock()
}

// Notify implements api.Engine.
func (e *Engine) Notify(fd uintptr, flags api.EventFlags) error {
	e.enter()
	defer e.leave()
	e.mu.Lock()
	e.notifies = append(e.notifies, NotifyRecord{Fd: fd, Flags: flags})
	e.mu.Unlock()
	if e.OnNotify != nil {
		return e.OnNotify(e, fd, flags)
	}
	return nil
}

// NotifyTimeout implements api.Engine.
func (e *Engine) NotifyTimeout() error {
	e.enter()
	defer e.leave()
	e.mu.Lock()
	e.timeouts++
	e.mu.Unlock()
	if e.OnTimeout != nil {
		return e.OnTimeout(e)
	}
	return nil
}

// DrainCompleted implements api.Engine.
func (e *Engine) DrainCompleted() []api.Completion {
	e.enter()
	defer e.leave()
	e.mu.Lock()
	out := e.completed
	e.completed = nil
	e.mu.Unlock()
	return out
}

// Complete queues a finished transfer for the next drain.
func (e *Engine) Complete(t api.Transfer, code api.ResultCode) {
	e.mu.Lock()
	e.completed = append(e.completed, api.Completion{Transfer: t, Code: code})
	e.mu.Unlock()
}

// RequestWatch invokes the captured socket-registration callback.
func (e *Engine) RequestWatch(fd uintptr, kind api.WatchKind) error {
	e.mu.Lock()
	cb := e.socketCB
	e.mu.Unlock()
	if cb == nil {
		return errors.New("fake: no socket callback registered")
	}
	return cb(fd, kind)
}

// RequestTimer invokes the captured timer-deadline callback.
func (e *Engine) RequestTimer(delay time.Duration) {
	e.mu.Lock()
	cb := e.timerCB
	e.mu.Unlock()
	if cb != nil {
		cb(delay)
	}
}

// ReentrancyDetected reports whether any contract method was ever entered
// while another was still running.
func (e *Engine) ReentrancyDetected() bool { return e.reentered.Load() }

// TrackedCount returns the number of currently registered transfers.
func (e *Engine) TrackedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.registered)
}

// Registrations returns transfer IDs in registration order.
func (e *Engine) Registrations() []uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]uint64(nil), e.regOrder...)
}

// Unregistrations returns transfer IDs in unregistration order.
func (e *Engine) Unregistrations() []uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]uint64(nil), e.unregistered...)
}

// Notifies returns the readiness events the engine has been driven with.
func (e *Engine) Notifies() []NotifyRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]NotifyRecord(nil), e.notifies...)
}

// Timeouts returns how many timeout drives the engine has received.
func (e *Engine) Timeouts() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timeouts
}
