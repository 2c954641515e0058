// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"sync"
	"time"

	"github.com/momentics/hioload-multi/api"
)

type waitKind int

const (
	waitRead waitKind = iota
	waitWrite
	waitDeadline
)

type wait struct {
	h    api.WaitHandle
	kind waitKind
	fd   uintptr
	when time.Time
	cb   api.CompletionFunc
}

// Reactor is a manually fired api.Reactor. Waits never fire on their own;
// tests trigger them with the Fire* methods. Cancelled waits are parked so
// tests can simulate a delivery that was already in flight when the cancel
// happened.
type Reactor struct {
	mu       sync.Mutex
	next     uint64
	waits    map[api.WaitHandle]*wait
	canceled map[api.WaitHandle]*wait
	arms     map[uintptr]map[waitKind]int
}

// NewReactor creates an empty manual reactor.
func NewReactor() *Reactor {
	return &Reactor{
		waits:    make(map[api.WaitHandle]*wait),
		canceled: make(map[api.WaitHandle]*wait),
		arms:     make(map[uintptr]map[waitKind]int),
	}
}

func (r *Reactor) add(kind waitKind, fd uintptr, when time.Time, cb api.CompletionFunc) api.WaitHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	h := api.WaitHandle(r.next)
	r.waits[h] = &wait{h: h, kind: kind, fd: fd, when: when, cb: cb}
	if kind != waitDeadline {
		m := r.arms[fd]
		if m == nil {
			m = make(map[waitKind]int)
			r.arms[fd] = m
		}
		m[kind]++
	}
	return h
}

// WaitReadable implements api.Reactor.
func (r *Reactor) WaitReadable(fd uintptr, cb api.CompletionFunc) api.WaitHandle {
	return r.add(waitRead, fd, time.Time{}, cb)
}

// WaitWritable implements api.Reactor.
func (r *Reactor) WaitWritable(fd uintptr, cb api.CompletionFunc) api.WaitHandle {
	return r.add(waitWrite, fd, time.Time{}, cb)
}

// WaitDeadline implements api.Reactor.
func (r *Reactor) WaitDeadline(t time.Time, cb api.CompletionFunc) api.WaitHandle {
	return r.add(waitDeadline, 0, t, cb)
}

// Cancel implements api.Reactor: the wait is parked, never delivered.
func (r *Reactor) Cancel(h api.WaitHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.waits[h]; ok {
		delete(r.waits, h)
		r.canceled[h] = w
	}
}

func (r *Reactor) take(kind waitKind, fd uintptr) *wait {
	r.mu.Lock()
	defer r.mu.Unlock()
	for h, w := range r.waits {
		if w.kind == kind && (kind == waitDeadline || w.fd == fd) {
			delete(r.waits, h)
			return w
		}
	}
	return nil
}

// FireReadable delivers the pending read wait for fd, if any.
func (r *Reactor) FireReadable(fd uintptr) bool { return r.fire(waitRead, fd, nil) }

// FireWritable delivers the pending write wait for fd, if any.
func (r *Reactor) FireWritable(fd uintptr) bool { return r.fire(waitWrite, fd, nil) }

// FireReadableErr delivers the pending read wait for fd with a reactor
// failure.
func (r *Reactor) FireReadableErr(fd uintptr, err error) bool { return r.fire(waitRead, fd, err) }

// FireDeadline delivers one pending deadline wait, if any.
func (r *Reactor) FireDeadline() bool { return r.fire(waitDeadline, 0, nil) }

func (r *Reactor) fire(kind waitKind, fd uintptr, err error) bool {
	w := r.take(kind, fd)
	if w == nil {
		return false
	}
	w.cb(err)
	return true
}

// FireCanceledRead delivers a read wait for fd that was already cancelled,
// simulating a completion in flight when the cancel happened. The consumer
// is expected to drop it as stale.
func (r *Reactor) FireCanceledRead(fd uintptr) bool {
	r.mu.Lock()
	var found *wait
	for h, w := range r.canceled {
		if w.kind == waitRead && w.fd == fd {
			delete(r.canceled, h)
			found = w
			break
		}
	}
	r.mu.Unlock()
	if found == nil {
		return false
	}
	found.cb(nil)
	return true
}

// HasRead reports whether a read wait is pending for fd.
func (r *Reactor) HasRead(fd uintptr) bool { return r.has(waitRead, fd) }

// HasWrite reports whether a write wait is pending for fd.
func (r *Reactor) HasWrite(fd uintptr) bool { return r.has(waitWrite, fd) }

// DeadlineArmed reports whether any deadline wait is pending.
func (r *Reactor) DeadlineArmed() bool { return r.has(waitDeadline, 0) }

func (r *Reactor) has(kind waitKind, fd uintptr) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.waits {
		if w.kind == kind && (kind == waitDeadline || w.fd == fd) {
			return true
		}
	}
	return false
}

// ReadArms returns how many times a read wait has ever been armed for fd,
// for duplicate-wait assertions.
func (r *Reactor) ReadArms(fd uintptr) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.arms[fd][waitRead]
}

// WriteArms returns how many times a write wait has ever been armed for fd.
func (r *Reactor) WriteArms(fd uintptr) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.arms[fd][waitWrite]
}

// Pending returns the number of outstanding waits of all kinds.
func (r *Reactor) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waits)
}
