// File: bridge/watch.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// socketWatch binds one engine-tracked descriptor to the reactor. Per
// direction it keeps at most one outstanding wait; a sequence number per
// direction makes deliveries that raced a cancel or a re-arm detectably
// stale.

package bridge

import "github.com/momentics/hioload-multi/api"

type socketWatch struct {
	fd   uintptr
	want api.EventFlags

	readSeq    uint64
	readWait   api.WaitHandle
	readArmed  bool
	writeSeq   uint64
	writeWait  api.WaitHandle
	writeArmed bool
}

// socketChanged is the engine's socket-registration callback. It always
// runs inside the serializing context, because the engine only invokes its
// callbacks while being driven from there.
func (b *Bridge) socketChanged(fd uintptr, kind api.WatchKind) error {
	switch kind {
	case api.WatchRemove:
		if w, ok := b.watches[fd]; ok {
			b.disarmWatch(w)
			delete(b.watches, fd)
			b.debugLog().Uint64("fd", uint64(fd)).Msg("socket watch removed")
		}
		return nil
	case api.WatchNone, api.WatchRead, api.WatchWrite, api.WatchReadWrite:
		w, ok := b.watches[fd]
		if !ok {
			w = &socketWatch{fd: fd}
			b.watches[fd] = w
		}
		w.want = kind.Flags()
		b.syncWatch(w)
		b.debugLog().Uint64("fd", uint64(fd)).Stringer("watch", kind).Msg("socket watch updated")
		return nil
	default:
		return api.ErrInvalidArgument
	}
}

// syncWatch reconciles outstanding reactor waits with the directions the
// engine currently wants. Arms only directions with no pending wait, so a
// direction is never waited on twice.
func (b *Bridge) syncWatch(w *socketWatch) {
	if w.want&api.EventRead != 0 {
		if !w.readArmed {
			b.armRead(w)
		}
	} else if w.readArmed {
		b.disarmRead(w)
	}
	if w.want&api.EventWrite != 0 {
		if !w.writeArmed {
			b.armWrite(w)
		}
	} else if w.writeArmed {
		b.disarmWrite(w)
	}
}

func (b *Bridge) armRead(w *socketWatch) {
	w.readSeq++
	seq := w.readSeq
	fd := w.fd
	w.readArmed = true
	w.readWait = b.reactor.WaitReadable(fd, func(err error) {
		b.post(func() { b.socketEvent(fd, api.EventRead, seq, err) })
	})
}

func (b *Bridge) armWrite(w *socketWatch) {
	w.writeSeq++
	seq := w.writeSeq
	fd := w.fd
	w.writeArmed = true
	w.writeWait = b.reactor.WaitWritable(fd, func(err error) {
		b.post(func() { b.socketEvent(fd, api.EventWrite, seq, err) })
	})
}

func (b *Bridge) disarmRead(w *socketWatch) {
	b.reactor.Cancel(w.readWait)
	w.readWait = 0
	w.readArmed = false
	w.readSeq++
}

func (b *Bridge) disarmWrite(w *socketWatch) {
	b.reactor.Cancel(w.writeWait)
	w.writeWait = 0
	w.writeArmed = false
	w.writeSeq++
}

func (b *Bridge) disarmWatch(w *socketWatch) {
	if w.readArmed {
		b.disarmRead(w)
	}
	if w.writeArmed {
		b.disarmWrite(w)
	}
}

// socketEvent runs inside the serializing context when a readiness wait
// delivers. Stale deliveries (the watch is gone, the wait was superseded,
// or the direction was disarmed) are dropped without touching the engine.
func (b *Bridge) socketEvent(fd uintptr, dir api.EventFlags, seq uint64, err error) {
	w, ok := b.watches[fd]
	if !ok {
		return
	}
	switch dir {
	case api.EventRead:
		if !w.readArmed || w.readSeq != seq {
			return
		}
		w.readArmed = false
		w.readWait = 0
	case api.EventWrite:
		if !w.writeArmed || w.writeSeq != seq {
			return
		}
		w.writeArmed = false
		w.writeWait = 0
	}
	flags := dir
	if err != nil {
		// Reactor-level failure rides along as data; the engine decides
		// what it means for the transfers on this socket.
		flags |= api.EventError
		b.debugLog().Err(err).Uint64("fd", uint64(fd)).Msg("socket wait failed")
	}
	b.driveStep(fd, flags)
}
