// File: bridge/timer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// timerGate is the single reactor timer mirroring the engine's most recent
// wake-up request. Every engine timer callback supersedes the previous
// deadline; stale expirations are filtered by sequence number.

package bridge

import (
	"time"

	"github.com/momentics/hioload-multi/api"
)

type timerGate struct {
	seq   uint64
	wait  api.WaitHandle
	armed bool
}

// timerChanged is the engine's timer-deadline callback. It always runs
// inside the serializing context. delay < 0 disarms the gate; delay == 0
// requests an immediate timeout drive.
func (b *Bridge) timerChanged(delay time.Duration) {
	b.disarmTimer()
	if delay < 0 {
		b.debugLog().Msg("timer cleared")
		return
	}
	g := &b.timer
	g.seq++
	seq := g.seq
	g.armed = true
	g.wait = b.reactor.WaitDeadline(time.Now().Add(delay), func(err error) {
		b.post(func() { b.timerEvent(seq, err) })
	})
	b.debugLog().Dur("delay", delay).Msg("timer armed")
}

func (b *Bridge) disarmTimer() {
	g := &b.timer
	if !g.armed {
		return
	}
	b.reactor.Cancel(g.wait)
	g.armed = false
	g.wait = 0
	g.seq++
}

// timerEvent runs inside the serializing context on gate expiry and
// performs a timeout-driven drive step with no associated descriptor.
func (b *Bridge) timerEvent(seq uint64, err error) {
	g := &b.timer
	if !g.armed || g.seq != seq {
		return
	}
	g.armed = false
	g.wait = 0
	if err != nil {
		b.debugLog().Err(err).Msg("timer wait failed")
	}
	if nerr := b.engine.NotifyTimeout(); nerr != nil {
		b.debugLog().Err(nerr).Msg("engine timeout notify failed")
	}
	b.drain()
}
