// File: bridge/bridge.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Bridge owns the engine instance, the serializing executor, the registry
// of pending operations keyed by transfer identity, the registry of socket
// watches keyed by descriptor, and the timer gate. All four are mutated only
// from inside the serializing context; that single discipline replaces any
// further locking.

package bridge

import (
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-multi/api"
	"github.com/momentics/hioload-multi/control"
	"github.com/momentics/hioload-multi/internal/concurrency"
	"github.com/momentics/hioload-multi/lifetime"
)

// Config holds construction parameters for a Bridge.
type Config struct {
	// Logger receives debug-level bridge events. Defaults to a no-op logger.
	Logger zerolog.Logger
	// Debug gates debug logging; overridable at runtime through Control
	// via the "bridge.debug" knob.
	Debug bool
	// Lifetime, when set, is acquired on construction and released on
	// Close, refcounting process-wide engine init/cleanup.
	Lifetime *lifetime.Lifetime
	// Metrics, when set, receives bridge counters; otherwise the bridge
	// keeps a private registry, readable through Stats.
	Metrics *control.MetricsRegistry
	// Control, when set, supplies hot-reloadable runtime knobs.
	Control *control.ConfigStore
	// Probes, when set, gains "bridge.stats" and "bridge.debug" probes for
	// operator inspection.
	Probes *control.DebugProbes
}

// DefaultConfig returns default configuration values.
func DefaultConfig() *Config {
	return &Config{
		Logger: zerolog.Nop(),
		Debug:  true,
	}
}

// Bridge multiplexes launched transfers between one engine and one reactor.
// Public methods are safe to call from any goroutine. Launch never blocks;
// CancelAll, CancelOne and Close block until their serialized step has run.
type Bridge struct {
	engine    api.Engine
	reactor   api.Reactor
	exec      *concurrency.SerialExecutor
	log       zerolog.Logger
	life      *lifetime.Lifetime
	metrics   *control.MetricsRegistry
	debug     atomic.Bool
	closed    atomic.Bool
	closeDone chan struct{}

	// Owned by the serializing context. Never read or written elsewhere.
	pending map[uint64]*pendingOp
	watches map[uintptr]*socketWatch
	timer   timerGate
}

// New creates a Bridge around an engine and a reactor. The bridge takes no
// ownership of either; it only guarantees that the engine is accessed from
// a single serializing context from here on.
func New(engine api.Engine, reactor api.Reactor, cfg *Config) (*Bridge, error) {
	if engine == nil || reactor == nil {
		return nil, fmt.Errorf("bridge: nil engine or reactor: %w", api.ErrInvalidArgument)
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	b := &Bridge{
		engine:    engine,
		reactor:   reactor,
		log:       cfg.Logger,
		metrics:   cfg.Metrics,
		closeDone: make(chan struct{}),
		pending:   make(map[uint64]*pendingOp),
		watches:   make(map[uintptr]*socketWatch),
	}
	if b.metrics == nil {
		b.metrics = control.NewMetricsRegistry()
	}
	b.debug.Store(cfg.Debug)
	if cs := cfg.Control; cs != nil {
		b.debug.Store(cs.GetBool("bridge.debug", cfg.Debug))
		cs.OnReload(func() {
			b.debug.Store(cs.GetBool("bridge.debug", cfg.Debug))
		})
	}
	if dp := cfg.Probes; dp != nil {
		dp.RegisterProbe("bridge.stats", func() any { return b.metrics.GetSnapshot() })
		dp.RegisterProbe("bridge.debug", func() any { return b.debug.Load() })
	}
	if cfg.Lifetime != nil {
		if err := cfg.Lifetime.Acquire(); err != nil {
			return nil, fmt.Errorf("bridge: engine lifetime: %w", err)
		}
		b.life = cfg.Lifetime
	}
	b.exec = concurrency.NewSerialExecutor()
	return b, nil
}

// Launch begins an asynchronous transfer. The transfer must stay valid
// until done is invoked. done fires exactly once with the transfer's result:
// from the completion drain, from a cancellation, or from Close. Launch may
// be called concurrently from multiple goroutines; registrations reach the
// engine in some serial order with no interleaving.
func (b *Bridge) Launch(t api.Transfer, done func(api.ResultCode)) {
	if done == nil {
		done = func(api.ResultCode) {}
	}
	if t == nil {
		done(api.ResultAgain)
		return
	}
	if err := b.exec.Post(func() { b.launchStep(t, done) }); err != nil {
		// Bridge already closed. A launched transfer still gets its one
		// completion.
		done(api.ResultShutdown)
	}
}

// launchStep runs inside the serializing context.
func (b *Bridge) launchStep(t api.Transfer, done func(api.ResultCode)) {
	// A launch posted during teardown may be drained by the executor after
	// the close-time cancelAll has already emptied the registry. Registering
	// then would leave a transfer nothing ever completes; the closed flag is
	// set before cancelAll is enqueued, so observing it here is sufficient.
	if b.closed.Load() {
		done(api.ResultShutdown)
		return
	}
	code := b.engine.Register(t, b.socketChanged, b.timerChanged)
	if code != api.ResultOK {
		b.metrics.Add("transfers.rejected", 1)
		b.debugLog().Uint64("transfer", t.ID()).Stringer("code", code).Msg("registration rejected")
		done(code)
		return
	}
	b.pending[t.ID()] = &pendingOp{bridge: b, transfer: t, done: done}
	b.metrics.Add("transfers.launched", 1)
	b.metrics.Set("transfers.active", len(b.pending))
	b.debugLog().Uint64("transfer", t.ID()).Msg("transfer launched")
	// The engine may have finished the transfer during registration.
	b.drain()
}

// CancelAll forces completion of every pending transfer with reason,
// unregisters each from the engine and empties the registry. Returns the
// number of transfers cancelled; zero when nothing was pending or the
// bridge is closed. Must not be called from a completion callback.
func (b *Bridge) CancelAll(reason api.ResultCode) int {
	n := 0
	if err := b.exec.PostWait(func() { n = b.cancelAll(reason) }); err != nil {
		return 0
	}
	return n
}

// CancelOne forces completion of the single matching pending transfer.
// Returns false when the transfer is unknown: already completed, already
// cancelled, or never launched. Must not be called from a completion
// callback.
func (b *Bridge) CancelOne(t api.Transfer, reason api.ResultCode) bool {
	if t == nil {
		return false
	}
	found := false
	if err := b.exec.PostWait(func() {
		if op, ok := b.pending[t.ID()]; ok {
			op.complete(reason)
			found = true
		}
	}); err != nil {
		return false
	}
	return found
}

func (b *Bridge) cancelAll(reason api.ResultCode) int {
	if len(b.pending) == 0 {
		return 0
	}
	ids := make([]uint64, 0, len(b.pending))
	for id := range b.pending {
		ids = append(ids, id)
	}
	n := 0
	for _, id := range ids {
		if op, ok := b.pending[id]; ok {
			op.complete(reason)
			n++
		}
	}
	return n
}

// Close cancels all pending transfers with ResultShutdown, tears down every
// socket watch and the timer gate, stops the serializing executor and
// releases the engine lifetime reference. Idempotent; every caller returns
// only after the teardown has finished. Must not be called from a
// completion callback.
func (b *Bridge) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		<-b.closeDone
		return nil
	}
	_ = b.exec.PostWait(func() {
		b.cancelAll(api.ResultShutdown)
		for fd, w := range b.watches {
			b.disarmWatch(w)
			delete(b.watches, fd)
		}
		b.disarmTimer()
	})
	b.exec.Close()
	if b.life != nil {
		b.life.Release()
	}
	b.debugLog().Msg("bridge closed")
	close(b.closeDone)
	return nil
}

// Stats returns a snapshot of the bridge's runtime counters.
func (b *Bridge) Stats() map[string]any {
	return b.metrics.GetSnapshot()
}

// driveStep runs inside the serializing context: it reports one readiness
// or timeout event to the engine, re-arms whatever the engine still wants
// watched, then drains finished transfers. It performs no socket I/O of its
// own and never blocks.
func (b *Bridge) driveStep(fd uintptr, flags api.EventFlags) {
	if err := b.engine.Notify(fd, flags); err != nil {
		b.debugLog().Err(err).Uint64("fd", uint64(fd)).Msg("engine notify failed")
	}
	if w, ok := b.watches[fd]; ok {
		b.syncWatch(w)
	}
	b.drain()
}

// drain empties the engine's completed-transfer queue, firing each pending
// operation exactly once. Completions for transfers no longer in the
// registry (lost races against cancellation) are skipped.
func (b *Bridge) drain() {
	for _, c := range b.engine.DrainCompleted() {
		op, ok := b.pending[c.Transfer.ID()]
		if !ok {
			continue
		}
		op.complete(c.Code)
	}
}

// post schedules a reactor-originated event into the serializing context.
// Events arriving after Close are dropped; their transfers have already
// been force-completed.
func (b *Bridge) post(task func()) {
	_ = b.exec.Post(task)
}

var nopLogger = zerolog.Nop()

func (b *Bridge) debugLog() *zerolog.Event {
	if !b.debug.Load() {
		return nopLogger.Debug()
	}
	return b.log.Debug()
}
