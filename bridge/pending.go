// File: bridge/pending.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// pendingOp is the per-transfer completion record. complete is the only
// path that unregisters the transfer from the engine, fires the caller's
// callback and marks the record handled; everything else funnels into it.

package bridge

import "github.com/momentics/hioload-multi/api"

type pendingOp struct {
	bridge   *Bridge
	transfer api.Transfer
	done     func(api.ResultCode)
	handled  bool
}

// complete runs inside the serializing context. Idempotent: the second and
// later calls are no-ops, so a cancellation racing a natural completion
// resolves to whichever reached the context first.
func (op *pendingOp) complete(code api.ResultCode) {
	if op.handled {
		return
	}
	op.handled = true
	b := op.bridge
	delete(b.pending, op.transfer.ID())
	b.engine.Unregister(op.transfer)
	if code.Canceled() {
		b.metrics.Add("transfers.cancelled", 1)
	} else {
		b.metrics.Add("transfers.completed", 1)
	}
	b.metrics.Set("transfers.active", len(b.pending))
	b.debugLog().Uint64("transfer", op.transfer.ID()).Stringer("code", code).Msg("transfer completed")
	op.done(code)
}
