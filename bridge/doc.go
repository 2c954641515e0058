// Package bridge
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package bridge drives a non-reentrant, socket-multiplexing transfer
// engine from a reactor-style asynchronous environment. Callers launch
// transfers with ordinary completion callbacks from any goroutine; the
// bridge funnels every engine interaction through one serializing context,
// converts the engine's socket-registration callbacks into one-shot reactor
// readiness waits, mirrors the engine's deadline requests onto a single
// reactor timer, and drains finished transfers after every drive step.
//
// Guarantees:
//   - All engine access is totally ordered; the engine never observes
//     concurrent or reentrant calls.
//   - Every launched transfer receives exactly one completion: success,
//     engine-level failure, or cancellation. Closing the bridge forces
//     completion of whatever is still pending.
//   - At most one outstanding reactor wait per descriptor direction.
package bridge
