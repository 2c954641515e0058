// Package api
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Contract layer of hioload-multi: the interfaces between a non-reentrant,
// socket-multiplexing transfer engine, the reactor that supplies asynchronous
// readiness and deadline waits, and the bridge that drives the two together.
//
// The package holds no implementation. Engines, reactors and transfers are
// capabilities supplied by the embedding application; the bridge package
// consumes them exclusively through these contracts.
package api
