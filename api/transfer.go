// File: api/transfer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Transfer is one in-flight operation owned by the caller. The bridge holds
// only a non-owning reference; the caller must keep the transfer valid until
// its completion callback has been invoked.
type Transfer interface {
	// ID returns the stable native identity of the transfer. It must not
	// change for the lifetime of the transfer and must be unique among all
	// transfers concurrently tracked by one bridge.
	ID() uint64

	// SetOption sets an engine-level option on the transfer before launch.
	// Keys and values are opaque to the bridge and pass through unchanged.
	SetOption(key int64, value any) error
}
