// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import "sync"

// Transfer is a minimal api.Transfer: a stable identity plus an opaque
// option bag.
type Transfer struct {
	id   uint64
	mu   sync.Mutex
	opts map[int64]any
}

// NewTransfer creates a transfer with the given identity.
func NewTransfer(id uint64) *Transfer {
	return &Transfer{id: id, opts: make(map[int64]any)}
}

// ID returns the transfer's native identity.
func (t *Transfer) ID() uint64 { return t.id }

// SetOption stores an opaque option value.
func (t *Transfer) SetOption(key int64, value any) error {
	t.mu.Lock()
	t.opts[key] = value
	t.mu.Unlock()
	return nil
}

// Option reads back a stored option.
func (t *Transfer) Option(key int64) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.opts[key]
	return v, ok
}
