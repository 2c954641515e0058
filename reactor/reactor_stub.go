//go:build !linux
// +build !linux

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for platforms without a native reactor backend.

package reactor

import (
	"fmt"
	"time"

	"github.com/momentics/hioload-multi/api"
)

var _ api.Reactor = (*Reactor)(nil)

// Reactor is a placeholder on unsupported platforms; New never hands one
// out.
type Reactor struct{}

// New reports that no reactor backend exists for this platform.
func New() (*Reactor, error) {
	return nil, fmt.Errorf("reactor: no backend for this platform: %w", api.ErrNotSupported)
}

func (r *Reactor) WaitReadable(fd uintptr, cb api.CompletionFunc) api.WaitHandle { return 0 }

func (r *Reactor) WaitWritable(fd uintptr, cb api.CompletionFunc) api.WaitHandle { return 0 }

func (r *Reactor) WaitDeadline(t time.Time, cb api.CompletionFunc) api.WaitHandle { return 0 }

func (r *Reactor) Cancel(h api.WaitHandle) {}

func (r *Reactor) Close() error { return nil }
