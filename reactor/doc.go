// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the default api.Reactor implementation: one-shot
// socket readiness waits and deadline waits multiplexed on a single polling
// goroutine. On Linux it is built on epoll with an eventfd wake-up and a
// binary-heap timer queue; other platforms receive a stub that reports
// api.ErrNotSupported at construction.
//
// The bridge consumes reactors only through the api.Reactor contract, so an
// embedding application may substitute its own.
package reactor
