// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics, configuration control, and debug introspection layer for
// hioload-multi.
//
// Provides concurrent-safe state handling primitives including:
//   - Immutable snapshot config reads and atomic updates
//   - Runtime observers for hot-reload of bridge knobs
//   - Counter telemetry published by the bridge
//   - Debug hooks and probe registration
package control
