// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics collector for bridge-level monitoring.
// Exposes monotonic counters and gauges in a thread-safe registry.

package control

import (
	"sync"
	"time"
)

// MetricsRegistry holds mutable and read-only metrics.
type MetricsRegistry struct {
	mu       sync.RWMutex
	counters map[string]int64
	metrics  map[string]any
	updated  time.Time
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		counters: make(map[string]int64),
		metrics:  make(map[string]any),
	}
}

// Add increments a monotonic counter by delta.
func (mr *MetricsRegistry) Add(key string, delta int64) {
	mr.mu.Lock()
	mr.counters[key] += delta
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// Counter returns the current value of a counter.
func (mr *MetricsRegistry) Counter(key string) int64 {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return mr.counters[key]
}

// Set sets or updates a gauge-style metric key.
func (mr *MetricsRegistry) Set(key string, value any) {
	mr.mu.Lock()
	mr.metrics[key] = value
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// GetSnapshot returns the latest metrics, counters included.
func (mr *MetricsRegistry) GetSnapshot() map[string]any {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]any, len(mr.metrics)+len(mr.counters))
	for k, v := range mr.metrics {
		out[k] = v
	}
	for k, v := range mr.counters {
		out[k] = v
	}
	return out
}
