// Package concurrency
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Concurrency core of hioload-multi. Provides the serializing executor: a
// single-worker task funnel that turns calls arriving from arbitrary
// goroutines into a strictly ordered, one-at-a-time stream of executions.
// The bridge relies on it to guarantee exclusive access to the non-reentrant
// transfer engine.
package concurrency
