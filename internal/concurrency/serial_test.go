// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// serial_test.go: SerialExecutor contract: FIFO order, mutual exclusion,
// drain-on-close, post-after-close rejection.

package concurrency

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSerialExecutor_FIFOOrder(t *testing.T) {
	e := NewSerialExecutor()
	defer e.Close()

	var mu sync.Mutex
	var got []int
	var wg sync.WaitGroup
	wg.Add(100)
	for i := 0; i < 100; i++ {
		i := i
		require.NoError(t, e.Post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			wg.Done()
		}))
	}
	wg.Wait()

	for i, v := range got {
		require.Equal(t, i, v, "tasks executed out of submission order")
	}
}

func TestSerialExecutor_MutualExclusion(t *testing.T) {
	e := NewSerialExecutor()
	defer e.Close()

	var inside atomic.Int32
	var overlapped atomic.Bool
	var wg sync.WaitGroup

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_ = e.Post(func() {
					if inside.Add(1) != 1 {
						overlapped.Store(true)
					}
					inside.Add(-1)
				})
			}
		}()
	}
	wg.Wait()
	e.Close()

	require.False(t, overlapped.Load(), "two tasks ran concurrently")
}

func TestSerialExecutor_CloseDrainsPending(t *testing.T) {
	e := NewSerialExecutor()

	var ran atomic.Int32
	for i := 0; i < 50; i++ {
		require.NoError(t, e.Post(func() { ran.Add(1) }))
	}
	e.Close()

	require.EqualValues(t, 50, ran.Load(), "queued tasks dropped on close")
	require.ErrorIs(t, e.Post(func() {}), ErrExecutorClosed)
}

func TestSerialExecutor_PostWait(t *testing.T) {
	e := NewSerialExecutor()
	defer e.Close()

	ran := false
	require.NoError(t, e.PostWait(func() { ran = true }))
	require.True(t, ran)
}

func TestSerialExecutor_CloseIdempotent(t *testing.T) {
	e := NewSerialExecutor()
	e.Close()
	e.Close()
	require.ErrorIs(t, e.PostWait(func() {}), ErrExecutorClosed)
}
