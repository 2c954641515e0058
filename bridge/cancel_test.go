// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// cancel_test.go: cancellation completeness, idempotence, races against
// natural completion, and the close-time backstop.

package bridge_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-multi/api"
	"github.com/momentics/hioload-multi/bridge"
	"github.com/momentics/hioload-multi/fake"
	"github.com/momentics/hioload-multi/lifetime"
)

func TestCancelAll_Completeness(t *testing.T) {
	e := fake.NewEngine()
	r := fake.NewReactor()
	b := newBridge(t, e, r)

	t1 := fake.NewTransfer(1)
	t2 := fake.NewTransfer(2)
	c1 := make(chan api.ResultCode, 1)
	c2 := make(chan api.ResultCode, 1)
	b.Launch(t1, func(c api.ResultCode) { c1 <- c })
	b.Launch(t2, func(c api.ResultCode) { c2 <- c })

	require.Equal(t, 2, b.CancelAll(api.ResultShutdown))
	require.Equal(t, api.ResultShutdown, waitCode(t, c1))
	require.Equal(t, api.ResultShutdown, waitCode(t, c2))
	require.ElementsMatch(t, []uint64{1, 2}, e.Unregistrations())
	require.Equal(t, 0, b.Stats()["transfers.active"])

	// Idempotent: an empty registry cancels to zero.
	require.Zero(t, b.CancelAll(api.ResultShutdown))
}

func TestCancelOne_Idempotent(t *testing.T) {
	e := fake.NewEngine()
	r := fake.NewReactor()
	b := newBridge(t, e, r)

	tr := fake.NewTransfer(5)
	done := make(chan api.ResultCode, 2)
	b.Launch(tr, func(c api.ResultCode) { done <- c })

	require.True(t, b.CancelOne(tr, api.ResultCanceled))
	require.Equal(t, api.ResultCanceled, waitCode(t, done))

	require.False(t, b.CancelOne(tr, api.ResultCanceled), "second cancel must report not found")
	select {
	case c := <-done:
		t.Fatalf("completion fired twice, second code %v", c)
	default:
	}
	require.Equal(t, []uint64{5}, e.Unregistrations())
}

func TestCancelOne_LosesRaceToNaturalCompletion(t *testing.T) {
	e := fake.NewEngine()
	r := fake.NewReactor()
	e.OnRegister = func(e *fake.Engine, reg api.Transfer) api.ResultCode {
		e.Complete(reg, api.ResultOK)
		return api.ResultOK
	}
	b := newBridge(t, e, r)

	tr := fake.NewTransfer(6)
	done := make(chan api.ResultCode, 1)
	b.Launch(tr, func(c api.ResultCode) { done <- c })
	require.Equal(t, api.ResultOK, waitCode(t, done))

	// The transfer already completed; a late cancel is a no-op.
	require.False(t, b.CancelOne(tr, api.ResultCanceled))
}

func TestClose_BackstopCompletesPending(t *testing.T) {
	e := fake.NewEngine()
	r := fake.NewReactor()
	life := lifetime.New(nil, nil)
	b, err := bridge.New(e, r, &bridge.Config{Lifetime: life})
	require.NoError(t, err)
	require.Equal(t, 1, life.Refs())

	tr := fake.NewTransfer(7)
	done := make(chan api.ResultCode, 1)
	b.Launch(tr, func(c api.ResultCode) { done <- c })
	require.Eventually(t, func() bool { return e.TrackedCount() == 1 }, waitFor, tick)

	require.NoError(t, b.Close())
	require.Equal(t, api.ResultShutdown, waitCode(t, done))
	require.Equal(t, []uint64{7}, e.Unregistrations())
	require.Equal(t, 0, life.Refs())

	// Close is idempotent and post-close calls degrade gracefully.
	require.NoError(t, b.Close())
	require.Zero(t, b.CancelAll(api.ResultShutdown))
	require.False(t, b.CancelOne(tr, api.ResultCanceled))

	late := make(chan api.ResultCode, 1)
	b.Launch(fake.NewTransfer(8), func(c api.ResultCode) { late <- c })
	require.Equal(t, api.ResultShutdown, waitCode(t, late))
}

func TestClose_LaunchRacingShutdownStillCompletes(t *testing.T) {
	e := fake.NewEngine()
	r := fake.NewReactor()
	entered := make(chan struct{})
	gate := make(chan struct{})
	var once sync.Once
	e.OnRegister = func(*fake.Engine, api.Transfer) api.ResultCode {
		once.Do(func() {
			close(entered)
			<-gate
		})
		return api.ResultOK
	}
	b, err := bridge.New(e, r, nil)
	require.NoError(t, err)

	first := make(chan api.ResultCode, 1)
	b.Launch(fake.NewTransfer(1), func(c api.ResultCode) { first <- c })
	<-entered // serializing context is now stalled inside Register

	closed := make(chan struct{})
	go func() {
		_ = b.Close()
		close(closed)
	}()
	// Let Close queue its teardown behind the stalled step, so the next
	// launch lands after the close-time cancelAll.
	time.Sleep(20 * time.Millisecond)

	second := make(chan api.ResultCode, 1)
	b.Launch(fake.NewTransfer(2), func(c api.ResultCode) { second <- c })

	close(gate)
	require.Equal(t, api.ResultShutdown, waitCode(t, first))
	require.Equal(t, api.ResultShutdown, waitCode(t, second))
	select {
	case <-closed:
	case <-time.After(waitFor):
		t.Fatal("close did not return")
	}
	require.Zero(t, e.TrackedCount(), "engine left tracking a transfer past close")
}

func TestClose_ConcurrentCallersWaitForTeardown(t *testing.T) {
	e := fake.NewEngine()
	r := fake.NewReactor()
	entered := make(chan struct{})
	gate := make(chan struct{})
	e.OnRegister = func(*fake.Engine, api.Transfer) api.ResultCode {
		close(entered)
		<-gate
		return api.ResultOK
	}
	b, err := bridge.New(e, r, nil)
	require.NoError(t, err)

	done := make(chan api.ResultCode, 1)
	b.Launch(fake.NewTransfer(3), func(c api.ResultCode) { done <- c })
	<-entered // serializing context is stalled inside Register

	closers := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_ = b.Close()
			closers <- struct{}{}
		}()
	}

	// Teardown is stalled behind the blocked registration; neither caller
	// may return yet, winner or loser of the closed flag alike.
	select {
	case <-closers:
		t.Fatal("Close returned before teardown finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(gate)
	require.Equal(t, api.ResultShutdown, waitCode(t, done))
	for i := 0; i < 2; i++ {
		select {
		case <-closers:
		case <-time.After(waitFor):
			t.Fatal("a Close caller never returned")
		}
	}
}

func TestClose_TearsDownWatchesAndTimer(t *testing.T) {
	const fd = uintptr(12)
	e := fake.NewEngine()
	r := fake.NewReactor()
	e.OnRegister = func(e *fake.Engine, reg api.Transfer) api.ResultCode {
		require.NoError(t, e.RequestWatch(fd, api.WatchReadWrite))
		e.RequestTimer(time.Hour)
		return api.ResultOK
	}
	b, err := bridge.New(e, r, nil)
	require.NoError(t, err)

	done := make(chan api.ResultCode, 1)
	b.Launch(fake.NewTransfer(9), func(c api.ResultCode) { done <- c })
	require.Eventually(t, func() bool { return r.Pending() == 3 }, waitFor, tick)

	require.NoError(t, b.Close())
	require.Equal(t, api.ResultShutdown, waitCode(t, done))
	require.Zero(t, r.Pending(), "reactor waits leaked past Close")
}

func TestNew_RequiresEngineAndReactor(t *testing.T) {
	_, err := bridge.New(nil, fake.NewReactor(), nil)
	require.ErrorIs(t, err, api.ErrInvalidArgument)
	_, err = bridge.New(fake.NewEngine(), nil, nil)
	require.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestNew_LifetimeInitFailure(t *testing.T) {
	boom := api.NewError(api.ErrCodeInternal, "engine global init failed")
	life := lifetime.New(func() error { return boom }, nil)
	_, err := bridge.New(fake.NewEngine(), fake.NewReactor(), &bridge.Config{Lifetime: life})
	require.Error(t, err)
	require.Equal(t, 0, life.Refs())
}
