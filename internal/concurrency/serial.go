// File: internal/concurrency/serial.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// SerialExecutor funnels tasks from arbitrary goroutines onto one worker
// goroutine, preserving submission order. It is the serializing context the
// bridge layers over the reactor: the transfer engine is neither thread-safe
// nor reentrant, so every call into it is posted here and executed strictly
// one at a time.

package concurrency

import (
	"sync"

	"github.com/eapache/queue"
)

// Task is a unit of serialized work.
type Task func()

// SerialExecutor is a single-worker task executor with FIFO ordering.
// Posting is safe from any goroutine and never blocks on task execution.
type SerialExecutor struct {
	mu     sync.Mutex
	inbox  *queue.Queue
	wake   chan struct{}
	closed bool
	done   chan struct{}
}

// NewSerialExecutor creates the executor and starts its worker goroutine.
func NewSerialExecutor() *SerialExecutor {
	e := &SerialExecutor{
		inbox: queue.New(),
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	go e.run()
	return e
}

// Post enqueues a task for execution. Tasks run in submission order on the
// worker goroutine. Returns ErrExecutorClosed once Close has been called.
func (e *SerialExecutor) Post(task Task) error {
	if task == nil {
		return nil
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrExecutorClosed
	}
	e.inbox.Add(task)
	e.mu.Unlock()
	e.signal()
	return nil
}

// PostWait enqueues a task and blocks the caller until it has run. Must not
// be called from the worker goroutine itself: a task waiting on its own
// executor deadlocks.
func (e *SerialExecutor) PostWait(task Task) error {
	if task == nil {
		return nil
	}
	ran := make(chan struct{})
	if err := e.Post(func() {
		task()
		close(ran)
	}); err != nil {
		return err
	}
	<-ran
	return nil
}

// Close stops the executor. Tasks already queued still run; subsequent
// posts are rejected. Close returns after the worker has drained and
// exited, and is idempotent. Must not be called from a task.
func (e *SerialExecutor) Close() {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
	}
	e.mu.Unlock()
	e.signal()
	<-e.done
}

func (e *SerialExecutor) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *SerialExecutor) run() {
	defer close(e.done)
	for {
		e.mu.Lock()
		for e.inbox.Length() > 0 {
			task := e.inbox.Remove().(Task)
			e.mu.Unlock()
			task()
			e.mu.Lock()
		}
		closed := e.closed
		e.mu.Unlock()
		if closed {
			return
		}
		<-e.wake
	}
}
