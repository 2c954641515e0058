//go:build linux
// +build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll implementation. One polling goroutine multiplexes readiness
// waits and deadline waits; an eventfd wakes it when a new earliest
// deadline arrives or the reactor closes. Readiness waits are one-shot: a
// delivered or cancelled waiter is detached and the epoll interest mask
// shrinks accordingly.

package reactor

import (
	"container/heap"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-multi/api"
)

var _ api.Reactor = (*Reactor)(nil)

type waiterDir int

const (
	dirRead waiterDir = iota
	dirWrite
)

type fdWaiter struct {
	h   api.WaitHandle
	fd  int
	dir waiterDir
	cb  api.CompletionFunc
}

type fdEntry struct {
	read    *fdWaiter
	write   *fdWaiter
	inEpoll bool
}

// Reactor implements api.Reactor using Linux epoll.
type Reactor struct {
	mu      sync.Mutex
	epfd    int
	wakefd  int
	nextID  uint64
	fds     map[int]*fdEntry
	fdOf    map[api.WaitHandle]*fdWaiter
	timers  timerHeap
	timerOf map[api.WaitHandle]*timerWaiter
	closed  bool
	done    chan struct{}
}

// New creates a Reactor and starts its polling goroutine.
func New() (*Reactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("reactor: epoll_create1: %w", err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, fmt.Errorf("reactor: eventfd: %w", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		_ = unix.Close(epfd)
		_ = unix.Close(wakefd)
		return nil, fmt.Errorf("reactor: epoll_ctl add wakefd: %w", err)
	}
	r := &Reactor{
		epfd:    epfd,
		wakefd:  wakefd,
		fds:     make(map[int]*fdEntry),
		fdOf:    make(map[api.WaitHandle]*fdWaiter),
		timerOf: make(map[api.WaitHandle]*timerWaiter),
		done:    make(chan struct{}),
	}
	go r.loop()
	return r, nil
}

// WaitReadable implements api.Reactor.
func (r *Reactor) WaitReadable(fd uintptr, cb api.CompletionFunc) api.WaitHandle {
	return r.armFD(int(fd), dirRead, cb)
}

// WaitWritable implements api.Reactor.
func (r *Reactor) WaitWritable(fd uintptr, cb api.CompletionFunc) api.WaitHandle {
	return r.armFD(int(fd), dirWrite, cb)
}

func (r *Reactor) armFD(fd int, dir waiterDir, cb api.CompletionFunc) api.WaitHandle {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		cb(api.ErrReactorClosed)
		return 0
	}
	r.nextID++
	h := api.WaitHandle(r.nextID)
	e := r.fds[fd]
	if e == nil {
		e = &fdEntry{}
		r.fds[fd] = e
	}
	w := &fdWaiter{h: h, fd: fd, dir: dir, cb: cb}
	// At most one waiter per direction; a re-arm supersedes silently.
	if dir == dirRead {
		if e.read != nil {
			delete(r.fdOf, e.read.h)
		}
		e.read = w
	} else {
		if e.write != nil {
			delete(r.fdOf, e.write.h)
		}
		e.write = w
	}
	r.fdOf[h] = w
	if err := r.updateEpoll(fd, e); err != nil {
		if dir == dirRead {
			e.read = nil
		} else {
			e.write = nil
		}
		delete(r.fdOf, h)
		r.updateEpollQuiet(fd, e)
		r.mu.Unlock()
		cb(fmt.Errorf("reactor: epoll_ctl fd %d: %w", fd, err))
		return h
	}
	r.mu.Unlock()
	return h
}

// WaitDeadline implements api.Reactor.
func (r *Reactor) WaitDeadline(t time.Time, cb api.CompletionFunc) api.WaitHandle {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		cb(api.ErrReactorClosed)
		return 0
	}
	r.nextID++
	h := api.WaitHandle(r.nextID)
	w := &timerWaiter{h: h, when: t, cb: cb}
	heap.Push(&r.timers, w)
	r.timerOf[h] = w
	wakeNeeded := r.timers[0] == w
	r.mu.Unlock()
	if wakeNeeded {
		r.wake()
	}
	return h
}

// Cancel implements api.Reactor: the wait is detached and never delivers.
func (r *Reactor) Cancel(h api.WaitHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.fdOf[h]; ok {
		delete(r.fdOf, h)
		if e := r.fds[w.fd]; e != nil {
			if e.read == w {
				e.read = nil
			}
			if e.write == w {
				e.write = nil
			}
			r.updateEpollQuiet(w.fd, e)
		}
		return
	}
	if w, ok := r.timerOf[h]; ok {
		delete(r.timerOf, h)
		heap.Remove(&r.timers, w.index)
	}
}

// Close stops the polling goroutine and releases the epoll and eventfd
// descriptors. Outstanding waits are discarded without delivery; callers
// are expected to have quiesced first. Idempotent.
func (r *Reactor) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return nil
	}
	r.closed = true
	r.mu.Unlock()
	r.wake()
	<-r.done

	r.mu.Lock()
	r.fds = make(map[int]*fdEntry)
	r.fdOf = make(map[api.WaitHandle]*fdWaiter)
	r.timers = nil
	r.timerOf = make(map[api.WaitHandle]*timerWaiter)
	_ = unix.Close(r.epfd)
	_ = unix.Close(r.wakefd)
	r.mu.Unlock()
	return nil
}

// updateEpoll syncs the epoll interest mask of fd with its waiters.
// Caller holds r.mu.
func (r *Reactor) updateEpoll(fd int, e *fdEntry) error {
	var events uint32
	if e.read != nil {
		events |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if e.write != nil {
		events |= unix.EPOLLOUT
	}
	if events == 0 {
		delete(r.fds, fd)
		if e.inEpoll {
			e.inEpoll = false
			return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil)
		}
		return nil
	}
	ev := unix.EpollEvent{Events: events, Fd: int32(fd)}
	if e.inEpoll {
		return unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
	}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return err
	}
	e.inEpoll = true
	return nil
}

func (r *Reactor) updateEpollQuiet(fd int, e *fdEntry) {
	_ = r.updateEpoll(fd, e)
}

func (r *Reactor) wake() {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	_, _ = unix.Write(r.wakefd, buf[:])
}

func (r *Reactor) drainWake() {
	var buf [8]byte
	for {
		if _, err := unix.Read(r.wakefd, buf[:]); err != nil {
			return
		}
	}
}

// nextTimeoutMs computes the epoll timeout from the earliest deadline.
// Returns -1 for "block indefinitely" and -2 when the reactor is closed.
func (r *Reactor) nextTimeoutMs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return -2
	}
	if len(r.timers) == 0 {
		return -1
	}
	d := time.Until(r.timers[0].when)
	if d <= 0 {
		return 0
	}
	ms := int64(d / time.Millisecond)
	if ms == 0 {
		ms = 1
	}
	if ms > math.MaxInt32 {
		ms = math.MaxInt32
	}
	return int(ms)
}

func (r *Reactor) loop() {
	defer close(r.done)
	events := make([]unix.EpollEvent, 64)
	for {
		timeout := r.nextTimeoutMs()
		if timeout == -2 {
			return
		}
		n, err := unix.EpollWait(r.epfd, events, timeout)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}
		r.expireTimers()
		for i := 0; i < n; i++ {
			ev := events[i]
			fd := int(ev.Fd)
			if fd == r.wakefd {
				r.drainWake()
				continue
			}
			r.dispatchFD(fd, ev.Events)
		}
	}
}

// dispatchFD detaches the waiters satisfied by the reported events and
// delivers them outside the lock.
func (r *Reactor) dispatchFD(fd int, events uint32) {
	r.mu.Lock()
	e := r.fds[fd]
	if e == nil {
		r.mu.Unlock()
		return
	}
	var res error
	if events&unix.EPOLLERR != 0 {
		res = socketError(fd)
	}
	readable := events&(unix.EPOLLIN|unix.EPOLLRDHUP|unix.EPOLLHUP|unix.EPOLLERR) != 0
	writable := events&(unix.EPOLLOUT|unix.EPOLLHUP|unix.EPOLLERR) != 0
	var fired []*fdWaiter
	if readable && e.read != nil {
		fired = append(fired, e.read)
		delete(r.fdOf, e.read.h)
		e.read = nil
	}
	if writable && e.write != nil {
		fired = append(fired, e.write)
		delete(r.fdOf, e.write.h)
		e.write = nil
	}
	r.updateEpollQuiet(fd, e)
	r.mu.Unlock()
	for _, w := range fired {
		w.cb(res)
	}
}

func (r *Reactor) expireTimers() {
	now := time.Now()
	r.mu.Lock()
	var due []*timerWaiter
	for len(r.timers) > 0 && !r.timers[0].when.After(now) {
		w := heap.Pop(&r.timers).(*timerWaiter)
		delete(r.timerOf, w.h)
		due = append(due, w)
	}
	r.mu.Unlock()
	for _, w := range due {
		w.cb(nil)
	}
}

// socketError reads the pending SO_ERROR after EPOLLERR. Non-socket
// descriptors simply report no error; the waiter still fires and the
// consumer discovers the condition on its own I/O.
func socketError(fd int) error {
	soerr, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil || soerr == 0 {
		return nil
	}
	return unix.Errno(soerr)
}
