// Copyright (c) 2014-2026 Netius Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package reactor implements the single-threaded event loop that owns
// every socket and timer in the process, per spec.md §4.2. Go's standard
// library has no user-level select/epoll surface (net.Conn hides its
// readiness multiplexing inside the runtime poller), so the loop is built
// directly on golang.org/x/sys/unix epoll primitives, the same substrate
// other Go single-threaded event loops use.
package reactor

import (
	"sort"
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
	"golang.org/x/sys/unix"

	"github.com/zdzhjx/netius/core"
)

// Interest is a bitmask of the readiness a registered fd is polled for.
type Interest uint32

// The two interests a socket registration can request.
const (
	InterestRead Interest = 1 << iota
	InterestWrite
)

func (i Interest) toEpollEvents() uint32 {
	var ev uint32
	if i&InterestRead != 0 {
		ev |= unix.EPOLLIN
	}
	if i&InterestWrite != 0 {
		ev |= unix.EPOLLOUT
	}
	return ev
}

// Callbacks groups the handlers invoked for a registered fd.
type Callbacks struct {
	OnReadable func()
	OnWritable func()
	OnError    func(error)
}

type socketReg struct {
	fd       int
	interest Interest
	cb       Callbacks
}

type timerEntry struct {
	seq      uint64
	deadline time.Time
	fn       func()
	cancelled bool
}

// TimerHandle cancels a previously scheduled timer. Cancelling an already
// fired or already cancelled timer is a no-op.
type TimerHandle struct {
	entry *timerEntry
}

// Cancel prevents entry from firing if it hasn't already.
func (h TimerHandle) Cancel() {
	h.entry.cancelled = true
}

// Reactor is the epoll-backed, single-threaded event loop. Run must be
// called from one goroutine; AddSocket/RemoveSocket/Schedule/Stop may be
// called from within a callback running on that goroutine, or (guarded by
// a mutex) from another goroutine before/after Run.
type Reactor struct {
	epfd    int
	clock   clock.Clock
	pollCap time.Duration

	mu      sync.Mutex
	sockets map[int]*socketReg
	timers  []*timerEntry
	nextSeq uint64
	stopped bool
}

// New creates a Reactor. pollCap bounds how long a single epoll_wait call
// may block even with no timer due, so a Stop() call is noticed promptly.
func New(clk clock.Clock, pollCap time.Duration) (*Reactor, error) {
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, core.NewConnectionError("epoll_create1", err)
	}
	if clk == nil {
		clk = clock.New()
	}
	if pollCap <= 0 {
		pollCap = time.Second
	}
	return &Reactor{
		epfd:    epfd,
		clock:   clk,
		pollCap: pollCap,
		sockets: make(map[int]*socketReg),
	}, nil
}

// AddSocket registers fd with the given interest and callbacks.
func (r *Reactor) AddSocket(fd int, interest Interest, cb Callbacks) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg := &socketReg{fd: fd, interest: interest, cb: cb}
	r.sockets[fd] = reg

	event := unix.EpollEvent{Events: interest.toEpollEvents(), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &event); err != nil {
		delete(r.sockets, fd)
		return core.NewConnectionError("epoll_ctl add", err)
	}
	return nil
}

// ModifySocket changes the interest set for an already-registered fd.
func (r *Reactor) ModifySocket(fd int, interest Interest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.sockets[fd]
	if !ok {
		return core.NewConnectionError("modify unknown fd", nil)
	}
	reg.interest = interest

	event := unix.EpollEvent{Events: interest.toEpollEvents(), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, fd, &event); err != nil {
		return core.NewConnectionError("epoll_ctl mod", err)
	}
	return nil
}

// RemoveSocket unregisters fd. Valid to call from within any callback;
// the Reactor tolerates mutation of its set during dispatch.
func (r *Reactor) RemoveSocket(fd int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sockets[fd]; !ok {
		return nil
	}
	delete(r.sockets, fd)
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return core.NewConnectionError("epoll_ctl del", err)
	}
	return nil
}

// Schedule arranges for fn to run once, no sooner than delay from now.
func (r *Reactor) Schedule(delay time.Duration, fn func()) TimerHandle {
	return r.addTimer(r.clock.Now().Add(delay), fn)
}

// ScheduleEvery arranges for fn to run once, no sooner than period from
// now; fn is responsible for calling ScheduleEvery again if it wants to
// keep recurring, per spec.md §4.2.
func (r *Reactor) ScheduleEvery(period time.Duration, fn func()) TimerHandle {
	return r.addTimer(r.clock.Now().Add(period), fn)
}

func (r *Reactor) addTimer(deadline time.Time, fn func()) TimerHandle {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := &timerEntry{seq: r.nextSeq, deadline: deadline, fn: fn}
	r.nextSeq++
	r.timers = append(r.timers, entry)
	return TimerHandle{entry: entry}
}

// Stop marks the loop for exit after the current iteration completes.
func (r *Reactor) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
}

// Close releases the underlying epoll fd. Call after Run returns.
func (r *Reactor) Close() error {
	return unix.Close(r.epfd)
}

// Run executes iterations until Stop is called or no sockets and no
// timers remain. It returns nil on graceful stop, or the fatal poll error
// that aborted the loop (spec.md §6 Exit/error codes: callers translate a
// non-nil return into a non-zero process exit).
func (r *Reactor) Run() error {
	for {
		r.mu.Lock()
		stopped := r.stopped
		noWork := len(r.sockets) == 0 && len(r.timers) == 0
		r.mu.Unlock()
		if stopped || noWork {
			return nil
		}

		if err := r.iterate(); err != nil {
			return err
		}
	}
}

func (r *Reactor) iterate() error {
	timeout := r.nextTimeout()

	events := make([]unix.EpollEvent, 64)
	n, err := unix.EpollWait(r.epfd, events, timeout)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return core.NewConnectionError("epoll_wait", err)
	}

	ready := events[:n]
	sort.Slice(ready, func(i, j int) bool { return ready[i].Fd < ready[j].Fd })

	for _, ev := range ready {
		r.dispatchSocket(int(ev.Fd), ev.Events)
	}

	r.runDueTimers()
	return nil
}

func (r *Reactor) nextTimeout() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.timers) == 0 {
		return int(r.pollCap / time.Millisecond)
	}

	earliest := r.timers[0].deadline
	for _, t := range r.timers[1:] {
		if t.deadline.Before(earliest) {
			earliest = t.deadline
		}
	}

	wait := earliest.Sub(r.clock.Now())
	if wait < 0 {
		wait = 0
	}
	if wait > r.pollCap {
		wait = r.pollCap
	}
	return int(wait / time.Millisecond)
}

func (r *Reactor) dispatchSocket(fd int, events uint32) {
	r.mu.Lock()
	reg, ok := r.sockets[fd]
	r.mu.Unlock()
	if !ok {
		return
	}

	if events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
		if reg.cb.OnError != nil {
			reg.cb.OnError(core.NewConnectionError("socket error", nil))
		}
		return
	}
	if events&unix.EPOLLIN != 0 && reg.cb.OnReadable != nil {
		reg.cb.OnReadable()
	}
	if events&unix.EPOLLOUT != 0 && reg.cb.OnWritable != nil {
		reg.cb.OnWritable()
	}
}

func (r *Reactor) runDueTimers() {
	now := r.clock.Now()

	r.mu.Lock()
	due := make([]*timerEntry, 0, len(r.timers))
	remaining := r.timers[:0:0]
	for _, t := range r.timers {
		if !t.cancelled && !t.deadline.After(now) {
			due = append(due, t)
			continue
		}
		if !t.cancelled {
			remaining = append(remaining, t)
		}
	}
	r.timers = remaining
	r.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].seq < due[j].seq })
	for _, t := range due {
		t.fn()
	}
}
