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

// Package connection wraps a single non-blocking socket registered with a
// reactor: a FIFO send queue with per-chunk callbacks, bandwidth-gated
// reads and writes, and the PENDING/OPEN/CLOSED lifecycle every base
// server/client builds on.
package connection

import (
	"net"
	"time"

	"golang.org/x/sys/unix"

	"github.com/zdzhjx/netius/core"
	"github.com/zdzhjx/netius/observable"
	"github.com/zdzhjx/netius/reactor"
	"github.com/zdzhjx/netius/utils/bandwidth"
)

// State is a Connection's lifecycle stage.
type State int

// The three states a Connection passes through, in order, never revisited.
const (
	Pending State = iota
	Open
	Closed
)

// ReadChunkSize is the number of bytes pulled per readable event. Short
// reads are expected and handled the same as full ones.
const ReadChunkSize = 65536

type sendItem struct {
	data     []byte
	callback func(*Connection, error)
}

// Connection is a single socket's state plus its FIFO send queue. Every
// method is meant to be called from the owning reactor's goroutine; there
// is no internal locking.
type Connection struct {
	*observable.Observable

	fd      int
	re      *reactor.Reactor
	limiter *bandwidth.Limiter

	state State

	queue      []sendItem
	writableOn bool
	readPaused bool
	closing    bool
}

// New wraps fd (already non-blocking) for registration with re. limiter
// may be nil, in which case reads and writes are never throttled.
func New(fd int, re *reactor.Reactor, limiter *bandwidth.Limiter) *Connection {
	return &Connection{
		Observable: observable.New(),
		fd:         fd,
		re:         re,
		limiter:    limiter,
		state:      Pending,
	}
}

// Fd returns the underlying file descriptor.
func (c *Connection) Fd() int { return c.fd }

// State returns the connection's current lifecycle stage.
func (c *Connection) State() State { return c.state }

// RemoteAddr returns the address of the connected peer, queried directly
// from the socket since Connection carries no net.Conn. Returns nil if
// the peer's address can't be determined (e.g. a non-IP socket family).
func (c *Connection) RemoteAddr() *net.TCPAddr {
	sa, err := unix.Getpeername(c.fd)
	if err != nil {
		return nil
	}
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IP(v.Addr[:]), Port: v.Port}
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: net.IP(v.Addr[:]), Port: v.Port}
	default:
		return nil
	}
}

// Open registers the connection with its reactor for read interest and
// fires "open".
func (c *Connection) Open() error {
	if c.state != Pending {
		return nil
	}
	if err := c.re.AddSocket(c.fd, reactor.InterestRead, reactor.Callbacks{
		OnReadable: c.handleReadable,
		OnWritable: c.handleWritable,
		OnError:    c.handleError,
	}); err != nil {
		return err
	}
	c.state = Open
	c.Trigger("open", c)
	return nil
}

// Send appends data to the FIFO send queue and arms writable interest. If
// delay is true, the writable interest request is deferred until the next
// reactor iteration, letting several Send calls made in the same handler
// batch into fewer syscalls. callback, if non-nil, fires once this exact
// chunk has been fully written (or with a non-nil error if the connection
// closes before that happens).
func (c *Connection) Send(data []byte, delay bool, callback func(*Connection, error)) {
	if c.state == Closed || c.closing {
		if callback != nil {
			callback(c, core.NewConnectionError("send on closed connection", nil))
		}
		return
	}
	c.queue = append(c.queue, sendItem{data: data, callback: callback})
	if delay {
		c.re.Schedule(0, c.ensureWritable)
		return
	}
	c.ensureWritable()
}

// Close half-closes the write side once the send queue has drained, then
// releases the socket and fires "close". Calling Close twice is a no-op.
func (c *Connection) Close() {
	if c.state == Closed || c.closing {
		return
	}
	if len(c.queue) == 0 {
		c.doClose(nil)
		return
	}
	c.closing = true
}

func (c *Connection) ensureWritable() {
	if c.state != Open || c.writableOn || len(c.queue) == 0 {
		return
	}
	c.writableOn = true
	c.re.ModifySocket(c.fd, reactor.InterestRead|reactor.InterestWrite)
}

func (c *Connection) disableWritable() {
	if !c.writableOn {
		return
	}
	c.writableOn = false
	if c.state == Open {
		c.re.ModifySocket(c.fd, reactor.InterestRead)
	}
}

func (c *Connection) handleReadable() {
	if c.readPaused || c.state != Open {
		return
	}

	if c.limiter != nil {
		delay, ok := c.limiter.ReserveIngress(ReadChunkSize)
		if !ok {
			// Burst ceiling exceeded for any size; read anyway to avoid
			// starving the peer forever on a misconfigured limiter.
		} else if delay > 0 {
			c.pauseReadFor(delay)
			return
		}
	}

	buf := make([]byte, ReadChunkSize)
	n, err := unix.Read(c.fd, buf)
	if err != nil {
		if isTransient(err) {
			return
		}
		c.Trigger("error", c, core.NewConnectionError("read", err))
		c.doClose(core.NewConnectionError("read", err))
		return
	}
	if n == 0 {
		c.doClose(nil)
		return
	}
	c.Trigger("data", c, buf[:n])
}

func (c *Connection) pauseReadFor(delay time.Duration) {
	c.readPaused = true
	c.re.ModifySocket(c.fd, interestWithoutRead(c.writableOn))
	c.re.Schedule(delay, func() {
		c.readPaused = false
		if c.state != Open {
			return
		}
		interest := reactor.InterestRead
		if c.writableOn {
			interest |= reactor.InterestWrite
		}
		c.re.ModifySocket(c.fd, interest)
	})
}

func interestWithoutRead(writableOn bool) reactor.Interest {
	if writableOn {
		return reactor.InterestWrite
	}
	return 0
}

func (c *Connection) handleWritable() {
	if c.state != Open || len(c.queue) == 0 {
		c.disableWritable()
		return
	}

	item := &c.queue[0]

	if c.limiter != nil {
		delay, ok := c.limiter.ReserveEgress(len(item.data))
		if ok && delay > 0 {
			c.disableWritable()
			c.re.Schedule(delay, c.ensureWritable)
			return
		}
	}

	n, err := unix.Write(c.fd, item.data)
	if err != nil {
		if isTransient(err) {
			return
		}
		c.failQueue(core.NewConnectionError("write", err))
		c.Trigger("error", c, core.NewConnectionError("write", err))
		c.doClose(core.NewConnectionError("write", err))
		return
	}

	if n < len(item.data) {
		item.data = item.data[n:]
		return
	}

	c.queue = c.queue[1:]
	if item.callback != nil {
		item.callback(c, nil)
	}

	if len(c.queue) == 0 {
		c.disableWritable()
		if c.closing {
			c.doClose(nil)
		}
	}
}

func (c *Connection) handleError(err error) {
	c.Trigger("error", c, err)
	c.doClose(err)
}

func (c *Connection) failQueue(err error) {
	pending := c.queue
	c.queue = nil
	for _, item := range pending {
		if item.callback != nil {
			item.callback(c, err)
		}
	}
}

func (c *Connection) doClose(causeErr error) {
	if c.state == Closed {
		return
	}
	if causeErr != nil {
		c.failQueue(causeErr)
	} else if len(c.queue) > 0 {
		c.failQueue(core.NewConnectionError("connection closed", nil))
	}
	unix.Shutdown(c.fd, unix.SHUT_WR)
	c.re.RemoveSocket(c.fd)
	unix.Close(c.fd)
	c.state = Closed
	c.closing = false
	c.Trigger("close", c)
}

func isTransient(err error) bool {
	return err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR
}
