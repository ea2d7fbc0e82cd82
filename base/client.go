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
package base

import (
	"golang.org/x/sys/unix"

	"github.com/zdzhjx/netius/connection"
	"github.com/zdzhjx/netius/core"
	"github.com/zdzhjx/netius/reactor"
	"github.com/zdzhjx/netius/utils/bandwidth"
)

// ConnectHandler fires once the outbound connect attempt resolves: conn is
// non-nil and already opened on success, or err is non-nil on failure.
type ConnectHandler func(conn *connection.Connection, err error)

// Dial opens a non-blocking outbound TCP connection through re, reporting
// completion via onConnect. The connect(2) itself is non-blocking: an
// EINPROGRESS result is normal and is resolved by watching the socket for
// writability, never by blocking the reactor thread.
func Dial(re *reactor.Reactor, network, address string, limiter *bandwidth.Limiter, onConnect ConnectHandler) error {
	tcpAddr, err := resolveTCP(network, address)
	if err != nil {
		return err
	}

	fd, err := unix.Socket(socketDomain(tcpAddr), unix.SOCK_STREAM, 0)
	if err != nil {
		return core.NewConnectionError("socket", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return core.NewConnectionError("set nonblock", err)
	}

	sa, err := sockaddrFromTCPAddr(tcpAddr)
	if err != nil {
		unix.Close(fd)
		return err
	}

	connectErr := unix.Connect(fd, sa)
	if connectErr != nil && connectErr != unix.EINPROGRESS && connectErr != unix.EAGAIN {
		unix.Close(fd)
		return core.NewConnectionError("connect", connectErr)
	}

	finish := func() {
		errno, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
		re.RemoveSocket(fd)
		if err != nil {
			unix.Close(fd)
			onConnect(nil, core.NewConnectionError("getsockopt SO_ERROR", err))
			return
		}
		if errno != 0 {
			unix.Close(fd)
			onConnect(nil, core.NewConnectionError("connect", unix.Errno(errno)))
			return
		}
		conn := connection.New(fd, re, limiter)
		if err := conn.Open(); err != nil {
			unix.Close(fd)
			onConnect(nil, err)
			return
		}
		onConnect(conn, nil)
	}

	if connectErr == nil {
		// Connected synchronously (common on loopback sockets). Still
		// route through the reactor so Open registers it the normal way.
		conn := connection.New(fd, re, limiter)
		if err := conn.Open(); err != nil {
			unix.Close(fd)
			onConnect(nil, err)
			return nil
		}
		onConnect(conn, nil)
		return nil
	}

	return re.AddSocket(fd, reactor.InterestWrite, reactor.Callbacks{
		OnWritable: finish,
		OnError: func(err error) {
			re.RemoveSocket(fd)
			unix.Close(fd)
			onConnect(nil, err)
		},
	})
}
