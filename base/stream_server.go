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
	"net"

	"golang.org/x/sys/unix"

	"github.com/zdzhjx/netius/connection"
	"github.com/zdzhjx/netius/core"
	"github.com/zdzhjx/netius/reactor"
	"github.com/zdzhjx/netius/utils/bandwidth"
)

// AcceptHandler is invoked once per accepted client connection. conn has
// already had Open called on it.
type AcceptHandler func(conn *connection.Connection)

// StreamServer is a listening TCP socket registered with a reactor. Each
// accepted client becomes a connection.Connection sharing the same
// reactor and, optionally, the same bandwidth.Limiter.
type StreamServer struct {
	re       *reactor.Reactor
	fd       int
	addr     *net.TCPAddr
	limiter  *bandwidth.Limiter
	onAccept AcceptHandler
}

// ListenStream binds and listens on address (e.g. "127.0.0.1:0" for an
// ephemeral port) and registers the listening socket with re. onAccept
// fires for every accepted connection, already opened.
func ListenStream(re *reactor.Reactor, network, address string, limiter *bandwidth.Limiter, onAccept AcceptHandler) (*StreamServer, error) {
	tcpAddr, err := resolveTCP(network, address)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(socketDomain(tcpAddr), unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, core.NewConnectionError("socket", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, core.NewConnectionError("setsockopt SO_REUSEADDR", err)
	}

	sa, err := sockaddrFromTCPAddr(tcpAddr)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, core.NewConnectionError("bind", err)
	}
	if err := unix.Listen(fd, 128); err != nil {
		unix.Close(fd)
		return nil, core.NewConnectionError("listen", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, core.NewConnectionError("set nonblock", err)
	}

	boundSA, err := unix.Getsockname(fd)
	if err != nil {
		unix.Close(fd)
		return nil, core.NewConnectionError("getsockname", err)
	}
	boundAddr, err := tcpAddrFromSockaddr(boundSA)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}

	s := &StreamServer{re: re, fd: fd, addr: boundAddr, limiter: limiter, onAccept: onAccept}

	if err := re.AddSocket(fd, reactor.InterestRead, reactor.Callbacks{
		OnReadable: s.acceptLoop,
	}); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return s, nil
}

// Addr returns the bound local address, with the actual port filled in
// when address was given with port 0.
func (s *StreamServer) Addr() *net.TCPAddr { return s.addr }

// Close stops accepting and releases the listening socket. Already
// accepted connections are unaffected.
func (s *StreamServer) Close() error {
	s.re.RemoveSocket(s.fd)
	return unix.Close(s.fd)
}

func (s *StreamServer) acceptLoop() {
	for {
		nfd, _, err := unix.Accept(s.fd)
		if err != nil {
			if isTransient(err) {
				return
			}
			return
		}
		if err := unix.SetNonblock(nfd, true); err != nil {
			unix.Close(nfd)
			continue
		}

		conn := connection.New(nfd, s.re, s.limiter)
		if err := conn.Open(); err != nil {
			unix.Close(nfd)
			continue
		}
		if s.onAccept != nil {
			s.onAccept(conn)
		}
	}
}
