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

// Package base provides the lifecycle skeletons built on top of Reactor
// and Connection: a listening StreamServer, an outbound Client connector,
// a UDP DatagramClient and a ContainerServer that owns ephemeral
// sub-servers (the FTP PASV data channel is the motivating case).
package base

import (
	"net"

	"golang.org/x/sys/unix"

	"github.com/zdzhjx/netius/core"
)

func isTransient(err error) bool {
	return err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR
}

func socketDomain(addr *net.TCPAddr) int {
	if addr.IP != nil && addr.IP.To4() == nil {
		return unix.AF_INET6
	}
	return unix.AF_INET
}

func sockaddrFromTCPAddr(addr *net.TCPAddr) (unix.Sockaddr, error) {
	if addr.IP == nil || addr.IP.To4() != nil {
		sa := &unix.SockaddrInet4{Port: addr.Port}
		if ip4 := addr.IP.To4(); ip4 != nil {
			copy(sa.Addr[:], ip4)
		}
		return sa, nil
	}
	sa := &unix.SockaddrInet6{Port: addr.Port}
	copy(sa.Addr[:], addr.IP.To16())
	return sa, nil
}

func tcpAddrFromSockaddr(sa unix.Sockaddr) (*net.TCPAddr, error) {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IP(v.Addr[:]), Port: v.Port}, nil
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: net.IP(v.Addr[:]), Port: v.Port}, nil
	default:
		return nil, core.NewConnectionError("unsupported sockaddr type", nil)
	}
}

func resolveTCP(network, address string) (*net.TCPAddr, error) {
	addr, err := net.ResolveTCPAddr(network, address)
	if err != nil {
		return nil, core.NewConnectionError("resolve "+address, err)
	}
	return addr, nil
}
