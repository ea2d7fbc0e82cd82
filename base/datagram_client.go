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

	"github.com/zdzhjx/netius/core"
	"github.com/zdzhjx/netius/reactor"
)

// DatagramHandler fires once per received UDP datagram.
type DatagramHandler func(data []byte, from *net.UDPAddr)

// DatagramClient is a UDP socket registered with a reactor, used for
// fan-out protocols like SSDP discovery where there is no connection
// lifecycle, only send-to/receive-from.
type DatagramClient struct {
	re     *reactor.Reactor
	fd     int
	onData DatagramHandler
}

// NewDatagramClient binds a UDP socket on localAddress ("0.0.0.0:0" for an
// ephemeral port) and registers it for read events.
func NewDatagramClient(re *reactor.Reactor, localAddress string, onData DatagramHandler) (*DatagramClient, error) {
	tcpAddr, err := resolveTCP("udp", localAddress)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(socketDomain(tcpAddr), unix.SOCK_DGRAM, 0)
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
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, core.NewConnectionError("set nonblock", err)
	}

	d := &DatagramClient{re: re, fd: fd, onData: onData}
	if err := re.AddSocket(fd, reactor.InterestRead, reactor.Callbacks{
		OnReadable: d.readLoop,
	}); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return d, nil
}

// SetMulticastTTL configures the outbound TTL used for multicast sends,
// needed for SSDP's M-SEARCH which defaults to TTL 4.
func (d *DatagramClient) SetMulticastTTL(ttl int) error {
	return unix.SetsockoptInt(d.fd, unix.IPPROTO_IP, unix.IP_MULTICAST_TTL, ttl)
}

// SendTo writes a single datagram to addr.
func (d *DatagramClient) SendTo(data []byte, addr *net.UDPAddr) error {
	sa := &unix.SockaddrInet4{Port: addr.Port}
	if ip4 := addr.IP.To4(); ip4 != nil {
		copy(sa.Addr[:], ip4)
	}
	return unix.Sendto(d.fd, data, 0, sa)
}

// Close releases the socket.
func (d *DatagramClient) Close() error {
	d.re.RemoveSocket(d.fd)
	return unix.Close(d.fd)
}

func (d *DatagramClient) readLoop() {
	buf := make([]byte, 65536)
	for {
		n, from, err := unix.Recvfrom(d.fd, buf, 0)
		if err != nil {
			if isTransient(err) {
				return
			}
			return
		}
		addr := sockaddrToUDPAddr(from)
		if d.onData != nil {
			d.onData(append([]byte(nil), buf[:n]...), addr)
		}
	}
}

func sockaddrToUDPAddr(sa unix.Sockaddr) *net.UDPAddr {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.UDPAddr{IP: net.IP(v.Addr[:]), Port: v.Port}
	case *unix.SockaddrInet6:
		return &net.UDPAddr{IP: net.IP(v.Addr[:]), Port: v.Port}
	default:
		return nil
	}
}
