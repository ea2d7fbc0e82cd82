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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/zdzhjx/netius/connection"
	"github.com/zdzhjx/netius/reactor"
)

func newTestReactor(t *testing.T) *reactor.Reactor {
	t.Helper()
	re, err := reactor.New(nil, 20*time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { re.Close() })
	return re
}

func runReactorUntil(re *reactor.Reactor, done <-chan struct{}, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() { errCh <- re.Run() }()
	select {
	case <-done:
	case <-time.After(timeout):
	}
	re.Stop()
	return <-errCh
}

func TestStreamServerAcceptsAndEchoesData(t *testing.T) {
	require := require.New(t)
	re := newTestReactor(t)

	var mu sync.Mutex
	var accepted *connection.Connection

	srv, err := ListenStream(re, "tcp", "127.0.0.1:0", nil, func(conn *connection.Connection) {
		mu.Lock()
		accepted = conn
		mu.Unlock()
		conn.Bind("data", func(args ...interface{}) {
			data := args[1].([]byte)
			conn.Send(append([]byte(nil), data...), false, nil)
		})
	})
	require.NoError(err)
	defer srv.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		c, err := net.Dial("tcp", srv.Addr().String())
		if err != nil {
			return
		}
		defer c.Close()
		c.Write([]byte("ping"))
		buf := make([]byte, 4)
		c.SetReadDeadline(time.Now().Add(time.Second))
		readFull(c, buf)
		if string(buf) != "ping" {
			t.Errorf("expected echo, got %q", buf)
		}
	}()

	require.NoError(runReactorUntil(re, done, 2*time.Second))

	mu.Lock()
	defer mu.Unlock()
	require.NotNil(accepted)
}

func readFull(c net.Conn, buf []byte) {
	total := 0
	for total < len(buf) {
		n, err := c.Read(buf[total:])
		total += n
		if err != nil {
			return
		}
	}
}

func TestDialConnectsToListener(t *testing.T) {
	require := require.New(t)
	re := newTestReactor(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(err)
	defer ln.Close()

	acceptDone := make(chan struct{})
	go func() {
		defer close(acceptDone)
		c, err := ln.Accept()
		if err == nil {
			c.Close()
		}
	}()

	connected := make(chan error, 1)
	err = Dial(re, "tcp", ln.Addr().String(), nil, func(conn *connection.Connection, dialErr error) {
		connected <- dialErr
		if conn != nil {
			conn.Close()
		}
	})
	require.NoError(err)

	done := make(chan struct{})
	go func() {
		select {
		case <-connected:
		case <-time.After(time.Second):
		}
		close(done)
	}()
	require.NoError(runReactorUntil(re, done, 2*time.Second))

	select {
	case err := <-connected:
		require.NoError(err)
	default:
		t.Fatal("connect callback never fired")
	}
	<-acceptDone
}

func TestDialReportsErrorOnRefusedConnection(t *testing.T) {
	require := require.New(t)
	re := newTestReactor(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(err)
	addr := ln.Addr().String()
	ln.Close()

	connected := make(chan error, 1)
	err = Dial(re, "tcp", addr, nil, func(conn *connection.Connection, dialErr error) {
		connected <- dialErr
	})
	require.NoError(err)

	done := make(chan struct{})
	go func() {
		select {
		case <-connected:
		case <-time.After(time.Second):
		}
		close(done)
	}()
	require.NoError(runReactorUntil(re, done, 2*time.Second))

	select {
	case err := <-connected:
		require.Error(err)
	default:
		t.Fatal("connect callback never fired")
	}
}

func TestDatagramClientSendAndReceive(t *testing.T) {
	require := require.New(t)
	re := newTestReactor(t)

	received := make(chan string, 1)
	server, err := NewDatagramClient(re, "127.0.0.1:0", func(data []byte, from *net.UDPAddr) {
		received <- string(data)
	})
	require.NoError(err)
	defer server.Close()

	client, err := NewDatagramClient(re, "127.0.0.1:0", nil)
	require.NoError(err)
	defer client.Close()

	serverAddr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: udpPort(t, server)}
	require.NoError(client.SendTo([]byte("hello"), serverAddr))

	done := make(chan struct{})
	go func() {
		select {
		case <-received:
		case <-time.After(time.Second):
		}
		close(done)
	}()
	require.NoError(runReactorUntil(re, done, 2*time.Second))

	select {
	case msg := <-received:
		require.Equal("hello", msg)
	default:
		t.Fatal("datagram never received")
	}
}

func udpPort(t *testing.T, d *DatagramClient) int {
	t.Helper()
	sa, err := unix.Getsockname(d.fd)
	require.NoError(t, err)
	addr, err := tcpAddrFromSockaddr(sa)
	require.NoError(t, err)
	return addr.Port
}

func TestContainerServerReplacesChildOnSameKey(t *testing.T) {
	require := require.New(t)

	c := NewContainerServer()

	firstClosed := false
	c.Adopt("pasv", closerFunc(func() error { firstClosed = true; return nil }))

	secondClosed := false
	c.Adopt("pasv", closerFunc(func() error { secondClosed = true; return nil }))

	require.True(firstClosed)
	require.False(secondClosed)

	c.CloseAll()
	require.True(secondClosed)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
