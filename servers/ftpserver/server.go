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
package ftpserver

import (
	"net"

	"github.com/zdzhjx/netius/base"
	"github.com/zdzhjx/netius/connection"
	"github.com/zdzhjx/netius/reactor"
	"github.com/zdzhjx/netius/utils/bandwidth"
)

// SessionRecorder is notified of every executed command, for an audit
// trail of what a session did. remoteIP may be empty if it couldn't be
// determined.
type SessionRecorder func(username, remoteIP, command, argument string)

// Server is the FTP command server: one listening socket accepting
// command connections, each of which may own at most one ephemeral PASV
// data channel of its own.
type Server struct {
	re       *reactor.Reactor
	listener *base.StreamServer
	limiter  *bandwidth.Limiter
	basePath string
	host     string
	recorder SessionRecorder
}

// SetRecorder installs r to be called after every command a session
// executes. Must be called before the first connection is accepted.
func (s *Server) SetRecorder(r SessionRecorder) { s.recorder = r }

// New starts listening on address for FTP command connections. basePath
// roots LIST/RETR; host names the server in the greeting banner. limiter
// may be nil to disable bandwidth throttling on both the command and data
// channels.
func New(re *reactor.Reactor, address, basePath, host string, limiter *bandwidth.Limiter) (*Server, error) {
	s := &Server{re: re, limiter: limiter, basePath: basePath, host: host}

	ln, err := base.ListenStream(re, "tcp", address, limiter, s.onAccept)
	if err != nil {
		return nil, err
	}
	s.listener = ln
	return s, nil
}

// Addr returns the bound command-channel address.
func (s *Server) Addr() *net.TCPAddr { return s.listener.Addr() }

// Close stops accepting new command connections.
func (s *Server) Close() error { return s.listener.Close() }

func (s *Server) onAccept(conn *connection.Connection) {
	fc := newFTPConn(conn, s.re, s.limiter, s.basePath, s.host, s.recorder)
	fc.ready()
}
