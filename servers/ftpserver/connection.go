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

// Package ftpserver implements the FTP command loop: USER/PASS/PWD/TYPE/
// PASV/PORT/CWD/CDUP/LIST/RETR over a single command connection, with an
// ephemeral PASV data channel per transfer.
package ftpserver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zdzhjx/netius/base"
	"github.com/zdzhjx/netius/connection"
	"github.com/zdzhjx/netius/parser/ftp"
	"github.com/zdzhjx/netius/reactor"
	"github.com/zdzhjx/netius/utils/bandwidth"
)

const (
	modeASCII  = "ascii"
	modeBinary = "binary"
)

var capabilities = []string{"PASV", "UTF8"}

// ftpConn holds one command connection's session state: credentials,
// working directory, transfer mode and the deferred-until-data-channel
// work armed by LIST/RETR.
type ftpConn struct {
	conn    *connection.Connection
	parser  *ftp.Parser
	re      *reactor.Reactor
	limiter *bandwidth.Limiter

	container *base.ContainerServer
	dataPeer  *connection.Connection

	basePath string
	host     string

	cwd      string
	username string
	password string
	mode     string

	remaining string // "", "list", "retr"
	retrPath  string

	recorder SessionRecorder
	remoteIP string
}

func newFTPConn(conn *connection.Connection, re *reactor.Reactor, limiter *bandwidth.Limiter, basePath, host string, recorder SessionRecorder) *ftpConn {
	remoteIP := ""
	if addr := conn.RemoteAddr(); addr != nil {
		remoteIP = addr.IP.String()
	}

	c := &ftpConn{
		conn:      conn,
		parser:    ftp.New(),
		re:        re,
		limiter:   limiter,
		container: base.NewContainerServer(),
		basePath:  basePath,
		host:      host,
		cwd:       "/",
		username:  "anonymous",
		password:  "anonymous",
		mode:      modeASCII,
		recorder:  recorder,
		remoteIP:  remoteIP,
	}

	c.parser.Bind("on_line", func(args ...interface{}) {
		c.dispatch(args[0].(string), args[1].(string))
	})
	conn.Bind("data", func(args ...interface{}) {
		c.parser.Parse(args[1].([]byte))
	})
	conn.Bind("close", func(args ...interface{}) {
		c.container.CloseAll()
	})

	return c
}

func (c *ftpConn) ready() {
	c.sendFTP(220, fmt.Sprintf("%s FTP Server ready", c.host))
}

func (c *ftpConn) ok() { c.sendFTP(200, "ok") }

func (c *ftpConn) sendFTP(code int, message string) {
	c.conn.Send([]byte(fmt.Sprintf("%d %s\r\n", code, message)), false, nil)
}

func (c *ftpConn) sendFTPLines(code int, lines []string) {
	if len(lines) == 0 {
		c.sendFTP(code, "")
		return
	}
	var b strings.Builder
	for _, l := range lines[:len(lines)-1] {
		fmt.Fprintf(&b, "%d-%s\r\n", code, l)
	}
	fmt.Fprintf(&b, "%d %s\r\n", code, lines[len(lines)-1])
	c.conn.Send([]byte(b.String()), false, nil)
}

type handlerFunc func(*ftpConn, string)

// dispatchTable maps a lowercased command verb directly to its handler,
// replacing the name-concatenation-plus-reflection the original FTP
// server used to resolve "on_" + cmd.
var dispatchTable = map[string]handlerFunc{
	"user": (*ftpConn).onUser,
	"pass": (*ftpConn).onPass,
	"syst": (*ftpConn).onSyst,
	"feat": (*ftpConn).onFeat,
	"opts": (*ftpConn).onOpts,
	"pwd":  (*ftpConn).onPwd,
	"type": (*ftpConn).onType,
	"pasv": (*ftpConn).onPasv,
	"port": (*ftpConn).onPort,
	"cdup": (*ftpConn).onCdup,
	"cwd":  (*ftpConn).onCwd,
	"list": (*ftpConn).onList,
	"retr": (*ftpConn).onRetr,
}

func (c *ftpConn) dispatch(cmd, arg string) {
	handler, ok := dispatchTable[cmd]
	if !ok {
		c.sendFTP(502, fmt.Sprintf("command not implemented: %s", strings.ToUpper(cmd)))
		return
	}
	handler(c, arg)
	if c.recorder != nil {
		c.recorder(c.username, c.remoteIP, strings.ToUpper(cmd), arg)
	}
}

func (c *ftpConn) onUser(arg string) { c.username = arg; c.ok() }
func (c *ftpConn) onPass(arg string) { c.password = arg; c.ok() }
func (c *ftpConn) onSyst(string)     { c.sendFTP(215, "UNIX Type: L8") }

func (c *ftpConn) onFeat(string) {
	lines := append([]string{"features"}, capabilities...)
	lines = append(lines, "end")
	c.sendFTPLines(211, lines)
}

func (c *ftpConn) onOpts(string) { c.ok() }
func (c *ftpConn) onPwd(string)  { c.sendFTP(257, fmt.Sprintf("%q", c.cwd)) }

func (c *ftpConn) onType(arg string) {
	if strings.EqualFold(arg, "a") {
		c.mode = modeASCII
	} else {
		c.mode = modeBinary
	}
	c.ok()
}

func (c *ftpConn) onPort(string) { c.ok() }
func (c *ftpConn) onCdup(string) { c.cwd = "/"; c.ok() }
func (c *ftpConn) onCwd(arg string) {
	c.cwd = filepath.Clean("/" + arg)
	c.ok()
}

func (c *ftpConn) onList(string) {
	c.remaining = "list"
	if c.dataPeer != nil {
		c.flushFTP()
	}
}

func (c *ftpConn) onRetr(arg string) {
	if _, err := os.Stat(filepath.Join(c.basePath, c.cwd, arg)); err != nil {
		c.sendFTP(550, fmt.Sprintf("%s: no such file", arg))
		return
	}
	c.remaining = "retr"
	c.retrPath = arg
	if c.dataPeer != nil {
		c.flushFTP()
	}
}

func (c *ftpConn) onPasv(string) {
	c.closeDataPeer()

	srv, err := base.ListenStream(c.re, "tcp", "127.0.0.1:0", c.limiter, c.onDataAccept)
	if err != nil {
		c.sendFTP(425, "cannot open data connection")
		return
	}
	c.container.Adopt("pasv", srv)

	port := srv.Addr().Port
	p1 := (port >> 8) & 0xff
	p2 := port & 0xff
	c.sendFTP(227, fmt.Sprintf("entered passive mode (127,0,0,1,%d,%d)", p1, p2))
}

// onDataAccept invokes flush_ftp on its command connection on first
// accepted data peer; a second connection to the same PASV listener is
// refused.
func (c *ftpConn) onDataAccept(conn *connection.Connection) {
	if c.dataPeer != nil {
		conn.Close()
		return
	}
	c.dataPeer = conn
	c.flushFTP()
}

func (c *ftpConn) flushFTP() {
	switch c.remaining {
	case "list":
		c.flushList()
	case "retr":
		c.flushRetr()
	}
	c.remaining = ""
}

func (c *ftpConn) flushList() {
	c.sendFTP(150, "directory list sending")

	full := filepath.Join(c.basePath, c.cwd)
	entries, err := os.ReadDir(full)
	var lines []string
	if err == nil {
		for _, e := range entries {
			info, statErr := e.Info()
			size := int64(0)
			if statErr == nil {
				size = info.Size()
			}
			lines = append(lines, fmt.Sprintf("-rwxr--r--    1 owner    group    %8d Jan  1 2026 %s", size, e.Name()))
		}
	}

	if c.dataPeer == nil {
		c.sendFTP(425, "no data connection")
		return
	}
	body := strings.Join(lines, "\r\n")
	if len(lines) > 0 {
		body += "\r\n"
	}
	c.dataPeer.Send([]byte(body), false, func(*connection.Connection, error) {
		c.closeDataPeer()
		c.sendFTP(226, "directory send ok")
	})
}

func (c *ftpConn) flushRetr() {
	full := filepath.Join(c.basePath, c.cwd, c.retrPath)
	data, err := os.ReadFile(full)
	if err != nil {
		c.sendFTP(550, fmt.Sprintf("%s: no such file", c.retrPath))
		c.closeDataPeer()
		return
	}

	c.sendFTP(150, "file status ok, about to open data connection")
	if c.dataPeer == nil {
		c.sendFTP(425, "no data connection")
		return
	}
	c.dataPeer.Send(data, false, func(*connection.Connection, error) {
		c.closeDataPeer()
		c.sendFTP(226, "file send ok")
	})
}

func (c *ftpConn) closeDataPeer() {
	if c.dataPeer != nil {
		c.dataPeer.Close()
		c.dataPeer = nil
	}
	c.container.Release("pasv")
}
