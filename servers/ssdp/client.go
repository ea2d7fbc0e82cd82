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

// Package ssdp implements an SSDP discovery client: M-SEARCH requests sent
// to the multicast discovery address, with responses parsed as HTTP/1.1
// responses and re-exposed as a header map.
package ssdp

import (
	"fmt"
	"net"
	"strings"

	"github.com/zdzhjx/netius/base"
	"github.com/zdzhjx/netius/observable"
	"github.com/zdzhjx/netius/parser/http"
	"github.com/zdzhjx/netius/reactor"
)

const (
	multicastHost = "239.255.255.250"
	multicastPort = 1900
	multicastTTL  = 4
)

// HeadersHandler fires once per SSDP response, with its headers lowercased
// the way the HTTP parser normalizes them.
type HeadersHandler func(headers map[string]string)

// Client sends M-SEARCH discovery requests over multicast UDP and parses
// the unicast responses that come back on the same socket.
type Client struct {
	*observable.Observable

	datagram *base.DatagramClient
}

// New binds an ephemeral UDP socket for SSDP discovery. Responses fire the
// "headers" event on the returned Client.
func New(re *reactor.Reactor) (*Client, error) {
	c := &Client{Observable: observable.New()}

	d, err := base.NewDatagramClient(re, "0.0.0.0:0", c.onData)
	if err != nil {
		return nil, err
	}
	if err := d.SetMulticastTTL(multicastTTL); err != nil {
		d.Close()
		return nil, err
	}
	c.datagram = d
	return c, nil
}

// Close releases the underlying socket.
func (c *Client) Close() error { return c.datagram.Close() }

// Discover sends an M-SEARCH request for target (e.g.
// "urn:schemas-upnp-org:device:InternetGatewayDevice:1") with the default
// 3 second MX window, per original_source's SSDPClient.discover.
func (c *Client) Discover(target string) error {
	return c.Method("M-SEARCH", target, "ssdp:discover", 3)
}

// Method sends a raw SSDP request, mirroring the original's general
// "method" entry point that discover is built on top of.
func (c *Client) Method(method, target, namespace string, mx int) error {
	addr := &net.UDPAddr{IP: net.ParseIP(multicastHost), Port: multicastPort}
	return c.datagram.SendTo(buildMSearch(method, target, namespace, mx), addr)
}

// buildMSearch renders the M-SEARCH request line and headers exactly as
// original_source's SSDPClient.method does: HOST, MAN, MX, ST, in that
// order, each line CRLF-terminated with a trailing blank line.
func buildMSearch(method, target, namespace string, mx int) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "%s * HTTP/1.1\r\n", method)
	fmt.Fprintf(&b, "HOST: %s:%d\r\n", multicastHost, multicastPort)
	fmt.Fprintf(&b, "MAN: \"%s\"\r\n", namespace)
	fmt.Fprintf(&b, "MX: %d\r\n", mx)
	fmt.Fprintf(&b, "ST: %s\r\n", target)
	b.WriteString("\r\n")
	return []byte(b.String())
}

func (c *Client) onData(data []byte, from *net.UDPAddr) {
	p := http.New(http.Response, false)
	p.Bind("on_headers", func(...interface{}) {
		c.Trigger("headers", p.Headers())
	})
	p.Parse(data)
}
