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
package http

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func feedAll(t *testing.T, p *Parser, chunks ...[]byte) {
	t.Helper()
	for _, c := range chunks {
		remaining := c
		for len(remaining) > 0 {
			n, err := p.Parse(remaining)
			require.NoError(t, err)
			if n == 0 {
				break
			}
			remaining = remaining[n:]
		}
	}
}

func TestParseRequestLineAndHeadersOneShot(t *testing.T) {
	require := require.New(t)

	p := New(Request, true)
	var gotLine, gotHeaders, gotData bool
	p.Bind("on_line", func(args ...interface{}) { gotLine = true })
	p.Bind("on_headers", func(args ...interface{}) { gotHeaders = true })
	p.Bind("on_data", func(args ...interface{}) { gotData = true })

	msg := []byte("GET /path?x=1 HTTP/1.1\r\nHost: example.com\r\n\r\n")
	n, err := p.Parse(msg)
	require.NoError(err)
	require.Equal(len(msg), n)

	require.True(gotLine)
	require.True(gotHeaders)
	require.True(gotData)
	require.Equal("get", p.Method)
	require.Equal("/path", p.GetPath())
	require.Equal("x=1", p.GetQuery())
	require.Equal(HTTP11, p.Version)
	require.Equal("example.com", p.Headers()["host"])
	require.Equal(StateFinish, p.State())
}

func TestParsePostWithBodyOneShot(t *testing.T) {
	require := require.New(t)

	p := New(Request, true)
	body := []byte("field=value")
	msg := []byte("POST /submit HTTP/1.1\r\nHost: a\r\nContent-Length: 11\r\n\r\nfield=value")

	n, err := p.Parse(msg)
	require.NoError(err)
	require.Equal(len(msg), n)
	require.Equal(StateFinish, p.State())
	require.Equal(body, p.GetMessage())
}

func TestParseResponseLine(t *testing.T) {
	require := require.New(t)

	p := New(Response, true)
	msg := []byte("HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n")
	n, err := p.Parse(msg)
	require.NoError(err)
	require.Equal(len(msg), n)
	require.Equal(200, p.Code)
	require.Equal("OK", p.StatusRaw)
}

func TestParseSplitAcrossEveryByteBoundaryMatchesOneShot(t *testing.T) {
	require := require.New(t)

	msg := []byte("POST /submit HTTP/1.1\r\nHost: a\r\nContent-Length: 11\r\n\r\nfield=value")

	oneShot := New(Request, true)
	_, err := oneShot.Parse(msg)
	require.NoError(err)

	split := New(Request, true)
	for i := 0; i < len(msg); i++ {
		_, err := split.Parse(msg[i : i+1])
		require.NoError(err)
	}

	require.Equal(oneShot.GetMessage(), split.GetMessage())
	require.Equal(oneShot.Headers(), split.Headers())
	require.Equal(oneShot.State(), split.State())
	require.Equal(oneShot.GetPath(), split.GetPath())
}

func TestParseSplitAtCRLFBoundaryOfStatusLine(t *testing.T) {
	require := require.New(t)

	msg := []byte("GET / HTTP/1.1\r\nHost: a\r\n\r\n")
	// Split so the CRLF of the status line straddles two calls: one byte of
	// the "\r\n" lands in each chunk.
	idx := len("GET / HTTP/1.1\r")

	p := New(Request, true)
	feedAll(t, p, msg[:idx], msg[idx:])

	require.Equal(StateFinish, p.State())
	require.Equal("get", p.Method)
	require.Equal("a", p.Headers()["host"])
}

func TestParseSplitAtHeaderBlankLineBoundary(t *testing.T) {
	require := require.New(t)

	msg := []byte("GET / HTTP/1.1\r\nHost: a\r\n\r\n")
	idx := len("GET / HTTP/1.1\r\nHost: a\r\n\r")

	p := New(Request, true)
	feedAll(t, p, msg[:idx], msg[idx:])

	require.Equal(StateFinish, p.State())
	require.Equal("a", p.Headers()["host"])
}

func TestParseChunkedBody(t *testing.T) {
	require := require.New(t)

	p := New(Request, true)
	var chunkEvents int
	p.Bind("on_chunk", func(args ...interface{}) { chunkEvents++ })

	msg := []byte("POST /up HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n" +
		"5\r\nhello\r\n6\r\n world\r\n0\r\n\r\n")

	n, err := p.Parse(msg)
	require.NoError(err)
	require.Equal(len(msg), n)
	require.Equal(StateFinish, p.State())
	require.Equal([]byte("hello world"), p.GetMessage())
	require.Equal(2, chunkEvents)
}

func TestParseChunkedBodySplitAtChunkSizeCRLF(t *testing.T) {
	require := require.New(t)

	head := []byte("POST /up HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n")
	chunked := []byte("5\r\nhello\r\n0\r\n\r\n")
	msg := append(append([]byte(nil), head...), chunked...)

	// Split exactly inside the chunk-size line's CRLF.
	splitAt := len(head) + len("5\r")

	p := New(Request, true)
	feedAll(t, p, msg[:splitAt], msg[splitAt:])

	require.Equal(StateFinish, p.State())
	require.Equal([]byte("hello"), p.GetMessage())
}

func TestParseChunkedBodyByteByByte(t *testing.T) {
	require := require.New(t)

	msg := []byte("POST /up HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n" +
		"5\r\nhello\r\n6\r\n world\r\n0\r\n\r\n")

	p := New(Request, true)
	for i := 0; i < len(msg); i++ {
		_, err := p.Parse(msg[i : i+1])
		require.NoError(err)
	}

	require.Equal(StateFinish, p.State())
	require.Equal([]byte("hello world"), p.GetMessage())
}

func TestParseUnknownVersionMapsToHTTP10(t *testing.T) {
	require := require.New(t)

	p := New(Request, true)
	msg := []byte("GET / HTTP/2.0\r\nContent-Length: 0\r\n\r\n")
	_, err := p.Parse(msg)
	require.NoError(err)
	require.Equal(HTTP10, p.Version)
}

func TestParseGetFinishesImmediatelyEvenWithContentLength(t *testing.T) {
	require := require.New(t)

	p := New(Request, true)
	msg := []byte("GET / HTTP/1.1\r\nHost: a\r\nContent-Length: 5\r\n\r\n")
	n, err := p.Parse(msg)
	require.NoError(err)
	require.Equal(len(msg), n)
	require.Equal(StateFinish, p.State())
}

func TestParseLenientAcceptsLFOnlyHeaders(t *testing.T) {
	require := require.New(t)

	p := New(Request, true)
	p.Lenient = true
	msg := []byte("GET / HTTP/1.1\r\nHost: a\n\n")
	_, err := p.Parse(msg)
	require.NoError(err)
	require.Equal(StateFinish, p.State())
	require.Equal("a", p.Headers()["host"])
}

func TestParseMultipleMessagesReuseParserAfterClear(t *testing.T) {
	require := require.New(t)

	p := New(Request, true)
	first := []byte("GET /a HTTP/1.1\r\nHost: a\r\n\r\n")
	n, err := p.Parse(first)
	require.NoError(err)
	require.Equal(len(first), n)
	require.Equal(StateFinish, p.State())

	second := []byte("GET /b HTTP/1.1\r\nHost: b\r\n\r\n")
	n, err = p.Parse(second)
	require.NoError(err)
	require.Equal(len(second), n)
	require.Equal("/b", p.GetPath())
}

func TestParseNeedsMoreDataReturnsZero(t *testing.T) {
	require := require.New(t)

	p := New(Request, true)
	line := []byte("GET / HTTP/1.1\r\n")
	n, err := p.Parse(line)
	require.NoError(err)
	require.Equal(len(line), n)
	require.Equal(StateHeaders, p.State())

	// A header block without its terminating blank line is buffered inside
	// the parser, and the call reports 0 bytes consumed.
	n, err = p.Parse([]byte("Host: a\r\n"))
	require.NoError(err)
	require.Equal(0, n)
	require.Equal(StateHeaders, p.State())
}

func TestFinishByCloseCompletesUnknownLengthBody(t *testing.T) {
	require := require.New(t)

	p := New(Response, true)
	msg := []byte("HTTP/1.1 200 OK\r\n\r\nhello")
	_, err := p.Parse(msg)
	require.NoError(err)
	require.Equal(StateMessage, p.State())
	require.Equal([]byte("hello"), p.GetMessage())

	p.FinishByClose()
	require.Equal(StateFinish, p.State())
}
