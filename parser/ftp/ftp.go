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

// Package ftp implements the FTP command-line parser: one command per
// CRLF-terminated line, split into a verb and an optional argument string,
// per spec.md §4.5.
package ftp

import (
	"bytes"
	"strings"

	"github.com/zdzhjx/netius/observable"
)

// Parser accumulates bytes across calls until a CRLF-terminated line is
// found, then fires on_line(cmd, args) with the lowercased command verb
// and the trimmed remainder.
type Parser struct {
	*observable.Observable

	acc []byte
}

// New creates an FTP line parser.
func New() *Parser {
	return &Parser{Observable: observable.New()}
}

// Clear discards any partially accumulated line.
func (p *Parser) Clear() {
	p.acc = p.acc[:0]
}

// Parse consumes data, firing on_line for each complete command found. It
// returns the number of bytes consumed; a straddling CRLF resolves over
// the combined accumulator across calls, matching the HTTP parser's
// boundary handling.
func (p *Parser) Parse(data []byte) (int, error) {
	p.acc = append(p.acc, data...)

	for {
		idx := bytes.Index(p.acc, []byte("\r\n"))
		if idx == -1 {
			break
		}
		line := string(p.acc[:idx])
		p.acc = append([]byte(nil), p.acc[idx+2:]...)

		cmd, args := splitLine(line)
		p.Trigger("on_line", cmd, args)
	}

	// Only bytes of this call's data are counted: bytes still sitting in
	// the accumulator waiting for a CRLF are not, and bytes carried over
	// from an earlier call are not counted when their line completes.
	consumed := len(data) - len(p.acc)
	if consumed < 0 {
		consumed = 0
	}
	return consumed, nil
}

func splitLine(line string) (cmd, args string) {
	line = strings.TrimRight(line, "\r\n")
	idx := strings.IndexByte(line, ' ')
	if idx == -1 {
		return strings.ToLower(line), ""
	}
	return strings.ToLower(line[:idx]), strings.TrimSpace(line[idx+1:])
}
