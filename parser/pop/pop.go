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

// Package pop implements the POP3 line parser: single CRLF-terminated
// command/status lines, plus the multi-line response mode used by LIST,
// RETR and TOP (terminated by a lone "." line, with leading-dot
// byte-stuffing undone), per spec.md §2's "POP parser is a peer of the
// FTP line parser".
package pop

import (
	"bytes"
	"strings"

	"github.com/zdzhjx/netius/observable"
)

// Parser accumulates bytes across calls until a CRLF-terminated line
// appears. Outside multiline mode each line fires on_line(line); inside
// multiline mode, lines accumulate into the response body until the
// terminator line is seen, at which point on_data(body) fires once.
type Parser struct {
	*observable.Observable

	acc       []byte
	multiline bool
	body      bytes.Buffer
}

// New creates a POP3 line parser.
func New() *Parser {
	return &Parser{Observable: observable.New()}
}

// StartMultiline switches the parser into multi-line response collection,
// to be called by the owner right after issuing a LIST/RETR/TOP command.
func (p *Parser) StartMultiline() {
	p.multiline = true
	p.body.Reset()
}

// InMultiline reports whether the parser is currently collecting a
// multi-line response body.
func (p *Parser) InMultiline() bool { return p.multiline }

// Clear discards any partially accumulated line and multiline state.
func (p *Parser) Clear() {
	p.acc = p.acc[:0]
	p.multiline = false
	p.body.Reset()
}

// Parse consumes data, firing on_line or on_data as complete lines are
// found. It returns the number of bytes consumed from data.
func (p *Parser) Parse(data []byte) (int, error) {
	p.acc = append(p.acc, data...)

	for {
		idx := bytes.Index(p.acc, []byte("\r\n"))
		if idx == -1 {
			break
		}
		line := string(p.acc[:idx])
		p.acc = append([]byte(nil), p.acc[idx+2:]...)

		if !p.multiline {
			p.Trigger("on_line", line)
			continue
		}

		if line == "." {
			p.multiline = false
			body := append([]byte(nil), p.body.Bytes()...)
			p.body.Reset()
			p.Trigger("on_data", body)
			continue
		}

		// Byte-stuffing: a line starting with ".." represents a literal
		// line starting with a single ".".
		unstuffed := line
		if strings.HasPrefix(line, "..") {
			unstuffed = line[1:]
		}
		p.body.WriteString(unstuffed)
		p.body.WriteString("\r\n")
	}

	consumed := len(data) - len(p.acc)
	if consumed < 0 {
		consumed = 0
	}
	return consumed, nil
}
