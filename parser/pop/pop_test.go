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
package pop

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSingleLineCommand(t *testing.T) {
	require := require.New(t)

	p := New()
	var got []string
	p.Bind("on_line", func(args ...interface{}) { got = append(got, args[0].(string)) })

	n, err := p.Parse([]byte("USER bob\r\n"))
	require.NoError(err)
	require.Equal(len("USER bob\r\n"), n)
	require.Equal([]string{"USER bob"}, got)
}

func TestMultilineResponseTerminatesOnLoneDot(t *testing.T) {
	require := require.New(t)

	p := New()
	p.StartMultiline()

	var body []byte
	p.Bind("on_data", func(args ...interface{}) { body = args[0].([]byte) })

	msg := []byte("+OK 2 messages\r\nfrom: a\r\nfrom: b\r\n.\r\n")
	_, err := p.Parse(msg)
	require.NoError(err)
	require.False(p.InMultiline())
	require.Equal("+OK 2 messages\r\nfrom: a\r\nfrom: b\r\n", string(body))
}

func TestMultilineUndoesByteStuffing(t *testing.T) {
	require := require.New(t)

	p := New()
	p.StartMultiline()

	var body []byte
	p.Bind("on_data", func(args ...interface{}) { body = args[0].([]byte) })

	// A literal line starting with "." is sent doubled on the wire.
	msg := []byte("..starts with a dot\r\n.\r\n")
	_, err := p.Parse(msg)
	require.NoError(err)
	require.Equal(".starts with a dot\r\n", string(body))
}

func TestMultilineSplitAcrossCalls(t *testing.T) {
	require := require.New(t)

	p := New()
	p.StartMultiline()

	var body []byte
	p.Bind("on_data", func(args ...interface{}) { body = args[0].([]byte) })

	n1, err := p.Parse([]byte("line one\r\nli"))
	require.NoError(err)
	require.Equal(len("line one\r\n"), n1)
	require.Nil(body)

	n2, err := p.Parse([]byte("ne two\r\n.\r\n"))
	require.NoError(err)
	require.Equal(len("ne two\r\n.\r\n"), n2)
	require.Equal("line one\r\nline two\r\n", string(body))
}

func TestClearResetsMultilineState(t *testing.T) {
	require := require.New(t)

	p := New()
	p.StartMultiline()
	_, err := p.Parse([]byte("partial"))
	require.NoError(err)

	p.Clear()
	require.False(p.InMultiline())
}
