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

// Package ws implements WebSocket frame encoding and decoding for
// unfragmented text frames, per spec.md §4.6.
package ws

import (
	"encoding/binary"

	"github.com/zdzhjx/netius/core"
)

const (
	finBit    = 0x80
	opcodeTxt = 0x1
	maskBit   = 0x80
)

// EncodeWS produces an unfragmented, unmasked text frame carrying payload.
func EncodeWS(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+10)
	out = append(out, finBit|opcodeTxt)

	n := len(payload)
	switch {
	case n <= 125:
		out = append(out, byte(n))
	case n <= 0xFFFF:
		out = append(out, 126)
		var l [2]byte
		binary.BigEndian.PutUint16(l[:], uint16(n))
		out = append(out, l[:]...)
	default:
		out = append(out, 127)
		var l [8]byte
		binary.BigEndian.PutUint64(l[:], uint64(n))
		out = append(out, l[:]...)
	}

	out = append(out, payload...)
	return out
}

// ErrNeedMore indicates the frame is incomplete; the caller must invoke
// DecodeWS again once more bytes have arrived.
var ErrNeedMore = core.NewDataError("websocket frame incomplete")

// DecodeWS reads one masked client-to-server frame from data, returning the
// unmasked payload and the unconsumed remainder. FIN and opcode bits are
// read but not interpreted by this layer.
func DecodeWS(data []byte) (payload []byte, rest []byte, err error) {
	if len(data) < 2 {
		return nil, nil, ErrNeedMore
	}

	second := data[1]
	masked := second&maskBit != 0
	lengthField := int64(second &^ maskBit)

	offset := 2
	var length int64

	switch {
	case lengthField <= 125:
		length = lengthField
	case lengthField == 126:
		if len(data) < offset+2 {
			return nil, nil, ErrNeedMore
		}
		length = int64(binary.BigEndian.Uint16(data[offset : offset+2]))
		offset += 2
	default:
		if len(data) < offset+8 {
			return nil, nil, ErrNeedMore
		}
		length = int64(binary.BigEndian.Uint64(data[offset : offset+8]))
		offset += 8
	}

	var mask [4]byte
	if masked {
		if len(data) < offset+4 {
			return nil, nil, ErrNeedMore
		}
		copy(mask[:], data[offset:offset+4])
		offset += 4
	}

	if int64(len(data)-offset) < length {
		return nil, nil, ErrNeedMore
	}

	raw := data[offset : int64(offset)+length]
	out := make([]byte, length)
	if masked {
		for i := range out {
			out[i] = raw[i] ^ mask[i%4]
		}
	} else {
		copy(out, raw)
	}

	return out, data[int64(offset)+length:], nil
}
