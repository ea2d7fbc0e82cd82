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
package torrent

import (
	"encoding/binary"

	"github.com/zdzhjx/netius/core"
)

const pstr = "BitTorrent protocol"

// MessageID identifies a peer-wire message type, per spec.md §6.
type MessageID byte

// The standard BitTorrent peer-wire message IDs.
const (
	MsgChoke         MessageID = 0
	MsgUnchoke       MessageID = 1
	MsgInterested    MessageID = 2
	MsgNotInterested MessageID = 3
	MsgHave          MessageID = 4
	MsgBitfield      MessageID = 5
	MsgRequest       MessageID = 6
	MsgPiece         MessageID = 7
	MsgCancel        MessageID = 8
)

// Handshake is the fixed 68-byte peer-wire handshake.
type Handshake struct {
	InfoHash core.InfoHash
	PeerID   core.PeerID
}

// Encode serializes the handshake: 19-byte pstr, 8 reserved bytes, 20-byte
// info_hash, 20-byte peer_id.
func (h Handshake) Encode() []byte {
	out := make([]byte, 0, 68)
	out = append(out, byte(len(pstr)))
	out = append(out, pstr...)
	out = append(out, make([]byte, 8)...)
	out = append(out, h.InfoHash.Bytes()...)
	out = append(out, h.PeerID.Bytes()...)
	return out
}

// DecodeHandshake reads a handshake from data, returning the consumed
// byte count. It returns (nil, 0, nil) when data does not yet hold the
// whole handshake (68 bytes with the standard protocol string),
// signalling "need more data" without treating it as malformed input.
func DecodeHandshake(data []byte) (*Handshake, int, error) {
	if len(data) < 1 {
		return nil, 0, nil
	}
	plen := int(data[0])
	total := 1 + plen + 8 + 20 + 20
	if len(data) < total {
		return nil, 0, nil
	}
	if string(data[1:1+plen]) != pstr {
		return nil, 0, core.NewParserError("unexpected protocol string %q", string(data[1:1+plen]))
	}

	infoHashStart := 1 + plen + 8
	peerIDStart := infoHashStart + 20

	var infoHash core.InfoHash
	copy(infoHash[:], data[infoHashStart:peerIDStart])
	peerID, err := core.NewPeerIDFromBytes(data[peerIDStart : peerIDStart+20])
	if err != nil {
		return nil, 0, err
	}

	return &Handshake{InfoHash: infoHash, PeerID: peerID}, total, nil
}

// Message is a single length-prefixed peer-wire message. A keep-alive is
// represented as a Message with length 0 and no ID (HasID == false).
type Message struct {
	HasID   bool
	ID      MessageID
	Payload []byte
}

// Encode serializes m as a 4-byte big-endian length prefix followed by the
// id byte (if any) and the payload.
func (m Message) Encode() []byte {
	if !m.HasID {
		return []byte{0, 0, 0, 0}
	}
	length := 1 + len(m.Payload)
	out := make([]byte, 4, 4+length)
	binary.BigEndian.PutUint32(out, uint32(length))
	out = append(out, byte(m.ID))
	out = append(out, m.Payload...)
	return out
}

// DecodeMessage reads one length-prefixed message from data, returning the
// message and the number of bytes consumed. It returns (nil, 0, nil) when
// the buffer doesn't yet hold a complete message ("need more data").
func DecodeMessage(data []byte) (*Message, int, error) {
	if len(data) < 4 {
		return nil, 0, nil
	}
	length := binary.BigEndian.Uint32(data[:4])
	if length == 0 {
		return &Message{HasID: false}, 4, nil
	}
	total := 4 + int(length)
	if len(data) < total {
		return nil, 0, nil
	}
	id := MessageID(data[4])
	payload := append([]byte(nil), data[5:total]...)
	return &Message{HasID: true, ID: id, Payload: payload}, total, nil
}

// EncodeRequest builds a REQUEST message for the given piece, byte offset
// and length.
func EncodeRequest(piece, offset, length int) Message {
	payload := make([]byte, 12)
	binary.BigEndian.PutUint32(payload[0:4], uint32(piece))
	binary.BigEndian.PutUint32(payload[4:8], uint32(offset))
	binary.BigEndian.PutUint32(payload[8:12], uint32(length))
	return Message{HasID: true, ID: MsgRequest, Payload: payload}
}

// DecodeRequest parses a REQUEST/CANCEL message's payload.
func DecodeRequest(payload []byte) (piece, offset, length int, err error) {
	if len(payload) != 12 {
		return 0, 0, 0, core.NewParserError("request payload length %d != 12", len(payload))
	}
	piece = int(binary.BigEndian.Uint32(payload[0:4]))
	offset = int(binary.BigEndian.Uint32(payload[4:8]))
	length = int(binary.BigEndian.Uint32(payload[8:12]))
	return piece, offset, length, nil
}

// EncodePiece builds a PIECE message carrying block data for piece at
// offset.
func EncodePiece(piece, offset int, data []byte) Message {
	payload := make([]byte, 8+len(data))
	binary.BigEndian.PutUint32(payload[0:4], uint32(piece))
	binary.BigEndian.PutUint32(payload[4:8], uint32(offset))
	copy(payload[8:], data)
	return Message{HasID: true, ID: MsgPiece, Payload: payload}
}

// DecodePiece parses a PIECE message's payload into its piece index, byte
// offset and block data.
func DecodePiece(payload []byte) (piece, offset int, data []byte, err error) {
	if len(payload) < 8 {
		return 0, 0, nil, core.NewParserError("piece payload length %d < 8", len(payload))
	}
	piece = int(binary.BigEndian.Uint32(payload[0:4]))
	offset = int(binary.BigEndian.Uint32(payload[4:8]))
	data = payload[8:]
	return piece, offset, data, nil
}

// EncodeHave builds a HAVE message announcing a completed piece.
func EncodeHave(piece int) Message {
	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, uint32(piece))
	return Message{HasID: true, ID: MsgHave, Payload: payload}
}

// DecodeHave parses a HAVE message's payload.
func DecodeHave(payload []byte) (int, error) {
	if len(payload) != 4 {
		return 0, core.NewParserError("have payload length %d != 4", len(payload))
	}
	return int(binary.BigEndian.Uint32(payload)), nil
}
