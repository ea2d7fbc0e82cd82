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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zdzhjx/netius/core"
)

func TestHandshakeRoundTrip(t *testing.T) {
	require := require.New(t)

	var infoHash core.InfoHash
	copy(infoHash[:], []byte("01234567890123456789"))
	peerID, err := core.RandomPeerID()
	require.NoError(err)

	hs := Handshake{InfoHash: infoHash, PeerID: peerID}
	encoded := hs.Encode()
	require.Len(encoded, 68)
	require.Equal(byte(19), encoded[0])
	require.Equal("BitTorrent protocol", string(encoded[1:20]))

	got, n, err := DecodeHandshake(encoded)
	require.NoError(err)
	require.Equal(68, n)
	require.Equal(infoHash, got.InfoHash)
	require.Equal(peerID, got.PeerID)
}

func TestDecodeHandshakeNeedsMoreData(t *testing.T) {
	require := require.New(t)

	hs := Handshake{}
	encoded := hs.Encode()

	got, n, err := DecodeHandshake(encoded[:30])
	require.NoError(err)
	require.Nil(got)
	require.Equal(0, n)
}

func TestDecodeHandshakeRejectsWrongProtocolString(t *testing.T) {
	require := require.New(t)

	bad := append([]byte{19}, []byte("not the right proto!")...)
	bad = append(bad, make([]byte, 48)...)

	_, _, err := DecodeHandshake(bad)
	require.Error(err)
}

func TestMessageEncodeDecodeRoundTrip(t *testing.T) {
	require := require.New(t)

	msg := EncodeRequest(3, 16384, 16384)
	got, n, err := DecodeMessage(msg.Encode())
	require.NoError(err)
	require.Equal(len(msg.Encode()), n)
	require.True(got.HasID)
	require.Equal(MsgRequest, got.ID)

	piece, offset, length, err := DecodeRequest(got.Payload)
	require.NoError(err)
	require.Equal(3, piece)
	require.Equal(16384, offset)
	require.Equal(16384, length)
}

func TestKeepAliveRoundTrip(t *testing.T) {
	require := require.New(t)

	msg := Message{HasID: false}
	encoded := msg.Encode()
	require.Equal([]byte{0, 0, 0, 0}, encoded)

	got, n, err := DecodeMessage(encoded)
	require.NoError(err)
	require.Equal(4, n)
	require.False(got.HasID)
}

func TestDecodeMessageNeedsMoreData(t *testing.T) {
	require := require.New(t)

	msg := EncodeRequest(1, 0, 100)
	full := msg.Encode()

	got, n, err := DecodeMessage(full[:len(full)-1])
	require.NoError(err)
	require.Nil(got)
	require.Equal(0, n)
}

func TestPieceMessageRoundTrip(t *testing.T) {
	require := require.New(t)

	data := []byte("block data payload")
	msg := EncodePiece(2, 16384, data)

	got, _, err := DecodeMessage(msg.Encode())
	require.NoError(err)

	piece, offset, block, err := DecodePiece(got.Payload)
	require.NoError(err)
	require.Equal(2, piece)
	require.Equal(16384, offset)
	require.Equal(data, block)
}

func TestHaveMessageRoundTrip(t *testing.T) {
	require := require.New(t)

	msg := EncodeHave(7)
	got, _, err := DecodeMessage(msg.Encode())
	require.NoError(err)

	piece, err := DecodeHave(got.Payload)
	require.NoError(err)
	require.Equal(7, piece)
}
