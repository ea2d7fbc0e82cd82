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
package main

import (
	"fmt"
	"net"
	"time"

	"github.com/willf/bitset"

	"github.com/zdzhjx/netius/core"
	"github.com/zdzhjx/netius/torrent"
)

// peerStream reassembles length-prefixed peer-wire messages out of a
// net.Conn's byte stream, since torrent.DecodeMessage only ever sees
// whatever has arrived so far and reports "need more" as (nil, 0, nil).
type peerStream struct {
	conn net.Conn
	buf  []byte
}

func (s *peerStream) readHandshake() (*torrent.Handshake, error) {
	for {
		hs, n, err := torrent.DecodeHandshake(s.buf)
		if err != nil {
			return nil, err
		}
		if hs != nil {
			s.buf = s.buf[n:]
			return hs, nil
		}
		if err := s.fill(); err != nil {
			return nil, err
		}
	}
}

func (s *peerStream) readMessage() (*torrent.Message, error) {
	for {
		msg, n, err := torrent.DecodeMessage(s.buf)
		if err != nil {
			return nil, err
		}
		if msg != nil {
			s.buf = s.buf[n:]
			return msg, nil
		}
		if err := s.fill(); err != nil {
			return nil, err
		}
	}
}

func (s *peerStream) fill() error {
	chunk := make([]byte, 16*1024)
	n, err := s.conn.Read(chunk)
	if err != nil {
		return err
	}
	s.buf = append(s.buf, chunk[:n]...)
	return nil
}

// downloadFromPeer fetches every piece of task from a single peer over a
// plain blocking net.Conn: a CLI one-shot fetch has no need for the
// reactor's non-blocking multiplexing, which exists to serve many
// concurrent connections at once. It assumes the peer is a full seed,
// skipping the BITFIELD/HAVE bookkeeping a long-running swarm client
// would need to track partial peers.
func downloadFromPeer(mi *core.MetaInfo, peer torrent.Peer, peerID core.PeerID, task *torrent.TorrentTask, timeout time.Duration) error {
	conn, err := net.DialTimeout("tcp", peer.String(), timeout)
	if err != nil {
		return fmt.Errorf("dial %s: %s", peer, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(timeout))

	handshake := torrent.Handshake{InfoHash: mi.InfoHash(), PeerID: peerID}
	if _, err := conn.Write(handshake.Encode()); err != nil {
		return fmt.Errorf("send handshake: %s", err)
	}

	stream := &peerStream{conn: conn}
	reply, err := stream.readHandshake()
	if err != nil {
		return fmt.Errorf("read handshake: %s", err)
	}
	if reply.InfoHash != mi.InfoHash() {
		return fmt.Errorf("peer %s handshake info hash mismatch", peer)
	}

	interested := torrent.Message{HasID: true, ID: torrent.MsgInterested}
	if _, err := conn.Write(interested.Encode()); err != nil {
		return fmt.Errorf("send interested: %s", err)
	}

	everyPiece := bitset.New(uint(mi.NumPieces()))
	for i := 0; i < mi.NumPieces(); i++ {
		everyPiece.Set(uint(i))
	}

	var unchoked bool
	for !task.Complete() {
		msg, err := stream.readMessage()
		if err != nil {
			return fmt.Errorf("read peer-wire message: %s", err)
		}
		if !msg.HasID {
			continue // keep-alive
		}

		switch msg.ID {
		case torrent.MsgUnchoke:
			unchoked = true
		case torrent.MsgChoke:
			unchoked = false
		case torrent.MsgPiece:
			piece, offset, data, err := torrent.DecodePiece(msg.Payload)
			if err != nil {
				return fmt.Errorf("decode piece message: %s", err)
			}
			if err := task.SetData(piece, offset, data); err != nil {
				return fmt.Errorf("store block: %s", err)
			}
		}

		if unchoked {
			if err := requestPendingBlocks(conn, mi, task, everyPiece); err != nil {
				return err
			}
		}
		conn.SetDeadline(time.Now().Add(timeout))
	}
	return nil
}

// requestPendingBlocks keeps a small pipeline of outstanding block
// requests in flight rather than waiting for each PIECE reply in turn.
const maxPipelinedRequests = 8

func requestPendingBlocks(conn net.Conn, mi *core.MetaInfo, task *torrent.TorrentTask, peerHas *bitset.BitSet) error {
	for i := 0; i < maxPipelinedRequests; i++ {
		piece, offset, ok := task.PopBlock(peerHas)
		if !ok {
			return nil
		}
		length := blockLength(mi, piece, offset)
		req := torrent.EncodeRequest(piece, offset, length)
		if _, err := conn.Write(req.Encode()); err != nil {
			return fmt.Errorf("send request for piece %d offset %d: %s", piece, offset, err)
		}
	}
	return nil
}

func blockLength(mi *core.MetaInfo, piece, offset int) int {
	remaining := mi.PieceLength(piece) - int64(offset)
	if remaining > core.BlockSize {
		return core.BlockSize
	}
	return int(remaining)
}
