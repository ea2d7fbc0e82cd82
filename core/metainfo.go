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
package core

import (
	"bytes"
	"fmt"
	"io"
	"math"

	bencode "github.com/jackpal/bencode-go"
)

// BlockSize is the fixed block granularity used for piece block requests,
// per spec.md §4.7 / §6.
const BlockSize = 16384

// Info is the bencoded "info" dictionary of a torrent.
type Info struct {
	PieceLength int64  `bencode:"piece length"`
	Pieces      string `bencode:"pieces"`
	Name        string `bencode:"name"`
	Length      int64  `bencode:"length"`
}

// MetaInfo is a parsed .torrent file, as bencode is explicitly an opaque,
// out-of-scope encoding per spec.md §1: this module calls
// github.com/jackpal/bencode-go rather than reimplementing bencode.
type MetaInfo struct {
	Info         Info     `bencode:"info"`
	Announce     string   `bencode:"announce"`
	AnnounceList [][]string `bencode:"announce-list,omitempty"`

	infoHash InfoHash
}

// ParseMetaInfo decodes a .torrent file's bencoded bytes.
func ParseMetaInfo(data []byte) (*MetaInfo, error) {
	var mi MetaInfo
	if err := bencode.Unmarshal(bytes.NewReader(data), &mi); err != nil {
		return nil, fmt.Errorf("bdecode metainfo: %s", err)
	}

	// info_hash is computed over exactly the bencoded "info" sub-dictionary,
	// so it is re-encoded in isolation rather than derived from the
	// top-level struct.
	var raw struct {
		Info map[string]interface{} `bencode:"info"`
	}
	if err := bencode.Unmarshal(bytes.NewReader(data), &raw); err != nil {
		return nil, fmt.Errorf("bdecode info dict: %s", err)
	}
	var buf bytes.Buffer
	if err := bencode.Marshal(&buf, raw.Info); err != nil {
		return nil, fmt.Errorf("bencode info dict: %s", err)
	}
	mi.infoHash = NewInfoHashFromBytes(buf.Bytes())

	if len(mi.AnnounceList) == 0 && mi.Announce != "" {
		mi.AnnounceList = [][]string{{mi.Announce}}
	}

	return &mi, nil
}

// WriteTo bencodes mi back out, mirroring ParseMetaInfo's shape.
func (mi *MetaInfo) WriteTo(w io.Writer) error {
	return bencode.Marshal(w, mi)
}

// InfoHash returns the torrent's identifying SHA-1 hash.
func (mi *MetaInfo) InfoHash() InfoHash {
	return mi.infoHash
}

// NumPieces returns the number of pieces described by the torrent.
func (mi *MetaInfo) NumPieces() int {
	return len(mi.Info.Pieces) / 20
}

// PieceHash returns the expected SHA-1 hash of piece i, as pulled out of
// the concatenated 20-byte-per-piece "pieces" string.
func (mi *MetaInfo) PieceHash(i int) (PieceDigest, error) {
	if i < 0 || i >= mi.NumPieces() {
		return "", fmt.Errorf("piece index %d out of range [0, %d)", i, mi.NumPieces())
	}
	raw := []byte(mi.Info.Pieces[i*20 : i*20+20])
	return PieceDigestFromRaw(raw), nil
}

// PieceLength returns the length in bytes of piece i (the last piece may be
// shorter than Info.PieceLength).
func (mi *MetaInfo) PieceLength(i int) int64 {
	n := mi.NumPieces()
	if i < 0 || i >= n {
		return 0
	}
	if i == n-1 {
		return mi.Info.Length - mi.Info.PieceLength*int64(n-1)
	}
	return mi.Info.PieceLength
}

// BlocksPerPiece returns B, the number of fixed-size blocks a single piece
// is divided into, per spec.md §3 (ceil(piece_length / BlockSize)).
func (mi *MetaInfo) BlocksPerPiece() int {
	return int(math.Ceil(float64(mi.Info.PieceLength) / float64(BlockSize)))
}

// TotalLength returns the sum of all piece lengths, used for pre-allocating
// the destination file (spec.md §9(b)): Σ piece_length·pieces.
func (mi *MetaInfo) TotalLength() int64 {
	return mi.Info.Length
}
