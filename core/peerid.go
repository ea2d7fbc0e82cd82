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
	"crypto/rand"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"io"
)

// ErrInvalidPeerIDLength returns when a string peer id does not decode into
// exactly 20 bytes.
var ErrInvalidPeerIDLength = errors.New("peer id has invalid length")

// PeerID is a 20-byte BitTorrent peer identifier.
type PeerID [20]byte

// NewPeerIDFromHex parses a PeerID from a hexadecimal string encoding
// exactly 20 bytes.
func NewPeerIDFromHex(s string) (PeerID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return PeerID{}, err
	}
	if len(b) != 20 {
		return PeerID{}, ErrInvalidPeerIDLength
	}
	var p PeerID
	copy(p[:], b)
	return p, nil
}

// NewPeerIDFromBytes wraps a raw 20-byte peer id.
func NewPeerIDFromBytes(b []byte) (PeerID, error) {
	if len(b) != 20 {
		return PeerID{}, ErrInvalidPeerIDLength
	}
	var p PeerID
	copy(p[:], b)
	return p, nil
}

// String encodes the PeerID in hexadecimal notation.
func (p PeerID) String() string {
	return hex.EncodeToString(p[:])
}

// Bytes returns the raw 20 bytes of the peer id.
func (p PeerID) Bytes() []byte {
	return p[:]
}

// RandomPeerID returns a randomly generated PeerID, prefixed "-NE0100-" in
// the Azureus-style convention so peers can be attributed to this client.
func RandomPeerID() (PeerID, error) {
	var p PeerID
	copy(p[:8], []byte("-NE0100-"))
	if _, err := rand.Read(p[8:]); err != nil {
		return PeerID{}, err
	}
	return p, nil
}

// HashedPeerID derives a PeerID from the SHA-1 hash of s, used when a
// stable, address-derived identity is preferred over a random one.
func HashedPeerID(s string) (PeerID, error) {
	var p PeerID
	if s == "" {
		return p, errors.New("cannot generate peer id from empty string")
	}
	h := sha1.New()
	io.WriteString(h, s)
	copy(p[:], h.Sum(nil))
	return p, nil
}
