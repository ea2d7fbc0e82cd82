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
	"crypto/sha1"

	digest "github.com/opencontainers/go-digest"
)

// SHA1 is not one of go-digest's built-in algorithms (SHA256/384/512), but
// BitTorrent piece hashes are SHA-1, so the algorithm is registered here.
const SHA1 = digest.Algorithm("sha1")

func init() {
	digest.RegisterAlgorithm(SHA1, sha1.New)
}

// PieceDigest is the SHA-1 hash of one torrent piece, represented in the
// "<algorithm>:<hex>" convention (e.g. "sha1:da39a3ee5e6b4b0d...").
type PieceDigest = digest.Digest

// PieceDigestFromBytes hashes the raw bytes of a piece.
func PieceDigestFromBytes(b []byte) PieceDigest {
	sum := sha1.Sum(b)
	return digest.NewDigestFromBytes(SHA1, sum[:])
}

// PieceDigestFromRaw wraps a raw 20-byte SHA-1 hash pulled out of a
// torrent's "info.pieces" field as a PieceDigest.
func PieceDigestFromRaw(raw []byte) PieceDigest {
	return digest.NewDigestFromBytes(SHA1, raw)
}
