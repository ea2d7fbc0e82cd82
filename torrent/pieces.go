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

// Package torrent implements the BitTorrent piece-management engine: the
// two-level (piece, block) bitfield pair, the task that drives block
// requests and piece verification, tracker announces and the peer-wire
// protocol, per spec.md §4.7.
package torrent

import (
	"sync"

	"github.com/willf/bitset"
	"github.com/zdzhjx/netius/observable"
)

// Pieces tracks which (piece, block) pairs are still pending, as two
// levels of bits: bitfield[piece] is true while any block of that piece
// is still pending, mask[piece*blocksPerPiece+block] is true while that
// specific block is still pending. A TorrentTask keeps two independent
// Pieces values, "requested" (pending == not yet requested from a peer)
// and "stored" (pending == not yet written to disk), per spec.md §4.7.
type Pieces struct {
	*observable.Observable

	mu             sync.RWMutex
	bitfield       *bitset.BitSet
	mask           *bitset.BitSet
	numPieces      int
	blocksPerPiece int
	blockCounts    []int
}

// NewPieces builds a Pieces value with every existing block marked
// pending. blockCounts[i] is the number of real blocks in piece i (the
// last piece is typically shorter than blocksPerPiece); slots beyond a
// piece's real block count are left permanently false so they can never
// be chosen.
func NewPieces(numPieces, blocksPerPiece int, blockCounts []int) *Pieces {
	p := &Pieces{
		Observable:     observable.New(),
		bitfield:       bitset.New(uint(numPieces)),
		mask:           bitset.New(uint(numPieces * blocksPerPiece)),
		numPieces:      numPieces,
		blocksPerPiece: blocksPerPiece,
		blockCounts:    blockCounts,
	}
	for i := 0; i < numPieces; i++ {
		if blockCounts[i] == 0 {
			continue
		}
		p.bitfield.Set(uint(i))
		for b := 0; b < blockCounts[i]; b++ {
			p.mask.Set(uint(i*blocksPerPiece + b))
		}
	}
	return p
}

// NumPieces returns the total number of pieces tracked.
func (p *Pieces) NumPieces() int { return p.numPieces }

// BlocksPerPiece returns the block stride used to index mask.
func (p *Pieces) BlocksPerPiece() int { return p.blocksPerPiece }

// Bitfield returns a snapshot copy of the per-piece pending bitfield.
func (p *Pieces) Bitfield() *bitset.BitSet {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.bitfield.Clone()
}

// Complete reports whether every piece has no pending blocks left.
func (p *Pieces) Complete() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.bitfield.None()
}

// PopBlock intersects peerBitfield with the pending bitfield, picks the
// first piece index set in the intersection, then the first still-pending
// block within that piece; it clears that block's mask bit and
// recomputes the piece bit (false iff no pending blocks remain for it).
// Returns (pieceIndex, byteOffset, true), or (0, 0, false) if no block of
// any piece the peer has is still pending.
func (p *Pieces) PopBlock(peerBitfield *bitset.BitSet, blockSize int) (pieceIndex, byteOffset int, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	candidate := p.bitfield.Intersection(peerBitfield)
	piece, found := candidate.NextSet(0)
	if !found {
		return 0, 0, false
	}

	base := int(piece) * p.blocksPerPiece
	block := -1
	for b := 0; b < p.blockCounts[piece]; b++ {
		if p.mask.Test(uint(base + b)) {
			block = b
			break
		}
	}
	if block == -1 {
		// Inconsistent with bitfield; treat as exhausted for this piece.
		p.bitfield.Clear(piece)
		return 0, 0, false
	}

	p.mask.Clear(uint(base + block))
	p.recomputePieceBit(int(piece))

	return int(piece), block * blockSize, true
}

// MarkBlock performs the same mask/bitfield mutation as PopBlock but for a
// specific, already-known (piece, block) pair rather than one chosen by
// peer-bitfield intersection. It fires "block" unconditionally and
// "piece" when the piece's last pending block just cleared.
func (p *Pieces) MarkBlock(piece, block int) {
	p.mu.Lock()
	base := piece * p.blocksPerPiece
	p.mask.Clear(uint(base + block))
	pieceDone := p.recomputePieceBit(piece)
	p.mu.Unlock()

	p.Trigger("block", piece, block)
	if pieceDone {
		p.Trigger("piece", piece)
	}
}

// Requeue flips every block of piece back to pending in both levels, used
// when SHA-1 verification of a downloaded piece fails.
func (p *Pieces) Requeue(piece int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	base := piece * p.blocksPerPiece
	for b := 0; b < p.blockCounts[piece]; b++ {
		p.mask.Set(uint(base + b))
	}
	p.bitfield.Set(uint(piece))
}

// recomputePieceBit clears bitfield[piece] iff no block of piece remains
// set in mask; it reports whether the piece bit just transitioned to
// false. Caller must hold p.mu.
func (p *Pieces) recomputePieceBit(piece int) (justCompleted bool) {
	base := piece * p.blocksPerPiece
	for b := 0; b < p.blockCounts[piece]; b++ {
		if p.mask.Test(uint(base + b)) {
			return false
		}
	}
	wasSet := p.bitfield.Test(uint(piece))
	p.bitfield.Clear(uint(piece))
	return wasSet
}
