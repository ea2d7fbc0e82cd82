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
	"github.com/willf/bitset"
)

const testBlockSize = 16384

func allTrue(n int) *bitset.BitSet {
	b := bitset.New(uint(n))
	for i := 0; i < n; i++ {
		b.Set(uint(i))
	}
	return b
}

// TestPopBlockScenario mirrors spec.md §8 scenario 6: P=2, B=2, all bits
// true, peer_bitfield=[false,true] -> pop_block returns (1,0), then
// (1,16384), then the third call finds piece 1 exhausted.
func TestPopBlockScenario(t *testing.T) {
	require := require.New(t)

	pieces := NewPieces(2, 2, []int{2, 2})
	peer := bitset.New(2)
	peer.Clear(0)
	peer.Set(1)

	piece, offset, ok := pieces.PopBlock(peer, testBlockSize)
	require.True(ok)
	require.Equal(1, piece)
	require.Equal(0, offset)

	piece, offset, ok = pieces.PopBlock(peer, testBlockSize)
	require.True(ok)
	require.Equal(1, piece)
	require.Equal(testBlockSize, offset)

	_, _, ok = pieces.PopBlock(peer, testBlockSize)
	require.False(ok)
}

func TestPopBlockPieceBitClearsWhenLastBlockTaken(t *testing.T) {
	require := require.New(t)

	pieces := NewPieces(1, 2, []int{2})
	peer := allTrue(1)

	_, _, ok := pieces.PopBlock(peer, testBlockSize)
	require.True(ok)
	require.True(pieces.Bitfield().Test(0))

	_, _, ok = pieces.PopBlock(peer, testBlockSize)
	require.True(ok)
	require.False(pieces.Bitfield().Test(0))
}

func TestMarkBlockFiresBlockAndPieceEvents(t *testing.T) {
	require := require.New(t)

	pieces := NewPieces(1, 2, []int{2})

	var blockEvents [][2]int
	var pieceEvents []int
	pieces.Bind("block", func(args ...interface{}) {
		blockEvents = append(blockEvents, [2]int{args[0].(int), args[1].(int)})
	})
	pieces.Bind("piece", func(args ...interface{}) {
		pieceEvents = append(pieceEvents, args[0].(int))
	})

	pieces.MarkBlock(0, 0)
	require.Equal([][2]int{{0, 0}}, blockEvents)
	require.Empty(pieceEvents)

	pieces.MarkBlock(0, 1)
	require.Len(blockEvents, 2)
	require.Equal([]int{0}, pieceEvents)
}

func TestRequeueResetsPieceToPending(t *testing.T) {
	require := require.New(t)

	pieces := NewPieces(1, 2, []int{2})
	pieces.MarkBlock(0, 0)
	pieces.MarkBlock(0, 1)
	require.True(pieces.Complete())

	pieces.Requeue(0)
	require.False(pieces.Complete())
	require.True(pieces.Bitfield().Test(0))
}

func TestCompleteFalseUntilAllPiecesDone(t *testing.T) {
	require := require.New(t)

	pieces := NewPieces(2, 1, []int{1, 1})
	require.False(pieces.Complete())

	pieces.MarkBlock(0, 0)
	require.False(pieces.Complete())

	pieces.MarkBlock(1, 0)
	require.True(pieces.Complete())
}

func TestPopBlockReturnsFalseWhenPeerHasNothingWeNeed(t *testing.T) {
	require := require.New(t)

	pieces := NewPieces(2, 1, []int{1, 1})
	peer := bitset.New(2) // no bits set

	_, _, ok := pieces.PopBlock(peer, testBlockSize)
	require.False(ok)
}

func TestLastPieceShorterBlockCountIsRespected(t *testing.T) {
	require := require.New(t)

	// Piece 1 only has 1 real block even though blocksPerPiece is 2; the
	// unused slot must never be selectable.
	pieces := NewPieces(2, 2, []int{2, 1})
	peer := allTrue(2)

	seen := map[[2]int]bool{}
	for i := 0; i < 3; i++ {
		piece, offset, ok := pieces.PopBlock(peer, testBlockSize)
		require.True(ok)
		seen[[2]int{piece, offset}] = true
	}
	_, _, ok := pieces.PopBlock(peer, testBlockSize)
	require.False(ok)
	require.Len(seen, 3)
}
