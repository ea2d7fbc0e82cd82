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
	"crypto/sha1"
	"io"
	"os"
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/willf/bitset"

	"github.com/zdzhjx/netius/core"
	"github.com/zdzhjx/netius/observable"
)

// verifyResult is one completed piece-hash check, handed back from the
// verification worker goroutine to the reactor thread through a self-pipe.
type verifyResult struct {
	piece int
	ok    bool
	err   error
}

// VerificationRecorder is notified of each piece's verification outcome,
// for an audit trail of what was confirmed good versus re-requeued.
type VerificationRecorder func(infoHash string, piece int, success bool)

// TorrentTask drives the download of a single torrent: it owns the target
// file, the two Pieces bitfield pairs (requested and stored), and the
// SHA-1 verification of completed pieces, per spec.md §4.7.
//
// Piece hash verification is CPU work that must not block the reactor
// thread (spec.md §5): it runs on a background goroutine and reports back
// through a pipe fd the owner registers with the Reactor, so the actual
// state mutation (Requeue on mismatch) still happens only on the reactor
// thread.
type TorrentTask struct {
	*observable.Observable

	MetaInfo  *core.MetaInfo
	PeerID    core.PeerID
	Requested *Pieces
	Stored    *Pieces

	Uploaded   int64
	Downloaded int64
	Left       int64

	clock clock.Clock
	start time.Time

	file *os.File

	verifyResults chan verifyResult
	notifyR       *os.File
	notifyW       *os.File

	recorder VerificationRecorder

	mu sync.Mutex
}

// SetVerificationRecorder installs r to be called after every piece
// verification DrainVerifications processes. Must be called before the
// first block is stored.
func (t *TorrentTask) SetVerificationRecorder(r VerificationRecorder) { t.recorder = r }

// PreallocateSize returns the file size the task reserves up front: the
// nominal piece length times the piece count, per spec.md §9(b) (this
// replaces the original's hard-coded constant and may exceed the file's
// real length by up to one piece, since the last piece is often shorter).
func PreallocateSize(mi *core.MetaInfo) int64 {
	return mi.Info.PieceLength * int64(mi.NumPieces())
}

// NewTorrentTask opens (creating and preallocating if needed) targetPath
// and builds the pending-block bookkeeping for mi.
func NewTorrentTask(mi *core.MetaInfo, targetPath string, peerID core.PeerID, clk clock.Clock) (*TorrentTask, error) {
	file, err := os.OpenFile(targetPath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, core.NewConnectionError("open target file", err)
	}
	if err := file.Truncate(PreallocateSize(mi)); err != nil {
		file.Close()
		return nil, core.NewConnectionError("preallocate target file", err)
	}

	blocksPerPiece := mi.BlocksPerPiece()
	numPieces := mi.NumPieces()
	blockCounts := make([]int, numPieces)
	for i := 0; i < numPieces; i++ {
		blockCounts[i] = blocksForPiece(mi.PieceLength(i), blocksPerPiece)
	}

	notifyR, notifyW, err := os.Pipe()
	if err != nil {
		file.Close()
		return nil, core.NewConnectionError("create verification pipe", err)
	}

	if clk == nil {
		clk = clock.New()
	}

	t := &TorrentTask{
		Observable:    observable.New(),
		MetaInfo:      mi,
		PeerID:        peerID,
		Requested:     NewPieces(numPieces, blocksPerPiece, blockCounts),
		Stored:        NewPieces(numPieces, blocksPerPiece, blockCounts),
		Left:          mi.TotalLength(),
		clock:         clk,
		start:         clk.Now(),
		file:          file,
		verifyResults: make(chan verifyResult, 16),
		notifyR:       notifyR,
		notifyW:       notifyW,
	}
	t.Stored.Bind("piece", func(args ...interface{}) {
		t.startVerify(args[0].(int))
	})
	return t, nil
}

func blocksForPiece(pieceLength int64, blocksPerPiece int) int {
	n := int((pieceLength + int64(core.BlockSize) - 1) / int64(core.BlockSize))
	if n > blocksPerPiece {
		n = blocksPerPiece
	}
	return n
}

// NotifyFD returns the read end of the verification-completion pipe; the
// owner registers it with the Reactor for readable interest and calls
// DrainVerifications from that callback.
func (t *TorrentTask) NotifyFD() *os.File { return t.notifyR }

// Close releases the target file and the verification pipe.
func (t *TorrentTask) Close() error {
	t.notifyR.Close()
	t.notifyW.Close()
	return t.file.Close()
}

// PopBlock chooses the next block to request from a peer advertising
// peerBitfield, delegating to Requested.PopBlock.
func (t *TorrentTask) PopBlock(peerBitfield *bitset.BitSet) (piece, offset int, ok bool) {
	return t.Requested.PopBlock(peerBitfield, core.BlockSize)
}

// SetData writes a downloaded block to disk and marks it stored. offset is
// the byte offset within the piece, matching the wire REQUEST/PIECE
// message's "begin" field.
func (t *TorrentTask) SetData(piece, offset int, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	pos := int64(piece)*t.MetaInfo.Info.PieceLength + int64(offset)
	if _, err := t.file.WriteAt(data, pos); err != nil {
		return core.NewConnectionError("write piece data", err)
	}
	t.Downloaded += int64(len(data))
	t.Left -= int64(len(data))

	block := offset / core.BlockSize
	t.Stored.MarkBlock(piece, block)
	return nil
}

// startVerify launches the SHA-1 verification of piece on a background
// goroutine; the result is delivered via the notify pipe for the reactor
// thread to collect with DrainVerifications.
func (t *TorrentTask) startVerify(piece int) {
	go func() {
		ok, err := t.hashPiece(piece)
		t.verifyResults <- verifyResult{piece: piece, ok: ok, err: err}
		t.notifyW.Write([]byte{0})
	}()
}

func (t *TorrentTask) hashPiece(piece int) (bool, error) {
	want, err := t.MetaInfo.PieceHash(piece)
	if err != nil {
		return false, err
	}

	length := t.MetaInfo.PieceLength(piece)
	pos := int64(piece) * t.MetaInfo.Info.PieceLength

	h := sha1.New()
	r := io.NewSectionReader(t.file, pos, length)
	if _, err := io.Copy(h, r); err != nil {
		return false, core.NewConnectionError("read piece for verification", err)
	}

	got := core.PieceDigestFromRaw(h.Sum(nil))
	return got == want, nil
}

// DrainVerifications is called by the owner from the reactor thread once
// NotifyFD is readable. It applies every completed verification: a
// mismatch re-queues the piece's blocks in both Pieces levels (spec.md
// §4.7 Verification); a read failure is treated as fatal to the task and
// returned to the caller.
func (t *TorrentTask) DrainVerifications() error {
	buf := make([]byte, 64)
	if _, err := t.notifyR.Read(buf); err != nil {
		return err
	}

	for {
		select {
		case res := <-t.verifyResults:
			if res.err != nil {
				return res.err
			}
			if !res.ok {
				t.Stored.Requeue(res.piece)
				t.Requested.Requeue(res.piece)
				if t.recorder != nil {
					t.recorder(t.MetaInfo.InfoHash().String(), res.piece, false)
				}
				t.Trigger("verify_failed", res.piece)
				continue
			}
			if t.recorder != nil {
				t.recorder(t.MetaInfo.InfoHash().String(), res.piece, true)
			}
			t.Trigger("verify_ok", res.piece)
		default:
			return nil
		}
	}
}

// Complete reports whether every block of every piece has been stored. It
// does not wait for verification: a piece whose hash check later fails is
// re-queued by DrainVerifications, which makes Complete false again.
func (t *TorrentTask) Complete() bool {
	return t.Stored.Complete()
}

// Speed returns the current average download rate in bytes per second.
func (t *TorrentTask) Speed() float64 {
	elapsed := t.clock.Now().Sub(t.start).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(t.Downloaded) / elapsed
}
