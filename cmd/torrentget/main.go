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

// Command torrentget reads a .torrent file, announces to its trackers,
// and reports the piece layout and discovered peers. When -output is
// given, it also fetches the content from the first peer that completes
// a handshake, over a single plain TCP connection rather than the
// reactor-driven multi-peer session a long-running downloader would use.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kingpin"

	"github.com/zdzhjx/netius/core"
	"github.com/zdzhjx/netius/localdb"
	"github.com/zdzhjx/netius/torrent"
	"github.com/zdzhjx/netius/utils/log"
)

var (
	torrentFile     = kingpin.Arg("torrent", "path to a .torrent file").Required().String()
	announceTimeout = kingpin.Flag("announce-timeout", "per-tracker announce timeout").Default("10s").Duration()
	output          = kingpin.Flag("output", "path to write the downloaded content to").String()
	peerTimeout     = kingpin.Flag("peer-timeout", "idle timeout for the peer connection").Default("30s").Duration()
	localDBSource   = kingpin.Flag("local-db", "sqlite path to record piece verification outcomes in").String()
)

func main() {
	kingpin.Parse()

	data, err := os.ReadFile(*torrentFile)
	if err != nil {
		log.Fatalf("read torrent file: %s", err)
	}

	mi, err := core.ParseMetaInfo(data)
	if err != nil {
		log.Fatalf("parse torrent file: %s", err)
	}

	peerID, err := core.RandomPeerID()
	if err != nil {
		log.Fatalf("generate peer id: %s", err)
	}

	fmt.Printf("info hash: %s\n", mi.InfoHash())
	fmt.Printf("total length: %d bytes across %d pieces\n", mi.TotalLength(), mi.NumPieces())

	ctx, cancel := context.WithTimeout(context.Background(), *announceTimeout)
	defer cancel()

	peers, err := torrent.AnnounceAll(ctx, mi, peerID, 0, 0, mi.TotalLength())
	if err != nil {
		log.Fatalf("announce: %s", err)
	}

	fmt.Printf("%d peers:\n", len(peers))
	for _, p := range peers {
		fmt.Printf("  %s\n", p)
	}

	if *output == "" {
		return
	}

	if err := fetch(mi, peerID, peers); err != nil {
		log.Fatalf("download: %s", err)
	}
	fmt.Println("download complete")
}

func fetch(mi *core.MetaInfo, peerID core.PeerID, peers []torrent.Peer) error {
	if len(peers) == 0 {
		return fmt.Errorf("no peers to download from")
	}

	task, err := torrent.NewTorrentTask(mi, *output, peerID, nil)
	if err != nil {
		return fmt.Errorf("create torrent task: %s", err)
	}
	defer task.Close()

	if *localDBSource != "" {
		db, err := localdb.New(localdb.Config{Source: *localDBSource})
		if err != nil {
			return fmt.Errorf("init local db: %s", err)
		}
		defer db.Close()
		task.SetVerificationRecorder(func(infoHash string, piece int, success bool) {
			if err := localdb.RecordPieceVerification(db, infoHash, piece, success); err != nil {
				log.Errorf("record piece verification: %s", err)
			}
		})
	}

	go drainVerificationsUntilClosed(task)

	var lastErr error
	for _, peer := range peers {
		if err := downloadFromPeer(mi, peer, peerID, task, *peerTimeout); err != nil {
			log.Warnf("peer %s: %s", peer, err)
			lastErr = err
			continue
		}
		lastErr = nil
		break
	}
	if lastErr != nil {
		return lastErr
	}

	// Piece hashing runs on a background goroutine; give the last one or
	// two pieces a moment to finish and record before the task closes.
	time.Sleep(250 * time.Millisecond)
	return nil
}

// drainVerificationsUntilClosed processes completed piece verifications
// as they arrive until task.Close() tears down the notification pipe.
func drainVerificationsUntilClosed(task *torrent.TorrentTask) {
	for {
		if err := task.DrainVerifications(); err != nil {
			return
		}
	}
}
