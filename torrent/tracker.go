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
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	bencode "github.com/jackpal/bencode-go"
	"golang.org/x/sync/errgroup"

	"github.com/zdzhjx/netius/core"
	"github.com/zdzhjx/netius/utils/backoff"
)

// Peer is one peer returned by a tracker announce.
type Peer struct {
	IP   net.IP
	Port uint16
}

func (p Peer) String() string { return fmt.Sprintf("%s:%d", p.IP, p.Port) }

// trackerResponse mirrors the bencoded announce reply. Peers is decoded
// manually since it may be either a compact binary string or a list of
// dicts, per spec.md §4.7.
type trackerResponse struct {
	Interval int64       `bencode:"interval"`
	Peers    interface{} `bencode:"peers"`
	Failure  string      `bencode:"failure reason"`
}

// Announce performs an HTTP GET announce against a single tracker URL.
func Announce(ctx context.Context, trackerURL string, mi *core.MetaInfo, peerID core.PeerID, uploaded, downloaded, left int64) ([]Peer, error) {
	u, err := url.Parse(trackerURL)
	if err != nil {
		return nil, core.NewConnectionError("parse tracker url", err)
	}

	q := u.Query()
	q.Set("info_hash", string(mi.InfoHash().Bytes()))
	q.Set("peer_id", string(peerID.Bytes()))
	q.Set("uploaded", fmt.Sprintf("%d", uploaded))
	q.Set("downloaded", fmt.Sprintf("%d", downloaded))
	q.Set("left", fmt.Sprintf("%d", left))
	q.Set("port", "6881")
	q.Set("compact", "0")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, core.NewConnectionError("build tracker request", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, core.NewConnectionError("tracker announce", err)
	}
	defer resp.Body.Close()

	var tr trackerResponse
	if err := bencode.Unmarshal(resp.Body, &tr); err != nil {
		return nil, core.NewDataError("decode tracker response: %s", err)
	}
	if tr.Failure != "" {
		return nil, core.NewConnectionError(tr.Failure, nil)
	}

	return decodePeers(tr.Peers)
}

// AnnounceWithRetry retries a single tracker URL with exponential backoff
// before giving up, for a tracker that's flaky rather than genuinely
// unreachable.
func AnnounceWithRetry(ctx context.Context, trackerURL string, mi *core.MetaInfo, peerID core.PeerID, uploaded, downloaded, left int64, retryTimeout time.Duration) ([]Peer, error) {
	b := backoff.New(backoff.Config{
		Min:          100 * time.Millisecond,
		Max:          5 * time.Second,
		RetryTimeout: retryTimeout,
	})

	var lastErr error
	attempts := b.Attempts()
	for attempts.WaitForNext() {
		peers, err := Announce(ctx, trackerURL, mi, peerID, uploaded, downloaded, left)
		if err == nil {
			return peers, nil
		}
		lastErr = err
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, attempts.Err()
}

func decodePeers(raw interface{}) ([]Peer, error) {
	switch v := raw.(type) {
	case string:
		return decodeCompactPeers([]byte(v))
	case []byte:
		return decodeCompactPeers(v)
	case []interface{}:
		peers := make([]Peer, 0, len(v))
		for _, entry := range v {
			dict, ok := entry.(map[string]interface{})
			if !ok {
				continue
			}
			ipStr, _ := dict["ip"].(string)
			ip := net.ParseIP(ipStr)
			port := toUint16(dict["port"])
			peers = append(peers, Peer{IP: ip, Port: port})
		}
		return peers, nil
	default:
		return nil, nil
	}
}

func toUint16(v interface{}) uint16 {
	switch n := v.(type) {
	case int64:
		return uint16(n)
	case int:
		return uint16(n)
	default:
		return 0
	}
}

func decodeCompactPeers(data []byte) ([]Peer, error) {
	if len(data)%6 != 0 {
		return nil, core.NewDataError("compact peer list length %d not a multiple of 6", len(data))
	}
	peers := make([]Peer, 0, len(data)/6)
	for off := 0; off < len(data); off += 6 {
		ip := net.IPv4(data[off], data[off+1], data[off+2], data[off+3])
		port := binary.BigEndian.Uint16(data[off+4 : off+6])
		peers = append(peers, Peer{IP: ip, Port: port})
	}
	return peers, nil
}

// AnnounceAll announces to every tracker in mi.AnnounceList concurrently,
// tolerating individual tracker failures: an unreachable tracker is
// simply skipped and contributes no peers. No error is raised even if
// every tracker fails — the caller should treat an empty result as "task
// remains idle", not fatal — per spec.md §4.7 Failure clause.
func AnnounceAll(ctx context.Context, mi *core.MetaInfo, peerID core.PeerID, uploaded, downloaded, left int64) ([]Peer, error) {
	var urls []string
	for _, tier := range mi.AnnounceList {
		urls = append(urls, tier...)
	}

	results := make([][]Peer, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			peers, err := Announce(gctx, u, mi, peerID, uploaded, downloaded, left)
			if err != nil {
				return nil // tolerated: this tracker is skipped, not fatal
			}
			results[i] = peers
			return nil
		})
	}
	_ = g.Wait()

	var all []Peer
	seen := map[string]bool{}
	for _, peers := range results {
		for _, p := range peers {
			key := p.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			all = append(all, p)
		}
	}
	return all, nil
}
