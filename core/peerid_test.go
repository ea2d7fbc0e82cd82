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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRandomPeerIDPrefixed(t *testing.T) {
	require := require.New(t)

	p, err := RandomPeerID()
	require.NoError(err)
	require.Equal("-NE0100-", string(p[:8]))
}

func TestPeerIDRoundTripHex(t *testing.T) {
	require := require.New(t)

	p, err := RandomPeerID()
	require.NoError(err)

	p2, err := NewPeerIDFromHex(p.String())
	require.NoError(err)
	require.Equal(p, p2)
}

func TestPeerIDFromHexInvalidLength(t *testing.T) {
	_, err := NewPeerIDFromHex("aabb")
	require.ErrorIs(t, err, ErrInvalidPeerIDLength)
}

func TestHashedPeerIDDeterministic(t *testing.T) {
	require := require.New(t)

	a, err := HashedPeerID("127.0.0.1:6969")
	require.NoError(err)
	b, err := HashedPeerID("127.0.0.1:6969")
	require.NoError(err)
	require.Equal(a, b)
}

func TestHashedPeerIDEmpty(t *testing.T) {
	_, err := HashedPeerID("")
	require.Error(t, err)
}
