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

// Package bandwidth provides a token-bucket egress/ingress limiter for
// Connection read/write paths. The reactor never blocks inside a handler,
// so unlike a limiter meant for use on a dedicated per-connection
// goroutine, Reserve here never sleeps: it reports how long the caller
// must wait and lets the caller reschedule itself on the reactor.
package bandwidth

import (
	"time"

	"golang.org/x/time/rate"
)

// Bits-per-second unit constants, kept local rather than pulled from a
// shared memsize helper since this is the only package that needs them.
const (
	bit  = 1
	Kbit = 1000 * bit
	Mbit = 1000 * Kbit
)

// Config defines Limiter configuration.
type Config struct {
	EgressBitsPerSec  uint64 `yaml:"egress_bits_per_sec"`
	IngressBitsPerSec uint64 `yaml:"ingress_bits_per_sec"`

	// TokenSize is the granularity of one token in the bucket, in bits.
	// Mapping every single bit to a token would overflow the limiter's
	// integer burst size on high-bandwidth configs.
	TokenSize uint64 `yaml:"token_size"`

	Disable bool `yaml:"disable"`
}

func (c Config) applyDefaults() Config {
	if c.EgressBitsPerSec == 0 {
		c.EgressBitsPerSec = 200 * Mbit
	}
	if c.IngressBitsPerSec == 0 {
		c.IngressBitsPerSec = 300 * Mbit
	}
	if c.TokenSize == 0 {
		c.TokenSize = Mbit
	}
	return c
}

// Limiter limits egress and ingress bandwidth via a token-bucket rate
// limiter, one bucket per direction.
type Limiter struct {
	config  Config
	egress  *rate.Limiter
	ingress *rate.Limiter
}

// NewLimiter creates a Limiter from config, applying defaults for any
// zero-valued field.
func NewLimiter(config Config) *Limiter {
	config = config.applyDefaults()

	etps := config.EgressBitsPerSec / config.TokenSize
	itps := config.IngressBitsPerSec / config.TokenSize

	return &Limiter{
		config:  config,
		egress:  rate.NewLimiter(rate.Limit(etps), int(etps)),
		ingress: rate.NewLimiter(rate.Limit(itps), int(itps)),
	}
}

func (l *Limiter) reserve(rl *rate.Limiter, nbytes int) (time.Duration, bool) {
	if l.config.Disable || nbytes == 0 {
		return 0, true
	}
	tokens := int(uint64(nbytes*8) / l.config.TokenSize)
	if tokens == 0 {
		tokens = 1
	}
	r := rl.ReserveN(time.Now(), tokens)
	if !r.OK() {
		r.Cancel()
		return 0, false
	}
	return r.Delay(), true
}

// ReserveEgress reports how long the caller must wait before nbytes of
// egress bandwidth is available. ok is false if nbytes exceeds the
// configured burst entirely, in which case the caller should split the
// write into smaller chunks rather than wait.
func (l *Limiter) ReserveEgress(nbytes int) (delay time.Duration, ok bool) {
	return l.reserve(l.egress, nbytes)
}

// ReserveIngress reports how long the caller must wait before nbytes of
// ingress bandwidth is available.
func (l *Limiter) ReserveIngress(nbytes int) (delay time.Duration, ok bool) {
	return l.reserve(l.ingress, nbytes)
}
