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
package metrics

import "time"

// Config picks a tally reporting backend and configures it. An empty
// Backend (or "disabled") drops every metric on the floor.
type Config struct {
	Backend string       `yaml:"backend"`
	Prefix  string       `yaml:"prefix"`
	Statsd  StatsdConfig `yaml:"statsd"`
	M3      M3Config     `yaml:"m3"`
}

// StatsdConfig points at a statsd listener and tunes how aggressively
// metrics are batched before being flushed to it.
type StatsdConfig struct {
	HostPort      string        `yaml:"host_port"`
	Prefix        string        `yaml:"prefix"`
	SampleRate    float32       `yaml:"sample_rate"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	FlushBytes    int           `yaml:"flush_bytes"`
}

// M3Config points at an m3 collector.
type M3Config struct {
	HostPort string `yaml:"host_port"`
	Service  string `yaml:"service"`
	Env      string `yaml:"env"`
}

func (c *StatsdConfig) applyDefaults() {
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = 100 * time.Millisecond
	}
	if c.FlushBytes == 0 {
		c.FlushBytes = 512
	}
}
