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

// Package metrics builds a tally.Scope from Config, so servers can count
// accepted connections, bytes transferred and throttling delays without
// hard-wiring a particular reporting backend.
package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/uber-go/tally"
)

// New builds a tally.Scope for the backend named in config. instance
// identifies the running process (typically its hostname) and is folded
// into the scope's tags by whichever backend uses it.
func New(config Config, instance string) (tally.Scope, io.Closer, error) {
	var s tally.Scope
	var c io.Closer
	var err error

	switch config.Backend {
	case "", "disabled":
		s, c, err = newDisabledScope(config, instance)
	case "statsd":
		s, c, err = newStatsdScope(config, instance)
	case "m3":
		s, c, err = newM3Scope(config, instance)
	default:
		return nil, nil, fmt.Errorf("unknown metrics backend %q", config.Backend)
	}
	if err != nil {
		return nil, nil, err
	}
	if config.Prefix != "" {
		s = s.SubScope(config.Prefix)
	}
	return s, c, nil
}

var processStart = time.Now()

// EmitUptime reports how long this process has been running, in seconds,
// on a recurring interval. A dashboard can use it to tell which instances
// are actually alive versus stuck or restarted.
func EmitUptime(stats tally.Scope) {
	gauge := stats.Gauge("uptime_seconds")
	for {
		gauge.Update(time.Since(processStart).Seconds())
		time.Sleep(time.Minute)
	}
}
