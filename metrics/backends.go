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

import (
	"fmt"
	"io"
	"time"

	"github.com/cactus/go-statsd-client/statsd"
	"github.com/uber-go/tally"
	"github.com/uber-go/tally/m3"
	tallystatsd "github.com/uber-go/tally/statsd"
)

// noopCloser lets the disabled backend satisfy io.Closer without owning
// anything that actually needs closing.
type noopCloser struct{}

func (noopCloser) Close() error { return nil }

func newDisabledScope(Config, string) (tally.Scope, io.Closer, error) {
	return tally.NoopScope, noopCloser{}, nil
}

func newStatsdScope(config Config, instance string) (tally.Scope, io.Closer, error) {
	config.Statsd.applyDefaults()

	statter, err := statsd.NewBufferedClient(
		config.Statsd.HostPort, config.Statsd.Prefix,
		config.Statsd.FlushInterval, config.Statsd.FlushBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("new statsd client: %s", err)
	}
	reporter := tallystatsd.NewReporter(statter, tallystatsd.Options{
		SampleRate: config.Statsd.SampleRate,
	})
	s, c := tally.NewRootScope(tally.ScopeOptions{Reporter: reporter}, time.Second)
	return s, c, nil
}

func newM3Scope(config Config, instance string) (tally.Scope, io.Closer, error) {
	for field, value := range map[string]string{
		"m3.host_port": config.M3.HostPort,
		"m3.service":   config.M3.Service,
		"instance":     instance,
	} {
		if value == "" {
			return nil, nil, fmt.Errorf("%s is required for the m3 backend", field)
		}
	}

	reporter, err := (m3.Configuration{
		HostPort: config.M3.HostPort,
		Service:  config.M3.Service,
		Env:      instance,
	}).NewReporter()
	if err != nil {
		return nil, nil, fmt.Errorf("new m3 reporter: %s", err)
	}
	s, c := tally.NewRootScope(tally.ScopeOptions{CachedReporter: reporter}, time.Second)
	return s, c, nil
}
