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
package main

import (
	"go.uber.org/zap"

	"github.com/zdzhjx/netius/localdb"
	"github.com/zdzhjx/netius/metrics"
	"github.com/zdzhjx/netius/utils/bandwidth"
)

// Config defines ftpd's configuration file shape.
type Config struct {
	ZapLogging zap.Config       `yaml:"zap"`
	Metrics    metrics.Config   `yaml:"metrics"`
	LocalDB    localdb.Config   `yaml:"localdb"`
	Bandwidth  bandwidth.Config `yaml:"bandwidth"`
	BasePath   string           `yaml:"base_path"`
	Addr       string           `yaml:"addr"`
	StatusAddr string           `yaml:"status_addr"`
	Host       string           `yaml:"host" validate:"nonzero"`
}
