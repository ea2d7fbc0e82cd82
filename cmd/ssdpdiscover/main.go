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

// Command ssdpdiscover sends an M-SEARCH and prints every response's
// headers until interrupted or the timeout elapses.
package main

import (
	"github.com/alecthomas/kingpin"

	"github.com/zdzhjx/netius/reactor"
	"github.com/zdzhjx/netius/servers/ssdp"
	"github.com/zdzhjx/netius/utils/log"
)

var (
	target  = kingpin.Flag("target", "search target").Default("ssdp:all").String()
	timeout = kingpin.Flag("timeout", "how long to listen for responses").Default("3s").Duration()
)

func main() {
	kingpin.Parse()

	re, err := reactor.New(nil, 0)
	if err != nil {
		log.Fatalf("init reactor: %s", err)
	}
	defer re.Close()

	client, err := ssdp.New(re)
	if err != nil {
		log.Fatalf("init ssdp client: %s", err)
	}
	defer client.Close()

	client.Bind("headers", func(args ...interface{}) {
		headers := args[0].(map[string]string)
		log.With("location", headers["location"], "server", headers["server"]).Info("discovered device")
	})

	if err := client.Discover(*target); err != nil {
		log.Fatalf("send discover: %s", err)
	}

	re.Schedule(*timeout, re.Stop)

	if err := re.Run(); err != nil {
		log.Fatalf("reactor exited: %s", err)
	}
}
