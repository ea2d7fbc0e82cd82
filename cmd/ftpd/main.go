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

// Command ftpd runs the FTP server: wiring flags/config/logging/metrics
// around servers/ftpserver is the only thing this package does.
package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin"

	"github.com/zdzhjx/netius/localdb"
	"github.com/zdzhjx/netius/metrics"
	"github.com/zdzhjx/netius/reactor"
	"github.com/zdzhjx/netius/servers/ftpserver"
	"github.com/zdzhjx/netius/status"
	"github.com/zdzhjx/netius/utils/bandwidth"
	"github.com/zdzhjx/netius/utils/configutil"
	"github.com/zdzhjx/netius/utils/log"
)

var (
	configFile = kingpin.Flag("config", "configuration file path").String()
	addr       = kingpin.Flag("addr", "address to listen for FTP command connections on").String()
	basePath   = kingpin.Flag("base-path", "directory served over LIST/RETR").String()
)

func main() {
	kingpin.Parse()

	var config Config
	if *configFile != "" {
		if err := configutil.Load(*configFile, &config); err != nil {
			panic(err)
		}
	}
	if *addr != "" {
		config.Addr = *addr
	}
	if *basePath != "" {
		config.BasePath = *basePath
	}
	if config.Addr == "" {
		config.Addr = "0.0.0.0:2121"
	}
	if config.Host == "" {
		hostname, err := os.Hostname()
		if err != nil {
			panic(err)
		}
		config.Host = hostname
	}

	zlog := log.ConfigureLogger(config.ZapLogging)
	defer zlog.Sync()

	stats, statsCloser, err := metrics.New(config.Metrics, config.Host)
	if err != nil {
		log.Fatalf("init metrics: %s", err)
	}
	defer statsCloser.Close()
	go metrics.EmitUptime(stats)

	var limiter *bandwidth.Limiter
	if config.Bandwidth.EgressBitsPerSec != 0 || config.Bandwidth.IngressBitsPerSec != 0 {
		limiter = bandwidth.NewLimiter(config.Bandwidth)
	}

	var recorder ftpserver.SessionRecorder
	if config.LocalDB.Source != "" {
		db, err := localdb.New(config.LocalDB)
		if err != nil {
			log.Fatalf("init local db: %s", err)
		}
		defer db.Close()
		recorder = func(username, remoteIP, command, argument string) {
			if err := localdb.RecordFTPSession(db, username, remoteIP, command, argument); err != nil {
				log.Errorf("record ftp session: %s", err)
			}
		}
	}

	re, err := reactor.New(nil, 0)
	if err != nil {
		log.Fatalf("init reactor: %s", err)
	}
	defer re.Close()

	srv, err := ftpserver.New(re, config.Addr, config.BasePath, config.Host, limiter)
	if err != nil {
		log.Fatalf("start ftp server: %s", err)
	}
	defer srv.Close()
	if recorder != nil {
		srv.SetRecorder(recorder)
	}
	log.Infof("ftp server listening on %s", srv.Addr())

	if config.StatusAddr != "" {
		statusSrv := status.New(stats, nil)
		go func() {
			if err := http.ListenAndServe(config.StatusAddr, statusSrv.Handler()); err != nil {
				log.Errorf("status server: %s", err)
			}
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		re.Stop()
	}()

	if err := re.Run(); err != nil {
		log.Fatalf("reactor exited: %s", err)
	}
}
