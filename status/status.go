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

// Package status is the admin HTTP surface every long-running server
// exposes alongside its own reactor-driven protocol sockets: a liveness
// check, a readiness check backed by caller-supplied probes, and the
// stdlib pprof endpoints. It runs on an ordinary net/http server, never
// on the reactor, since admin traffic isn't part of the protocol the
// reactor multiplexes.
package status

import (
	"net/http"
	"net/http/pprof"

	"github.com/go-chi/chi"
	"github.com/uber-go/tally"

	"github.com/zdzhjx/netius/utils/handler"
)

// ReadinessCheck reports whether the server is ready to accept traffic,
// returning a descriptive error if not.
type ReadinessCheck func() error

// Server builds the admin mux for one long-running server.
type Server struct {
	stats     tally.Scope
	readiness ReadinessCheck
}

// New creates a Server that reports stats to scope and consults check
// for readiness. check may be nil, in which case /readiness always
// succeeds.
func New(scope tally.Scope, check ReadinessCheck) *Server {
	return &Server{stats: scope, readiness: check}
}

// Handler returns the admin http.Handler: /health, /readiness, and the
// stdlib /debug/pprof/* endpoints.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(endpointStats(s.stats))

	r.Get("/health", handler.Wrap(s.healthCheckHandler))
	r.Get("/readiness", handler.Wrap(s.readinessCheckHandler))

	r.Get("/debug/pprof/", pprof.Index)
	r.Get("/debug/pprof/cmdline", pprof.Cmdline)
	r.Get("/debug/pprof/profile", pprof.Profile)
	r.Get("/debug/pprof/symbol", pprof.Symbol)
	r.Get("/debug/pprof/trace", pprof.Trace)
	r.Get("/debug/pprof/{profile}", func(w http.ResponseWriter, r *http.Request) {
		pprof.Handler(chi.URLParam(r, "profile")).ServeHTTP(w, r)
	})

	return r
}

func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) error {
	w.Write([]byte("OK"))
	return nil
}

func (s *Server) readinessCheckHandler(w http.ResponseWriter, r *http.Request) error {
	if s.readiness != nil {
		if err := s.readiness(); err != nil {
			return handler.Errorf("not ready to serve traffic: %s", err).Status(http.StatusServiceUnavailable)
		}
	}
	w.Write([]byte("OK"))
	return nil
}
