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
package status

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/uber-go/tally"
)

// responseRecorder captures the status code a handler actually wrote,
// since http.ResponseWriter doesn't expose it once WriteHeader has run.
type responseRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *responseRecorder) WriteHeader(code int) {
	if w.written {
		return
	}
	w.written = true
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseRecorder) Write(b []byte) (int, error) {
	w.WriteHeader(http.StatusOK)
	return w.ResponseWriter.Write(b)
}

// endpointStats instruments every admin request with a request counter
// tagged by response status and a latency timer, both scoped to the
// route's static path (chi variables like "{profile}" collapsed away)
// and HTTP method. Counter and timer share one pass over the handler
// stack rather than each needing their own middleware layer.
func endpointStats(stats tally.Scope) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}

			start := time.Now()
			next.ServeHTTP(rec, r)
			elapsed := time.Since(start)

			scoped := scopeForRoute(stats, r)
			scoped.Timer("latency").Record(elapsed)
			scoped.Counter(strconv.Itoa(rec.status)).Inc(1)
		})
	}
}

// scopeForRoute must run after the wrapped handler has served, so chi has
// populated the route context with the pattern that actually matched.
func scopeForRoute(stats tally.Scope, r *http.Request) tally.Scope {
	ctx := chi.RouteContext(r.Context())
	var segments []string
	for _, part := range strings.Split(ctx.RoutePattern(), "/") {
		if part == "" || isPathVariable(part) {
			continue
		}
		segments = append(segments, part)
	}
	return stats.Tagged(map[string]string{
		"endpoint": strings.Join(segments, "."),
		"method":   strings.ToUpper(r.Method),
	})
}

func isPathVariable(s string) bool {
	return len(s) >= 2 && s[0] == '{' && s[len(s)-1] == '}'
}
