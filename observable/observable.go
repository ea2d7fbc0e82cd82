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

// Package observable implements the small publish/subscribe primitive used
// by every higher-level object in the reactor: an event name maps to an
// ordered list of handlers, fired in bind order.
package observable

import "reflect"

// Handler is a callback bound to a named event. args mirrors the variadic
// arguments the original Python implementation triggered events with.
type Handler func(args ...interface{})

// Observable maps event names to ordered handler lists.
type Observable struct {
	events map[string][]Handler
}

// New creates an Observable ready for use.
func New() *Observable {
	return &Observable{events: make(map[string][]Handler)}
}

// Bind appends h to the handler list for name. Handlers fire in bind order.
func (o *Observable) Bind(name string, h Handler) {
	o.events[name] = append(o.events[name], h)
}

// Unbind removes the first occurrence of h from name's handler list, or
// clears the entire list when h is nil. A missing name is a no-op.
func (o *Observable) Unbind(name string, h Handler) {
	handlers, ok := o.events[name]
	if !ok {
		return
	}
	if h == nil {
		delete(o.events, name)
		return
	}
	for i := range handlers {
		if sameHandler(handlers[i], h) {
			o.events[name] = append(handlers[:i:i], handlers[i+1:]...)
			return
		}
	}
}

// sameHandler compares handlers by identity. Go cannot compare func values
// directly, so callers that need Unbind-by-value must bind a handler that
// was stored and later passed back verbatim; reflect is used to approximate
// pointer identity, matching how the original bound a bare method
// reference and later removed that exact reference.
func sameHandler(a, b Handler) bool {
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}

// Trigger calls each handler bound to name, in bind order, synchronously on
// the caller's stack. If a handler mutates the list for name (bind/unbind),
// the iteration continues over the snapshot taken at Trigger entry: a
// handler bound during the call does not fire until the next Trigger, and
// a handler from the snapshot that has been unbound before its turn is
// skipped. Trigger on a name with no handlers is a no-op. A handler panic propagates
// to the triggerer; no later handler for that call runs.
func (o *Observable) Trigger(name string, args ...interface{}) {
	handlers, ok := o.events[name]
	if !ok || len(handlers) == 0 {
		return
	}
	snapshot := make([]Handler, len(handlers))
	copy(snapshot, handlers)
	for _, h := range snapshot {
		bound := false
		for _, cur := range o.events[name] {
			if sameHandler(cur, h) {
				bound = true
				break
			}
		}
		if !bound {
			continue
		}
		h(args...)
	}
}

// Destroy clears all bound handlers. Idempotent.
func (o *Observable) Destroy() {
	for name := range o.events {
		delete(o.events, name)
	}
}
