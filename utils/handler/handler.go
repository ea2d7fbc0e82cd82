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

// Package handler adapts the status/admin HTTP surfaces each long-running
// server exposes (health, readiness, pprof) to a single error-return
// signature instead of writing status codes by hand in every route.
package handler

import (
	"fmt"
	"net/http"
)

// Error carries an HTTP status code alongside the usual error message.
// Route handlers that need a specific status construct one directly;
// any other error returned from a wrapped handler defaults to 500.
type Error struct {
	status int
	msg    string
}

// Errorf builds an Error with a formatted message and no status set yet,
// defaulting to 500 until Status is called.
func Errorf(format string, args ...interface{}) *Error {
	return &Error{status: http.StatusInternalServerError, msg: fmt.Sprintf(format, args...)}
}

// ErrorStatus builds an Error carrying only a status code, no message.
func ErrorStatus(status int) *Error {
	return &Error{status: status}
}

// Status sets e's HTTP status code, returning e for chaining.
func (e *Error) Status(status int) *Error {
	e.status = status
	return e
}

// GetStatus returns e's HTTP status code.
func (e *Error) GetStatus() int {
	return e.status
}

func (e *Error) Error() string {
	if e.msg == "" {
		return http.StatusText(e.status)
	}
	return e.msg
}

// Func is the signature every wrapped route handler implements: ordinary
// handler logic, but returning an error instead of writing a status itself.
type Func func(w http.ResponseWriter, r *http.Request) error

// Wrap adapts f into an http.HandlerFunc. A nil error leaves whatever f
// already wrote to w untouched. A non-nil error writes e.GetStatus() (or
// 500, if the error isn't an *Error) and the error's message as the body.
// Wrap does not check whether f already wrote to w; if it did, the error
// body is written after f's output and the status f wrote is kept.
func Wrap(f Func) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := f(w, r)
		if err == nil {
			return
		}
		status := http.StatusInternalServerError
		if herr, ok := err.(*Error); ok {
			status = herr.GetStatus()
		}
		http.Error(w, err.Error(), status)
	}
}
