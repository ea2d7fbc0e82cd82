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
package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapWritesNothingOnSuccess(t *testing.T) {
	require := require.New(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	Wrap(func(w http.ResponseWriter, r *http.Request) error {
		w.Write([]byte("OK"))
		return nil
	})(rec, req)

	require.Equal(http.StatusOK, rec.Code)
	require.Equal("OK", rec.Body.String())
}

func TestWrapUsesErrorStatus(t *testing.T) {
	require := require.New(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stat", nil)
	Wrap(func(w http.ResponseWriter, r *http.Request) error {
		return Errorf("not ready to serve traffic: %s", errors.New("backends down")).Status(http.StatusServiceUnavailable)
	})(rec, req)

	require.Equal(http.StatusServiceUnavailable, rec.Code)
	require.Contains(rec.Body.String(), "backends down")
}

func TestWrapDefaultsOrdinaryErrorToInternalServerError(t *testing.T) {
	require := require.New(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stat", nil)
	Wrap(func(w http.ResponseWriter, r *http.Request) error {
		return errors.New("generic failure")
	})(rec, req)

	require.Equal(http.StatusInternalServerError, rec.Code)
}

func TestErrorStatusCarriesNoMessage(t *testing.T) {
	require := require.New(t)

	err := ErrorStatus(http.StatusNotFound)
	require.Equal(http.StatusNotFound, err.GetStatus())
	require.Equal(http.StatusText(http.StatusNotFound), err.Error())
}
