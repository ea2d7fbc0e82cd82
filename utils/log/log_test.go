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
package log

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func withObserved(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prior := get()
	SetGlobalLogger(zap.New(core).Sugar())
	t.Cleanup(func() { SetGlobalLogger(prior) })
	return logs
}

func TestInfoWritesToGlobalLogger(t *testing.T) {
	require := require.New(t)
	logs := withObserved(t)

	Info("hello")

	require.Equal(1, logs.Len())
	require.Equal("hello", logs.All()[0].Message)
}

func TestWithFieldsAttachesStructuredContext(t *testing.T) {
	require := require.New(t)
	logs := withObserved(t)

	WithFields(Fields{"digest": "abc"}).Info("committed")

	entry := logs.All()[0]
	require.Equal("committed", entry.Message)
	require.Equal("abc", entry.ContextMap()["digest"])
}

func TestSetGlobalLoggerSwapsTarget(t *testing.T) {
	require := require.New(t)
	logs := withObserved(t)

	second, logs2 := observer.New(zapcore.DebugLevel)
	SetGlobalLogger(zap.New(second).Sugar())

	Info("goes to second")

	require.Equal(0, logs.Len())
	require.Equal(1, logs2.Len())
}
