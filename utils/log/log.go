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

// Package log is the process-wide structured logging facade. Every
// package in this module logs through the free functions here rather than
// holding its own *zap.Logger, so a single ConfigureLogger/SetGlobalLogger
// call at startup governs output everywhere.
package log

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu     sync.RWMutex
	global = newDefaultLogger()
)

func newDefaultLogger() *zap.SugaredLogger {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	return l.Sugar()
}

// ConfigureLogger builds a *zap.SugaredLogger from config, installs it as
// the global logger and returns it so the caller can Desugar() it for
// Sync() at shutdown.
func ConfigureLogger(config zap.Config) *zap.SugaredLogger {
	l, err := config.Build()
	if err != nil {
		panic(err)
	}
	sugared := l.Sugar()
	SetGlobalLogger(sugared)
	return sugared
}

// SetGlobalLogger installs l as the logger used by the package-level
// functions below.
func SetGlobalLogger(l *zap.SugaredLogger) {
	mu.Lock()
	defer mu.Unlock()
	global = l
}

func get() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Fields is a set of structured key-value pairs attached to a line via
// WithFields.
type Fields map[string]interface{}

// With returns a logger that annotates every subsequent line with the
// given key-value pairs.
func With(args ...interface{}) *zap.SugaredLogger { return get().With(args...) }

// WithFields is With taken from a map instead of a flat key-value list.
func WithFields(f Fields) *zap.SugaredLogger {
	args := make([]interface{}, 0, len(f)*2)
	for k, v := range f {
		args = append(args, k, v)
	}
	return get().With(args...)
}

func Debug(args ...interface{})                 { get().Debug(args...) }
func Debugf(format string, args ...interface{}) { get().Debugf(format, args...) }
func Info(args ...interface{})                  { get().Info(args...) }
func Infof(format string, args ...interface{})  { get().Infof(format, args...) }
func Warn(args ...interface{})                  { get().Warn(args...) }
func Warnf(format string, args ...interface{})  { get().Warnf(format, args...) }
func Error(args ...interface{})                 { get().Error(args...) }
func Errorf(format string, args ...interface{}) { get().Errorf(format, args...) }
func Fatal(args ...interface{})                 { get().Fatal(args...) }
func Fatalf(format string, args ...interface{}) { get().Fatalf(format, args...) }
