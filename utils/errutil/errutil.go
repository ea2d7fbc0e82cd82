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

// Package errutil composes multiple errors into one, for code paths that
// must attempt several independent operations (closing every child of a
// ContainerServer, say) and report every failure instead of only the
// first.
package errutil

import (
	"strings"

	"go.uber.org/multierr"
)

// MultiError is a list of errors whose Error() joins every non-nil
// message with ", ".
type MultiError []error

func (e MultiError) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		if err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	return strings.Join(msgs, ", ")
}

// Join combines errs into a single error, or nil if errs is empty or
// contains only nils.
func Join(errs []error) error {
	return multierr.Combine(errs...)
}
