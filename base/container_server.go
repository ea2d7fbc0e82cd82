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
package base

import (
	"io"
	"sync"

	"github.com/zdzhjx/netius/utils/errutil"
)

// ContainerServer owns a set of ephemeral sub-servers sharing the parent's
// reactor, the motivating case being one FTP command connection's PASV
// data listener: at most one is live at a time, and a second PASV must
// replace (close) the first.
type ContainerServer struct {
	mu       sync.Mutex
	children map[string]io.Closer
}

// NewContainerServer creates an empty ContainerServer.
func NewContainerServer() *ContainerServer {
	return &ContainerServer{children: make(map[string]io.Closer)}
}

// Adopt registers child under key, closing and replacing whatever was
// previously registered under that same key.
func (c *ContainerServer) Adopt(key string, child io.Closer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.children[key]; ok {
		old.Close()
	}
	c.children[key] = child
}

// Release closes and forgets the child registered under key, if any.
func (c *ContainerServer) Release(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if child, ok := c.children[key]; ok {
		child.Close()
		delete(c.children, key)
	}
}

// CloseAll closes every adopted child, used when the owning connection or
// server itself shuts down. It keeps closing remaining children even if
// one fails, returning every failure joined together.
func (c *ContainerServer) CloseAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for key, child := range c.children {
		if err := child.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(c.children, key)
	}
	return errutil.Join(errs)
}
