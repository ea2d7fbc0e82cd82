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

// Package configutil loads YAML configuration files into a struct,
// following an optional "extends" chain of base files and validating the
// merged result once with gopkg.in/validator.v2 struct tags.
package configutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/validator.v2"
	"gopkg.in/yaml.v2"
)

// ErrCycleRef is returned when a chain of "extends" directives loops back
// on a file already being loaded.
var ErrCycleRef = errors.New("cyclic reference in configuration extends detected")

// ValidationError reports gopkg.in/validator.v2 failures keyed by struct
// field name.
type ValidationError struct {
	Errors validator.ErrorMap
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid config: %v", map[string]validator.ErrorArray(e.Errors))
}

// ErrForField returns the validation errors recorded against field, or nil
// if field passed validation.
func (e ValidationError) ErrForField(field string) validator.ErrorArray {
	return e.Errors[field]
}

type extendsHolder struct {
	Extends string `yaml:"extends"`
}

// Load reads filename into config, resolving any "extends" chain rooted at
// filename (each base file resolved relative to the directory of the file
// that names it) and validating the fully merged result once.
func Load(filename string, config interface{}) error {
	filenames, err := resolveExtends(filename, readExtends)
	if err != nil {
		return err
	}
	return loadFiles(config, filenames)
}

func readExtends(filename string) (string, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}
	var h extendsHolder
	if err := yaml.Unmarshal(data, &h); err != nil {
		return "", err
	}
	return h.Extends, nil
}

// resolveExtends walks the "extends" chain starting at fpath, returning
// the filenames to load in base-to-derived order (fpath last).
func resolveExtends(fpath string, extendsOf func(string) (string, error)) ([]string, error) {
	var chain []string
	seen := make(map[string]bool)

	cur := fpath
	for {
		if seen[cur] {
			return nil, ErrCycleRef
		}
		seen[cur] = true
		chain = append(chain, cur)

		parent, err := extendsOf(cur)
		if err != nil {
			return nil, err
		}
		if parent == "" {
			break
		}
		if !filepath.IsAbs(parent) {
			parent = filepath.Join(filepath.Dir(cur), parent)
		}
		cur = parent
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// loadFiles unmarshals each filename into config in order, so a later file
// overrides only the fields it names, then validates the merged result.
func loadFiles(config interface{}, filenames []string) error {
	for _, fn := range filenames {
		data, err := os.ReadFile(fn)
		if err != nil {
			return fmt.Errorf("read %s: %s", fn, err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("unmarshal %s: %s", fn, err)
		}
	}

	if err := validator.Validate(config); err != nil {
		verr, ok := err.(validator.ErrorMap)
		if !ok {
			return err
		}
		return ValidationError{Errors: verr}
	}
	return nil
}
