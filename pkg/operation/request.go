// Copyright 2025 walteh LLC
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

package operation

import (
	"fmt"
	"path/filepath"

	"github.com/walteh/filefinder/pkg/copier"
	"github.com/walteh/filefinder/pkg/filter"
	"gitlab.com/tozd/go/errors"
)

// 📨 SearchRequest describes one run. It is not modified by the engine.
type SearchRequest struct {
	// NameListPath is the file holding one target base name per line
	NameListPath string
	// Roots are walked in parallel, one worker each
	Roots []string
	// ExcludeSystemFolders turns on system prefix pruning and hidden path skipping
	ExcludeSystemFolders bool
	// Destination is an existing directory receiving flat copies
	Destination string
	// HomeRoot is where hidden paths are still visited
	HomeRoot string
	// Excludes are extra doublestar patterns that are never visited
	Excludes []string
	// Collision decides what happens when two matches share a base name
	Collision copier.Policy
}

// 🚫 InvalidPathError reports a malformed path in a SearchRequest
type InvalidPathError struct {
	Field string
	Path  string
	Cause error
}

func (e *InvalidPathError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid %s path %q: %v", e.Field, e.Path, e.Cause)
	}
	return fmt.Sprintf("invalid %s path %q", e.Field, e.Path)
}

func (e *InvalidPathError) Unwrap() error {
	return e.Cause
}

var errNotAbsolute = errors.Base("path must be absolute")

// Validate checks the request for fatal problems
func (r SearchRequest) Validate() error {
	if r.NameListPath == "" {
		return &InvalidPathError{Field: "name list", Path: r.NameListPath, Cause: errors.Base("path is empty")}
	}
	if !filepath.IsAbs(r.Destination) {
		return &InvalidPathError{Field: "destination", Path: r.Destination, Cause: errNotAbsolute}
	}
	for _, root := range r.Roots {
		if !filepath.IsAbs(root) {
			return &InvalidPathError{Field: "root", Path: root, Cause: errNotAbsolute}
		}
	}
	if r.HomeRoot != "" && !filepath.IsAbs(r.HomeRoot) {
		return &InvalidPathError{Field: "home", Path: r.HomeRoot, Cause: errNotAbsolute}
	}
	if err := filter.ValidatePatterns(r.Excludes); err != nil {
		return errors.Errorf("validating excludes: %w", err)
	}
	if _, err := copier.ParsePolicy(string(r.Collision)); err != nil {
		return errors.Errorf("validating collision policy: %w", err)
	}
	return nil
}
