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

// Package filter decides which directories are pruned and which paths are
// skipped while walking a root.
package filter

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
)

// 🚫 SystemPrefixes are the literal path prefixes pruned when system folders are excluded
var SystemPrefixes = []string{
	"/System",
	"/private",
	"/sbin",
	"/usr",
	"/bin",
	"/cores",
	"/etc",
	"/opt",
	"/tmp",
	"/var",
}

// IsPruned reports whether path starts with one of the system prefixes.
// The match is on the raw string, so "/usrlocal" is pruned along with "/usr".
func IsPruned(path string) bool {
	for _, prefix := range SystemPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// IsHidden reports whether any component of path starts with a dot while
// path itself lies outside homeRoot.
func IsHidden(path, homeRoot string) bool {
	if homeRoot != "" && strings.HasPrefix(path, homeRoot) {
		return false
	}
	for _, part := range strings.Split(path, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

// 🔍 Filter bundles the prune and hide rules for one run
type Filter struct {
	// ExcludeSystem turns on system prefix pruning and the hidden path rule
	ExcludeSystem bool
	// HomeRoot is the directory under which dot paths are still visited
	HomeRoot string
	// Excludes are doublestar patterns matched against absolute paths
	Excludes []string
	// Dirs are directories pruned by exact path, whatever ExcludeSystem says
	Dirs []string

	logger *zerolog.Logger
}

// 🏭 New creates a filter
func New(excludeSystem bool, homeRoot string, excludes []string) *Filter {
	return &Filter{
		ExcludeSystem: excludeSystem,
		HomeRoot:      homeRoot,
		Excludes:      excludes,
	}
}

// WithLogger returns a copy of the filter that reports bad patterns to logger
func (f *Filter) WithLogger(logger *zerolog.Logger) *Filter {
	if f == nil {
		f = &Filter{}
	}
	c := *f
	c.logger = logger
	return &c
}

// WithPrunedDirs returns a copy of the filter that also prunes dirs
func (f *Filter) WithPrunedDirs(dirs ...string) *Filter {
	if f == nil {
		f = &Filter{}
	}
	c := *f
	c.Dirs = append(append([]string(nil), f.Dirs...), dirs...)
	return &c
}

// ShouldPrune reports whether the directory at path must not be descended into
func (f *Filter) ShouldPrune(path string) bool {
	if f == nil {
		return false
	}
	for _, d := range f.Dirs {
		if path == d {
			return true
		}
	}
	if f.ExcludeSystem && IsPruned(path) {
		return true
	}
	return f.excluded(path)
}

// ShouldSkip reports whether the entry at path is not visited at all.
// A skipped directory is also not descended into.
func (f *Filter) ShouldSkip(path string) bool {
	if f == nil {
		return false
	}
	if f.ExcludeSystem && IsHidden(path, f.HomeRoot) {
		return true
	}
	return f.excluded(path)
}

func (f *Filter) excluded(path string) bool {
	for _, pattern := range f.Excludes {
		matched, err := doublestar.Match(pattern, path)
		if err != nil {
			if f.logger != nil {
				f.logger.Debug().Str("pattern", pattern).Str("path", path).Err(err).Msg("error matching pattern")
			}
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// ValidatePatterns checks that every exclude pattern is well formed
func ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return &PatternError{Pattern: p}
		}
	}
	return nil
}

// PatternError reports a malformed exclude pattern
type PatternError struct {
	Pattern string
}

func (e *PatternError) Error() string {
	return "invalid exclude pattern: " + e.Pattern
}
