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

// Package walk traverses a single root with an explicit worklist so that
// pruning is decided at every directory boundary.
package walk

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/filefinder/pkg/filter"
	"github.com/walteh/filefinder/pkg/names"
	"gitlab.com/tozd/go/errors"
)

// 🔢 Counter receives scanned entry counts while a walk is in progress
type Counter interface {
	AddScanned(n int64)
}

// 📦 Result is the outcome of walking one root
type Result struct {
	Root    string   // Root that was walked
	Matches []string // Absolute paths whose base name is a target, in visit order
	Scanned int64    // Entries visited
	Skipped int64    // Entries that could not be read
}

// 🚶 Walker walks one root at a time
type Walker struct {
	Fs      afero.Fs
	Filter  *filter.Filter
	Targets names.Set
}

// 🏭 New creates a walker over fs
func New(fs afero.Fs, f *filter.Filter, targets names.Set) *Walker {
	return &Walker{
		Fs:      fs,
		Filter:  f,
		Targets: targets,
	}
}

// Walk visits every reachable entry under root that the filter does not
// prune or skip. Symbolic links are reported as entries but never followed.
// Unreadable directories are skipped. The context is checked at each
// directory; on cancellation the partial result is returned with the error.
func (w *Walker) Walk(ctx context.Context, root string, counter Counter) (*Result, error) {
	logger := zerolog.Ctx(ctx).With().Str("root", root).Logger()
	logger.Debug().Msg("walking root")

	root = filepath.Clean(root)
	res := &Result{Root: root}
	stack := []string{root}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return res, errors.Errorf("walking %s: %w", root, err)
		}

		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := afero.ReadDir(w.Fs, dir)
		if err != nil {
			res.Skipped++
			logger.Debug().Str("dir", dir).Err(err).Msg("skipping unreadable directory")
			continue
		}

		var visited int64
		var subdirs []string
		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())

			if w.Filter.ShouldPrune(path) || w.Filter.ShouldSkip(path) {
				continue
			}
			visited++

			if entry.IsDir() {
				subdirs = append(subdirs, path)
				continue
			}

			if entry.Mode()&os.ModeSymlink != 0 {
				target, err := w.Fs.Stat(path)
				if err != nil {
					// dangling link
					res.Skipped++
					logger.Debug().Str("path", path).Err(err).Msg("skipping broken link")
					continue
				}
				if target.IsDir() {
					continue
				}
			}

			if w.Targets.Contains(entry.Name()) {
				res.Matches = append(res.Matches, path)
			}
		}

		// push in reverse so siblings are popped in name order
		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, subdirs[i])
		}

		res.Scanned += visited
		if counter != nil && visited > 0 {
			counter.AddScanned(visited)
		}
	}

	logger.Debug().
		Int64("scanned", res.Scanned).
		Int64("skipped", res.Skipped).
		Int("matches", len(res.Matches)).
		Msg("finished walking root")

	return res, nil
}
