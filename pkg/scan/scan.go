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

// Package scan fans a walker out across several roots and merges the results.
package scan

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/filefinder/pkg/filter"
	"github.com/walteh/filefinder/pkg/names"
	"github.com/walteh/filefinder/pkg/walk"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// 📦 Result is the merged outcome of scanning every root
type Result struct {
	// Matches lists every match once, grouped by root in input order
	Matches []string
	// Scanned is the total number of entries visited
	Scanned int64
	// Roots holds the per-root results in input order
	Roots []*walk.Result
}

// 🛰️ Scanner walks several roots in parallel
type Scanner struct {
	walker *walk.Walker
}

// 🏭 New creates a scanner
func New(fs afero.Fs, f *filter.Filter, targets names.Set) *Scanner {
	return &Scanner{walker: walk.New(fs, f, targets)}
}

// tally forwards scanned counts to the caller while keeping a local total
type tally struct {
	total atomic.Int64
	next  walk.Counter
}

func (t *tally) AddScanned(n int64) {
	t.total.Add(n)
	if t.next != nil {
		t.next.AddScanned(n)
	}
}

// Scan walks every root concurrently, one goroutine per root, and blocks
// until all of them are done. Each root's matches are appended as a single
// batch so the merged order is root input order and then visit order.
// Duplicate roots are walked once, and a root nested inside another root is
// pruned from the outer walk so its entries are only visited by its own walker.
func (s *Scanner) Scan(ctx context.Context, roots []string, counter walk.Counter) (*Result, error) {
	logger := zerolog.Ctx(ctx)

	roots = Dedupe(roots)
	logger.Debug().Strs("roots", roots).Msg("scanning roots")

	var (
		mu    sync.Mutex
		slots = make([]*walk.Result, len(roots))
		count = &tally{next: counter}
	)

	g, gctx := errgroup.WithContext(ctx)
	for i, root := range roots {
		w := s.walker
		if nested := nestedIn(root, roots); len(nested) > 0 {
			w = walk.New(w.Fs, w.Filter.WithPrunedDirs(nested...), w.Targets)
		}
		g.Go(func() error {
			res, err := w.Walk(gctx, root, count)

			mu.Lock()
			slots[i] = res
			mu.Unlock()

			return err
		})
	}

	err := g.Wait()

	out := &Result{
		Scanned: count.total.Load(),
		Roots:   make([]*walk.Result, 0, len(slots)),
	}
	seen := make(map[string]struct{})
	for _, res := range slots {
		if res == nil {
			continue
		}
		out.Roots = append(out.Roots, res)
		for _, m := range res.Matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out.Matches = append(out.Matches, m)
		}
	}

	if err != nil {
		return out, errors.Errorf("scanning roots: %w", err)
	}

	logger.Debug().
		Int64("scanned", out.Scanned).
		Int("matches", len(out.Matches)).
		Msg("scan complete")

	return out, nil
}

// Dedupe cleans each root and drops repeats, keeping first occurrence order
func Dedupe(roots []string) []string {
	seen := make(map[string]struct{}, len(roots))
	out := make([]string, 0, len(roots))
	for _, r := range roots {
		r = filepath.Clean(r)
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// nestedIn returns the roots that lie strictly below root
func nestedIn(root string, roots []string) []string {
	var out []string
	for _, r := range roots {
		if r != root && within(r, root) {
			out = append(out, r)
		}
	}
	return out
}

func within(path, dir string) bool {
	if strings.HasSuffix(dir, string(filepath.Separator)) {
		return strings.HasPrefix(path, dir)
	}
	return strings.HasPrefix(path, dir+string(filepath.Separator))
}
