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

package walk

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/filefinder/pkg/filter"
	"github.com/walteh/filefinder/pkg/names"
)

type countingCounter struct {
	n atomic.Int64
}

func (c *countingCounter) AddScanned(n int64) {
	c.n.Add(n)
}

func newTree(t *testing.T, files ...string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, f := range files {
		require.NoError(t, afero.WriteFile(fs, f, []byte("content of "+f), 0644))
	}
	return fs
}

func testContext(t *testing.T) context.Context {
	return zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
}

func TestWalk(t *testing.T) {
	tree := []string{
		"/home/u/docs/a.txt",
		"/home/u/docs/A.txt",
		"/home/u/docs/a.txt.bak",
		"/home/u/.cache/b.txt",
		"/home/u/deep/x/y/z/b.txt",
		"/Volumes/Data/.Trashes/a.txt",
		"/Volumes/Data/photos/a.txt",
		"/tmp/.cache/b.txt",
		"/usr/share/a.txt",
		"/usrlocal/a.txt",
	}

	tests := []struct {
		name    string
		root    string
		exclude bool
		want    []string
	}{
		{
			name:    "home_includes_dot_dirs",
			root:    "/home/u",
			exclude: true,
			want:    []string{"/home/u/.cache/b.txt", "/home/u/deep/x/y/z/b.txt", "/home/u/docs/a.txt"},
		},
		{
			name:    "volume_hides_dot_dirs",
			root:    "/Volumes/Data",
			exclude: true,
			want:    []string{"/Volumes/Data/photos/a.txt"},
		},
		{
			name:    "volume_without_exclusion",
			root:    "/Volumes/Data",
			exclude: false,
			want:    []string{"/Volumes/Data/.Trashes/a.txt", "/Volumes/Data/photos/a.txt"},
		},
		{
			name:    "slash_root_prunes_system_prefixes",
			root:    "/",
			exclude: true,
			want: []string{
				"/Volumes/Data/photos/a.txt",
				"/home/u/.cache/b.txt",
				"/home/u/deep/x/y/z/b.txt",
				"/home/u/docs/a.txt",
			},
		},
		{
			name:    "slash_root_without_exclusion",
			root:    "/",
			exclude: false,
			want: []string{
				"/Volumes/Data/.Trashes/a.txt",
				"/Volumes/Data/photos/a.txt",
				"/home/u/.cache/b.txt",
				"/home/u/deep/x/y/z/b.txt",
				"/home/u/docs/a.txt",
				"/tmp/.cache/b.txt",
				"/usr/share/a.txt",
				"/usrlocal/a.txt",
			},
		},
		{
			name:    "missing_root",
			root:    "/nope",
			exclude: true,
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testContext(t)
			fs := newTree(t, tree...)
			w := New(fs, filter.New(tt.exclude, "/home/u", nil), names.NewSet([]string{"a.txt", "b.txt"}))

			res, err := w.Walk(ctx, tt.root, nil)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, res.Matches)
		})
	}
}

func TestWalkScannedCount(t *testing.T) {
	ctx := testContext(t)
	fs := newTree(t,
		"/r/one.txt",
		"/r/sub/two.txt",
		"/r/sub/three.txt",
	)
	counter := &countingCounter{}

	res, err := New(fs, filter.New(true, "/r", nil), names.NewSet(nil)).Walk(ctx, "/r", counter)
	require.NoError(t, err)

	// one.txt, sub, two.txt, three.txt
	assert.Equal(t, int64(4), res.Scanned)
	assert.Equal(t, int64(4), counter.n.Load())
	assert.Empty(t, res.Matches)
}

func TestWalkPrunedSubtreeNotVisited(t *testing.T) {
	ctx := testContext(t)
	fs := newTree(t,
		"/tmp/a/b/c/d/e.txt",
		"/tmp/a/b/c/d/f.txt",
		"/keep.txt",
	)

	res, err := New(fs, filter.New(true, "/home/u", nil), names.NewSet([]string{"e.txt"})).Walk(ctx, "/", nil)
	require.NoError(t, err)

	assert.Equal(t, int64(1), res.Scanned, "only keep.txt should be visited")
	assert.Empty(t, res.Matches)
}

func TestWalkExtraExcludes(t *testing.T) {
	ctx := testContext(t)
	fs := newTree(t,
		"/home/u/app/node_modules/pkg/a.txt",
		"/home/u/app/a.txt",
	)

	w := New(fs, filter.New(false, "/home/u", []string{"**/node_modules"}), names.NewSet([]string{"a.txt"}))
	res, err := w.Walk(ctx, "/home/u", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"/home/u/app/a.txt"}, res.Matches)
}

func TestWalkDeterministic(t *testing.T) {
	ctx := testContext(t)
	fs := newTree(t,
		"/r/b/a.txt",
		"/r/a/a.txt",
		"/r/c/a.txt",
		"/r/a.txt",
	)
	w := New(fs, filter.New(true, "/r", nil), names.NewSet([]string{"a.txt"}))

	first, err := w.Walk(ctx, "/r", nil)
	require.NoError(t, err)
	second, err := w.Walk(ctx, "/r", nil)
	require.NoError(t, err)

	assert.Equal(t, first.Matches, second.Matches)
	assert.Equal(t, []string{"/r/a.txt", "/r/a/a.txt", "/r/b/a.txt", "/r/c/a.txt"}, first.Matches)
}

func TestWalkCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(testContext(t))
	cancel()

	fs := newTree(t, "/r/a.txt")
	res, err := New(fs, nil, names.NewSet([]string{"a.txt"})).Walk(ctx, "/r", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, res.Matches)
}
