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

package operation_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/filefinder/pkg/copier"
	"github.com/walteh/filefinder/pkg/names"
	"github.com/walteh/filefinder/pkg/operation"
	"github.com/walteh/filefinder/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// 🧪 createTestEnv creates an in-memory tree with a name list and destination
func createTestEnv(t *testing.T, nameList string, files ...string) (context.Context, afero.Fs) {
	t.Helper()

	logger := zerolog.New(zerolog.NewTestWriter(t))
	ctx := logger.WithContext(context.Background())

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/out", 0755))
	require.NoError(t, afero.WriteFile(fs, "/lists/names.txt", []byte(nameList), 0644))
	for _, f := range files {
		require.NoError(t, afero.WriteFile(fs, f, []byte("data:"+f), 0644))
	}
	return ctx, fs
}

func request(roots ...string) operation.SearchRequest {
	return operation.SearchRequest{
		NameListPath:         "/lists/names.txt",
		Roots:                roots,
		ExcludeSystemFolders: true,
		HomeRoot:             "/home/u",
		Destination:          "/out",
	}
}

func destFiles(t *testing.T, fs afero.Fs) []string {
	t.Helper()
	entries, err := afero.ReadDir(fs, "/out")
	require.NoError(t, err)
	var out []string
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out
}

func newEngine(t *testing.T, opts operation.Options) *operation.Engine {
	t.Helper()
	eng, err := operation.New(opts)
	require.NoError(t, err)
	return eng
}

// 🧪 TestRunHomeDotfilesIncluded copies matches from dot directories under home
func TestRunHomeDotfilesIncluded(t *testing.T) {
	ctx, fs := createTestEnv(t, "a.txt\nb.txt\n",
		"/home/u/docs/a.txt",
		"/home/u/.cache/b.txt",
	)

	report, err := newEngine(t, operation.Options{Fs: fs}).Run(ctx, request("/home/u"))
	require.NoError(t, err)

	assert.Equal(t, int64(2), report.TotalMatches)
	assert.Equal(t, int64(2), report.FilesCopied)
	assert.Zero(t, report.FailedCopies)
	assert.Equal(t, []string{"a.txt", "b.txt"}, destFiles(t, fs))

	got, err := afero.ReadFile(fs, "/out/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "data:/home/u/.cache/b.txt", string(got))
}

// 🧪 TestRunSystemPrefixPruned skips matches under a system prefix
func TestRunSystemPrefixPruned(t *testing.T) {
	tree := []string{
		"/home/u/docs/a.txt",
		"/tmp/.cache/b.txt",
	}

	t.Run("excluded", func(t *testing.T) {
		ctx, fs := createTestEnv(t, "a.txt\nb.txt\n", tree...)

		report, err := newEngine(t, operation.Options{Fs: fs}).Run(ctx, request("/home/u", "/tmp"))
		require.NoError(t, err)

		assert.Equal(t, int64(1), report.FilesCopied)
		assert.Equal(t, []string{"a.txt"}, destFiles(t, fs))
	})

	t.Run("included", func(t *testing.T) {
		ctx, fs := createTestEnv(t, "a.txt\nb.txt\n", tree...)
		req := request("/home/u", "/tmp")
		req.ExcludeSystemFolders = false

		report, err := newEngine(t, operation.Options{Fs: fs}).Run(ctx, req)
		require.NoError(t, err)

		assert.Equal(t, int64(2), report.FilesCopied)
		assert.Equal(t, []string{"a.txt", "b.txt"}, destFiles(t, fs))
	})
}

// 🧪 TestRunEmptyNameList scans but copies nothing
func TestRunEmptyNameList(t *testing.T) {
	ctx, fs := createTestEnv(t, "\n\n",
		"/home/u/docs/a.txt",
		"/home/u/b.txt",
	)

	report, err := newEngine(t, operation.Options{Fs: fs}).Run(ctx, request("/home/u"))
	require.NoError(t, err)

	assert.Positive(t, report.FilesScanned)
	assert.Zero(t, report.TotalMatches)
	assert.Zero(t, report.FilesCopied)
	assert.Empty(t, destFiles(t, fs))
}

// 🧪 TestRunFatalErrors aborts before scanning
func TestRunFatalErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(fs afero.Fs, req *operation.SearchRequest)
		check  func(t *testing.T, err error)
	}{
		{
			name: "missing_name_list",
			modify: func(fs afero.Fs, req *operation.SearchRequest) {
				req.NameListPath = "/lists/missing.txt"
			},
			check: func(t *testing.T, err error) {
				var target *names.InputReadError
				assert.True(t, errors.As(err, &target))
			},
		},
		{
			name: "name_list_not_utf8",
			modify: func(fs afero.Fs, req *operation.SearchRequest) {
				_ = afero.WriteFile(fs, "/lists/names.txt", []byte{0xc3, 0x28}, 0644)
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, names.ErrInvalidEncoding)
			},
		},
		{
			name: "relative_destination",
			modify: func(fs afero.Fs, req *operation.SearchRequest) {
				req.Destination = "out"
			},
			check: func(t *testing.T, err error) {
				var target *operation.InvalidPathError
				require.True(t, errors.As(err, &target))
				assert.Equal(t, "destination", target.Field)
			},
		},
		{
			name: "missing_destination",
			modify: func(fs afero.Fs, req *operation.SearchRequest) {
				req.Destination = "/nowhere"
			},
			check: func(t *testing.T, err error) {
				var target *operation.InvalidPathError
				require.True(t, errors.As(err, &target))
				assert.Equal(t, "/nowhere", target.Path)
			},
		},
		{
			name: "relative_root",
			modify: func(fs afero.Fs, req *operation.SearchRequest) {
				req.Roots = append(req.Roots, "Volumes/Data")
			},
			check: func(t *testing.T, err error) {
				var target *operation.InvalidPathError
				require.True(t, errors.As(err, &target))
				assert.Equal(t, "root", target.Field)
			},
		},
		{
			name: "empty_name_list_path",
			modify: func(fs afero.Fs, req *operation.SearchRequest) {
				req.NameListPath = ""
			},
			check: func(t *testing.T, err error) {
				var target *operation.InvalidPathError
				assert.True(t, errors.As(err, &target))
			},
		},
		{
			name: "bad_exclude_pattern",
			modify: func(fs afero.Fs, req *operation.SearchRequest) {
				req.Excludes = []string{"[oops"}
			},
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "validating excludes")
			},
		},
		{
			name: "unknown_collision_policy",
			modify: func(fs afero.Fs, req *operation.SearchRequest) {
				req.Collision = "merge"
			},
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "unknown collision policy")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, fs := createTestEnv(t, "a.txt\n", "/home/u/a.txt")
			req := request("/home/u")
			tt.modify(fs, &req)

			var calls int
			eng := newEngine(t, operation.Options{
				Fs:         fs,
				OnProgress: func(status.Snapshot) { calls++ },
			})

			report, err := eng.Run(ctx, req)
			require.Error(t, err)
			assert.Nil(t, report)
			tt.check(t, err)

			assert.Zero(t, calls, "no progress is reported for a rejected run")
			_, started := eng.Progress()
			assert.False(t, started)
			assert.Empty(t, destFiles(t, fs))
		})
	}
}

// failingFs refuses to open one source path
type failingFs struct {
	afero.Fs
	fail string
}

func (f *failingFs) Open(name string) (afero.File, error) {
	if name == f.fail {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return f.Fs.Open(name)
}

// 🧪 TestRunFaultIsolation keeps copying after one file fails
func TestRunFaultIsolation(t *testing.T) {
	ctx, base := createTestEnv(t, "1.txt\n2.txt\n3.txt\n",
		"/home/u/1.txt",
		"/home/u/2.txt",
		"/home/u/3.txt",
	)
	fs := &failingFs{Fs: base, fail: "/home/u/2.txt"}

	report, err := newEngine(t, operation.Options{Fs: fs}).Run(ctx, request("/home/u"))
	require.NoError(t, err)

	assert.Equal(t, int64(3), report.TotalMatches)
	assert.Equal(t, int64(2), report.FilesCopied)
	assert.Equal(t, int64(1), report.FailedCopies)
	assert.Equal(t, report.TotalMatches, report.FilesCopied+report.FailedCopies)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "/home/u/2.txt", report.Errors[0].Path)
	assert.Equal(t, []string{"1.txt", "3.txt"}, destFiles(t, base))
}

type observer struct {
	mu     sync.Mutex
	copied []string
	failed []string
}

func (o *observer) RecordCopied(src, dst string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.copied = append(o.copied, dst)
}

func (o *observer) RecordFailed(err *copier.CopyError) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed = append(o.failed, err.Path)
}

// 🧪 TestRunProgress reports snapshots and ends on a done snapshot
func TestRunProgress(t *testing.T) {
	ctx, fs := createTestEnv(t, "a.txt\n",
		"/home/u/one/a.txt",
		"/Volumes/Data/two/a.txt",
	)

	var (
		mu    sync.Mutex
		snaps []status.Snapshot
	)
	obs := &observer{}
	eng := newEngine(t, operation.Options{
		Fs:       fs,
		Observer: obs,
		OnProgress: func(s status.Snapshot) {
			mu.Lock()
			defer mu.Unlock()
			assert.LessOrEqual(t, s.FilesCopied+s.FailedCopies, s.TotalMatches)
			snaps = append(snaps, s)
		},
	})

	_, started := eng.Progress()
	assert.False(t, started)

	report, err := eng.Run(ctx, request("/home/u", "/Volumes/Data"))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, snaps)
	last := snaps[len(snaps)-1]
	assert.Equal(t, status.PhaseDone, last.Phase)
	assert.Equal(t, report.RunID, last.RunID)
	assert.Equal(t, int64(2), last.FilesCopied)
	assert.Equal(t, report.FilesScanned, last.FilesScanned)

	current, ok := eng.Progress()
	require.True(t, ok)
	assert.Equal(t, status.PhaseDone, current.Phase)

	// both matches share a base name: the second copy overwrites the first
	assert.Equal(t, []string{"/out/a.txt", "/out/a.txt"}, obs.copied)
	got, err := afero.ReadFile(fs, "/out/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "data:/Volumes/Data/two/a.txt", string(got))
}

// 🧪 TestRunFreshStatePerRun gives each run its own counters
func TestRunFreshStatePerRun(t *testing.T) {
	ctx, fs := createTestEnv(t, "a.txt\n", "/home/u/a.txt")
	eng := newEngine(t, operation.Options{Fs: fs})

	first, err := eng.Run(ctx, request("/home/u"))
	require.NoError(t, err)
	second, err := eng.Run(ctx, request("/home/u"))
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.FilesScanned, second.FilesScanned)
	assert.Equal(t, first.FilesCopied, second.FilesCopied)
}

// 🧪 TestRunDestinationInsideRoot does not re-match earlier copies
func TestRunDestinationInsideRoot(t *testing.T) {
	ctx, fs := createTestEnv(t, "a.txt\n",
		"/home/u/docs/a.txt",
		"/home/u/found/a.txt",
	)
	req := request("/home/u")
	req.Destination = "/home/u/found"

	report, err := newEngine(t, operation.Options{Fs: fs}).Run(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, int64(1), report.TotalMatches)
	got, err := afero.ReadFile(fs, "/home/u/found/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "data:/home/u/docs/a.txt", string(got))
}

// 🧪 TestRunCancelled still reaches done and returns the context error
func TestRunCancelled(t *testing.T) {
	ctx, fs := createTestEnv(t, "a.txt\n", "/home/u/a.txt")
	ctx, cancel := context.WithCancel(ctx)
	cancel()

	eng := newEngine(t, operation.Options{Fs: fs})
	report, err := eng.Run(ctx, request("/home/u"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Zero(t, report.FilesCopied)

	snap, ok := eng.Progress()
	require.True(t, ok)
	assert.Equal(t, status.PhaseDone, snap.Phase)
}

// 🧪 TestRunOnDisk exercises the OS filesystem and the destination lock
func TestRunOnDisk(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	ctx := logger.WithContext(context.Background())

	tmp := t.TempDir()
	root := filepath.Join(tmp, "root")
	dest := filepath.Join(tmp, "dest")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "nested", "deeper"), 0755))
	require.NoError(t, os.MkdirAll(dest, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "nested", "deeper", "report.pdf"), []byte("%PDF"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Report.pdf"), []byte("wrong case"), 0644))
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "report.pdf")))
	require.NoError(t, os.Symlink(root, filepath.Join(root, "nested", "loop")))

	namesFile := filepath.Join(tmp, "names.txt")
	require.NoError(t, os.WriteFile(namesFile, []byte("report.pdf\r\n"), 0644))

	eng := newEngine(t, operation.Options{LockDestination: true})
	report, err := eng.Run(ctx, operation.SearchRequest{
		NameListPath:         namesFile,
		Roots:                []string{root},
		ExcludeSystemFolders: false,
		Destination:          dest,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), report.TotalMatches, "dangling link is skipped and the loop is not followed")
	assert.Equal(t, int64(1), report.FilesCopied)

	got, err := os.ReadFile(filepath.Join(dest, "report.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(got))

	info, err := os.Stat(filepath.Join(dest, "report.pdf"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	require.Len(t, entries, 1, "the lock file should be gone once the run ends")
	assert.Equal(t, "report.pdf", entries[0].Name())
}

func TestNewRejectsNegativeInterval(t *testing.T) {
	_, err := operation.New(operation.Options{ProgressInterval: -1})
	assert.Error(t, err)
}

// 🧪 TestRunNestedRoots copies a file reachable from two roots once
func TestRunNestedRoots(t *testing.T) {
	ctx, fs := createTestEnv(t, "a.txt\n",
		"/home/u/docs/a.txt",
		"/Volumes/Data/a.txt",
	)
	req := request("/home/u", "/", "/Volumes/Data")
	req.Collision = copier.PolicyRename

	report, err := newEngine(t, operation.Options{Fs: fs}).Run(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, int64(2), report.TotalMatches)
	assert.Equal(t, int64(2), report.FilesCopied)
	assert.Equal(t, []string{"a (1).txt", "a.txt"}, destFiles(t, fs))
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// slowListFs takes time whenever the name list is opened
type slowListFs struct {
	afero.Fs
	clock *fakeClock
	list  string
}

func (f *slowListFs) Open(name string) (afero.File, error) {
	if name == f.list {
		f.clock.Advance(3 * time.Second)
	}
	return f.Fs.Open(name)
}

// 🧪 TestRunElapsedFromAccept counts name list loading in the elapsed time
func TestRunElapsedFromAccept(t *testing.T) {
	ctx, fs := createTestEnv(t, "a.txt\n", "/home/u/a.txt")
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: start}

	eng := newEngine(t, operation.Options{
		Fs:    &slowListFs{Fs: fs, clock: clock, list: "/lists/names.txt"},
		Clock: clock.Now,
	})
	report, err := eng.Run(ctx, request("/home/u"))
	require.NoError(t, err)

	assert.True(t, start.Equal(report.StartedAt), "run should start when it is accepted")
	assert.InDelta(t, 3.0, report.ElapsedSeconds, 0.001)
}

// 🧪 TestRunDefaultsHomeRoot keeps home dotfiles when HomeRoot is not set
func TestRunDefaultsHomeRoot(t *testing.T) {
	ctx, fs := createTestEnv(t, "a.txt\n", "/home/u/.config/a.txt", "/srv/.hidden/a.txt")
	req := request("/home/u", "/srv")
	req.HomeRoot = ""

	eng := newEngine(t, operation.Options{
		Fs:      fs,
		HomeDir: func() (string, error) { return "/home/u", nil },
	})
	report, err := eng.Run(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, int64(1), report.FilesCopied)
	got, err := afero.ReadFile(fs, "/out/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "data:/home/u/.config/a.txt", string(got))
}

func TestRunHomeDirError(t *testing.T) {
	ctx, fs := createTestEnv(t, "a.txt\n", "/home/u/a.txt")
	req := request("/home/u")
	req.HomeRoot = ""

	eng := newEngine(t, operation.Options{
		Fs:      fs,
		HomeDir: func() (string, error) { return "", errors.New("no home") },
	})
	report, err := eng.Run(ctx, req)
	require.Error(t, err)
	assert.Nil(t, report)
	assert.Contains(t, err.Error(), "no home")
}

// 🧪 TestRunLockSkippedOnVirtualFs leaves a virtual destination untouched
func TestRunLockSkippedOnVirtualFs(t *testing.T) {
	ctx, fs := createTestEnv(t, "a.txt\n", "/home/u/a.txt")

	report, err := newEngine(t, operation.Options{Fs: fs, LockDestination: true}).Run(ctx, request("/home/u"))
	require.NoError(t, err)

	assert.Equal(t, int64(1), report.FilesCopied)
	assert.Equal(t, []string{"a.txt"}, destFiles(t, fs))
}
