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
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/filefinder/pkg/copier"
	"github.com/walteh/filefinder/pkg/filter"
	"github.com/walteh/filefinder/pkg/names"
	"github.com/walteh/filefinder/pkg/scan"
	"github.com/walteh/filefinder/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// DefaultProgressInterval is how often OnProgress is called when no interval is set
const DefaultProgressInterval = 200 * time.Millisecond

// 🔧 Options contains configuration for the engine
type Options struct {
	// Fs is the filesystem searched and written to, the OS filesystem by default
	Fs afero.Fs
	// LockDestination takes an advisory lock on the destination for the whole run.
	// It only applies when Fs is the OS filesystem.
	LockDestination bool
	// OnProgress receives snapshots while a run is live and once when it ends
	OnProgress func(status.Snapshot)
	// ProgressInterval is the time between OnProgress calls
	ProgressInterval time.Duration
	// Observer is told about every copied and failed file
	Observer copier.Recorder
	// Clock overrides time.Now
	Clock func() time.Time
	// HomeDir fills SearchRequest.HomeRoot when it is empty, os.UserHomeDir by default
	HomeDir func() (string, error)
}

// 🎮 Engine runs searches. One engine may run several searches in turn;
// each run gets a fresh tracker.
type Engine struct {
	opts    Options
	current atomic.Pointer[status.Tracker]
}

// 🏭 New creates an engine with the given options
func New(opts Options) (*Engine, error) {
	if opts.ProgressInterval < 0 {
		return nil, errors.Errorf("progress interval must not be negative")
	}
	if opts.ProgressInterval == 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.HomeDir == nil {
		opts.HomeDir = os.UserHomeDir
	}
	return &Engine{opts: opts}, nil
}

// Progress returns a snapshot of the latest run, or false when nothing has run yet
func (e *Engine) Progress() (status.Snapshot, bool) {
	t := e.current.Load()
	if t == nil {
		return status.Snapshot{}, false
	}
	return t.Snapshot(), true
}

// 🏃 Run executes one search. Elapsed time is measured from the moment Run
// is entered. Fatal errors are returned before the run is started, with a nil report. Once scanning has started a report is always returned;
// the error is then only set when ctx was cancelled.
func (e *Engine) Run(ctx context.Context, req SearchRequest) (*status.FinalReport, error) {
	accepted := e.opts.Clock()
	tracker := status.NewTrackerWithClock(e.opts.Clock)

	logger := zerolog.Ctx(ctx).With().Str("run_id", tracker.RunID()).Logger()
	ctx = logger.WithContext(ctx)
	logger.Debug().
		Str("names", req.NameListPath).
		Strs("roots", req.Roots).
		Str("destination", req.Destination).
		Bool("exclude_system", req.ExcludeSystemFolders).
		Msg("accepted search request")

	if req.HomeRoot == "" && req.ExcludeSystemFolders {
		home, err := e.opts.HomeDir()
		if err != nil {
			return nil, errors.Errorf("finding home directory: %w", err)
		}
		req.HomeRoot = home
		logger.Debug().Str("home", home).Msg("defaulted home root")
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	dest := filepath.Clean(req.Destination)
	cp := copier.New(e.opts.Fs, dest, req.Collision)
	if err := cp.CheckDestination(); err != nil {
		return nil, &InvalidPathError{Field: "destination", Path: req.Destination, Cause: err}
	}

	if e.opts.LockDestination && !isOsFs(e.opts.Fs) {
		logger.Debug().Str("fs", e.opts.Fs.Name()).Msg("destination lock needs the OS filesystem, not locking")
	} else if e.opts.LockDestination {
		lock, err := copier.LockDestination(dest)
		if err != nil {
			return nil, errors.Errorf("locking destination: %w", err)
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				logger.Warn().Err(err).Msg("releasing destination lock")
			}
		}()
	}

	list, err := names.Load(ctx, e.opts.Fs, req.NameListPath)
	if err != nil {
		return nil, err
	}
	targets := names.NewSet(list)
	logger.Debug().Int("names", targets.Len()).Msg("loaded name list")

	e.current.Store(tracker)
	if err := tracker.StartAt(accepted); err != nil {
		return nil, errors.Errorf("starting run: %w", err)
	}

	stop := e.watch(ctx, tracker)
	defer stop()

	flt := filter.New(req.ExcludeSystemFolders, req.HomeRoot, req.Excludes).
		WithLogger(&logger).
		WithPrunedDirs(dest)

	res, scanErr := scan.New(e.opts.Fs, flt, targets).Scan(ctx, req.Roots, tracker)
	if scanErr != nil {
		return e.finish(ctx, tracker, errors.Errorf("scanning: %w", scanErr))
	}

	matches := slices.Clip(res.Matches)
	if err := tracker.BeginCopy(len(matches)); err != nil {
		return nil, errors.Errorf("beginning copy: %w", err)
	}
	logger.Debug().Int("matches", len(matches)).Int64("scanned", res.Scanned).Msg("scan finished")

	var rec copier.Recorder = tracker
	if e.opts.Observer != nil {
		rec = chain{tracker, e.opts.Observer}
	}

	if _, err := cp.Copy(ctx, matches, rec); err != nil {
		return e.finish(ctx, tracker, err)
	}

	return e.finish(ctx, tracker, nil)
}

func (e *Engine) finish(ctx context.Context, tracker *status.Tracker, runErr error) (*status.FinalReport, error) {
	report, err := tracker.Finish()
	if err != nil {
		return nil, errors.Errorf("finishing run: %w", err)
	}

	zerolog.Ctx(ctx).Debug().
		Int64("scanned", report.FilesScanned).
		Int64("copied", report.FilesCopied).
		Int64("failed", report.FailedCopies).
		Float64("elapsed_seconds", report.ElapsedSeconds).
		Msg("run done")

	return report, runErr
}

func isOsFs(fs afero.Fs) bool {
	_, ok := fs.(*afero.OsFs)
	return ok
}

// chain fans copy events out to several recorders
type chain []copier.Recorder

func (c chain) RecordCopied(src, dst string) {
	for _, r := range c {
		r.RecordCopied(src, dst)
	}
}

func (c chain) RecordFailed(err *copier.CopyError) {
	for _, r := range c {
		r.RecordFailed(err)
	}
}
