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

package status

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/walteh/filefinder/pkg/copier"
	"gitlab.com/tozd/go/errors"
)

// 📊 Phase is the lifecycle stage of a run
type Phase int32

const (
	PhaseIdle     Phase = iota
	PhaseScanning       // Roots are being walked
	PhaseCopying        // Matches are being copied
	PhaseDone           // Terminal
)

// String returns a string representation of Phase
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseScanning:
		return "scanning"
	case PhaseCopying:
		return "copying"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// ErrInvalidTransition is returned when a phase change is not allowed
var ErrInvalidTransition = errors.Base("invalid phase transition")

// 📸 Snapshot is a point-in-time view of a run
type Snapshot struct {
	RunID        string        `json:"run_id"`
	Phase        Phase         `json:"phase"`
	FilesScanned int64         `json:"files_scanned"`
	TotalMatches int64         `json:"total_matches"`
	FilesCopied  int64         `json:"files_copied"`
	FailedCopies int64         `json:"failed_copies"`
	Elapsed      time.Duration `json:"elapsed"`
}

// 🏁 FinalReport is produced once a run reaches PhaseDone
type FinalReport struct {
	RunID          string              `json:"run_id"`
	StartedAt      time.Time           `json:"started_at"`
	FinishedAt     time.Time           `json:"finished_at"`
	FilesScanned   int64               `json:"files_scanned"`
	TotalMatches   int64               `json:"total_matches"`
	FilesCopied    int64               `json:"files_copied"`
	FailedCopies   int64               `json:"failed_copies"`
	Errors         []*copier.CopyError `json:"errors"`
	ElapsedSeconds float64             `json:"elapsed_seconds"`
}

// 🔧 Tracker accumulates the counters of a single run.
// Counters are atomic so workers never block readers; the error list and
// phase timestamps are guarded by mu.
type Tracker struct {
	runID string
	now   func() time.Time

	phase   atomic.Int32
	scanned atomic.Int64
	matches atomic.Int64
	copied  atomic.Int64
	failed  atomic.Int64

	mu         sync.Mutex
	startedAt  time.Time
	finishedAt time.Time
	errs       []*copier.CopyError
}

// 🏭 NewTracker creates an idle tracker with a fresh run ID
func NewTracker() *Tracker {
	return NewTrackerWithClock(time.Now)
}

// NewTrackerWithClock creates a tracker that reads time from now
func NewTrackerWithClock(now func() time.Time) *Tracker {
	return &Tracker{
		runID: uuid.NewString(),
		now:   now,
	}
}

// RunID returns the identifier of the run
func (t *Tracker) RunID() string {
	return t.runID
}

// Phase returns the current phase
func (t *Tracker) Phase() Phase {
	return Phase(t.phase.Load())
}

func (t *Tracker) transition(from []Phase, to Phase) error {
	for _, f := range from {
		if t.phase.CompareAndSwap(int32(f), int32(to)) {
			return nil
		}
	}
	return errors.Errorf("%s -> %s: %w", t.Phase(), to, ErrInvalidTransition)
}

// Start moves the run from idle to scanning and starts the clock
func (t *Tracker) Start() error {
	return t.StartAt(t.now())
}

// StartAt is Start with an explicit start time, for runs accepted before scanning
func (t *Tracker) StartAt(at time.Time) error {
	if err := t.transition([]Phase{PhaseIdle}, PhaseScanning); err != nil {
		return err
	}
	t.mu.Lock()
	t.startedAt = at
	t.mu.Unlock()
	return nil
}

// AddScanned adds n visited entries. Safe for concurrent use.
func (t *Tracker) AddScanned(n int64) {
	t.scanned.Add(n)
}

// BeginCopy freezes the match count and moves the run to copying
func (t *Tracker) BeginCopy(totalMatches int) error {
	if err := t.transition([]Phase{PhaseScanning}, PhaseCopying); err != nil {
		return err
	}
	t.matches.Store(int64(totalMatches))
	return nil
}

// RecordCopied counts one successful copy
func (t *Tracker) RecordCopied(src, dst string) {
	t.copied.Add(1)
}

// RecordFailed counts one failed copy and keeps its error
func (t *Tracker) RecordFailed(err *copier.CopyError) {
	t.failed.Add(1)
	t.mu.Lock()
	t.errs = append(t.errs, err)
	t.mu.Unlock()
}

// Snapshot returns the current counters
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	started, finished := t.startedAt, t.finishedAt
	t.mu.Unlock()

	var elapsed time.Duration
	switch {
	case started.IsZero():
	case finished.IsZero():
		elapsed = t.now().Sub(started)
	default:
		elapsed = finished.Sub(started)
	}

	return Snapshot{
		RunID:        t.runID,
		Phase:        t.Phase(),
		FilesScanned: t.scanned.Load(),
		TotalMatches: t.matches.Load(),
		FilesCopied:  t.copied.Load(),
		FailedCopies: t.failed.Load(),
		Elapsed:      elapsed,
	}
}

// Finish stops the clock, moves the run to done and builds the report.
// A run may finish from scanning when it was interrupted before copying.
func (t *Tracker) Finish() (*FinalReport, error) {
	if err := t.transition([]Phase{PhaseCopying, PhaseScanning}, PhaseDone); err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.finishedAt = t.now()
	errs := make([]*copier.CopyError, len(t.errs))
	copy(errs, t.errs)
	started, finished := t.startedAt, t.finishedAt
	t.mu.Unlock()

	return &FinalReport{
		RunID:          t.runID,
		StartedAt:      started,
		FinishedAt:     finished,
		FilesScanned:   t.scanned.Load(),
		TotalMatches:   t.matches.Load(),
		FilesCopied:    t.copied.Load(),
		FailedCopies:   t.failed.Load(),
		Errors:         errs,
		ElapsedSeconds: finished.Sub(started).Seconds(),
	}, nil
}
