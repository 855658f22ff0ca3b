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

package copier

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"gitlab.com/tozd/go/errors"
)

// LockFileName is the advisory lock file created in the destination
const LockFileName = ".filefinder.lock"

// ErrDestinationBusy is returned when another run holds the destination lock
var ErrDestinationBusy = errors.Base("destination is in use by another run")

// 🔒 DestinationLock guards a destination directory against concurrent runs
type DestinationLock struct {
	flock *flock.Flock
	path  string
}

// LockDestination takes the advisory lock for dir without blocking
func LockDestination(dir string) (*DestinationLock, error) {
	path := filepath.Join(dir, LockFileName)
	fl := flock.New(path)

	acquired, err := fl.TryLock()
	if err != nil {
		return nil, errors.Errorf("locking %s: %w", path, err)
	}
	if !acquired {
		return nil, errors.Errorf("locking %s: %w", path, ErrDestinationBusy)
	}

	return &DestinationLock{flock: fl, path: path}, nil
}

// Path returns the lock file location
func (l *DestinationLock) Path() string {
	return l.path
}

// Unlock releases the lock and removes the lock file from the destination
func (l *DestinationLock) Unlock() error {
	// removed while the lock is still held
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Errorf("removing %s: %w", l.path, err)
	}
	if err := l.flock.Unlock(); err != nil {
		return errors.Errorf("unlocking %s: %w", l.path, err)
	}
	if err := l.flock.Close(); err != nil {
		return errors.Errorf("closing %s: %w", l.path, err)
	}
	return nil
}
