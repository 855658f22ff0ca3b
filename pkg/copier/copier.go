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

// Package copier copies matched files into a flat destination directory.
package copier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// 🔀 Policy decides what happens when the destination name is already taken
type Policy string

const (
	// PolicyOverwrite replaces the existing file
	PolicyOverwrite Policy = "overwrite"
	// PolicySkipExisting leaves the existing file and records a failure
	PolicySkipExisting Policy = "skip-existing"
	// PolicyRename writes the copy as "name (N).ext"
	PolicyRename Policy = "rename"
)

// Policies lists the accepted policies
var Policies = []Policy{PolicyOverwrite, PolicySkipExisting, PolicyRename}

// ParsePolicy converts s to a Policy. An empty string means PolicyOverwrite.
func ParsePolicy(s string) (Policy, error) {
	if s == "" {
		return PolicyOverwrite, nil
	}
	for _, p := range Policies {
		if string(p) == s {
			return p, nil
		}
	}
	return "", errors.Errorf("unknown collision policy %q", s)
}

var (
	// ErrDestinationExists is the cause recorded when PolicySkipExisting finds a collision
	ErrDestinationExists = errors.Base("destination file already exists")
	// ErrNotRegular is the cause recorded when a match is not a regular file
	ErrNotRegular = errors.Base("not a regular file")
)

// ❌ CopyError records a single failed copy
type CopyError struct {
	Path  string // Source path
	Dest  string // Destination path that was attempted
	Cause error
}

func (e *CopyError) Error() string {
	return fmt.Sprintf("copying %s to %s: %v", e.Path, e.Dest, e.Cause)
}

func (e *CopyError) Unwrap() error {
	return e.Cause
}

// MarshalJSON renders the cause as a string
func (e *CopyError) MarshalJSON() ([]byte, error) {
	cause := ""
	if e.Cause != nil {
		cause = e.Cause.Error()
	}
	return json.Marshal(struct {
		Path  string `json:"path"`
		Dest  string `json:"dest"`
		Cause string `json:"cause"`
	}{e.Path, e.Dest, cause})
}

// 📈 Recorder observes copy outcomes as they happen
type Recorder interface {
	RecordCopied(src, dst string)
	RecordFailed(err *CopyError)
}

// 📦 Result summarises a copy batch
type Result struct {
	Copied int64
	Failed int64
	Errors []*CopyError
}

// 📋 Copier copies files one at a time into Destination
type Copier struct {
	Fs          afero.Fs
	Destination string
	Policy      Policy
}

// 🏭 New creates a copier
func New(fs afero.Fs, destination string, policy Policy) *Copier {
	if policy == "" {
		policy = PolicyOverwrite
	}
	return &Copier{
		Fs:          fs,
		Destination: filepath.Clean(destination),
		Policy:      policy,
	}
}

// CheckDestination verifies that the destination exists and is a directory
func (c *Copier) CheckDestination() error {
	info, err := c.Fs.Stat(c.Destination)
	if err != nil {
		return errors.Errorf("checking destination: %w", err)
	}
	if !info.IsDir() {
		return errors.Errorf("destination %s is not a directory", c.Destination)
	}
	return nil
}

// Copy copies every source into the destination in order. A failed file is
// recorded and the batch continues. The context is checked before each file;
// on cancellation the files not yet attempted are left out of the result.
func (c *Copier) Copy(ctx context.Context, sources []string, rec Recorder) (*Result, error) {
	logger := zerolog.Ctx(ctx)
	res := &Result{}

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return res, errors.Errorf("copying files: %w", err)
		}

		dst, err := c.copyOne(src)
		if err != nil {
			cerr := &CopyError{Path: src, Dest: dst, Cause: err}
			res.Failed++
			res.Errors = append(res.Errors, cerr)
			logger.Debug().Str("src", src).Str("dst", dst).Err(err).Msg("copy failed")
			if rec != nil {
				rec.RecordFailed(cerr)
			}
			continue
		}

		res.Copied++
		logger.Debug().Str("src", src).Str("dst", dst).Msg("copied file")
		if rec != nil {
			rec.RecordCopied(src, dst)
		}
	}

	return res, nil
}

// copyOne copies src and returns the destination path it used
func (c *Copier) copyOne(src string) (string, error) {
	dst := filepath.Join(c.Destination, filepath.Base(src))

	info, err := c.Fs.Stat(src)
	if err != nil {
		return dst, errors.Errorf("stat source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return dst, ErrNotRegular
	}

	if _, err := c.Fs.Stat(dst); err == nil {
		switch c.Policy {
		case PolicySkipExisting:
			return dst, ErrDestinationExists
		case PolicyRename:
			dst, err = c.freeName(dst)
			if err != nil {
				return dst, err
			}
		}
	} else if !os.IsNotExist(err) {
		return dst, errors.Errorf("checking destination file: %w", err)
	}

	if err := c.writeAtomic(src, dst, info.Mode().Perm()); err != nil {
		return dst, err
	}
	return dst, nil
}

// writeAtomic copies src into a temp file next to dst and renames it into place
func (c *Copier) writeAtomic(src, dst string, perm os.FileMode) error {
	in, err := c.Fs.Open(src)
	if err != nil {
		return errors.Errorf("opening source file: %w", err)
	}
	defer in.Close()

	tmp, err := afero.TempFile(c.Fs, c.Destination, ".filefinder-*")
	if err != nil {
		return errors.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		c.Fs.Remove(tmpName)
		return errors.Errorf("copying file content: %w", err)
	}
	if err := tmp.Close(); err != nil {
		c.Fs.Remove(tmpName)
		return errors.Errorf("closing temp file: %w", err)
	}
	if err := c.Fs.Chmod(tmpName, perm); err != nil {
		c.Fs.Remove(tmpName)
		return errors.Errorf("setting file mode: %w", err)
	}
	if err := c.Fs.Rename(tmpName, dst); err != nil {
		c.Fs.Remove(tmpName)
		return errors.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// maxRenameAttempts bounds the search for a free "name (N).ext"
const maxRenameAttempts = 10000

func (c *Copier) freeName(dst string) (string, error) {
	dir := filepath.Dir(dst)
	base := filepath.Base(dst)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		// dotfile such as ".bashrc"
		stem, ext = base, ""
	}

	for i := 1; i <= maxRenameAttempts; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
		_, err := c.Fs.Stat(candidate)
		if os.IsNotExist(err) {
			return candidate, nil
		}
		if err != nil {
			return candidate, errors.Errorf("checking destination file: %w", err)
		}
	}
	return dst, errors.Errorf("no free name for %s", base)
}
