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

package names

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// 📛 InputReadError is returned when the name list cannot be read or decoded
type InputReadError struct {
	Path  string
	Cause error
}

func (e *InputReadError) Error() string {
	return "reading name list " + e.Path + ": " + e.Cause.Error()
}

func (e *InputReadError) Unwrap() error {
	return e.Cause
}

// ErrInvalidEncoding is the cause used when the name list is not UTF-8
var ErrInvalidEncoding = errors.Base("name list is not valid UTF-8")

// 📥 Load reads the name list at path and returns its non-empty lines in order.
// Trailing whitespace (including a carriage return) is trimmed from every line.
// Duplicates are kept.
func Load(ctx context.Context, fs afero.Fs, path string) ([]string, error) {
	zerolog.Ctx(ctx).Debug().Str("path", path).Msg("loading name list")

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, &InputReadError{Path: path, Cause: err}
	}

	if !utf8.Valid(data) {
		return nil, &InputReadError{Path: path, Cause: ErrInvalidEncoding}
	}

	return Parse(string(data)), nil
}

// Parse splits name list content into names.
func Parse(content string) []string {
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r\v\f")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// 🎯 Set is the read-only set of base names searched for during a run
type Set map[string]struct{}

// NewSet builds a Set from the given names
func NewSet(list []string) Set {
	s := make(Set, len(list))
	for _, n := range list {
		s[n] = struct{}{}
	}
	return s
}

// Contains reports whether base is one of the target names. Matching is exact and case sensitive.
func (s Set) Contains(base string) bool {
	_, ok := s[base]
	return ok
}

// Len returns the number of distinct names
func (s Set) Len() int {
	return len(s)
}
