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
	"testing"

	"github.com/stretchr/testify/assert"
	"gitlab.com/tozd/go/errors"
)

func TestFormatProgress(t *testing.T) {
	f := NewDefaultFormatter()

	tests := []struct {
		name string
		snap Snapshot
		want string
	}{
		{
			name: "idle",
			snap: Snapshot{Phase: PhaseIdle},
			want: "💤 Idle",
		},
		{
			name: "scanning",
			snap: Snapshot{Phase: PhaseScanning, FilesScanned: 1234},
			want: "🔍 1234 files scanned",
		},
		{
			name: "copying_half",
			snap: Snapshot{Phase: PhaseCopying, TotalMatches: 4, FilesCopied: 1, FailedCopies: 1},
			want: "⏳ Copying: 2/4 (50%)",
		},
		{
			name: "copying_nothing",
			snap: Snapshot{Phase: PhaseCopying},
			want: "⏳ Copying: 0/0 (100%)",
		},
		{
			name: "done",
			snap: Snapshot{Phase: PhaseDone, FilesCopied: 3, FailedCopies: 1},
			want: "✅ Done: 3 copied, 1 failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.FormatProgress(tt.snap))
		})
	}
}

func TestFormatReport(t *testing.T) {
	f := NewDefaultFormatter()

	t.Run("no_failures", func(t *testing.T) {
		got := f.FormatReport(&FinalReport{FilesScanned: 100, FilesCopied: 2, ElapsedSeconds: 1.23456})
		assert.Equal(t, "Searched 100 files\nCopied 2 files\nTime elapsed: 1.23 seconds\n", got)
	})

	t.Run("with_failures", func(t *testing.T) {
		got := f.FormatReport(&FinalReport{FilesScanned: 10, FilesCopied: 1, FailedCopies: 2, ElapsedSeconds: 0.005})
		assert.Equal(t, "Searched 10 files\nCopied 1 files\nFailed to copy 2 files\nTime elapsed: 0.01 seconds\n", got)
	})
}

func TestFormatError(t *testing.T) {
	f := NewDefaultFormatter()
	assert.Empty(t, f.FormatError(nil))
	assert.Equal(t, "❌ Error: boom", f.FormatError(errors.New("boom")))
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "0.00", FormatSeconds(0))
	assert.Equal(t, "2.50", FormatSeconds(2.5))
	assert.Equal(t, "61.13", FormatSeconds(61.125001))
}
