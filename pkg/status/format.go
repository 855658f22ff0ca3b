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
	"fmt"
	"strings"
)

// Formatter defines how progress and reports are rendered for people
type Formatter interface {
	// FormatProgress formats a live progress line
	FormatProgress(s Snapshot) string

	// FormatReport formats the summary printed when a run is done
	FormatReport(r *FinalReport) string

	// FormatError formats an error message
	FormatError(err error) string
}

// DefaultFormatter provides a default implementation of Formatter
type DefaultFormatter struct{}

// NewDefaultFormatter creates a new DefaultFormatter
func NewDefaultFormatter() *DefaultFormatter {
	return &DefaultFormatter{}
}

// FormatProgress formats a progress message for the current phase
func (f *DefaultFormatter) FormatProgress(s Snapshot) string {
	switch s.Phase {
	case PhaseScanning:
		return fmt.Sprintf("🔍 %d files scanned", s.FilesScanned)
	case PhaseCopying:
		done := s.FilesCopied + s.FailedCopies
		var percentage float64
		if s.TotalMatches == 0 {
			percentage = 100
		} else {
			percentage = float64(done) / float64(s.TotalMatches) * 100
		}
		return fmt.Sprintf("⏳ Copying: %d/%d (%.0f%%)", done, s.TotalMatches, percentage)
	case PhaseDone:
		return fmt.Sprintf("✅ Done: %d copied, %d failed", s.FilesCopied, s.FailedCopies)
	default:
		return "💤 Idle"
	}
}

// FormatReport formats the final summary with two-decimal elapsed seconds
func (f *DefaultFormatter) FormatReport(r *FinalReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Searched %d files\n", r.FilesScanned)
	fmt.Fprintf(&b, "Copied %d files\n", r.FilesCopied)
	if r.FailedCopies > 0 {
		fmt.Fprintf(&b, "Failed to copy %d files\n", r.FailedCopies)
	}
	fmt.Fprintf(&b, "Time elapsed: %s seconds\n", FormatSeconds(r.ElapsedSeconds))
	return b.String()
}

// FormatError formats an error message with emoji
func (f *DefaultFormatter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("❌ Error: %v", err)
}

// FormatSeconds renders seconds with two decimals
func FormatSeconds(seconds float64) string {
	return fmt.Sprintf("%.2f", seconds)
}
