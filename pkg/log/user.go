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

package log

import (
	"context"
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
)

// 📢 UserLogger prints short pterm-styled notices for people at a terminal
type UserLogger struct {
	log zerolog.Logger // for debug/error logging
	out io.Writer
}

// 🎯 NewUserLogger creates a new user logger
func NewUserLogger(ctx context.Context) *UserLogger {
	return &UserLogger{
		log: *zerolog.Ctx(ctx),
		out: os.Stdout,
	}
}

// WithWriter sends printed notices to w
func (u *UserLogger) WithWriter(w io.Writer) *UserLogger {
	u.out = w
	return u
}

func (u *UserLogger) printer(p pterm.PrefixPrinter, prefix string) *pterm.PrefixPrinter {
	return p.WithPrefix(pterm.Prefix{Text: prefix, Style: p.Prefix.Style}).WithWriter(u.out)
}

// 📊 LogStateChange logs a change to the overall state of a run
func (u *UserLogger) LogStateChange(description string) {
	printer := u.printer(pterm.Info, "📦")
	printer.Println(description)
	u.log.Info().Msg(description)
}

// 🗂️ LogRoots lists the roots a run will walk
func (u *UserLogger) LogRoots(roots []string) {
	printer := u.printer(pterm.Info, "📂")
	for _, r := range roots {
		printer.Println(r)
	}
	u.log.Debug().Strs("roots", roots).Msg("walking roots")
}

// 🔍 LogValidation logs validation results
func (u *UserLogger) LogValidation(valid bool, description string, err error) {
	if valid {
		u.printer(pterm.Success, "✅").Println(description)
		u.log.Info().Msg(description)
		return
	}
	if err != nil {
		u.printer(pterm.Error, "❌").Println(description)
		pterm.Error.WithWriter(u.out).Println(err)
		u.log.Error().Err(err).Msg(description)
		return
	}
	u.printer(pterm.Warning, "⚠️").Println(description)
	u.log.Warn().Msg(description)
}
