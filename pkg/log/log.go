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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/walteh/filefinder/pkg/copier"
)

// 🎨 Display configuration
const (
	fileIndent  = 4  // spaces to indent file entries
	nameWidth   = 35 // Base width for filename
	statusWidth = 15 // Width for status text
)

// 🎯 CopyOperation is a single flat copy for logging
type CopyOperation struct {
	Source string // Matched file
	Dest   string // Flat destination path
	Failed bool   // Whether the copy failed
	Cause  string // Failure reason
}

// 📦 RunOperation describes a search run for logging
type RunOperation struct {
	RunID       string   // Run identifier
	NamesFile   string   // Name list path
	Destination string   // Copy destination
	Roots       []string // Roots being walked
}

// 🎯 Logger handles structured logging with console output
type Logger struct {
	zlog       zerolog.Logger
	console    io.Writer
	mu         sync.Mutex
	currentRun *RunOperation
	operations []CopyOperation
}

// 🏭 New creates a new logger
func New(console io.Writer, level zerolog.Level) *Logger {
	zlog := zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stderr
	})).With().Timestamp().Logger().Level(level)
	return &Logger{
		zlog:    zlog,
		console: console,
		mu:      sync.Mutex{},
	}
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		panic("logger not found in context")
	}
	return logger
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// 📝 formatCopyOperation formats a copy for display
func (l *Logger) formatCopyOperation(op CopyOperation) string {
	symbol := '✓'
	symbolColor := color.FgGreen
	status := "copied"
	if op.Failed {
		symbol = '✗'
		symbolColor = color.FgRed
		status = "failed"
	}

	line := fmt.Sprintf("%s%s %s %s %s",
		fmt.Sprintf("%*s", fileIndent, ""),
		color.New(symbolColor).Sprint(string(symbol)),
		fmt.Sprintf("%-*s", nameWidth, filepath.Base(op.Dest)),
		color.New(symbolColor).Sprint(fmt.Sprintf("%-*s", statusWidth, status)),
		color.New(color.Faint).Sprint(op.Source))
	if op.Failed && op.Cause != "" {
		line += " " + color.New(color.FgRed).Sprint("("+op.Cause+")")
	}
	return line
}

// 📝 LogCopyOperation logs a copy
func (l *Logger) LogCopyOperation(ctx context.Context, op CopyOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.operations = append(l.operations, op)

	fmt.Fprintln(l.console, l.formatCopyOperation(op))

	ev := l.zlog.Debug()
	if op.Failed {
		ev = l.zlog.Warn().Str("cause", op.Cause)
	}
	ev.Str("source", op.Source).
		Str("dest", op.Dest).
		Bool("failed", op.Failed).
		Msg("copy operation")
}

// RecordCopied logs a successful copy
func (l *Logger) RecordCopied(src, dst string) {
	l.LogCopyOperation(context.Background(), CopyOperation{Source: src, Dest: dst})
}

// RecordFailed logs a failed copy
func (l *Logger) RecordFailed(err *copier.CopyError) {
	op := CopyOperation{Source: err.Path, Dest: err.Dest, Failed: true}
	if err.Cause != nil {
		op.Cause = err.Cause.Error()
	}
	l.LogCopyOperation(context.Background(), op)
}

// 📝 StartRun starts a new run section
func (l *Logger) StartRun(ctx context.Context, op RunOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.currentRun = &op
	l.operations = nil

	fmt.Fprintf(l.console, "[copying into %s]\n",
		color.New(color.FgCyan).Sprint(op.Destination))

	fmt.Fprintf(l.console, "%s %s %s %s\n",
		color.New(color.FgMagenta).Sprint("◆"),
		color.New(color.Bold).Sprint(op.NamesFile),
		color.New(color.Faint).Sprint("•"),
		color.New(color.FgYellow).Sprint(rootsLabel(op.Roots)))

	l.zlog.Info().
		Str("run_id", op.RunID).
		Str("names_file", op.NamesFile).
		Str("destination", op.Destination).
		Strs("roots", op.Roots).
		Msg("starting run")
}

func rootsLabel(roots []string) string {
	switch len(roots) {
	case 0:
		return "auto roots"
	case 1:
		return roots[0]
	default:
		return fmt.Sprintf("%d roots", len(roots))
	}
}

// 📝 EndRun ends the current run section
func (l *Logger) EndRun(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.currentRun == nil {
		return
	}

	failed := 0
	for _, op := range l.operations {
		if op.Failed {
			failed++
		}
	}

	l.zlog.Info().
		Str("run_id", l.currentRun.RunID).
		Int("files", len(l.operations)).
		Int("failed", failed).
		Msg("run complete")

	l.currentRun = nil
	l.operations = nil
}

// 📝 LogNewline logs a newline
func (l *Logger) LogNewline() {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.console)
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	nameText := color.New(color.Bold, color.FgCyan).Sprint("filefinder")
	fmt.Fprintf(l.console, "\n%s %s\n\n", nameText, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Success logs a success message
func (l *Logger) Success(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// 📝 Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.Warning(fmt.Sprintf(format, args...))
}

// 📝 Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// 📝 Successf logs a formatted success message
func (l *Logger) Successf(format string, args ...interface{}) {
	l.Success(fmt.Sprintf(format, args...))
}
