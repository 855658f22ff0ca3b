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

package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/filefinder/cmd/filefinder/opts"
	"github.com/walteh/filefinder/pkg/config"
	"github.com/walteh/filefinder/pkg/copier"
	"github.com/walteh/filefinder/pkg/history"
	"github.com/walteh/filefinder/pkg/log"
	"github.com/walteh/filefinder/pkg/operation"
	"github.com/walteh/filefinder/pkg/provider"
	"github.com/walteh/filefinder/pkg/status"
)

type findFlags struct {
	names         string
	dest          string
	roots         []string
	excludes      []string
	includeSystem bool
	collision     string
	history       string
	asJSON        bool
	verbose       bool
}

// NewFindCmd creates the find command
func NewFindCmd(o *opts.RootOpts) *cobra.Command {
	f := &findFlags{}

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Search for the listed names and copy every match",
		Long: `Find reads one file name per line from the names file, walks every root
in parallel and copies each matching file flat into the destination folder.
It will:
1. Load the name list
2. Walk the home directory and mounted volumes (or --root)
3. Copy matches one by one into --dest
4. Print how many files were searched and copied`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(cmd, o, f)
		},
	}

	cmd.Flags().StringVarP(&f.names, "names", "n", "", "file with one target name per line")
	cmd.Flags().StringVarP(&f.dest, "dest", "o", "", "existing folder receiving the copies")
	cmd.Flags().StringArrayVarP(&f.roots, "root", "r", nil, "root to walk instead of home and volumes (repeatable)")
	cmd.Flags().StringArrayVarP(&f.excludes, "exclude", "x", nil, "doublestar pattern never visited (repeatable)")
	cmd.Flags().BoolVar(&f.includeSystem, "include-system", false, "also walk system folders and hidden paths")
	cmd.Flags().StringVar(&f.collision, "collision", "", fmt.Sprintf("what to do when a copy already exists %v", copier.Policies))
	cmd.Flags().StringVar(&f.history, "history", "", "SQLite database recording finished runs")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "print the final report as JSON")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "print every copied file")

	return cmd
}

// buildRequest applies flags over the loaded config
func buildRequest(cmd *cobra.Command, cfg *config.Config, f *findFlags) (*operation.SearchRequest, []string, string, error) {
	req := &operation.SearchRequest{
		NameListPath:         cfg.NamesFile,
		Destination:          cfg.Destination,
		ExcludeSystemFolders: cfg.ExcludeSystem(),
		Excludes:             append([]string(nil), cfg.Excludes...),
		Collision:            cfg.CollisionPolicy(),
	}
	roots := cfg.Roots
	historyPath := cfg.HistoryDB

	if f.names != "" {
		req.NameListPath = f.names
	}
	if f.dest != "" {
		req.Destination = f.dest
	}
	if len(f.roots) > 0 {
		roots = f.roots
	}
	if cmd.Flags().Changed("include-system") {
		req.ExcludeSystemFolders = !f.includeSystem
	}
	req.Excludes = append(req.Excludes, f.excludes...)
	if f.collision != "" {
		p, err := copier.ParsePolicy(f.collision)
		if err != nil {
			return nil, nil, "", err
		}
		req.Collision = p
	}
	if f.history != "" {
		historyPath = f.history
	}

	if req.NameListPath == "" {
		return nil, nil, "", errors.New("a names file is required (--names or names_file)")
	}
	if req.Destination == "" {
		return nil, nil, "", errors.New("a destination is required (--dest or destination)")
	}

	var err error
	if req.NameListPath, err = filepath.Abs(req.NameListPath); err != nil {
		return nil, nil, "", errors.Errorf("resolving names file: %w", err)
	}
	if req.Destination, err = filepath.Abs(req.Destination); err != nil {
		return nil, nil, "", errors.Errorf("resolving destination: %w", err)
	}
	absRoots := make([]string, 0, len(roots))
	for _, r := range roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			return nil, nil, "", errors.Errorf("resolving root %s: %w", r, err)
		}
		absRoots = append(absRoots, abs)
	}

	return req, absRoots, historyPath, nil
}

func runFind(cmd *cobra.Command, o *opts.RootOpts, f *findFlags) error {
	ctx := cmd.Context()
	logger := zerolog.Ctx(ctx)
	out := cmd.OutOrStdout()

	req, roots, historyPath, err := buildRequest(cmd, o.Config, f)
	if err != nil {
		return err
	}

	prov, err := provider.New(ctx, roots)
	if err != nil {
		return errors.Errorf("creating root provider: %w", err)
	}
	if req.Roots, err = prov.Roots(ctx); err != nil {
		return errors.Errorf("listing roots: %w", err)
	}
	if req.HomeRoot, err = prov.Home(ctx); err != nil {
		return errors.Errorf("finding home directory: %w", err)
	}

	if !f.asJSON {
		o.UserLogger.LogRoots(req.Roots)
	}

	formatter := status.NewDefaultFormatter()
	engineOpts := operation.Options{
		LockDestination:  true,
		ProgressInterval: o.Config.Interval(),
	}

	var spinner *pterm.SpinnerPrinter
	if !f.asJSON && !f.verbose && isTerminal(out) {
		spinner, err = pterm.DefaultSpinner.Start("Starting search")
		if err != nil {
			logger.Debug().Err(err).Msg("starting spinner")
			spinner = nil
		}
	}
	if spinner != nil {
		engineOpts.OnProgress = func(s status.Snapshot) {
			spinner.UpdateText(formatter.FormatProgress(s))
		}
	}

	if f.verbose && !f.asJSON {
		level := zerolog.InfoLevel
		if o.Debug {
			level = zerolog.DebugLevel
		}
		console := log.New(out, level)
		console.StartRun(ctx, log.RunOperation{
			NamesFile:   req.NameListPath,
			Destination: req.Destination,
			Roots:       req.Roots,
		})
		defer console.EndRun(ctx)
		engineOpts.Observer = console
	}

	engine, err := operation.New(engineOpts)
	if err != nil {
		return errors.Errorf("creating engine: %w", err)
	}

	report, runErr := engine.Run(ctx, *req)
	if spinner != nil {
		if report == nil {
			spinner.Fail("Search failed")
		} else {
			spinner.Success(formatter.FormatProgress(lastSnapshot(engine)))
		}
	}
	if report == nil {
		return runErr
	}

	if historyPath != "" {
		if err := recordHistory(ctx, historyPath, report, req); err != nil {
			o.UserLogger.LogValidation(false, "Could not record run history", err)
		}
	}

	if err := writeReport(out, cmd.ErrOrStderr(), formatter, report, f.asJSON); err != nil {
		return err
	}

	return runErr
}

func lastSnapshot(engine *operation.Engine) status.Snapshot {
	s, _ := engine.Progress()
	return s
}

func recordHistory(ctx context.Context, path string, report *status.FinalReport, req *operation.SearchRequest) error {
	store, err := history.Open(ctx, path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Record(ctx, report, req)
}

func writeReport(out, errOut io.Writer, formatter status.Formatter, report *status.FinalReport, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return errors.Errorf("encoding report: %w", err)
		}
		return nil
	}

	for _, ce := range report.Errors {
		fmt.Fprintln(errOut, formatter.FormatError(ce))
	}
	_, err := fmt.Fprint(out, formatter.FormatReport(report))
	return err
}

// isTerminal reports whether w is an interactive terminal
func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}
