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
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/filefinder/cmd/filefinder/opts"
	"github.com/walteh/filefinder/pkg/history"
	"github.com/walteh/filefinder/pkg/status"
)

// ErrNoHistory is returned when no history database is configured
var ErrNoHistory = errors.Base("no history database configured (--history or history_db)")

// NewHistoryCmd creates the history command
func NewHistoryCmd(o *opts.RootOpts) *cobra.Command {
	var (
		path   string
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if path == "" {
				path = o.Config.HistoryDB
			}
			if path == "" {
				return errors.WithStack(ErrNoHistory)
			}

			store, err := history.Open(ctx, path)
			if err != nil {
				return errors.Errorf("opening history: %w", err)
			}
			defer store.Close()

			runs, err := store.List(ctx, limit)
			if err != nil {
				return errors.Errorf("listing history: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}

			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet")
				return nil
			}

			table, err := pterm.DefaultTable.WithHasHeader().WithData(historyTable(runs)).Srender()
			if err != nil {
				return errors.Errorf("rendering history: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "history", "", "SQLite database recording finished runs")
	cmd.Flags().IntVarP(&limit, "limit", "l", history.DefaultLimit, "number of runs to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")

	return cmd
}

func historyTable(runs []*history.Run) pterm.TableData {
	data := pterm.TableData{{"Started", "Destination", "Searched", "Copied", "Failed", "Seconds"}}
	for _, r := range runs {
		data = append(data, []string{
			r.StartedAt.Local().Format(time.DateTime),
			r.Destination,
			strconv.FormatInt(r.FilesScanned, 10),
			strconv.FormatInt(r.FilesCopied, 10),
			strconv.FormatInt(r.FailedCopies, 10),
			status.FormatSeconds(r.ElapsedSeconds),
		})
	}
	return data
}
