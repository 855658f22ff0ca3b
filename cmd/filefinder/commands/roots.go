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

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/filefinder/cmd/filefinder/opts"
	"github.com/walteh/filefinder/pkg/provider"
	"github.com/walteh/filefinder/pkg/scan"
)

// NewRootsCmd creates the roots command
func NewRootsCmd(o *opts.RootOpts) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "roots",
		Short: "List the roots a search would walk",
		Long: `Roots prints the configured roots, or the home directory followed by every
mounted volume when none are configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			prov, err := provider.New(ctx, o.Config.Roots)
			if err != nil {
				return errors.Errorf("creating root provider: %w", err)
			}
			roots, err := prov.Roots(ctx)
			if err != nil {
				return errors.Errorf("listing roots: %w", err)
			}
			roots = scan.Dedupe(roots)

			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(roots)
			}
			for _, r := range roots {
				fmt.Fprintln(cmd.OutOrStdout(), r)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as a JSON array")

	return cmd
}
