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

package main

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/filefinder/cmd/filefinder/commands"
	"github.com/walteh/filefinder/cmd/filefinder/opts"
	"github.com/walteh/filefinder/pkg/config"
	"github.com/walteh/filefinder/pkg/log"
)

// newRootCmd builds the command tree. Config is loaded once flags are parsed.
func newRootCmd(o *opts.RootOpts) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "filefinder",
		Short: "Find files by name across your disks and copy them into one folder",
		Long: `filefinder reads a list of file names, walks your home directory and every
mounted volume in parallel, and copies each file whose name is on the list
into a single destination folder.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx := setupLogging(cmd.Context(), cmd.ErrOrStderr(), o.Debug)
			cmd.SetContext(ctx)
			o.UserLogger = log.NewUserLogger(ctx).WithWriter(cmd.ErrOrStderr())
			return loadConfig(ctx, o)
		},
	}

	addRootFlags(rootCmd, o)

	rootCmd.AddCommand(
		commands.NewFindCmd(o),
		commands.NewRootsCmd(o),
		commands.NewHistoryCmd(o),
		newVersionCmd(),
	)

	return rootCmd
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command, o *opts.RootOpts) {
	cmd.PersistentFlags().StringVarP(&o.ConfigFile, "config", "c", "", "config file path (.yaml, .hcl or .json)")
	cmd.PersistentFlags().BoolVarP(&o.Debug, "debug", "d", false, "enable debug logging")
}

// loadConfig reads the config file when one is given, defaults otherwise
func loadConfig(ctx context.Context, o *opts.RootOpts) error {
	if o.ConfigFile == "" {
		o.Config = config.Default()
		return nil
	}
	cfg, err := config.Load(ctx, o.ConfigFile)
	if err != nil {
		return errors.Errorf("loading config: %w", err)
	}
	o.Config = cfg
	return nil
}

// setupLogging configures zerolog based on flags
func setupLogging(ctx context.Context, w io.Writer, debug bool) context.Context {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	if w == nil {
		w = os.Stderr
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: w}).Level(level).With().Timestamp().Logger()
	if ctx == nil {
		ctx = context.Background()
	}
	return logger.WithContext(ctx)
}
