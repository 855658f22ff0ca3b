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

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/filefinder/pkg/copier"
	"github.com/walteh/filefinder/pkg/filter"
	"gitlab.com/tozd/go/errors"
)

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// DefaultProgressInterval is used when progress_interval is not set
const DefaultProgressInterval = 200 * time.Millisecond

// 📚 Config holds search defaults. Every field is optional; command line
// flags take precedence over the file.
type Config struct {
	NamesFile            string   `json:"names_file,omitempty" yaml:"names_file,omitempty"`
	Destination          string   `json:"destination,omitempty" yaml:"destination,omitempty"`
	Roots                []string `json:"roots,omitempty" yaml:"roots,omitempty"`
	ExcludeSystemFolders *bool    `json:"exclude_system_folders,omitempty" yaml:"exclude_system_folders,omitempty"`
	Excludes             []string `json:"excludes,omitempty" yaml:"excludes,omitempty"`
	Collision            string   `json:"collision,omitempty" yaml:"collision,omitempty"`
	HistoryDB            string   `json:"history_db,omitempty" yaml:"history_db,omitempty"`
	ProgressInterval     string   `json:"progress_interval,omitempty" yaml:"progress_interval,omitempty"`

	interval time.Duration
}

// Default returns the configuration used when no file is given
func Default() *Config {
	cfg := &Config{}
	// cannot fail on an empty config
	_ = cfg.Validate()
	return cfg
}

// 🎯 Load loads the configuration from a file
func Load(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}

	cfg.resolve(filepath.Dir(path))

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// resolve makes relative file paths relative to dir
func (cfg *Config) resolve(dir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	cfg.NamesFile = abs(cfg.NamesFile)
	cfg.Destination = abs(cfg.Destination)
	cfg.HistoryDB = abs(cfg.HistoryDB)
}

// 🔍 Validate fills defaults and checks that values are usable
func (cfg *Config) Validate() error {
	if cfg.ExcludeSystemFolders == nil {
		enabled := true
		cfg.ExcludeSystemFolders = &enabled
	}

	if cfg.Collision == "" {
		cfg.Collision = string(copier.PolicyOverwrite)
	}
	if _, err := copier.ParsePolicy(cfg.Collision); err != nil {
		return err
	}

	if err := filter.ValidatePatterns(cfg.Excludes); err != nil {
		return err
	}

	for _, root := range cfg.Roots {
		if !filepath.IsAbs(root) {
			return errors.Errorf("root %q must be an absolute path", root)
		}
	}

	cfg.interval = DefaultProgressInterval
	if cfg.ProgressInterval != "" {
		d, err := time.ParseDuration(cfg.ProgressInterval)
		if err != nil {
			return errors.Errorf("parsing progress_interval: %w", err)
		}
		if d <= 0 {
			return errors.Errorf("progress_interval must be positive")
		}
		cfg.interval = d
	}

	return nil
}

// ExcludeSystem reports whether system folders and hidden paths are skipped
func (cfg *Config) ExcludeSystem() bool {
	return cfg.ExcludeSystemFolders == nil || *cfg.ExcludeSystemFolders
}

// Interval returns the parsed progress interval
func (cfg *Config) Interval() time.Duration {
	if cfg.interval == 0 {
		return DefaultProgressInterval
	}
	return cfg.interval
}

// CollisionPolicy returns the parsed collision policy
func (cfg *Config) CollisionPolicy() copier.Policy {
	p, err := copier.ParsePolicy(cfg.Collision)
	if err != nil {
		return copier.PolicyOverwrite
	}
	return p
}

// 📝 String returns a one line summary of the search
func (cfg *Config) String() string {
	roots := "auto"
	if len(cfg.Roots) > 0 {
		roots = strings.Join(cfg.Roots, ",")
	}
	return fmt.Sprintf("%s [%s] -> %s", cfg.NamesFile, roots, cfg.Destination)
}
