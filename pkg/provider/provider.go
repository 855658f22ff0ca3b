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

package provider

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/moby/sys/mountinfo"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🔌 Provider lists the roots to search, home directory first
type Provider interface {
	// 📂 Roots returns absolute root paths in search order
	Roots(ctx context.Context) ([]string, error)

	// 🏠 Home returns the root under which hidden paths are still visited
	Home(ctx context.Context) (string, error)
}

// 🏭 Factory creates a new provider from explicit roots (which may be empty)
type Factory func(ctx context.Context, roots []string) (Provider, error)

var (
	// 🗺️ providers is a map of provider names to factories
	providers = map[string]Factory{
		"system": func(ctx context.Context, _ []string) (Provider, error) { return NewSystem(), nil },
		"static": func(ctx context.Context, roots []string) (Provider, error) { return NewStatic(roots) },
	}
)

// 📝 Register registers a provider factory
func Register(name string, factory Factory) {
	providers[name] = factory
}

// 🎯 Get returns a provider factory by name
func Get(name string) Factory {
	return providers[name]
}

// New returns the static provider when roots are given, the system provider otherwise
func New(ctx context.Context, roots []string) (Provider, error) {
	name := "system"
	if len(roots) > 0 {
		name = "static"
	}
	zerolog.Ctx(ctx).Debug().Str("provider", name).Msg("selecting root provider")
	return Get(name)(ctx, roots)
}

// 📋 Static returns a fixed list of roots
type Static struct {
	roots []string
}

// NewStatic validates roots and returns a provider for them
func NewStatic(roots []string) (*Static, error) {
	out := make([]string, 0, len(roots))
	for _, r := range roots {
		if !filepath.IsAbs(r) {
			return nil, errors.Errorf("root %q is not an absolute path", r)
		}
		out = append(out, filepath.Clean(r))
	}
	return &Static{roots: out}, nil
}

func (s *Static) Roots(ctx context.Context) ([]string, error) {
	return append([]string(nil), s.roots...), nil
}

// Home returns the user's home directory, even though it may not be one of the roots
func (s *Static) Home(ctx context.Context) (string, error) {
	return homeDir()
}

// 🖥️ System returns the home directory followed by every mounted volume
type System struct {
	home   func() (string, error)
	mounts func() ([]*mountinfo.Info, error)
	goos   string
}

// NewSystem creates a provider backed by the running machine
func NewSystem() *System {
	return &System{
		home: homeDir,
		mounts: func() ([]*mountinfo.Info, error) {
			return mountinfo.GetMounts(nil)
		},
		goos: runtime.GOOS,
	}
}

func (s *System) Home(ctx context.Context) (string, error) {
	return s.home()
}

func (s *System) Roots(ctx context.Context) ([]string, error) {
	logger := zerolog.Ctx(ctx)

	home, err := s.home()
	if err != nil {
		return nil, err
	}

	mounts, err := s.mounts()
	if err != nil {
		return nil, errors.Errorf("listing mounts: %w", err)
	}

	volumes := SelectVolumes(s.goos, mounts)
	logger.Debug().Str("home", home).Strs("volumes", volumes).Msg("resolved roots")

	return append([]string{home}, volumes...), nil
}

func homeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Errorf("resolving home directory: %w", err)
	}
	return filepath.Clean(home), nil
}

// pseudoFilesystems never hold user files
var pseudoFilesystems = map[string]bool{
	"autofs":      true,
	"binfmt_misc": true,
	"bpf":         true,
	"cgroup":      true,
	"cgroup2":     true,
	"configfs":    true,
	"debugfs":     true,
	"devfs":       true,
	"devpts":      true,
	"devtmpfs":    true,
	"fusectl":     true,
	"hugetlbfs":   true,
	"mqueue":      true,
	"nsfs":        true,
	"proc":        true,
	"pstore":      true,
	"securityfs":  true,
	"sysfs":       true,
	"tracefs":     true,
	"tmpfs":       true,
}

// SelectVolumes picks the mount points that count as user volumes.
// On darwin these are "/" and everything under /Volumes; elsewhere every
// mount that is not a pseudo filesystem or a kernel directory.
// The result is sorted.
func SelectVolumes(goos string, mounts []*mountinfo.Info) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range mounts {
		mp := filepath.Clean(m.Mountpoint)
		if seen[mp] || !isVolume(goos, m.FSType, mp) {
			continue
		}
		seen[mp] = true
		out = append(out, mp)
	}
	sort.Strings(out)
	return out
}

func isVolume(goos, fstype, mountpoint string) bool {
	if goos == "darwin" {
		return mountpoint == "/" || strings.HasPrefix(mountpoint, "/Volumes/")
	}
	if pseudoFilesystems[fstype] {
		return false
	}
	for _, kernel := range []string{"/proc", "/sys", "/dev", "/run"} {
		if mountpoint == kernel || strings.HasPrefix(mountpoint, kernel+"/") {
			return false
		}
	}
	return true
}
