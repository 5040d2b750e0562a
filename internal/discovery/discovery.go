// Copyright 2025 Tom Barlow
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

// Package discovery locates the game installation and the per-version
// user directory it writes to.
package discovery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/tombee/launcher/internal/version"
)

var (
	// ErrNotInstalled means the source had no complete installation record.
	ErrNotInstalled = errors.New("please launch the game at least once")

	// ErrLocalData means the per-user application data directory is unknown.
	ErrLocalData = errors.New("failed to get path of localAppData")

	// ErrUnsupported is returned by sources not available on this platform.
	ErrUnsupported = errors.New("discovery source not supported on this platform")
)

// Record is what a source knows about the installation. UserPathOverride
// is empty unless the user moved their user directory.
type Record struct {
	RootPath         string
	Version          string
	UserPathOverride string
}

// Source provides the installation record.
type Source interface {
	// Describe names the source in error messages.
	Describe() string
	Lookup() (Record, error)
}

// StaticSource returns a fixed record, typically from the config file.
type StaticSource Record

// Describe implements Source.
func (s StaticSource) Describe() string {
	return "game settings in the config file"
}

// Lookup implements Source.
func (s StaticSource) Lookup() (Record, error) {
	return Record(s), nil
}

// Install is a resolved installation.
type Install struct {
	RootPath string
	Version  string
	Triplet  version.Triplet
	// UserPath is the per-version user directory.
	UserPath string
	// MPUserPath is where multiplayer mods are downloaded.
	MPUserPath string
}

// Resolver turns a Record into an Install.
type Resolver struct {
	// LocalDataDir returns the per-user application data directory. It is
	// only consulted when there is no user path override.
	LocalDataDir func() (string, error)
}

// NewResolver returns a resolver using the platform data directory.
func NewResolver() *Resolver {
	return &Resolver{LocalDataDir: LocalDataDir}
}

// Resolve reads src and derives the user paths. The user directory is
// the override plus "<major>.<minor>", or the local data directory plus
// "BeamNG.drive/<major>.<minor>" when there is no override.
func (r *Resolver) Resolve(src Source) (Install, error) {
	rec, err := src.Lookup()
	if err != nil {
		return Install{}, fmt.Errorf("%w, failed to read %s: %v", ErrNotInstalled, src.Describe(), err)
	}

	inst := Install{RootPath: rec.RootPath, Version: rec.Version}

	if rec.Version != "" {
		t, err := version.Parse(rec.Version)
		if err != nil {
			return Install{}, fmt.Errorf("%w, invalid version in %s: %v", ErrNotInstalled, src.Describe(), err)
		}
		inst.Triplet = t

		if rec.UserPathOverride != "" {
			inst.UserPath = filepath.Join(rec.UserPathOverride, t.MajorMinor())
		} else {
			base, err := r.LocalDataDir()
			if err != nil || base == "" {
				return Install{}, ErrLocalData
			}
			inst.UserPath = filepath.Join(base, "BeamNG.drive", t.MajorMinor())
		}
	}

	if inst.UserPath != "" {
		inst.MPUserPath = filepath.Join(inst.UserPath, "mods", "multiplayer")
	}

	if inst.RootPath == "" || inst.Version == "" || inst.UserPath == "" {
		return Install{}, fmt.Errorf("%w, failed to read %s", ErrNotInstalled, src.Describe())
	}
	return inst, nil
}

// LocalDataDir returns %LOCALAPPDATA% on Windows, the Application Support
// directory on macOS and $XDG_DATA_HOME (or ~/.local/share) elsewhere.
func LocalDataDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return dir, nil
		}
		return os.UserCacheDir()
	case "darwin":
		return os.UserConfigDir()
	}

	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share"), nil
}
