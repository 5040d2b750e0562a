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

// Package mods manages the directory the game loads multiplayer mods from.
package mods

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// ErrUnexpectedPath is returned when the configured directory does not
// look like a multiplayer mod directory.
var ErrUnexpectedPath = errors.New("mods: refusing to reset a directory outside mods/multiplayer")

// Manager owns one multiplayer mod directory.
type Manager struct {
	dir    string
	logger *slog.Logger
}

// NewManager returns a manager for dir, which must end in
// mods/multiplayer.
func NewManager(dir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{dir: dir, logger: logger}
}

// Dir returns the managed directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Reset removes everything the previous session downloaded and leaves an
// empty directory behind.
func (m *Manager) Reset() error {
	if err := checkPath(m.dir); err != nil {
		return err
	}

	entries, err := os.ReadDir(m.dir)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read mod directory: %w", err)
	}

	var errs []error
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(m.dir, entry.Name())); err != nil {
			errs = append(errs, err)
		}
	}

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		errs = append(errs, fmt.Errorf("create mod directory: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	m.logger.Debug("multiplayer mods reset", "dir", m.dir, "removed", len(entries))
	return nil
}

func checkPath(dir string) error {
	if dir == "" {
		return ErrUnexpectedPath
	}
	clean := filepath.Clean(dir)
	if filepath.Base(clean) != "multiplayer" || filepath.Base(filepath.Dir(clean)) != "mods" {
		return fmt.Errorf("%w: %s", ErrUnexpectedPath, dir)
	}
	return nil
}
