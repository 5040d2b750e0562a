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

package lifecycle

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrProcessNotRunning is returned when the process does not exist.
	ErrProcessNotRunning = errors.New("process not running")

	// ErrUnsupported is returned when process enumeration is not available
	// on the current platform.
	ErrUnsupported = errors.New("process enumeration not supported on this platform")
)

// IsProcessRunning checks if a process with the given PID is alive.
// Non-positive PIDs are never running.
func IsProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	return isRunning(pid)
}

// FindPID returns the id of a running process whose executable name
// matches name, or 0 when none does. Matching ignores directories and,
// on Windows, case.
func FindPID(name string) (int, error) {
	if name == "" {
		return 0, errors.New("process name is required")
	}
	pid, err := findPID(name)
	if err != nil {
		return 0, fmt.Errorf("failed to enumerate processes: %w", err)
	}
	return pid, nil
}

// IsProcess reports whether pid is alive and still runs the executable
// name. A dead pid is (false, nil); an error means pid is alive but its
// executable could not be read.
func IsProcess(pid int, name string) (bool, error) {
	if pid <= 0 || !isRunning(pid) {
		return false, nil
	}
	return pidMatches(pid, name)
}

// Terminate forcibly ends the process. The handle used to do so is
// acquired here and released before returning on every path.
func Terminate(pid int) error {
	if pid <= 0 {
		return fmt.Errorf("%w: invalid pid %d", ErrProcessNotRunning, pid)
	}
	return terminate(pid)
}

// executableMatches reports whether the executable path or name refers to
// want. Paths reported by Wine or Proton use backslashes even on Unix
// hosts, so both separators are stripped.
func executableMatches(exe, want string) bool {
	exe = strings.TrimSpace(exe)
	if exe == "" {
		return false
	}
	if i := strings.LastIndex(exe, `\`); i >= 0 {
		exe = exe[i+1:]
	}
	exe = filepath.Base(exe)
	return strings.EqualFold(exe, want)
}

// System implements the launcher's process operations on top of the
// host operating system.
type System struct {
	spawner *Spawner
}

// NewSystem creates a System that launches through spawner.
// A nil spawner uses NewSpawner().
func NewSystem(spawner *Spawner) *System {
	if spawner == nil {
		spawner = NewSpawner()
	}
	return &System{spawner: spawner}
}

// FindPID implements process discovery by executable name.
func (s *System) FindPID(name string) (int, error) {
	return FindPID(name)
}

// IsGame reports whether pid is still the process named name.
func (s *System) IsGame(pid int, name string) (bool, error) {
	return IsProcess(pid, name)
}

// Terminate forcibly ends pid.
func (s *System) Terminate(pid int) error {
	return Terminate(pid)
}

// OpenURI hands uri to the platform opener.
func (s *System) OpenURI(uri string) error {
	return s.spawner.OpenURI(uri)
}

// Start runs an executable detached from the launcher.
func (s *System) Start(path string, args []string) (int, error) {
	return s.spawner.SpawnDetached(path, args, "")
}
