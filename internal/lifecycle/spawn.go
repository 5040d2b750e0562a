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
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// Spawner starts detached processes that outlive the launcher.
type Spawner struct {
	// Additional environment variables to pass to the child process
	Env []string

	// goos selects the URI opener; tests override it
	goos string
}

// NewSpawner creates a new process spawner.
func NewSpawner() *Spawner {
	return &Spawner{
		Env:  os.Environ(),
		goos: runtime.GOOS,
	}
}

// WithEnv adds variables to the environment of spawned processes. A
// later entry for the same key wins.
func (s *Spawner) WithEnv(env []string) *Spawner {
	s.Env = append(s.Env, env...)
	return s
}

// OpenURI asks the desktop to open uri (for example a store launch URI).
// The opener exits quickly on its own; the launched application is found
// later by name, not through the returned child.
func (s *Spawner) OpenURI(uri string) error {
	if uri == "" {
		return errors.New("uri is required")
	}
	binary, args := openerCommand(s.goos, uri)
	if _, err := s.SpawnDetached(binary, args, ""); err != nil {
		return fmt.Errorf("failed to open %s: %w", uri, err)
	}
	return nil
}

// openerCommand returns the platform command that opens a URI.
func openerCommand(goos, uri string) (string, []string) {
	switch goos {
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", uri}
	case "darwin":
		return "open", []string{uri}
	default:
		return "xdg-open", []string{uri}
	}
}

// SpawnDetached starts a process in its own session with stdin closed.
// When logPath is set, stdout and stderr are appended there; otherwise
// they are discarded.
//
// Returns the PID of the spawned process.
func (s *Spawner) SpawnDetached(binary string, args []string, logPath string) (int, error) {
	cmd := exec.Command(binary, args...)
	cmd.Env = s.Env
	cmd.Stdin = nil

	if logPath != "" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
			return 0, fmt.Errorf("failed to create log directory: %w", err)
		}
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return 0, fmt.Errorf("failed to open log file: %w", err)
		}
		defer logFile.Close()
		cmd.Stdout = logFile
		cmd.Stderr = logFile
	}

	cmd.SysProcAttr = detachedAttr()

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start process: %w", err)
	}

	pid := cmd.Process.Pid

	// Reap the child in the background so short-lived openers do not
	// linger as zombies for the launcher's lifetime.
	go cmd.Wait()

	return pid, nil
}
