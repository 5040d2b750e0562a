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

//go:build linux

package lifecycle

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// commLen is the kernel's limit on /proc/<pid>/comm, excluding the NUL.
const commLen = 15

func findPID(name string) (int, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return 0, err
	}

	self := os.Getpid()
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil || pid == self {
			continue
		}
		if processMatches(pid, name) {
			return pid, nil
		}
	}
	return 0, nil
}

func pidMatches(pid int, name string) (bool, error) {
	if _, err := os.Stat(fmt.Sprintf("/proc/%d", pid)); err != nil {
		return false, err
	}
	return processMatches(pid, name), nil
}

// processMatches checks argv[0] first, then falls back to comm which the
// kernel truncates.
func processMatches(pid int, name string) bool {
	if cmd, err := getProcessCommand(pid); err == nil && cmd != "" {
		argv0, _, _ := strings.Cut(cmd, "\x00")
		if executableMatches(argv0, name) {
			return true
		}
	}

	comm, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid))
	if err != nil {
		return false
	}
	want := name
	if len(want) > commLen {
		want = want[:commLen]
	}
	return strings.TrimSpace(string(comm)) == want
}

// getProcessCommand returns the raw NUL-separated command line.
func getProcessCommand(pid int) (string, error) {
	cmdline, err := os.ReadFile(fmt.Sprintf("/proc/%d/cmdline", pid))
	if err != nil {
		return "", fmt.Errorf("failed to read cmdline: %w", err)
	}
	return string(cmdline), nil
}
