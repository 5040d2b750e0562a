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
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestOpenerCommand(t *testing.T) {
	uri := "steam://rungameid/284160"
	tests := []struct {
		goos     string
		wantBin  string
		wantArgs []string
	}{
		{"windows", "rundll32", []string{"url.dll,FileProtocolHandler", uri}},
		{"darwin", "open", []string{uri}},
		{"linux", "xdg-open", []string{uri}},
		{"freebsd", "xdg-open", []string{uri}},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			bin, args := openerCommand(tt.goos, uri)
			if bin != tt.wantBin {
				t.Errorf("binary = %q, want %q", bin, tt.wantBin)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}

func TestSpawner_SpawnDetached(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses POSIX utilities")
	}
	if _, err := exec.LookPath("echo"); err != nil {
		t.Skip("echo not available")
	}

	t.Run("writes output to the log file", func(t *testing.T) {
		logPath := filepath.Join(t.TempDir(), "out", "game.log")

		pid, err := NewSpawner().SpawnDetached("echo", []string{"launched"}, logPath)
		if err != nil {
			t.Fatalf("SpawnDetached() error = %v", err)
		}
		if pid <= 0 {
			t.Errorf("SpawnDetached() pid = %d", pid)
		}

		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			content, _ := os.ReadFile(logPath)
			if strings.Contains(string(content), "launched") {
				return
			}
			time.Sleep(20 * time.Millisecond)
		}
		t.Error("child output never reached the log file")
	})

	t.Run("discards output without a log path", func(t *testing.T) {
		if _, err := NewSpawner().SpawnDetached("echo", []string{"quiet"}, ""); err != nil {
			t.Fatalf("SpawnDetached() error = %v", err)
		}
	})

	t.Run("handles invalid binary path", func(t *testing.T) {
		_, err := NewSpawner().SpawnDetached("/nonexistent/binary", nil, "")
		if err == nil {
			t.Error("SpawnDetached() with invalid binary succeeded, want error")
		}
	})
}

func TestSpawner_OpenURI(t *testing.T) {
	t.Run("rejects empty uri", func(t *testing.T) {
		if err := NewSpawner().OpenURI(""); err == nil {
			t.Error("OpenURI(\"\") succeeded, want error")
		}
	})

	t.Run("reports missing opener", func(t *testing.T) {
		s := NewSpawner().WithEnv([]string{"PATH=" + t.TempDir()})
		s.goos = "linux"
		// exec.Command resolves the binary against the launcher's PATH,
		// so point it at a name that cannot exist.
		if _, err := s.SpawnDetached("launcher-no-such-opener", nil, ""); err == nil {
			t.Error("SpawnDetached() with missing opener succeeded, want error")
		}
	})
}

func TestSpawner_WithEnv(t *testing.T) {
	inherited := len(os.Environ())
	s := NewSpawner().WithEnv([]string{"PROTON_LOG=1"})

	if got := len(s.Env); got != inherited+1 {
		t.Fatalf("len(Env) = %d, want %d", got, inherited+1)
	}
	if got := s.Env[len(s.Env)-1]; got != "PROTON_LOG=1" {
		t.Errorf("last Env entry = %q, want PROTON_LOG=1", got)
	}
}
