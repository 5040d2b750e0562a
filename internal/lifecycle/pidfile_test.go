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
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
)

func TestPIDFileManager_Create(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("creates PID file with correct content", func(t *testing.T) {
		pidPath := filepath.Join(tmpDir, "launcher.pid")
		m := NewPIDFileManager(pidPath)
		defer m.Remove()

		if err := m.Create(1234); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		if !m.Exists() {
			t.Error("PID file does not exist after Create()")
		}

		pid, err := m.Read()
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if pid != 1234 {
			t.Errorf("Read() = %d, want 1234", pid)
		}

		if runtime.GOOS != "windows" {
			info, err := os.Stat(pidPath)
			if err != nil {
				t.Fatalf("Stat() error = %v", err)
			}
			if mode := info.Mode() & os.ModePerm; mode != 0600 {
				t.Errorf("PID file mode = %04o, want 0600", mode)
			}
		}
	})

	t.Run("returns error if file already exists", func(t *testing.T) {
		pidPath := filepath.Join(tmpDir, "duplicate.pid")
		m1 := NewPIDFileManager(pidPath)
		m2 := NewPIDFileManager(pidPath)
		defer m1.Remove()

		if err := m1.Create(1234); err != nil {
			t.Fatalf("First Create() error = %v", err)
		}

		err := m2.Create(5678)
		if !errors.Is(err, ErrPIDFileExists) {
			t.Errorf("Second Create() error = %v, want ErrPIDFileExists", err)
		}
	})

	t.Run("creates parent directory if missing", func(t *testing.T) {
		deepPath := filepath.Join(tmpDir, "nested", "dir", "launcher.pid")
		m := NewPIDFileManager(deepPath)
		defer m.Remove()

		if err := m.Create(1234); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		if _, err := os.Stat(filepath.Dir(deepPath)); err != nil {
			t.Fatalf("Parent directory not created: %v", err)
		}
	})
}

func TestPIDFileManager_CreateReplacingStale(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("replaces file left by a dead launcher", func(t *testing.T) {
		pidPath := filepath.Join(tmpDir, "stale.pid")
		if err := os.WriteFile(pidPath, []byte("999999\n"), 0600); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}

		m := NewPIDFileManager(pidPath)
		defer m.Remove()

		stale, err := m.CreateReplacingStale(os.Getpid())
		if err != nil {
			t.Fatalf("CreateReplacingStale() error = %v", err)
		}
		if stale != 999999 {
			t.Errorf("stale pid = %d, want 999999", stale)
		}

		pid, err := m.Read()
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if pid != os.Getpid() {
			t.Errorf("Read() = %d, want %d", pid, os.Getpid())
		}
	})

	t.Run("replaces file with garbage content", func(t *testing.T) {
		pidPath := filepath.Join(tmpDir, "garbage.pid")
		if err := os.WriteFile(pidPath, []byte("not-a-pid"), 0600); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}

		m := NewPIDFileManager(pidPath)
		defer m.Remove()

		if _, err := m.CreateReplacingStale(42); err != nil {
			t.Fatalf("CreateReplacingStale() error = %v", err)
		}
	})

	t.Run("refuses when the owner is alive", func(t *testing.T) {
		pidPath := filepath.Join(tmpDir, "live.pid")
		if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0600); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}

		m := NewPIDFileManager(pidPath)
		_, err := m.CreateReplacingStale(42)
		if !errors.Is(err, ErrPIDFileExists) {
			t.Errorf("CreateReplacingStale() error = %v, want ErrPIDFileExists", err)
		}
		if !m.Exists() {
			t.Error("live owner's PID file was removed")
		}
	})
}

func TestPIDFileManager_Read(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name    string
		content string
		wantPID int
		wantErr error
	}{
		{name: "valid PID", content: "9999\n", wantPID: 9999},
		{name: "surrounding whitespace", content: "  77  \n", wantPID: 77},
		{name: "non-numeric", content: "abc", wantErr: ErrInvalidPID},
		{name: "zero", content: "0", wantErr: ErrInvalidPID},
		{name: "negative", content: "-5", wantErr: ErrInvalidPID},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pidPath := filepath.Join(tmpDir, strconv.Itoa(i)+".pid")
			if err := os.WriteFile(pidPath, []byte(tt.content), 0600); err != nil {
				t.Fatalf("Failed to create test file: %v", err)
			}

			pid, err := NewPIDFileManager(pidPath).Read()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Read() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if pid != tt.wantPID {
				t.Errorf("Read() = %d, want %d", pid, tt.wantPID)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := NewPIDFileManager(filepath.Join(tmpDir, "missing.pid")).Read()
		if !os.IsNotExist(err) {
			t.Errorf("Read() error = %v, want not-exist", err)
		}
	})
}

func TestPIDFileManager_Remove(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "remove.pid")
	m := NewPIDFileManager(pidPath)

	if err := m.Create(1234); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := m.Remove(); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if m.Exists() {
		t.Error("PID file exists after Remove()")
	}

	// Removing twice is harmless
	if err := m.Remove(); err != nil {
		t.Errorf("second Remove() error = %v", err)
	}

	// The path can be reused once released
	if err := m.Create(5678); err != nil {
		t.Errorf("Create() after Remove() error = %v", err)
	}
	m.Remove()
}

func TestPIDFileManager_DirectorySafety(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not meaningful on Windows")
	}

	unsafeDir := filepath.Join(t.TempDir(), "world-writable")
	if err := os.Mkdir(unsafeDir, 0777); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}
	// Mkdir is subject to umask
	if err := os.Chmod(unsafeDir, 0777); err != nil {
		t.Fatalf("Chmod() error = %v", err)
	}

	m := NewPIDFileManager(filepath.Join(unsafeDir, "launcher.pid"))
	err := m.Create(1234)
	if !errors.Is(err, ErrUnsafeDirectory) {
		t.Errorf("Create() error = %v, want ErrUnsafeDirectory", err)
	}
}
