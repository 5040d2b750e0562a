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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Event names written to the lifecycle log.
const (
	EventStart     = "start"
	EventLaunch    = "launch"
	EventGameFound = "game_found"
	EventGameLost  = "game_lost"
	EventShutdown  = "shutdown"
	EventStalePID  = "stale_pid_detected"
	EventFatal     = "fatal"
)

// LifecycleEvent represents a lifecycle event for audit logging.
type LifecycleEvent struct {
	Timestamp  time.Time         `json:"timestamp"`
	Event      string            `json:"event"`
	SessionID  string            `json:"session_id,omitempty"`
	PID        int               `json:"pid,omitempty"`
	Version    string            `json:"version,omitempty"`
	Success    bool              `json:"success"`
	Message    string            `json:"message,omitempty"`
	Flags      map[string]string `json:"flags,omitempty"`
	ConfigFile string            `json:"config_file,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// LifecycleLogger appends lifecycle events to a JSON-lines file.
// A logger with an empty path, or a nil logger, discards events.
type LifecycleLogger struct {
	logPath   string
	sessionID string
	mu        sync.Mutex
}

// NewLifecycleLogger creates a new lifecycle logger.
func NewLifecycleLogger(logPath string) *LifecycleLogger {
	return &LifecycleLogger{
		logPath: logPath,
	}
}

// WithSession tags every subsequent event with the run's session id.
func (l *LifecycleLogger) WithSession(sessionID string) *LifecycleLogger {
	if l != nil {
		l.sessionID = sessionID
	}
	return l
}

// LogStart records launcher startup.
func (l *LifecycleLogger) LogStart(version string, args []string, configFile string) error {
	return l.writeEvent(LifecycleEvent{
		Event:      EventStart,
		Version:    version,
		Success:    true,
		Message:    "Launcher started",
		Flags:      parseFlags(args),
		ConfigFile: configFile,
	})
}

// LogLaunch records a launch attempt of the game.
func (l *LifecycleLogger) LogLaunch(target, gameVersion string, err error) error {
	event := LifecycleEvent{
		Event:   EventLaunch,
		Version: gameVersion,
		Success: err == nil,
		Message: fmt.Sprintf("Launching game via %s", target),
	}
	if err != nil {
		event.Error = err.Error()
	}
	return l.writeEvent(event)
}

// LogGameFound records that the game process was located.
func (l *LifecycleLogger) LogGameFound(pid int) error {
	return l.writeEvent(LifecycleEvent{
		Event:   EventGameFound,
		PID:     pid,
		Success: true,
		Message: "Game process found",
	})
}

// LogGameLost records that the game process disappeared.
func (l *LifecycleLogger) LogGameLost(pid int, uptime time.Duration) error {
	return l.writeEvent(LifecycleEvent{
		Event:   EventGameLost,
		PID:     pid,
		Success: true,
		Message: fmt.Sprintf("Game process was lost (uptime: %v)", uptime.Round(time.Second)),
	})
}

// LogShutdown records a completed teardown.
func (l *LifecycleLogger) LogShutdown(terminatedPID int, duration time.Duration) error {
	message := fmt.Sprintf("Shutdown complete (duration: %v)", duration)
	if terminatedPID != 0 {
		message = fmt.Sprintf("Shutdown complete, game terminated (duration: %v)", duration)
	}
	return l.writeEvent(LifecycleEvent{
		Event:   EventShutdown,
		PID:     terminatedPID,
		Success: true,
		Message: message,
	})
}

// LogStalePID records that a PID file left by a dead launcher was replaced.
func (l *LifecycleLogger) LogStalePID(pid int) error {
	return l.writeEvent(LifecycleEvent{
		Event:   EventStalePID,
		PID:     pid,
		Success: true,
		Message: "Stale PID file detected and replaced",
	})
}

// LogFatal records the condition that aborted the run.
func (l *LifecycleLogger) LogFatal(message string, err error) error {
	event := LifecycleEvent{
		Event:   EventFatal,
		Success: false,
		Message: message,
	}
	if err != nil {
		event.Error = err.Error()
	}
	return l.writeEvent(event)
}

// writeEvent appends a lifecycle event to the log file.
func (l *LifecycleLogger) writeEvent(event LifecycleEvent) error {
	if l == nil || l.logPath == "" {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	event.Timestamp = time.Now()
	event.SessionID = l.sessionID

	logDir := filepath.Dir(l.logPath)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(l.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open lifecycle log: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}

// parseFlags converts command-line arguments to a map of flags.
// This is a simple parser for logging purposes.
func parseFlags(args []string) map[string]string {
	flags := make(map[string]string)

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			continue
		}

		key := strings.TrimLeft(arg, "-")
		if k, v, ok := strings.Cut(key, "="); ok {
			flags[k] = v
			continue
		}

		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			flags[key] = args[i+1]
			i++
		} else {
			flags[key] = "true"
		}
	}

	return flags
}
