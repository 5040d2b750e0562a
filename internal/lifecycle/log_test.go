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
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func readEvents(t *testing.T, path string) []LifecycleEvent {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open lifecycle log: %v", err)
	}
	defer f.Close()

	var events []LifecycleEvent
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var event LifecycleEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			t.Fatalf("Invalid event line %q: %v", scanner.Text(), err)
		}
		events = append(events, event)
	}
	return events
}

func TestLifecycleLogger(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "lifecycle.log")
	logger := NewLifecycleLogger(logPath).WithSession("session-1")

	if err := logger.LogStart("1.2.3", []string{"run", "--config", "x.yaml"}, "x.yaml"); err != nil {
		t.Fatalf("LogStart() error = %v", err)
	}
	if err := logger.LogLaunch("steam://rungameid/284160", "0.32.5", nil); err != nil {
		t.Fatalf("LogLaunch() error = %v", err)
	}
	if err := logger.LogGameFound(4242); err != nil {
		t.Fatalf("LogGameFound() error = %v", err)
	}
	if err := logger.LogGameLost(4242, 90*time.Second); err != nil {
		t.Fatalf("LogGameLost() error = %v", err)
	}
	if err := logger.LogFatal("Game process not found! aborting", errors.New("timeout")); err != nil {
		t.Fatalf("LogFatal() error = %v", err)
	}
	if err := logger.LogShutdown(0, time.Second); err != nil {
		t.Fatalf("LogShutdown() error = %v", err)
	}

	events := readEvents(t, logPath)
	wantEvents := []string{EventStart, EventLaunch, EventGameFound, EventGameLost, EventFatal, EventShutdown}
	if len(events) != len(wantEvents) {
		t.Fatalf("got %d events, want %d", len(events), len(wantEvents))
	}
	for i, want := range wantEvents {
		if events[i].Event != want {
			t.Errorf("event[%d] = %q, want %q", i, events[i].Event, want)
		}
		if events[i].SessionID != "session-1" {
			t.Errorf("event[%d] session = %q, want session-1", i, events[i].SessionID)
		}
		if events[i].Timestamp.IsZero() {
			t.Errorf("event[%d] has no timestamp", i)
		}
	}

	if events[0].Flags["config"] != "x.yaml" {
		t.Errorf("start flags = %v", events[0].Flags)
	}
	if events[2].PID != 4242 {
		t.Errorf("game_found pid = %d, want 4242", events[2].PID)
	}
	if events[4].Success || events[4].Error != "timeout" {
		t.Errorf("fatal event = %+v", events[4])
	}
}

func TestLifecycleLogger_Disabled(t *testing.T) {
	var nilLogger *LifecycleLogger
	if err := nilLogger.LogGameFound(1); err != nil {
		t.Errorf("nil logger LogGameFound() error = %v", err)
	}
	if err := NewLifecycleLogger("").LogGameFound(1); err != nil {
		t.Errorf("empty-path logger LogGameFound() error = %v", err)
	}
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want map[string]string
	}{
		{name: "empty", args: nil, want: map[string]string{}},
		{name: "value flag", args: []string{"--config", "a.yaml"}, want: map[string]string{"config": "a.yaml"}},
		{name: "equals form", args: []string{"--log-level=debug"}, want: map[string]string{"log-level": "debug"}},
		{name: "boolean flag", args: []string{"-v", "--json"}, want: map[string]string{"v": "true", "json": "true"}},
		{name: "positional ignored", args: []string{"run"}, want: map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseFlags(tt.args); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseFlags(%v) = %v, want %v", tt.args, got, tt.want)
			}
		})
	}
}

func TestLogPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	defer func() {
		r := recover()
		if r != "boom" {
			t.Errorf("recovered %v, want re-panicked value boom", r)
		}
		out := buf.String()
		if !strings.Contains(out, "launcher crashed") || !strings.Contains(out, "panic=boom") {
			t.Errorf("panic not logged: %s", out)
		}
	}()

	func() {
		defer LogPanic(logger)
		panic("boom")
	}()
}

func TestLogPanic_NoPanic(t *testing.T) {
	var buf bytes.Buffer
	func() {
		defer LogPanic(slog.New(slog.NewTextHandler(&buf, nil)))
	}()
	if buf.Len() != 0 {
		t.Errorf("LogPanic logged without a panic: %s", buf.String())
	}
}
