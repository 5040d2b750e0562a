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

package launcher

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/tombee/launcher/internal/lifecycle"
	"github.com/tombee/launcher/internal/log"
	"github.com/tombee/launcher/internal/version"
	launchererrors "github.com/tombee/launcher/pkg/errors"
)

// ProcessOps is what the supervisor needs from the operating system.
// lifecycle.System is the production implementation.
type ProcessOps interface {
	FindPID(name string) (int, error)
	IsGame(pid int, name string) (bool, error)
	Terminate(pid int) error
	OpenURI(uri string) error
	Start(path string, args []string) (int, error)
}

var _ ProcessOps = (*lifecycle.System)(nil)

// LaunchConfig says how to find and start the game.
type LaunchConfig struct {
	Executable    string
	LaunchURI     string
	LaunchCommand string
	LaunchArgs    []string
	Supported     version.Triplet
}

// Supervisor finds, launches and terminates the game process. The PID of
// the supervised process is held atomically; 0 means none.
type Supervisor struct {
	ops    ProcessOps
	cfg    LaunchConfig
	logger *slog.Logger
	events *lifecycle.LifecycleLogger

	pid atomic.Int64
}

// NewSupervisor creates a supervisor. events may be nil.
func NewSupervisor(ops ProcessOps, cfg LaunchConfig, logger *slog.Logger, events *lifecycle.LifecycleLogger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{ops: ops, cfg: cfg, logger: logger, events: events}
}

// FindPID returns the PID of a running game process or 0. Enumeration
// failures are logged and reported as 0, which callers treat as "not
// found yet" and poll again.
func (s *Supervisor) FindPID() int {
	pid, err := s.ops.FindPID(s.cfg.Executable)
	if err != nil {
		s.logger.Debug("process lookup failed", "executable", s.cfg.Executable, log.Error(err))
		return 0
	}
	return pid
}

// stillRunning reports whether pid is still the game. A failed lookup is
// logged and counted as running so a transient error never reads as the
// game exiting.
func (s *Supervisor) stillRunning(pid int) bool {
	ok, err := s.ops.IsGame(pid, s.cfg.Executable)
	if err != nil {
		log.WithPID(s.logger, pid).Debug("process lookup failed", log.Error(err))
		return true
	}
	return ok
}

// PID returns the supervised PID, 0 when none is known.
func (s *Supervisor) PID() int {
	return int(s.pid.Load())
}

func (s *Supervisor) setPID(pid int) {
	s.pid.Store(int64(pid))
}

// takePID clears the supervised PID and returns what it held. Only one
// caller ever gets a given PID back.
func (s *Supervisor) takePID() int {
	return int(s.pid.Swap(0))
}

// LaunchExternalProcess gates installed against the supported version and
// starts the game. A game that is already running, an incompatible major
// version or a failed launch are fatal.
func (s *Supervisor) LaunchExternalProcess(installed string) error {
	if s.FindPID() != 0 {
		return s.fatal("Game is already running, please close it and try again!", nil)
	}

	result, err := version.Check(installed, s.cfg.Supported)
	if err != nil {
		return s.fatal(fmt.Sprintf("BeamNG V%s could not be parsed", installed), err)
	}
	switch {
	case result.Verdict.Fatal():
		return s.fatal(result.Message(), nil)
	case result.Verdict.Warning():
		s.logger.Warn(result.Message())
	}

	target, err := s.launch()
	s.events.LogLaunch(target, installed, err)
	if err != nil {
		return s.fatal("Failed to launch the game", err)
	}
	return nil
}

func (s *Supervisor) launch() (string, error) {
	switch {
	case s.cfg.LaunchCommand != "":
		pid, err := s.ops.Start(s.cfg.LaunchCommand, s.cfg.LaunchArgs)
		if err == nil {
			s.logger.Debug("started game command", "command", s.cfg.LaunchCommand, log.PIDKey, pid)
		}
		return s.cfg.LaunchCommand, err
	case s.cfg.LaunchURI != "":
		return s.cfg.LaunchURI, s.ops.OpenURI(s.cfg.LaunchURI)
	default:
		s.logger.Info("no launch method configured, start the game manually")
		return "manual", nil
	}
}

// terminateIfGame consumes the supervised PID and kills that process if
// it still is the game. A PID the game has released may have been reused
// by an unrelated process, so the PID must still be alive and run the game
// executable before anything is killed. A live PID whose executable cannot
// be read is killed. It returns the PID that was terminated.
func (s *Supervisor) terminateIfGame() int {
	pid := s.takePID()
	if pid == 0 {
		return 0
	}

	logger := log.WithPID(s.logger, pid)
	if !s.stillRunning(pid) {
		logger.Debug("game already exited, not terminating")
		return 0
	}

	if err := s.ops.Terminate(pid); err != nil {
		logger.Warn("failed to terminate game", log.Error(err))
		return 0
	}
	logger.Info("game terminated")
	return pid
}

func (s *Supervisor) fatal(msg string, cause error) error {
	return fatal(s.logger, s.events, msg, cause)
}

// fatal logs msg once at FATAL, records it in the event log and returns
// the ShutdownError that unwinds the run.
func fatal(logger *slog.Logger, events *lifecycle.LifecycleLogger, msg string, cause error) error {
	if cause != nil {
		log.Fatal(logger, msg, log.Error(cause))
	} else {
		log.Fatal(logger, msg)
	}
	events.LogFatal(msg, cause)
	return launchererrors.Shutdown(msg, cause)
}
