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

package shared

import (
	"errors"
	"fmt"
	"io"
	"os"

	launchererrors "github.com/tombee/launcher/pkg/errors"
)

// Exit codes for the launcher
const (
	ExitSuccess = 0
	// ExitFailed covers fatal conditions during a session.
	ExitFailed = 1
	// ExitConfig is returned when the configuration cannot be loaded.
	ExitConfig = 2
	// ExitNotRunning is returned by status when no launcher is running.
	ExitNotRunning = 3
)

// ExitError is an error that carries an exit code
type ExitError struct {
	Code    int
	Message string
	Cause   error
	// Silent suppresses printing; the cause was already logged.
	Silent bool
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewConfigError creates an error for configuration failures
func NewConfigError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitConfig, Message: msg, Cause: cause}
}

// NewNotRunningError creates the status command's "nothing running" error
func NewNotRunningError(msg string) *ExitError {
	return &ExitError{Code: ExitNotRunning, Message: msg, Silent: true}
}

// ExitCode maps err to the process exit code. A ShutdownError was logged
// where it happened, so it exits 1 without being printed again.
func ExitCode(err error) (code int, print bool) {
	if err == nil {
		return ExitSuccess, false
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, !exitErr.Silent
	}

	switch launchererrors.Classify(err) {
	case launchererrors.TypeShutdown:
		return ExitFailed, false
	case launchererrors.TypeConfig:
		return ExitConfig, true
	default:
		return ExitFailed, true
	}
}

// HandleExitError prints err when needed and exits with its code
func HandleExitError(err error) {
	if err == nil {
		return
	}
	os.Exit(reportExitError(os.Stderr, err))
}

func reportExitError(w io.Writer, err error) int {
	code, print := ExitCode(err)
	if print {
		fmt.Fprintln(w, RenderError("Error: "+err.Error()))
	}
	return code
}
