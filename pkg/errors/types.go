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

package errors

import (
	"fmt"
	"time"
)

// ShutdownError is the distinguished "intentional shutdown" error.
// It is returned when the launcher deliberately aborts the current run
// (the game is already running, an unsupported version was detected, a
// required installation value is missing). It unwinds to the top-level
// command, which performs teardown without treating it as a crash.
type ShutdownError struct {
	// Reason is a short human-readable description of why the run was aborted
	Reason string

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *ShutdownError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("shutdown: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("shutdown: %s", e.Reason)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ShutdownError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *ShutdownError) ErrorType() string {
	return TypeShutdown
}

// IsRetryable implements ErrorClassifier.
func (e *ShutdownError) IsRetryable() bool {
	return false
}

// NotFoundError represents a resource not found error.
// Use this when a requested resource does not exist.
type NotFoundError struct {
	// Resource is the type of resource (e.g., "process", "registry value")
	Resource string

	// ID is the identifier that was not found
	ID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrorType implements ErrorClassifier.
func (e *NotFoundError) ErrorType() string {
	return TypeNotFound
}

// IsRetryable implements ErrorClassifier.
func (e *NotFoundError) IsRetryable() bool {
	return false
}

// ConfigError represents configuration problems.
// Use this for configuration file errors, missing settings, or invalid config values.
type ConfigError struct {
	// Key is the configuration key that has the problem (e.g., "game.executable")
	Key string

	// Reason explains what's wrong with the configuration
	Reason string

	// Cause is the underlying error (e.g., file read error, parse error)
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config error at %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *ConfigError) ErrorType() string {
	return TypeConfig
}

// IsRetryable implements ErrorClassifier.
func (e *ConfigError) IsRetryable() bool {
	return false
}

// TimeoutError represents operation timeouts.
// Use this when an operation exceeds its configured timeout.
type TimeoutError struct {
	// Operation describes what timed out (e.g., "ipc send", "relay dial")
	Operation string

	// Duration is how long the operation ran before timing out
	Duration time.Duration

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s operation timed out after %v", e.Operation, e.Duration)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *TimeoutError) ErrorType() string {
	return TypeTimeout
}

// IsRetryable implements ErrorClassifier.
func (e *TimeoutError) IsRetryable() bool {
	return true
}
