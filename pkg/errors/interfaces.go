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

// Package errors provides the launcher's typed errors.
//
// The one that matters most is ShutdownError: fatal startup and runtime
// conditions are logged once at the point of detection and then returned
// as a ShutdownError so they unwind to the top-level command, which runs
// teardown and exits non-zero without logging the cause a second time.
package errors

// ErrorClassifier defines methods for programmatic error handling.
// Errors that implement this interface can be classified by type
// for retry logic, error reporting, or specific handling paths.
type ErrorClassifier interface {
	error

	// ErrorType returns one of the Type constants.
	ErrorType() string

	// IsRetryable returns true if the operation should be retried.
	IsRetryable() bool
}

// Error categories reported by ErrorType.
const (
	TypeShutdown = "shutdown"
	TypeNotFound = "not_found"
	TypeConfig   = "config"
	TypeTimeout  = "timeout"
)

var (
	_ ErrorClassifier = (*ShutdownError)(nil)
	_ ErrorClassifier = (*NotFoundError)(nil)
	_ ErrorClassifier = (*ConfigError)(nil)
	_ ErrorClassifier = (*TimeoutError)(nil)
)
