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
	"errors"
	"fmt"
)

// Wrap creates a new error that wraps the given error with additional context.
// If err is nil, returns nil.
//
// Usage:
//
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "doing something")
//	}
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf creates a new error that wraps the given error with formatted context.
// If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Shutdown returns a ShutdownError with the given reason.
//
// Usage:
//
//	log.Fatal(logger, "Game is already running, please close it and try again!")
//	return errors.Shutdown("fatal error", nil)
func Shutdown(reason string, cause error) error {
	return &ShutdownError{Reason: reason, Cause: cause}
}

// IsShutdown reports whether err (or any error it wraps) is a ShutdownError.
func IsShutdown(err error) bool {
	var se *ShutdownError
	return errors.As(err, &se)
}

// Classify returns the ErrorType of the outermost ErrorClassifier in err's
// chain, or "" when there is none.
func Classify(err error) string {
	var c ErrorClassifier
	if errors.As(err, &c) {
		return c.ErrorType()
	}
	return ""
}

// IsRetryable reports whether the outermost ErrorClassifier in err's chain
// says the operation may be retried.
func IsRetryable(err error) bool {
	var c ErrorClassifier
	return errors.As(err, &c) && c.IsRetryable()
}
