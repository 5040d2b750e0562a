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
	"log/slog"
	"runtime/debug"
)

// LogPanic must be deferred directly. It logs a panic's value and stack
// and then re-panics so the runtime's default crash handling proceeds.
//
//	defer lifecycle.LogPanic(logger)
func LogPanic(logger *slog.Logger) {
	r := recover()
	if r == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error("launcher crashed",
		slog.Any("panic", r),
		slog.String("stack", string(debug.Stack())),
	)
	panic(r)
}
