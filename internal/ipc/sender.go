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

package ipc

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tombee/launcher/internal/metrics"
)

// DefaultSendTimeout bounds each outbound frame.
const DefaultSendTimeout = 2 * time.Second

// Sender writes tagged frames to the game. All goroutines share one
// Sender so frames never interleave.
type Sender struct {
	mu      sync.Mutex
	tx      Transmitter
	timeout time.Duration
	logger  *slog.Logger
}

// NewSender wraps tx.
func NewSender(tx Transmitter, timeout time.Duration, logger *slog.Logger) *Sender {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{tx: tx, timeout: timeout, logger: logger}
}

// Send tags payload as a core ('C') or game ('G') frame and writes it.
// A frame that times out is logged, counted and dropped; Send then
// returns nil. Other failures are returned.
func (s *Sender) Send(payload []byte, core bool) error {
	tag := TagGame
	if core {
		tag = TagCore
	}
	frame := Encode(tag, payload)

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.tx.Send(frame, s.timeout)
	if errors.Is(err, ErrTimeout) {
		metrics.RecordIPCSendTimeout()
		s.logger.Warn("timed out while sending ipc frame", "frame", preview(frame))
		return nil
	}
	if err != nil {
		return err
	}

	metrics.RecordIPCSent(tag.String())
	return nil
}

const previewLen = 64

func preview(frame []byte) string {
	if len(frame) <= previewLen {
		return string(frame)
	}
	return string(frame[:previewLen]) + "..."
}
