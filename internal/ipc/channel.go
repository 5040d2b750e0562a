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
	"time"
)

var (
	// ErrTimeout is returned when a receive or send does not complete in time.
	ErrTimeout = errors.New("ipc: timed out")

	// ErrClosed is returned once the channel has been closed.
	ErrClosed = errors.New("ipc: channel closed")

	// ErrNoPeer is returned when an operation needs a connected peer.
	ErrNoPeer = errors.New("ipc: no peer connected")
)

// AckByte is the single byte written back for every received frame.
const AckByte byte = 0x06

// Receiver is the inbound half of a channel.
type Receiver interface {
	// Receive blocks for up to timeout waiting for the next frame.
	Receive(timeout time.Duration) ([]byte, error)
	// Ack confirms the most recently received frame.
	Ack() error
}

// Transmitter is the outbound half of a channel.
type Transmitter interface {
	// Send writes one frame, giving up after timeout.
	Send(frame []byte, timeout time.Duration) error
}
