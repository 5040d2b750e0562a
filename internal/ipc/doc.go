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

// Package ipc implements the launcher's side of the two channels shared
// with the game.
//
// Each channel is a named local socket carrying websocket binary
// messages. A message is one frame: a one-byte tag followed by the
// payload. Frames tagged 'C' are commands for the launcher; everything
// else is multiplayer traffic forwarded to the network relay.
//
// The inbound channel acknowledges every frame with a single 0x06 byte
// once the launcher has dispatched it. The outbound channel writes
// frames with a bounded deadline; a send that misses the deadline is
// dropped rather than retried.
package ipc
