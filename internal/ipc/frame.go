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

import "errors"

// Tag identifies the destination of an IPC frame.
type Tag byte

const (
	// TagCore frames carry commands for the launcher itself.
	TagCore Tag = 'C'
	// TagGame frames carry multiplayer traffic for the network relay.
	TagGame Tag = 'G'
)

// String returns the tag as a one-character string.
func (t Tag) String() string {
	return string(rune(t))
}

// ErrEmptyFrame is returned when a frame has no tag byte.
var ErrEmptyFrame = errors.New("ipc: empty frame")

// Message is a decoded IPC frame.
type Message struct {
	Tag     Tag
	Payload []byte
}

// Encode prefixes payload with tag.
func Encode(tag Tag, payload []byte) []byte {
	frame := make([]byte, 0, len(payload)+1)
	frame = append(frame, byte(tag))
	return append(frame, payload...)
}

// Decode splits a frame into its tag and payload. The payload may be
// empty; the tag may not.
func Decode(frame []byte) (Message, error) {
	if len(frame) == 0 {
		return Message{}, ErrEmptyFrame
	}
	return Message{Tag: Tag(frame[0]), Payload: frame[1:]}, nil
}
