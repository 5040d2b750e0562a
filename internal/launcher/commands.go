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
	"github.com/tombee/launcher/internal/log"
)

// Core command identifiers, the first byte of a 'C' payload.
const (
	commandStatus = 'S'
	commandPing   = 'P'
)

// HandleCommand executes a core command sent by the game. It runs on the
// IPC relay goroutine.
func (o *Orchestrator) HandleCommand(payload []byte) {
	if len(payload) == 0 {
		o.logger.Debug("ignoring empty core command")
		return
	}

	switch payload[0] {
	case commandStatus:
		o.presence.SetStatus(string(payload[1:]))
	case commandPing:
		if err := o.sender.Send([]byte{commandPing}, true); err != nil {
			o.logger.Debug("failed to answer ping", log.Error(err))
		}
	default:
		o.logger.Debug("unknown core command", "command", string(payload[:1]), "size", len(payload))
	}
}

// Forward passes game traffic to the network relay.
func (o *Orchestrator) Forward(payload []byte) error {
	return o.network.ServerSend(payload, false)
}

// deliverFromServer hands a server message to the game as game traffic.
func (o *Orchestrator) deliverFromServer(payload []byte) {
	if err := o.sender.Send(payload, false); err != nil {
		o.logger.Debug("failed to deliver server message to the game", log.Error(err))
	}
}

// SendToGame writes payload to the game on the outbound channel. Core
// frames go to the game's launcher bridge, others to its network layer.
func (o *Orchestrator) SendToGame(payload []byte, core bool) error {
	return o.sender.Send(payload, core)
}
