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

// Package metrics holds the launcher's Prometheus collectors and the
// optional HTTP endpoint that exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ipcFrames tracks frames received from the game by tag
	ipcFrames = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "launcher_ipc_frames_received_total",
			Help: "Total IPC frames received from the game by tag",
		},
		[]string{"tag"},
	)

	// ipcMalformed tracks frames that could not be decoded
	ipcMalformed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "launcher_ipc_malformed_frames_total",
			Help: "Total IPC frames dropped because they could not be decoded",
		},
	)

	// ipcSent tracks frames sent to the game by tag
	ipcSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "launcher_ipc_frames_sent_total",
			Help: "Total IPC frames sent to the game by tag",
		},
		[]string{"tag"},
	)

	// ipcSendTimeouts tracks dropped outbound frames
	ipcSendTimeouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "launcher_ipc_send_timeouts_total",
			Help: "Total IPC frames dropped because the send timed out",
		},
	)

	// relayMessages tracks network relay traffic by direction
	relayMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "launcher_relay_messages_total",
			Help: "Total network relay messages by direction",
		},
		[]string{"direction"},
	)

	// relayErrors tracks network relay failures by operation
	relayErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "launcher_relay_errors_total",
			Help: "Total network relay errors by operation",
		},
		[]string{"operation"},
	)

	// lifecycleState exposes the orchestrator's current state as a number
	lifecycleState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "launcher_lifecycle_state",
			Help: "Current lifecycle state (0=not_started 1=launching 2=waiting 3=running 4=shutting_down 5=stopped)",
		},
	)

	// gameRunning is 1 while a supervised game process is known
	gameRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "launcher_game_running",
			Help: "Whether a supervised game process is currently running",
		},
	)

	// shutdowns tracks shutdowns by what triggered them
	shutdowns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "launcher_shutdowns_total",
			Help: "Total shutdowns by trigger source",
		},
		[]string{"source"},
	)

	// presenceUpdates tracks published presence updates
	presenceUpdates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "launcher_presence_updates_total",
			Help: "Total presence updates published",
		},
	)
)

// RecordIPCFrame increments the received frame counter.
func RecordIPCFrame(tag string) {
	ipcFrames.WithLabelValues(tag).Inc()
}

// RecordIPCMalformed increments the malformed frame counter.
func RecordIPCMalformed() {
	ipcMalformed.Inc()
}

// RecordIPCSent increments the sent frame counter.
func RecordIPCSent(tag string) {
	ipcSent.WithLabelValues(tag).Inc()
}

// RecordIPCSendTimeout increments the send timeout counter.
func RecordIPCSendTimeout() {
	ipcSendTimeouts.Inc()
}

// RecordRelayMessage increments the relay counter for "in" or "out".
func RecordRelayMessage(direction string) {
	relayMessages.WithLabelValues(direction).Inc()
}

// RecordRelayError increments the relay error counter.
func RecordRelayError(operation string) {
	relayErrors.WithLabelValues(operation).Inc()
}

// SetLifecycleState records the orchestrator state.
func SetLifecycleState(state int) {
	lifecycleState.Set(float64(state))
}

// SetGameRunning records whether a game process is supervised.
func SetGameRunning(running bool) {
	if running {
		gameRunning.Set(1)
		return
	}
	gameRunning.Set(0)
}

// RecordShutdown increments the shutdown counter for source.
func RecordShutdown(source string) {
	shutdowns.WithLabelValues(source).Inc()
}

// RecordPresenceUpdate increments the presence update counter.
func RecordPresenceUpdate() {
	presenceUpdates.Inc()
}
