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
	"github.com/tombee/launcher/internal/metrics"
)

// LifecycleState is the orchestrator's position in a session.
type LifecycleState int32

const (
	StateNotStarted LifecycleState = iota
	StateLaunching
	StateWaitingForProcess
	StateRunning
	StateShuttingDown
	StateStopped
)

func (s LifecycleState) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateLaunching:
		return "launching"
	case StateWaitingForProcess:
		return "waiting_for_process"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() LifecycleState {
	return LifecycleState(o.state.Load())
}

func (o *Orchestrator) setState(s LifecycleState) {
	prev := LifecycleState(o.state.Swap(int32(s)))
	if prev != s {
		o.logger.Debug("lifecycle state changed", "from", prev.String(), log.StateKey, s.String())
	}
	metrics.SetLifecycleState(int(s))
}

// advance moves from one state to another only if nothing else has moved
// the orchestrator in the meantime. Teardown can enter ShuttingDown at any
// point, and a late transition must not overwrite it.
func (o *Orchestrator) advance(from, to LifecycleState) bool {
	if !o.state.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	o.logger.Debug("lifecycle state changed", "from", from.String(), log.StateKey, to.String())
	metrics.SetLifecycleState(int(to))
	return true
}
