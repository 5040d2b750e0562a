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
	"time"

	"github.com/tombee/launcher/internal/log"
	"github.com/tombee/launcher/internal/metrics"
)

// DefaultReceiveTimeout bounds each receive so the relay notices a stop
// request promptly.
const DefaultReceiveTimeout = time.Second

// Dispatcher receives decoded frames from the relay.
type Dispatcher interface {
	// HandleCommand handles the payload of a 'C' frame.
	HandleCommand(payload []byte)
	// Forward passes any other payload to the network relay.
	Forward(payload []byte) error
}

// Relay moves frames from a Receiver to a Dispatcher until stopped.
type Relay struct {
	rx      Receiver
	d       Dispatcher
	stop    <-chan struct{}
	timeout time.Duration
	logger  *slog.Logger
}

// NewRelay creates a relay that runs until stop is closed or rx is closed.
func NewRelay(rx Receiver, d Dispatcher, stop <-chan struct{}, timeout time.Duration, logger *slog.Logger) *Relay {
	if timeout <= 0 {
		timeout = DefaultReceiveTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		rx:      rx,
		d:       d,
		stop:    stop,
		timeout: timeout,
		logger:  logger,
	}
}

// Run receives, dispatches and acknowledges frames. Every received frame
// is acknowledged after it has been dispatched, including frames that
// fail to decode. Run returns nil when stopped or when the receiver is
// closed.
func (r *Relay) Run() error {
	for {
		select {
		case <-r.stop:
			return nil
		default:
		}

		frame, err := r.rx.Receive(r.timeout)
		switch {
		case errors.Is(err, ErrTimeout):
			continue
		case errors.Is(err, ErrClosed):
			r.logger.Debug("ipc channel closed, relay stopping")
			return nil
		case err != nil:
			return err
		}

		r.dispatch(frame)

		if err := r.rx.Ack(); err != nil {
			r.logger.Debug("ipc ack failed", "error", err)
		}
	}
}

func (r *Relay) dispatch(frame []byte) {
	msg, err := Decode(frame)
	if err != nil {
		metrics.RecordIPCMalformed()
		r.logger.Warn("dropping malformed ipc frame", log.Error(err))
		return
	}
	metrics.RecordIPCFrame(msg.Tag.String())
	log.Trace(r.logger, "ipc frame", log.String("tag", msg.Tag.String()), log.Int("size", len(msg.Payload)))

	if msg.Tag == TagCore {
		r.d.HandleCommand(msg.Payload)
		return
	}

	if err := r.d.Forward(msg.Payload); err != nil {
		r.logger.Debug("network relay rejected game frame", log.Error(err))
	}
}
