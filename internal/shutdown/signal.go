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

package shutdown

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/tombee/launcher/internal/lifecycle"
)

// DefaultSignals returns interrupt, terminate, abort and hang-up. On
// Windows the runtime delivers console break and close events as
// interrupt and terminate.
func DefaultSignals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGABRT, syscall.SIGHUP}
}

// SignalHandler routes OS signals into the coordinator.
type SignalHandler struct {
	c      *Coordinator
	busy   BusyFunc
	sigCh  chan os.Signal
	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

// HandleSignals starts routing sigs (DefaultSignals when empty) to
// RequestShutdown followed by WaitForAcknowledgement. A target must be
// registered first.
func (c *Coordinator) HandleSignals(busy BusyFunc, sigs ...os.Signal) (*SignalHandler, error) {
	c.mu.Lock()
	registered := c.target != nil
	c.mu.Unlock()
	if !registered {
		return nil, ErrNotRegistered
	}

	if len(sigs) == 0 {
		sigs = DefaultSignals()
	}

	h := &SignalHandler{
		c:      c,
		busy:   busy,
		sigCh:  make(chan os.Signal, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	signal.Notify(h.sigCh, sigs...)
	go h.loop()
	return h, nil
}

func (h *SignalHandler) loop() {
	defer close(h.doneCh)
	defer lifecycle.LogPanic(h.c.currentLogger())

	for {
		select {
		case <-h.stopCh:
			return
		case sig := <-h.sigCh:
			h.handle(sig)
		}
	}
}

func (h *SignalHandler) handle(sig os.Signal) {
	logger := h.c.currentLogger()

	logger.Info("received signal", slog.String("signal", sig.String()))

	if err := h.c.RequestShutdownFrom(SourceSignal); err != nil {
		logger.Error("shutdown request failed", slog.Any("error", err))
	}

	// The owner acknowledges once its own cleanup is done. Exiting before
	// then would cut teardown short.
	if err := h.c.WaitForAcknowledgement(context.Background(), h.busy); err != nil {
		logger.Error("waiting for exit acknowledgement failed", slog.Any("error", err))
	}
}

// Stop stops signal delivery and waits for any in-progress handler to
// finish. Call it after the owner has acknowledged exit.
func (h *SignalHandler) Stop() {
	h.once.Do(func() {
		signal.Stop(h.sigCh)
		close(h.stopCh)
	})
	<-h.doneCh
}
