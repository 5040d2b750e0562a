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

// Package shutdown coordinates a single, exactly-once teardown of the
// launcher that may be triggered from any goroutine: the main flow when
// the game exits, a fatal error path, or an operating-system signal.
//
// Two flags describe progress. ShutdownRequested flips exactly once and
// its winner runs the registered Target's Teardown. ExitAcknowledged is
// set afterwards by the owner once it has finished releasing resources;
// the signal path waits for it before letting the process exit.
package shutdown

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrAlreadyRegistered is returned when a second target is registered.
	ErrAlreadyRegistered = errors.New("shutdown: target already registered")

	// ErrNotRegistered is returned when shutdown is requested, or signals
	// are routed, before a target has been registered.
	ErrNotRegistered = errors.New("shutdown: no target registered")

	// ErrNotRequested is returned when exit is acknowledged before
	// shutdown was requested.
	ErrNotRequested = errors.New("shutdown: exit acknowledged before shutdown was requested")
)

// DefaultPollInterval is the acknowledgement polling cadence.
const DefaultPollInterval = time.Second

// Source identifies what triggered a shutdown.
type Source string

const (
	SourceUnknown  Source = "unknown"
	SourceSignal   Source = "signal"
	SourceGameExit Source = "game_exit"
	SourceFatal    Source = "fatal"
	SourceClose    Source = "close"
)

// Target is torn down once when shutdown is requested.
// Teardown must not wait on a goroutine that may itself be calling
// RequestShutdown.
type Target interface {
	Teardown()
}

// TargetFunc adapts a function to Target.
type TargetFunc func()

// Teardown calls f.
func (f TargetFunc) Teardown() { f() }

// BusyFunc reports whether a long-running operation (such as a transfer)
// is in flight and should finish before exit is awaited.
type BusyFunc func() bool

// Coordinator owns the shutdown flags and the registered target.
type Coordinator struct {
	requested    atomic.Bool
	acknowledged atomic.Bool

	mu     sync.Mutex
	target Target
	source Source

	requestedCh chan struct{}
	doneCh      chan struct{}
	ackCh       chan struct{}

	pollInterval time.Duration
	logger       *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithPollInterval sets the acknowledgement polling cadence.
func WithPollInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithLogger sets the logger used for shutdown progress.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Coordinator. Most callers use Default().
func New(opts ...Option) *Coordinator {
	c := &Coordinator{
		requestedCh:  make(chan struct{}),
		doneCh:       make(chan struct{}),
		ackCh:        make(chan struct{}),
		pollInterval: DefaultPollInterval,
		logger:       slog.Default(),
		source:       SourceUnknown,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configure applies options after construction. It is intended for the
// process-wide coordinator, which is created before configuration loads.
func (c *Coordinator) Configure(opts ...Option) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, opt := range opts {
		opt(c)
	}
}

// Register binds the teardown target. Only the first registration wins.
func (c *Coordinator) Register(t Target) error {
	if t == nil {
		return errors.New("shutdown: nil target")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.target != nil {
		return ErrAlreadyRegistered
	}
	c.target = t
	return nil
}

// RequestShutdown requests shutdown from an unspecified source.
func (c *Coordinator) RequestShutdown() error {
	return c.RequestShutdownFrom(SourceUnknown)
}

// RequestShutdownFrom flips ShutdownRequested and, for the single caller
// that wins the flip, runs the target's Teardown synchronously. Every
// other caller returns nil immediately, even while teardown is still in
// progress; wait on Done() to observe completion.
func (c *Coordinator) RequestShutdownFrom(source Source) error {
	if !c.requested.CompareAndSwap(false, true) {
		return nil
	}

	c.mu.Lock()
	target := c.target
	c.source = source
	logger := c.logger
	c.mu.Unlock()

	close(c.requestedCh)
	defer close(c.doneCh)

	if target == nil {
		logger.Warn("shutdown requested with no registered target", slog.String("source", string(source)))
		return ErrNotRegistered
	}

	logger.Info("shutting down", slog.String("source", string(source)))
	target.Teardown()
	return nil
}

// ShutdownRequested reports whether shutdown has been requested.
func (c *Coordinator) ShutdownRequested() bool {
	return c.requested.Load()
}

// ExitAcknowledged reports whether the owner has acknowledged exit.
func (c *Coordinator) ExitAcknowledged() bool {
	return c.acknowledged.Load()
}

// Source returns what triggered the shutdown, or SourceUnknown.
func (c *Coordinator) Source() Source {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source
}

// Requested is closed as soon as shutdown is requested. Sleeping loops
// select on it to wake early.
func (c *Coordinator) Requested() <-chan struct{} {
	return c.requestedCh
}

// Done is closed once teardown has returned.
func (c *Coordinator) Done() <-chan struct{} {
	return c.doneCh
}

// Acknowledge records that the owner has finished exiting. It is refused
// until shutdown has been requested, so ExitAcknowledged never precedes
// ShutdownRequested.
func (c *Coordinator) Acknowledge() error {
	if !c.requested.Load() {
		return ErrNotRequested
	}
	if c.acknowledged.CompareAndSwap(false, true) {
		close(c.ackCh)
	}
	return nil
}

// WaitForAcknowledgement blocks while busy reports an in-flight
// operation, then until exit has been acknowledged. Both phases poll at
// the configured interval.
func (c *Coordinator) WaitForAcknowledgement(ctx context.Context, busy BusyFunc) error {
	c.mu.Lock()
	interval := c.pollInterval
	c.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for busy != nil && busy() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	for !c.acknowledged.Load() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.ackCh:
		case <-ticker.C:
		}
	}
	return nil
}

var defaultCoordinator = New()

// Default returns the process-wide coordinator.
func Default() *Coordinator {
	return defaultCoordinator
}

// Register binds t to the process-wide coordinator.
func Register(t Target) error {
	return defaultCoordinator.Register(t)
}

// RequestShutdown requests shutdown on the process-wide coordinator.
func RequestShutdown() error {
	return defaultCoordinator.RequestShutdown()
}

func (c *Coordinator) currentLogger() *slog.Logger {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.logger
}
