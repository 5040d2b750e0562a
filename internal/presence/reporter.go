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

// Package presence publishes what the player is doing to a rich
// presence service.
package presence

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tombee/launcher/internal/lifecycle"
	"github.com/tombee/launcher/internal/metrics"
)

const (
	// DefaultInterval is how often the current activity is republished.
	DefaultInterval = 15 * time.Second

	// InitialStatus is shown until the game reports otherwise.
	InitialStatus = "Just launched"

	publishTimeout = 5 * time.Second
)

// Activity is one presence update.
type Activity struct {
	Status  string
	Started time.Time
}

// Publisher delivers activities to the presence service.
type Publisher interface {
	Publish(ctx context.Context, a Activity) error
}

// LogPublisher writes activities to a logger. It is used when no
// presence service is available.
type LogPublisher struct {
	Logger *slog.Logger
}

// Publish logs a.
func (p LogPublisher) Publish(_ context.Context, a Activity) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("presence", "status", a.Status, "since", a.Started.Format(time.RFC3339))
	return nil
}

// Reporter keeps the current activity and republishes it from a
// background goroutine. SetStatus never blocks on the publisher.
type Reporter struct {
	pub      Publisher
	interval time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	activity Activity

	wake    chan struct{}
	wg      sync.WaitGroup
	started bool
}

// NewReporter creates a reporter with initial as the first status.
func NewReporter(pub Publisher, interval time.Duration, initial string, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	if pub == nil {
		pub = LogPublisher{Logger: logger}
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if initial == "" {
		initial = InitialStatus
	}
	return &Reporter{
		pub:      pub,
		interval: interval,
		logger:   logger,
		activity: Activity{Status: initial, Started: time.Now()},
		wake:     make(chan struct{}, 1),
	}
}

// SetStatus replaces the status text and schedules a publish.
func (r *Reporter) SetStatus(text string) {
	r.mu.Lock()
	r.activity.Status = text
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Current returns the latest activity.
func (r *Reporter) Current() Activity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activity
}

// Start runs the publish loop until ctx is cancelled. Only the first call
// starts a loop.
func (r *Reporter) Start(ctx context.Context) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.wg.Add(1)
	r.mu.Unlock()

	go r.loop(ctx)
}

// Wait blocks until the publish loop has exited.
func (r *Reporter) Wait() {
	r.wg.Wait()
}

func (r *Reporter) loop(ctx context.Context) {
	defer r.wg.Done()
	defer lifecycle.LogPanic(r.logger)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	var last Activity
	for {
		current := r.Current()
		if current != last {
			r.publish(ctx, current)
			last = current
		}

		select {
		case <-ctx.Done():
			return
		case <-r.wake:
		case <-ticker.C:
			// Periodic refresh keeps the service from expiring the activity.
			last = r.Current()
			r.publish(ctx, last)
		}
	}
}

func (r *Reporter) publish(ctx context.Context, a Activity) {
	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := r.pub.Publish(pctx, a); err != nil {
		if ctx.Err() == nil {
			r.logger.Warn("failed to publish presence", "error", err)
		}
		return
	}
	metrics.RecordPresenceUpdate()
}
