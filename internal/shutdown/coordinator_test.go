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
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("os/signal.signal_recv"),
		goleak.IgnoreTopFunction("os/signal.loop"),
	)
}

type countingTarget struct {
	calls atomic.Int32
	delay time.Duration
}

func (t *countingTarget) Teardown() {
	t.calls.Add(1)
	time.Sleep(t.delay)
}

func TestRegister(t *testing.T) {
	c := New()
	first := &countingTarget{}
	second := &countingTarget{}

	require.NoError(t, c.Register(first))
	assert.ErrorIs(t, c.Register(second), ErrAlreadyRegistered)
	assert.Error(t, c.Register(nil))

	require.NoError(t, c.RequestShutdown())
	assert.Equal(t, int32(1), first.calls.Load(), "first registration must stay bound")
	assert.Equal(t, int32(0), second.calls.Load())
}

func TestRequestShutdown_ExactlyOnce(t *testing.T) {
	c := New()
	target := &countingTarget{delay: 20 * time.Millisecond}
	require.NoError(t, c.Register(target))

	const callers = 64
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			assert.NoError(t, c.RequestShutdown())
		}()
	}
	close(start)
	wg.Wait()

	<-c.Done()
	assert.Equal(t, int32(1), target.calls.Load())
	assert.True(t, c.ShutdownRequested())
}

func TestRequestShutdown_LosersReturnImmediately(t *testing.T) {
	c := New()
	release := make(chan struct{})
	require.NoError(t, c.Register(TargetFunc(func() { <-release })))

	go c.RequestShutdownFrom(SourceGameExit)
	<-c.Requested()

	returned := make(chan struct{})
	go func() {
		c.RequestShutdownFrom(SourceSignal)
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("losing caller blocked on an in-progress teardown")
	}

	select {
	case <-c.Done():
		t.Fatal("Done closed before teardown finished")
	default:
	}

	close(release)
	<-c.Done()
	assert.Equal(t, SourceGameExit, c.Source())
}

func TestRequestShutdown_ReentrantFromTeardown(t *testing.T) {
	c := New()
	var inner error
	require.NoError(t, c.Register(TargetFunc(func() {
		inner = c.RequestShutdown()
	})))

	done := make(chan struct{})
	go func() {
		c.RequestShutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("teardown calling RequestShutdown deadlocked")
	}
	assert.NoError(t, inner)
}

func TestRequestShutdown_NoTarget(t *testing.T) {
	c := New()

	err := c.RequestShutdown()
	assert.ErrorIs(t, err, ErrNotRegistered)
	assert.True(t, c.ShutdownRequested())

	select {
	case <-c.Done():
	default:
		t.Fatal("Done not closed after request without target")
	}

	// Later requests are ignored
	assert.NoError(t, c.RequestShutdown())
}

func TestAcknowledge(t *testing.T) {
	c := New()
	require.NoError(t, c.Register(&countingTarget{}))

	assert.ErrorIs(t, c.Acknowledge(), ErrNotRequested)
	assert.False(t, c.ExitAcknowledged())

	require.NoError(t, c.RequestShutdown())
	require.NoError(t, c.Acknowledge())
	assert.True(t, c.ExitAcknowledged())

	// Idempotent
	assert.NoError(t, c.Acknowledge())
}

func TestAcknowledge_NeverPrecedesRequest(t *testing.T) {
	c := New()
	require.NoError(t, c.Register(&countingTarget{}))

	var violations atomic.Int32
	stop := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			// Read ack first: if it is set, request must already be set.
			if c.ExitAcknowledged() && !c.ShutdownRequested() {
				violations.Add(1)
			}
		}
	}()

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Acknowledge()
			}
		}()
	}

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, c.RequestShutdown())
	require.NoError(t, c.Acknowledge())
	close(stop)
	wg.Wait()

	assert.Zero(t, violations.Load())
	assert.True(t, c.ExitAcknowledged())
}

func TestWaitForAcknowledgement(t *testing.T) {
	t.Run("waits for busy then acknowledgement", func(t *testing.T) {
		c := New(WithPollInterval(5 * time.Millisecond))
		require.NoError(t, c.Register(&countingTarget{}))
		require.NoError(t, c.RequestShutdown())

		var busy atomic.Bool
		busy.Store(true)
		var busyChecks atomic.Int32

		done := make(chan error, 1)
		go func() {
			done <- c.WaitForAcknowledgement(context.Background(), func() bool {
				busyChecks.Add(1)
				return busy.Load()
			})
		}()

		require.Eventually(t, func() bool { return busyChecks.Load() > 2 }, time.Second, time.Millisecond)
		require.NoError(t, c.Acknowledge())

		select {
		case <-done:
			t.Fatal("returned while still busy")
		case <-time.After(30 * time.Millisecond):
		}

		busy.Store(false)
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("did not return after busy cleared")
		}
	})

	t.Run("returns immediately when already acknowledged", func(t *testing.T) {
		c := New(WithPollInterval(time.Hour))
		require.NoError(t, c.Register(&countingTarget{}))
		require.NoError(t, c.RequestShutdown())
		require.NoError(t, c.Acknowledge())

		assert.NoError(t, c.WaitForAcknowledgement(context.Background(), nil))
	})

	t.Run("honours context cancellation", func(t *testing.T) {
		c := New(WithPollInterval(5 * time.Millisecond))
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := c.WaitForAcknowledgement(ctx, nil)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestHandleSignals_RequiresTarget(t *testing.T) {
	c := New()
	_, err := c.HandleSignals(nil)
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestHandleSignals_RoutesToShutdown(t *testing.T) {
	c := New(WithPollInterval(5 * time.Millisecond))
	target := &countingTarget{}
	require.NoError(t, c.Register(target))

	h, err := c.HandleSignals(nil, syscall.SIGHUP)
	require.NoError(t, err)

	// Deliver directly so the test does not depend on process signals.
	h.sigCh <- syscall.SIGTERM

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("signal did not trigger teardown")
	}
	assert.Equal(t, int32(1), target.calls.Load())
	assert.Equal(t, SourceSignal, c.Source())

	stopped := make(chan struct{})
	go func() {
		h.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned before exit was acknowledged")
	case <-time.After(30 * time.Millisecond):
	}

	require.NoError(t, c.Acknowledge())
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after acknowledgement")
	}
}

func TestHandleSignals_RepeatedSignals(t *testing.T) {
	c := New(WithPollInterval(5 * time.Millisecond))
	target := &countingTarget{}
	require.NoError(t, c.Register(target))

	h, err := c.HandleSignals(nil, syscall.SIGHUP)
	require.NoError(t, err)

	h.sigCh <- syscall.SIGINT
	<-c.Done()
	require.NoError(t, c.Acknowledge())
	h.sigCh <- syscall.SIGHUP

	h.Stop()
	assert.Equal(t, int32(1), target.calls.Load())
}

func TestHandleSignals_StopWithoutSignal(t *testing.T) {
	c := New()
	require.NoError(t, c.Register(&countingTarget{}))

	h, err := c.HandleSignals(nil, syscall.SIGHUP)
	require.NoError(t, err)
	h.Stop()
	h.Stop()

	assert.False(t, c.ShutdownRequested())
}

func TestDefaultCoordinator(t *testing.T) {
	assert.Same(t, Default(), Default())
	assert.Len(t, DefaultSignals(), 4)
}
