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
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTransmitter struct {
	inFlight   atomic.Int32
	overlapped atomic.Bool
	err        error

	mu     sync.Mutex
	frames []string
}

func (r *recordingTransmitter) Send(frame []byte, timeout time.Duration) error {
	if r.inFlight.Add(1) > 1 {
		r.overlapped.Store(true)
	}
	defer r.inFlight.Add(-1)

	// Widen the window for overlapping writers.
	time.Sleep(100 * time.Microsecond)

	r.mu.Lock()
	r.frames = append(r.frames, string(frame))
	r.mu.Unlock()
	return r.err
}

func TestSender_ConcurrentFramesStayWhole(t *testing.T) {
	tx := &recordingTransmitter{}
	s := NewSender(tx, time.Second, nil)

	const perSide = 50
	var wg sync.WaitGroup
	for i := 0; i < perSide; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Send([]byte("ping"), true))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Send([]byte("pong"), false))
		}()
	}
	wg.Wait()

	assert.False(t, tx.overlapped.Load(), "transmitter entered concurrently")
	require.Len(t, tx.frames, 2*perSide)

	counts := map[string]int{}
	for _, f := range tx.frames {
		counts[f]++
	}
	assert.Equal(t, map[string]int{"Cping": perSide, "Gpong": perSide}, counts)
}

func TestSender_TimeoutIsDropped(t *testing.T) {
	tx := &recordingTransmitter{err: ErrTimeout}
	s := NewSender(tx, time.Millisecond, nil)

	assert.NoError(t, s.Send([]byte("late"), false))
	assert.Equal(t, []string{"Glate"}, tx.frames, "frame must be attempted exactly once")
}

func TestSender_OtherErrorsReturned(t *testing.T) {
	boom := errors.New("boom")
	s := NewSender(&recordingTransmitter{err: boom}, time.Second, nil)

	assert.ErrorIs(t, s.Send([]byte("x"), true), boom)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "Cshort", preview([]byte("Cshort")))

	long := make([]byte, 100)
	for i := range long {
		long[i] = 'a'
	}
	assert.Len(t, preview(long), previewLen+3)
}
