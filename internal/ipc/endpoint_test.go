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
	"context"
	"os"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// socketDir returns a short temporary directory; unix socket paths have
// a small length limit.
func socketDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "lipc")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func dialPeer(t *testing.T, e *Endpoint) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, err := Dial(ctx, e.Path())
	require.NoError(t, err)
	require.Eventually(t, e.Connected, time.Second, time.Millisecond)
	return conn
}

func TestEndpoint_InboundReceiveAndAck(t *testing.T) {
	defer goleak.VerifyNone(t)

	e, err := Listen(socketDir(t), "from_game", Inbound)
	require.NoError(t, err)

	peer := dialPeer(t, e)
	defer peer.Close()

	require.NoError(t, peer.WriteMessage(websocket.BinaryMessage, []byte("Chello")))

	frame, err := e.Receive(time.Second)
	require.NoError(t, err)
	assert.Equal(t, []byte("Chello"), frame)

	require.NoError(t, e.Ack())

	peer.SetReadDeadline(time.Now().Add(time.Second))
	_, ack, err := peer.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, []byte{AckByte}, ack)

	require.NoError(t, e.Close())
}

func TestEndpoint_ReceiveTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	e, err := Listen(socketDir(t), "from_game", Inbound)
	require.NoError(t, err)
	defer e.Close()

	_, err = e.Receive(10 * time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, e.Ack(), ErrNoPeer)
}

func TestEndpoint_OutboundSend(t *testing.T) {
	defer goleak.VerifyNone(t)

	e, err := Listen(socketDir(t), "to_game", Outbound)
	require.NoError(t, err)

	peer := dialPeer(t, e)
	defer peer.Close()

	require.NoError(t, e.Send([]byte("Gpong"), time.Second))

	peer.SetReadDeadline(time.Now().Add(time.Second))
	mt, data, err := peer.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, mt)
	assert.Equal(t, []byte("Gpong"), data)

	// Anything the peer writes on an outbound channel is discarded.
	require.NoError(t, peer.WriteMessage(websocket.BinaryMessage, []byte("noise")))
	_, err = e.Receive(20 * time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)

	require.NoError(t, e.Close())
}

func TestEndpoint_SendWaitsForPeer(t *testing.T) {
	defer goleak.VerifyNone(t)

	e, err := Listen(socketDir(t), "to_game", Outbound)
	require.NoError(t, err)
	defer e.Close()

	assert.ErrorIs(t, e.Send([]byte("Gearly"), 20*time.Millisecond), ErrTimeout)

	sent := make(chan error, 1)
	go func() { sent <- e.Send([]byte("Glate"), 2*time.Second) }()

	peer := dialPeer(t, e)
	defer peer.Close()

	require.NoError(t, <-sent)
	peer.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := peer.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, []byte("Glate"), data)
}

func TestEndpoint_RejectsSecondPeer(t *testing.T) {
	defer goleak.VerifyNone(t)

	e, err := Listen(socketDir(t), "from_game", Inbound)
	require.NoError(t, err)
	defer e.Close()

	first := dialPeer(t, e)
	defer first.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = Dial(ctx, e.Path())
	assert.Error(t, err)
}

func TestEndpoint_ReconnectAfterPeerLeaves(t *testing.T) {
	defer goleak.VerifyNone(t)

	e, err := Listen(socketDir(t), "from_game", Inbound)
	require.NoError(t, err)
	defer e.Close()

	first := dialPeer(t, e)
	first.Close()
	require.Eventually(t, func() bool { return !e.Connected() }, time.Second, time.Millisecond)

	second := dialPeer(t, e)
	defer second.Close()
	assert.True(t, e.Connected())
}

func TestEndpoint_Close(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := socketDir(t)
	e, err := Listen(dir, "from_game", Inbound)
	require.NoError(t, err)

	peer := dialPeer(t, e)
	defer peer.Close()

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	_, err = e.Receive(time.Hour)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, e.Send([]byte("Gx"), time.Hour), ErrClosed)

	_, err = os.Stat(SocketPath(dir, "from_game"))
	assert.True(t, os.IsNotExist(err), "socket file should be removed")
}

func TestEndpoint_ReplacesStaleSocket(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := socketDir(t)
	require.NoError(t, os.WriteFile(SocketPath(dir, "to_game"), nil, 0o600))

	e, err := Listen(dir, "to_game", Outbound)
	require.NoError(t, err)
	require.NoError(t, e.Close())
}
