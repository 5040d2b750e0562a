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
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tombee/launcher/internal/lifecycle"
	"github.com/tombee/launcher/internal/log"
	launchererrors "github.com/tombee/launcher/pkg/errors"
)

// Mode selects which direction an endpoint carries frames in.
type Mode int

const (
	// Inbound endpoints deliver peer frames to Receive and acknowledge them.
	Inbound Mode = iota
	// Outbound endpoints write frames to the peer and ignore anything it sends.
	Outbound
)

func (m Mode) String() string {
	if m == Outbound {
		return "outbound"
	}
	return "inbound"
}

// DefaultAckTimeout bounds the write of an acknowledgement.
const DefaultAckTimeout = time.Second

// Path the websocket handler is served on.
const handlerPath = "/ipc"

// Endpoint is one named channel. It listens on <dir>/<name>.sock and
// accepts a single peer at a time.
type Endpoint struct {
	name       string
	path       string
	mode       Mode
	logger     *slog.Logger
	ackTimeout time.Duration
	upgrader   websocket.Upgrader

	listener   net.Listener
	httpServer *http.Server
	serveDone  chan struct{}

	mu        sync.Mutex
	conn      *websocket.Conn
	peerReady chan struct{}
	closed    bool

	// writeMu serialises writes; gorilla connections allow one writer.
	writeMu sync.Mutex

	frames    chan []byte
	closeCh   chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Option configures an Endpoint.
type Option func(*Endpoint)

// WithLogger sets the endpoint logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Endpoint) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithAckTimeout bounds acknowledgement writes.
func WithAckTimeout(d time.Duration) Option {
	return func(e *Endpoint) {
		if d > 0 {
			e.ackTimeout = d
		}
	}
}

// SocketPath returns the socket file used for name under dir.
func SocketPath(dir, name string) string {
	return filepath.Join(dir, name+".sock")
}

// Listen creates the socket for name under dir and starts accepting a peer.
// A stale socket file left by a previous run is replaced.
func Listen(dir, name string, mode Mode, opts ...Option) (*Endpoint, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, launchererrors.Wrap(err, "create ipc directory")
	}

	path := SocketPath(dir, name)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("remove stale socket %s: %w", path, err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, launchererrors.Wrapf(err, "listen on %s", path)
	}

	e := &Endpoint{
		name:       name,
		path:       path,
		mode:       mode,
		logger:     slog.Default(),
		ackTimeout: DefaultAckTimeout,
		upgrader: websocket.Upgrader{
			// Peers are local processes on the same socket; there is no origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		listener:  listener,
		serveDone: make(chan struct{}),
		peerReady: make(chan struct{}),
		frames:    make(chan []byte),
		closeCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(slog.String(log.ChannelKey, name), slog.String("mode", mode.String()))

	mux := http.NewServeMux()
	mux.HandleFunc(handlerPath, e.handlePeer)
	e.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		defer close(e.serveDone)
		defer lifecycle.LogPanic(e.logger)

		if err := e.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.logger.Error("ipc server error", "error", err)
		}
	}()

	e.logger.Debug("ipc endpoint listening", "path", path)
	return e, nil
}

// Name returns the channel name.
func (e *Endpoint) Name() string {
	return e.name
}

// Path returns the socket path.
func (e *Endpoint) Path() string {
	return e.path
}

// Connected reports whether a peer is attached.
func (e *Endpoint) Connected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conn != nil
}

func (e *Endpoint) handlePeer(w http.ResponseWriter, r *http.Request) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		http.Error(w, "Channel closed", http.StatusServiceUnavailable)
		return
	}
	if e.conn != nil {
		e.mu.Unlock()
		http.Error(w, "Peer already connected", http.StatusConflict)
		return
	}
	e.wg.Add(1)
	e.mu.Unlock()
	defer e.wg.Done()

	conn, err := e.upgrader.Upgrade(w, r, nil)
	if err != nil {
		e.logger.Warn("ipc upgrade failed", "error", err)
		return
	}

	if !e.attach(conn) {
		conn.Close()
		return
	}
	defer e.detach(conn)

	e.logger.Info("ipc peer connected")
	e.readLoop(conn)
}

func (e *Endpoint) attach(conn *websocket.Conn) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || e.conn != nil {
		return false
	}
	e.conn = conn
	close(e.peerReady)
	return true
}

func (e *Endpoint) detach(conn *websocket.Conn) {
	e.mu.Lock()
	if e.conn == conn {
		e.conn = nil
		e.peerReady = make(chan struct{})
	}
	e.mu.Unlock()

	conn.Close()
	e.logger.Info("ipc peer disconnected")
}

func (e *Endpoint) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				e.logger.Debug("ipc read error", "error", err)
			}
			return
		}

		if e.mode == Outbound {
			continue
		}

		select {
		case e.frames <- data:
		case <-e.closeCh:
			return
		}
	}
}

// current returns the attached peer and the channel closed when one
// attaches.
func (e *Endpoint) current() (*websocket.Conn, <-chan struct{}, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conn, e.peerReady, e.closed
}

// Receive returns the next frame sent by the peer. It returns ErrTimeout
// when nothing arrives within timeout and ErrClosed after Close.
func (e *Endpoint) Receive(timeout time.Duration) ([]byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case data := <-e.frames:
		return data, nil
	case <-timer.C:
		return nil, ErrTimeout
	case <-e.closeCh:
		return nil, ErrClosed
	}
}

// Ack writes the acknowledgement byte to the peer.
func (e *Endpoint) Ack() error {
	conn, _, closed := e.current()
	if closed {
		return ErrClosed
	}
	if conn == nil {
		return ErrNoPeer
	}
	return e.write(conn, []byte{AckByte}, time.Now().Add(e.ackTimeout))
}

// Send writes frame to the peer. If no peer is attached yet it waits for
// one; the whole operation is bounded by timeout.
func (e *Endpoint) Send(frame []byte, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	conn, ready, closed := e.current()
	if closed {
		return ErrClosed
	}
	if conn == nil {
		timer := time.NewTimer(timeout)
		defer timer.Stop()

		select {
		case <-ready:
		case <-timer.C:
			return ErrTimeout
		case <-e.closeCh:
			return ErrClosed
		}

		conn, _, closed = e.current()
		if closed {
			return ErrClosed
		}
		if conn == nil {
			return ErrNoPeer
		}
	}

	return e.write(conn, frame, deadline)
}

func (e *Endpoint) write(conn *websocket.Conn, data []byte, deadline time.Time) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	conn.SetWriteDeadline(deadline)
	err := conn.WriteMessage(websocket.BinaryMessage, data)
	if err == nil {
		return nil
	}

	// A failed write leaves the connection unusable. Closing it ends the
	// read loop, which detaches the peer so a new one can connect.
	conn.Close()

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	return fmt.Errorf("ipc write: %w", err)
}

// Close disconnects the peer, stops the listener, waits for the peer
// handler to exit and removes the socket file. It is safe to call more
// than once.
func (e *Endpoint) Close() error {
	var closeErr error
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		conn := e.conn
		e.mu.Unlock()

		close(e.closeCh)

		if conn != nil {
			conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "launcher shutdown"),
				time.Now().Add(time.Second),
			)
			conn.Close()
		}

		closeErr = e.httpServer.Close()
		<-e.serveDone
		e.wg.Wait()

		if err := os.Remove(e.path); err != nil && !os.IsNotExist(err) && closeErr == nil {
			closeErr = err
		}
		e.logger.Debug("ipc endpoint closed")
	})
	return closeErr
}

var (
	_ Receiver    = (*Endpoint)(nil)
	_ Transmitter = (*Endpoint)(nil)
)
