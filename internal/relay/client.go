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

// Package relay carries multiplayer traffic between the launcher and the
// remote server over a websocket connection.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/tombee/launcher/internal/lifecycle"
	"github.com/tombee/launcher/internal/log"
	"github.com/tombee/launcher/internal/metrics"
	launchererrors "github.com/tombee/launcher/pkg/errors"
)

var (
	// ErrNotConnected is returned by ServerSend before Connect succeeds or
	// when no server URL is configured.
	ErrNotConnected = errors.New("relay: not connected")

	// ErrClosed is returned by Connect after Close.
	ErrClosed = errors.New("relay: closed")
)

// TokenHeader carries the relay token on the websocket handshake.
const TokenHeader = "X-Auth-Token"

// Config configures a Client.
type Config struct {
	URL               string
	Token             string
	MessagesPerSecond float64
	Burst             int
	DialTimeout       time.Duration
	WriteTimeout      time.Duration
}

// MessageFunc receives every message the server sends.
type MessageFunc func(payload []byte)

// Client is the network relay. ServerSend may be called from any
// goroutine; Close aborts sends waiting on the rate limiter and makes
// later sends no-ops.
type Client struct {
	cfg       Config
	logger    *slog.Logger
	limiter   *rate.Limiter
	onMessage MessageFunc

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	conn       *websocket.Conn
	readerDone chan struct{}

	writeMu  sync.Mutex
	closed   atomic.Bool
	inFlight atomic.Int32
}

// New creates a disconnected client. onMessage may be nil.
func New(cfg Config, onMessage MessageFunc, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}

	limit := rate.Inf
	if cfg.MessagesPerSecond > 0 {
		limit = rate.Limit(cfg.MessagesPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		cfg:       cfg,
		logger:    logger,
		limiter:   rate.NewLimiter(limit, burst),
		onMessage: onMessage,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Connect dials the server. With no URL configured the client stays
// disconnected and Connect returns nil.
func (c *Client) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if c.cfg.URL == "" {
		c.logger.Info("no relay server configured, multiplayer traffic will be dropped")
		return nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()

	header := http.Header{}
	if c.cfg.Token != "" {
		header.Set(TokenHeader, c.cfg.Token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(dialCtx, c.cfg.URL, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		metrics.RecordRelayError("connect")
		if errors.Is(dialCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return &launchererrors.TimeoutError{Operation: "relay dial", Duration: c.cfg.DialTimeout, Cause: err}
		}
		return fmt.Errorf("connect to relay server: %w", err)
	}

	c.mu.Lock()
	if c.closed.Load() || c.conn != nil {
		c.mu.Unlock()
		conn.Close()
		if c.closed.Load() {
			return ErrClosed
		}
		return nil
	}
	c.conn = conn
	c.readerDone = make(chan struct{})
	done := c.readerDone
	c.mu.Unlock()

	go c.read(conn, done)

	c.logger.Info("connected to relay server", "url", c.cfg.URL, "token", log.SanitizeSecret(c.cfg.Token))
	return nil
}

// Connected reports whether a server connection is open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *Client) read(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	defer lifecycle.LogPanic(c.logger)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !c.closed.Load() {
				metrics.RecordRelayError("read")
				c.logger.Warn("relay server connection lost", "error", err)
			}
			c.mu.Lock()
			if c.conn == conn {
				c.conn = nil
			}
			c.mu.Unlock()
			return
		}

		metrics.RecordRelayMessage("in")
		if c.onMessage != nil {
			c.onMessage(data)
		}
	}
}

// ServerSend forwards payload to the server as a binary or text message.
// After Close it does nothing and returns nil.
func (c *Client) ServerSend(payload []byte, binary bool) error {
	if c.closed.Load() {
		return nil
	}

	c.inFlight.Add(1)
	defer c.inFlight.Add(-1)

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	if err := c.limiter.Wait(c.ctx); err != nil {
		if c.closed.Load() {
			return nil
		}
		return fmt.Errorf("relay rate limit: %w", err)
	}

	messageType := websocket.TextMessage
	if binary {
		messageType = websocket.BinaryMessage
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := conn.WriteMessage(messageType, payload); err != nil {
		if c.closed.Load() {
			return nil
		}
		metrics.RecordRelayError("write")
		return fmt.Errorf("relay write: %w", err)
	}

	metrics.RecordRelayMessage("out")
	return nil
}

// Busy reports whether a send is in progress.
func (c *Client) Busy() bool {
	return c.inFlight.Load() > 0
}

// Close aborts in-flight sends, closes the connection and waits for the
// reader to exit. Only the first call has any effect.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.cancel()

	c.mu.Lock()
	conn := c.conn
	done := c.readerDone
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "launcher shutdown"),
			time.Now().Add(time.Second),
		)
		conn.Close()
	}
	if done != nil {
		<-done
	}

	c.logger.Debug("relay closed")
	return nil
}
