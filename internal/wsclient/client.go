// Package wsclient is the reconnecting WebSocket subscriber used by tails
// and dashboards: it maintains at most one open socket to the event bus
// and, when AutoReconnect is set, re-dials with exponential backoff and
// jitter after every close.
package wsclient

import (
	"fmt"
	"math/rand"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/devloop-tools/eventbus/internal/envelope"
	"github.com/devloop-tools/eventbus/internal/logging"
)

const (
	baseBackoff = 1 * time.Second
	maxBackoff  = 30 * time.Second
)

// Config configures a Client's target and callbacks.
type Config struct {
	Host string
	Port int
	// Type narrows the subscription to a single event type; empty
	// subscribes to every event.
	Type string

	// OnEvent is called for every successfully parsed envelope.
	OnEvent func(*envelope.Envelope)
	// OnError is called on a parse failure or a dial error; the
	// connection is not necessarily dead when this fires. A read error
	// that ends the connection is not reported.
	OnError func(error)
	// OnOpen is called each time a connection is established.
	OnOpen func()

	// AutoReconnect enables the backoff-and-retry loop on close. The zero
	// value is false: a Client that only wants one connection attempt
	// need not set anything.
	AutoReconnect bool
}

// Client holds at most one open connection at a time and, when
// AutoReconnect is set, reconnects on close until Close is called.
type Client struct {
	cfg Config

	mu       sync.Mutex
	conn     *websocket.Conn
	attempt  int
	terminal bool
	timer    *time.Timer
}

// New creates a Client. Call Start to dial and begin the read loop.
func New(cfg Config) *Client {
	return &Client{cfg: cfg}
}

// Start dials the server and begins the reconnect loop. It returns
// immediately; the connection runs in background goroutines until Close
// is called.
func (c *Client) Start() {
	go c.connectLoop()
}

// Close marks the client terminal and cancels any pending reconnect timer
// or open connection. Safe to call multiple times.
func (c *Client) Close() {
	c.mu.Lock()
	c.terminal = true
	if c.timer != nil {
		c.timer.Stop()
	}
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

func (c *Client) url() string {
	u := url.URL{
		Scheme: "ws",
		Host:   fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port),
		Path:   "/ws",
	}
	if c.cfg.Type != "" {
		q := u.Query()
		q.Set("type", c.cfg.Type)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (c *Client) connectLoop() {
	for {
		c.mu.Lock()
		terminal := c.terminal
		c.mu.Unlock()
		if terminal {
			return
		}

		conn, _, err := websocket.DefaultDialer.Dial(c.url(), nil)
		if err != nil {
			c.reportError(err)
			if !c.scheduleReconnect() {
				return
			}
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.attempt = 0
		c.mu.Unlock()

		if c.cfg.OnOpen != nil {
			c.cfg.OnOpen()
		}

		c.readLoop(conn)

		c.mu.Lock()
		c.conn = nil
		terminal = c.terminal
		c.mu.Unlock()
		if terminal {
			return
		}
		if !c.scheduleReconnect() {
			return
		}
	}
}

// readLoop blocks reading frames until the connection closes or errors,
// parsing every message as an envelope and surfacing parse failures via
// OnError without tearing down the connection.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var e envelope.Envelope
		if err := envelope.Unmarshal(msg, &e); err != nil {
			c.reportError(fmt.Errorf("parse envelope: %w", err))
			continue
		}
		if c.cfg.OnEvent != nil {
			c.cfg.OnEvent(&e)
		}
	}
}

// scheduleReconnect waits out the backoff-with-jitter interval, reporting
// false if the client was closed in the meantime (auto-reconnect disabled
// or terminal).
func (c *Client) scheduleReconnect() bool {
	if !c.cfg.AutoReconnect {
		return false
	}

	c.mu.Lock()
	if c.terminal {
		c.mu.Unlock()
		return false
	}
	attempt := c.attempt
	c.attempt++
	delay := backoffDelay(attempt)
	done := make(chan struct{})
	c.timer = time.AfterFunc(delay, func() { close(done) })
	c.mu.Unlock()

	<-done

	c.mu.Lock()
	terminal := c.terminal
	c.mu.Unlock()
	return !terminal
}

// backoffDelay implements min(base*2^attempt + random(0..1000ms), 30s).
func backoffDelay(attempt int) time.Duration {
	backoff := baseBackoff * time.Duration(1<<uint(attempt))
	jitter := time.Duration(rand.Intn(1000)) * time.Millisecond
	delay := backoff + jitter
	if delay > maxBackoff {
		delay = maxBackoff
	}
	return delay
}

func (c *Client) reportError(err error) {
	if c.cfg.OnError != nil {
		c.cfg.OnError(err)
	} else {
		logging.Warn().Err(err).Msg("websocket client error")
	}
}
