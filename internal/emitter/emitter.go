// Package emitter is the fire-and-forget client side of the event bus: it
// discovers a running server instance and posts envelopes to it, absorbing
// every failure so a producer never blocks or errors on a down or slow
// server.
package emitter

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/devloop-tools/eventbus/internal/discovery"
	"github.com/devloop-tools/eventbus/internal/envelope"
	"github.com/devloop-tools/eventbus/internal/logging"
	"github.com/devloop-tools/eventbus/internal/metrics"
)

// emitTimeout is the hard deadline for a single emit call: fire-and-forget
// means a wedged server must never stall the caller.
const emitTimeout = 500 * time.Millisecond

// failLogEvery bounds how often a consecutive-failure run is logged.
const failLogEvery = 30 * time.Second

// Client discovers the running server and posts envelopes to it.
type Client struct {
	registry *discovery.Registry
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker[interface{}]

	failures atomic.Uint64
	logGate  rate.Sometimes
}

// New builds a Client backed by registry for discovery.
func New(registry *discovery.Registry) *Client {
	settings := gobreaker.Settings{
		Name:        "emitter",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &Client{
		registry: registry,
		http:     &http.Client{Timeout: emitTimeout},
		breaker:  gobreaker.NewCircuitBreaker[interface{}](settings),
		logGate:  rate.Sometimes{Interval: failLogEvery},
	}
}

// IsServerRunning returns the discovered port, or ok=false if no instance
// is currently registered and alive.
func (c *Client) IsServerRunning() (port int, ok bool) {
	return c.registry.ReadPort()
}

// Emit posts e to the server at port. All failures — timeout, connection
// refused, non-2xx, an open breaker — are absorbed: the caller never
// sees an error, only a best-effort attempt. A burst of consecutive
// failures is logged at most once per failLogEvery.
func (c *Client) Emit(e *envelope.Envelope, port int) {
	if err := c.emit(e, port); err != nil {
		c.recordFailure(err)
		return
	}
	c.recordSuccess()
}

// EmitCLI is the convenience path used by CLI producers: it skips entirely
// when no server is running, otherwise stamps and emits in one call.
func (c *Client) EmitCLI(eventType string, data map[string]interface{}, ctx envelope.Context) {
	port, ok := c.IsServerRunning()
	if !ok {
		return
	}
	e, err := envelope.CreateEvent(eventType, data, ctx)
	if err != nil {
		logging.Warn().Err(err).Str("type", eventType).Msg("failed to create envelope for emit")
		return
	}
	c.Emit(e, port)
}

func (c *Client) emit(e *envelope.Envelope, port int) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
	defer cancel()

	url := fmt.Sprintf("http://127.0.0.1:%d/events", port)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	_, err = c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
		}
		return nil, nil
	})
	return err
}

func (c *Client) recordSuccess() {
	c.failures.Store(0)
}

// recordFailure increments the consecutive-failure counter and logs at
// most once per failLogEvery, even under a tight retry burst.
func (c *Client) recordFailure(err error) {
	metrics.RecordEmitterFailure()
	n := c.failures.Add(1)
	c.logGate.Do(func() {
		logging.Warn().Err(err).Uint64("consecutiveFailures", n).Msg("emit failed")
	})
}
