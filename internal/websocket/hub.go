// Package websocket implements the broadcast side of the event bus: a hub
// that fans out stored envelopes to topic-subscribed clients.
package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/devloop-tools/eventbus/internal/envelope"
	"github.com/devloop-tools/eventbus/internal/logging"
	"github.com/devloop-tools/eventbus/internal/metrics"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// TopicAll is the broad subscription every client gets unless it narrowed
// itself to a single event type at upgrade time.
const TopicAll = "events.all"

// Topic returns the specific-type topic name for an event type.
func Topic(eventType string) string {
	return "events." + eventType
}

type publishedMessage struct {
	topic   string
	payload []byte
}

// Hub maintains the set of active subscribers and fans out published
// envelopes to the single topic each one is attached to.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan publishedMessage
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan publishedMessage, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// RunWithContext starts the hub with context support for graceful shutdown,
// for use under suture supervision. It returns ctx.Err() when canceled.
//
// DETERMINISM: priority-based selection — lifecycle events before broadcast
// messages — so client state is always consistent before a fan-out runs.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		case message := <-h.broadcast:
			h.deliverToClients(message)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()
	metrics.SetWSClients(count)
	logging.Info().Int("total_clients", count).Str("topic", client.topic).Msg("websocket client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	count := len(h.clients)
	h.mu.Unlock()
	metrics.SetWSClients(count)
	logging.Info().Int("total_clients", count).Msg("websocket client disconnected")
}

func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}

// deliverToClients sends payload to every client attached to msg.topic or to
// TopicAll. A client is attached to exactly one topic, so this never
// double-delivers.
//
// DETERMINISM: clients are sorted by id before iteration so delivery order
// (and hence which clients get dropped first when a send channel is full)
// is stable across runs.
func (h *Hub) deliverToClients(msg publishedMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	var toRemove []*Client
	delivered := 0
	for _, client := range clients {
		if client.topic != TopicAll && client.topic != msg.topic {
			continue
		}
		select {
		case client.send <- msg.payload:
			delivered++
		default:
			toRemove = append(toRemove, client)
		}
	}
	if delivered > 0 {
		metrics.RecordWSBroadcast(msg.topic)
	}

	for _, client := range toRemove {
		metrics.RecordWSDropped()
		close(client.send)
		delete(h.clients, client)
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	for _, client := range clients {
		close(client.send)
		delete(h.clients, client)
	}
	logging.Info().Msg("closed all websocket clients during shutdown")
}

// Publish fans e out to its two topics (events.all and events.<type>);
// a given client receives it at most once because it is attached to only
// one of the two. Publish never blocks; if the internal queue is full the
// envelope is dropped and counted.
func (h *Hub) Publish(e *envelope.Envelope) {
	b, err := envelope.Marshal(e)
	if err != nil {
		logging.Warn().Err(err).Msg("failed to marshal envelope for broadcast")
		return
	}

	msg := publishedMessage{topic: Topic(e.Type), payload: b}
	select {
	case h.broadcast <- msg:
	default:
		metrics.RecordWSDropped()
		logging.Warn().Str("type", e.Type).Msg("broadcast channel full, dropping envelope")
	}
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
