package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/devloop-tools/eventbus/internal/logging"
	ws "github.com/devloop-tools/eventbus/internal/websocket"
)

// upgrader is shared across all /ws requests. CheckOrigin always allows:
// the event bus has no authentication layer (explicit non-goal) and every
// other response already carries a permissive CORS policy.
var upgrader = websocket.Upgrader{
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
	HandshakeTimeout: 10 * time.Second,
	CheckOrigin:      func(r *http.Request) bool { return true },
}

// handleWebSocket implements GET /ws. An optional ?type= query parameter
// narrows the subscription to events.<type>; otherwise the client is
// attached to events.all.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	topic := ws.TopicAll
	if eventType := r.URL.Query().Get("type"); eventType != "" {
		topic = ws.Topic(eventType)
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := ws.NewClient(s.hub, conn, topic)
	s.hub.Register <- client
	client.Start()
}
