// Package httpapi implements the event bus's HTTP and WebSocket surface:
// ingress, queries, health, voice notification, and the /ws upgrade, all
// behind a permissive CORS policy and a 1 MiB request body cap.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/devloop-tools/eventbus/internal/enrichment"
	"github.com/devloop-tools/eventbus/internal/eventstore"
	"github.com/devloop-tools/eventbus/internal/playback"
	"github.com/devloop-tools/eventbus/internal/voiceclips"
	"github.com/devloop-tools/eventbus/internal/websocket"
)

// Version is the fixed schema/server version reported on /health.
const Version = "1.0.0"

// maxBodyBytes is the hard cap on any request body; larger bodies are
// rejected with 413 before the handler ever sees them.
const maxBodyBytes = 1 << 20

// Defaults supplies the server-side fallback app identity used when a
// producer omits app/appRoot.
type Defaults struct {
	App     string
	AppRoot string
}

// Server bundles every dependency the HTTP surface needs to serve a
// request: the store, the broadcast hub, the playback queue, the voice
// clip cache, and the discovery triple's nonce (for /health).
type Server struct {
	store     *eventstore.Store
	hub       *websocket.Hub
	queue     *playback.Queue
	voice     *voiceclips.Cache
	voiceOn   bool
	nonce     string
	startedAt time.Time
	defaults  enrichment.Defaults
}

// New builds a Server. nonce is the discovery triple's nonce, stamped into
// every /health response for the lifetime of the process.
func New(store *eventstore.Store, hub *websocket.Hub, queue *playback.Queue, voice *voiceclips.Cache, voiceOn bool, nonce string, defaults Defaults) *Server {
	return &Server{
		store:     store,
		hub:       hub,
		queue:     queue,
		voice:     voice,
		voiceOn:   voiceOn,
		nonce:     nonce,
		startedAt: time.Now(),
		defaults:  enrichment.Defaults{App: defaults.App, AppRoot: defaults.AppRoot},
	}
}

// Router builds the chi router. notFound is the fallback handler for
// everything not matched below — static asset serving, out of scope here.
func (s *Server) Router(notFound http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(corsMiddleware())
	r.Use(requestSizeLimit(maxBodyBytes))
	r.Use(requestIDMiddleware)
	r.Use(metricsMiddleware)

	r.Route("/events", func(r chi.Router) {
		r.With(ingressRateLimit()).Post("/{name}", s.handleHookIngress)
		r.Post("/", s.handleProgrammaticIngress)
		r.Get("/", s.handleQuery)
	})
	r.Get("/health", s.handleHealth)
	r.Post("/voice/notify", s.handleVoiceNotify)
	r.Get("/ws", s.handleWebSocket)
	r.Handle("/metrics", promhttp.Handler())

	if notFound != nil {
		r.NotFound(notFound.ServeHTTP)
	}

	return r
}
