// Package main is the entry point for eventbusd, the local observability
// event bus daemon.
//
// eventbusd initializes components in the following order:
//
//  1. Configuration: load settings from defaults, an optional YAML file,
//     and environment variables (Koanf v2)
//  2. Logging: initialize zerolog with the configured level and format
//  3. Event store: the in-memory ring buffer plus JSONL journal
//  4. Voice clip cache: loaded from ClipDir if voice notification is enabled
//  5. WebSocket hub and playback queue: supervised background services
//  6. Discovery registry: the port/pid/nonce triple written after the
//     listener is bound, so producers never see a port that isn't live
//  7. HTTP server: the ingestion, query, health, and WebSocket surface,
//     served on the already-bound listener
//
// # Signal Handling
//
// eventbusd handles graceful shutdown on SIGINT and SIGTERM: the
// supervisor tree is canceled, the HTTP server stops accepting new
// connections and drains in-flight requests, the playback queue finishes
// or kills its current clip, and the discovery triple is cleared so no
// producer mistakes the exited process for a live one.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/devloop-tools/eventbus/internal/config"
	"github.com/devloop-tools/eventbus/internal/discovery"
	"github.com/devloop-tools/eventbus/internal/eventstore"
	"github.com/devloop-tools/eventbus/internal/httpapi"
	"github.com/devloop-tools/eventbus/internal/logging"
	"github.com/devloop-tools/eventbus/internal/playback"
	"github.com/devloop-tools/eventbus/internal/supervisor"
	"github.com/devloop-tools/eventbus/internal/supervisor/services"
	"github.com/devloop-tools/eventbus/internal/voiceclips"
	ws "github.com/devloop-tools/eventbus/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("starting eventbusd")

	store, err := eventstore.New(cfg.Store.Capacity, cfg.Store.PersistPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize event store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing event store")
		}
	}()

	voiceCache := voiceclips.Empty()
	if cfg.Voice.Enabled {
		voiceCache, err = voiceclips.Load(cfg.Voice.ClipDir)
		if err != nil {
			logging.Warn().Err(err).Str("dir", cfg.Voice.ClipDir).Msg("failed to load voice clip manifest, voice notification disabled")
			cfg.Voice.Enabled = false
		}
	}

	queue := playback.New(playback.Config{
		MaxDepth:      cfg.Voice.MaxDepth,
		MaxAge:        time.Duration(cfg.Voice.MaxAgeMs) * time.Millisecond,
		MaxPlay:       time.Duration(cfg.Voice.MaxPlayMs) * time.Millisecond,
		PlayerCommand: cfg.Voice.PlayerCommand,
	})

	hub := ws.NewHub()

	registry, err := discovery.New(cfg.Discovery.Dir)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize discovery registry")
	}

	if owner, ok := registry.ReadOwner(); ok {
		logging.Fatal().
			Int("port", owner.Port).
			Int("pid", owner.PID).
			Msg("another eventbusd instance is already running, refusing to start")
	}

	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))
	if err != nil {
		logging.Fatal().Err(err).Str("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)).Msg("failed to bind listener")
	}
	boundPort := listener.Addr().(*net.TCPAddr).Port

	nonce, err := registry.WriteTriple(boundPort, os.Getpid())
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to write discovery triple")
	}
	defer registry.Clear()

	logging.Info().
		Int("port", boundPort).
		Int("pid", os.Getpid()).
		Str("nonce", nonce).
		Msg("discovery triple written")

	api := httpapi.New(store, hub, queue, voiceCache, cfg.Voice.Enabled, nonce, httpapi.Defaults{
		App:     cfg.Server.DefaultApp,
		AppRoot: cfg.Server.DefaultAppRoot,
	})

	httpServer := &http.Server{
		Handler:      api.Router(nil),
		ReadTimeout:  cfg.Server.RequestTimeout,
		WriteTimeout: cfg.Server.RequestTimeout,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slogLogger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create supervisor tree")
	}

	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddMessagingService(queue)
	tree.AddAPIService(services.NewHTTPServerService(&listenerBoundServer{Server: httpServer, listener: listener}, 10*time.Second))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	queue.Stop()

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("service failed to stop")
		}
	}

	logging.Info().Msg("eventbusd stopped gracefully")
}

// listenerBoundServer adapts an *http.Server with a pre-bound listener to
// the services.HTTPServer interface, so the discovery triple's port is
// always the port the server actually ends up listening on.
type listenerBoundServer struct {
	*http.Server
	listener net.Listener
}

func (s *listenerBoundServer) ListenAndServe() error {
	return s.Serve(s.listener)
}
