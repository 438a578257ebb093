/*
Package supervisor provides process supervision for the event bus using suture v4.

This package builds the supervisor tree that manages the lifecycle of the
daemon's long-running services. It provides Erlang/OTP-style supervision
with automatic restart, failure isolation, and graceful shutdown.

# Overview

The supervisor tree has one root and two child supervisors:

	RootSupervisor ("eventbus")
	├── MessagingSupervisor ("messaging-layer")
	│   ├── WebSocketHubService
	│   └── playback.Queue (voice playback drain loop)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A failed service is restarted by its own supervisor; the other services
keep running.

# Key Features

Automatic Restart:
  - Crashed services are automatically restarted
  - Once failures exceed FailureThreshold, restarts wait FailureBackoff
  - Configurable failure thresholds and decay rates

Graceful Shutdown:
  - Context cancellation triggers orderly shutdown
  - ShutdownTimeout bounds how long a supervisor waits for each service
  - UnstoppedServiceReport for debugging hangs

Structured Logging:
  - suture events are logged through slog via the sutureslog event hook

# Usage Example

Setup as in cmd/eventbusd:

	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}

	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddMessagingService(queue) // *playback.Queue is a suture.Service
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	// Start the tree (blocks until context canceled)
	if err := tree.Serve(ctx); err != nil {
	    log.Printf("Supervisor stopped: %v", err)
	}

Background operation:

	// Start in background
	errChan := tree.ServeBackground(ctx)

	// Do other setup...

	// Wait for shutdown
	if err := <-errChan; err != nil {
	    log.Printf("Supervisor error: %v", err)
	}

# Configuration

The TreeConfig controls restart behavior:

	config := supervisor.TreeConfig{
	    FailureThreshold: 5.0,          // Failures before backoff
	    FailureDecay:     30.0,         // Seconds for failures to decay
	    FailureBackoff:   15 * time.Second, // Backoff duration
	    ShutdownTimeout:  10 * time.Second, // Per-service shutdown timeout
	}

Zero fields passed to NewSupervisorTree take these defaults, which match
suture's own defaults:
  - FailureThreshold: 5 failures
  - FailureDecay: 30 seconds
  - FailureBackoff: 15 seconds
  - ShutdownTimeout: 10 seconds

# Failure Handling

The supervisor uses a failure counter with exponential decay:

1. Each service failure increments the counter
2. Counter decays exponentially over time (FailureDecay seconds)
3. When counter exceeds FailureThreshold, supervisor enters backoff
4. During backoff, restarts are delayed by FailureBackoff duration

# Service Interface

All services implement suture.Service:

	type Service interface {
	    Serve(ctx context.Context) error
	}

A service returns promptly once ctx is canceled.

# What Is NOT Supervised

The discovery triple is written once at startup and cleared on shutdown
by cmd/eventbusd; it is not a supervised service.

# Debugging Shutdown Issues

If services don't stop within the timeout:

	// Get report of unstopped services
	report, err := tree.UnstoppedServiceReport()
	for _, svc := range report {
	    log.Printf("Service didn't stop: %v", svc)
	}

Common causes:
  - Goroutines not respecting context cancellation
  - Blocked network I/O without deadlines
  - Mutex deadlocks during shutdown

# Thread Safety

The SupervisorTree is safe for concurrent use:
  - Services can be added from any goroutine
  - Remove operations are synchronized
  - Multiple services can crash simultaneously

Remove and RemoveAndWait act on the root supervisor, so they only reach
services added directly to Root(); RemoveMessagingService removes a
messaging-layer service.

# See Also

  - internal/supervisor/services: Service wrappers
  - github.com/thejerf/suture/v4: Underlying library
*/
package supervisor
