/*
Package services provides suture.Service wrappers for the event bus components.

This package adapts the HTTP server and the WebSocket hub to the suture v4
supervision model, translating their lifecycles into suture's
context-aware Serve pattern.

# Overview

Each wrapper implements the suture.Service interface:

	type Service interface {
	    Serve(ctx context.Context) error
	}

The wrappers handle:
  - Lifecycle translation (ListenAndServe/Shutdown or RunWithContext to Serve)
  - Graceful shutdown via context cancellation
  - Error propagation for supervisor restart decisions
  - Service identification via fmt.Stringer

# Available Services

HTTP Server (HTTPServerService):
  - Wraps any HTTPServer (ListenAndServe and Shutdown, as *http.Server has)
  - Runs ListenAndServe in a goroutine and, once ctx is canceled, calls
    Shutdown bounded by the configured timeout (10s when zero or negative)
  - Returns ctx.Err() after a clean shutdown and a wrapped error when the
    server or its Shutdown fails; http.ErrServerClosed is not a failure

WebSocket Hub (WebSocketHubService):
  - Wraps any ContextHub (RunWithContext, as *websocket.Hub has)
  - Delegates Serve to RunWithContext, which closes every client's send
    channel on shutdown and returns ctx.Err()

The playback queue implements suture.Service itself and needs no wrapper.

# Usage Example

Creating and registering services:

	// HTTP server with 30s shutdown timeout
	httpSvc := services.NewHTTPServerService(server, 30*time.Second)
	tree.AddAPIService(httpSvc)

	// WebSocket hub
	wsSvc := services.NewWebSocketHubService(hub)
	tree.AddMessagingService(wsSvc)

	// Start supervision
	tree.Serve(ctx)

# Service Identification

All services implement fmt.Stringer for logging:

	func (s *HTTPServerService) String() string {
	    return "http-server"
	}

The names are "http-server" and "websocket-hub"; suture's event hook
uses them to identify the service in its log lines.

# Testing

Both wrappers take interfaces (HTTPServer, ContextHub), so tests drive
them with mock servers and hubs instead of real sockets.

# Thread Safety

The wrappers hold no mutable state after construction. Concurrent Serve
calls on one wrapper are not supported.

# See Also

  - internal/supervisor: SupervisorTree that manages these services
  - github.com/thejerf/suture/v4: Underlying supervision library
  - internal/websocket: WebSocket hub implementation
*/
package services
