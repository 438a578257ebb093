/*
Package middleware provides HTTP middleware components for the application.

This package implements two infrastructure middleware: request ID tracking
and Prometheus request instrumentation. Both take and return an
http.HandlerFunc; internal/httpapi adapts them to chi's
func(http.Handler) http.Handler shape and installs them on every route,
after its own CORS and body-size middleware.

Key Components:

  - Request ID: reuses an incoming X-Request-ID or generates a UUID v4,
    echoes it in the response header, and stores it in the request context
    together with a fresh logging correlation ID
  - Prometheus Metrics: HTTP request/response instrumentation

The package has no compression, latency-percentile, CORS, or rate-limit
middleware.

Usage Example - Request ID:

	// Request ID middleware
	http.HandleFunc("/api/v1/logs",
	    middleware.RequestID(handler),
	)

	// Access request ID in handler
	func handler(w http.ResponseWriter, r *http.Request) {
	    requestID := r.Context().Value(middleware.RequestIDKey).(string)
	    log.Printf("[%s] Processing request", requestID)
	}

Thread Safety:

All middleware components are thread-safe:
  - Request ID uses context.Context (immutable)
  - Prometheus metrics use atomic operations

See Also:

  - internal/httpapi: the router that installs these middleware
  - internal/metrics: Prometheus metrics definitions
*/
package middleware
