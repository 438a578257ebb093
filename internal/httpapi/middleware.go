package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/devloop-tools/eventbus/internal/middleware"
)

// corsMiddleware implements spec's permissive cross-origin policy: every
// cross-origin response carries origin *, methods GET/POST/OPTIONS, and
// Content-Type; any OPTIONS request short-circuits with 204.
func corsMiddleware() func(http.Handler) http.Handler {
	c := cors.Handler(cors.Options{
		AllowedOrigins:     []string{"*"},
		AllowedMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:     []string{"Content-Type"},
		OptionsPassthrough: true,
	})
	return func(next http.Handler) http.Handler {
		return c(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

// requestSizeLimit rejects any body whose declared Content-Length already
// exceeds limit, and bounds the actual read for bodies that lie about
// their size, via http.MaxBytesReader.
func requestSizeLimit(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				writeError(w, http.StatusRequestEntityTooLarge, "request body exceeds 1 MiB limit")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

// requestIDMiddleware adapts the ambient request-id middleware's
// http.HandlerFunc signature to chi's func(http.Handler) http.Handler.
func requestIDMiddleware(next http.Handler) http.Handler {
	return middleware.RequestID(next.ServeHTTP)
}

// metricsMiddleware is the chi-shaped adapter for the ambient Prometheus
// request instrumentation.
func metricsMiddleware(next http.Handler) http.Handler {
	return middleware.PrometheusMetrics(next.ServeHTTP)
}

// ingressRateLimit is a defensive cap on /events/:name, independent of the
// spec's body-size limit — generous enough that it never rejects realistic
// hook traffic, only an abusive or runaway producer.
func ingressRateLimit() func(http.Handler) http.Handler {
	return httprate.Limit(
		600,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
	)
}
