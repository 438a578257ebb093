// Package metrics defines the event bus's Prometheus metric vectors and the
// narrow recording helpers other packages call instead of touching the
// vectors directly. All metrics are registered with promauto's default
// registry and served by internal/httpapi's /metrics route.
package metrics
