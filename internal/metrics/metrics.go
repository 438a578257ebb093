// Package metrics exposes Prometheus instrumentation for the event bus:
// ingestion, the ring buffer store, WebSocket broadcast, the voice queue,
// and the emitter client.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion

	IngestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventbus_ingest_total",
			Help: "Total number of envelopes accepted by the ingestion endpoint",
		},
		[]string{"type"},
	)

	IngestRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventbus_ingest_rejected_total",
			Help: "Total number of ingestion requests rejected before becoming an envelope",
		},
		[]string{"reason"}, // invalid_json, invalid_envelope, enrichment_failed, stop_hook_active
	)

	// Store

	StoreSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eventbus_store_size",
			Help: "Current number of envelopes held in the ring buffer",
		},
	)

	StorePersistErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventbus_store_persist_errors_total",
			Help: "Total number of journal append failures",
		},
	)

	// WebSocket broadcast

	WSClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eventbus_ws_clients",
			Help: "Current number of connected WebSocket subscribers",
		},
	)

	WSBroadcastTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventbus_ws_broadcast_total",
			Help: "Total number of envelopes broadcast to a topic",
		},
		[]string{"topic"},
	)

	WSDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventbus_ws_dropped_total",
			Help: "Total number of broadcast sends dropped due to a slow subscriber",
		},
	)

	// Voice playback

	VoiceQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eventbus_voice_queue_depth",
			Help: "Current number of items waiting in the playback queue",
		},
	)

	VoicePlayedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventbus_voice_played_total",
			Help: "Total number of playback items successfully played",
		},
	)

	VoiceDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventbus_voice_dropped_total",
			Help: "Total number of playback items dropped before playback",
		},
		[]string{"reason"}, // queue_full, stale
	)

	// Emitter (recorded only by the fire-and-forget CLI emitter)

	EmitterFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventbus_emitter_failures_total",
			Help: "Total number of failed emit attempts",
		},
	)

	// HTTP API (ambient, exercised by the request middleware)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventbus_api_requests_total",
			Help: "Total number of HTTP API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventbus_api_request_duration_seconds",
			Help:    "HTTP API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eventbus_api_active_requests",
			Help: "Current number of in-flight HTTP API requests",
		},
	)
)

// RecordIngest increments the per-type ingest counter for an accepted envelope.
func RecordIngest(envelopeType string) {
	IngestTotal.WithLabelValues(envelopeType).Inc()
}

// RecordIngestRejected increments the rejection counter for a given reason.
func RecordIngestRejected(reason string) {
	IngestRejectedTotal.WithLabelValues(reason).Inc()
}

// SetStoreSize reports the ring buffer's current occupancy.
func SetStoreSize(size int) {
	StoreSize.Set(float64(size))
}

// RecordPersistError increments the journal-write-failure counter.
func RecordPersistError() {
	StorePersistErrorsTotal.Inc()
}

// SetWSClients reports the current subscriber count.
func SetWSClients(n int) {
	WSClients.Set(float64(n))
}

// RecordWSBroadcast increments the broadcast counter for a topic.
func RecordWSBroadcast(topic string) {
	WSBroadcastTotal.WithLabelValues(topic).Inc()
}

// RecordWSDropped increments the dropped-send counter.
func RecordWSDropped() {
	WSDroppedTotal.Inc()
}

// SetVoiceQueueDepth reports the playback queue's current length.
func SetVoiceQueueDepth(n int) {
	VoiceQueueDepth.Set(float64(n))
}

// RecordVoicePlayed increments the successful-playback counter.
func RecordVoicePlayed() {
	VoicePlayedTotal.Inc()
}

// RecordVoiceDropped increments the dropped-item counter for a given reason.
func RecordVoiceDropped(reason string) {
	VoiceDroppedTotal.WithLabelValues(reason).Inc()
}

// RecordEmitterFailure increments the emitter failure counter.
func RecordEmitterFailure() {
	EmitterFailuresTotal.Inc()
}

// RecordAPIRequest records an HTTP API request's outcome and duration.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
