package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/devloop-tools/eventbus/internal/enrichment"
	"github.com/devloop-tools/eventbus/internal/envelope"
	"github.com/devloop-tools/eventbus/internal/metrics"
)

// handleHookIngress implements POST /events/:name — raw hook payloads
// routed through the enrichment pipeline before becoming an envelope.
func (s *Server) handleHookIngress(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	payload, err := decodeObjectBody(r)
	if err != nil {
		metrics.RecordIngestRejected("invalid_json")
		writeBodyError(w, err)
		return
	}

	result, err := enrichment.Enrich(name, payload, s.defaults)
	if err != nil {
		metrics.RecordIngestRejected("enrichment_failed")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if result.Skipped {
		metrics.RecordIngestRejected("stop_hook_active")
		writeJSON(w, http.StatusOK, map[string]string{"status": "skipped", "reason": "stop_hook_active"})
		return
	}

	s.publish(result.Envelope)
	writeJSON(w, http.StatusCreated, map[string]string{"id": result.Envelope.ID})
}

// partialEnvelope is accepted shape (b) of POST /events: a type/data pair
// the server stamps via envelope.CreateEvent, defaulting app/appRoot/source
// the way the hook ingress path does.
type partialEnvelope struct {
	Type          string                 `json:"type"`
	Data          map[string]interface{} `json:"data"`
	App           string                 `json:"app"`
	AppRoot       string                 `json:"appRoot"`
	Source        string                 `json:"source"`
	CorrelationID string                 `json:"correlationId"`
}

// handleProgrammaticIngress implements POST /events — either a full,
// pre-stamped envelope (shape a) or a partial type/data pair (shape b).
func (s *Server) handleProgrammaticIngress(w http.ResponseWriter, r *http.Request) {
	body, err := readLimitedBody(r)
	if err != nil {
		metrics.RecordIngestRejected("invalid_json")
		writeBodyError(w, err)
		return
	}

	var probe map[string]interface{}
	if err := json.Unmarshal(body, &probe); err != nil {
		metrics.RecordIngestRejected("invalid_json")
		writeError(w, http.StatusBadRequest, "body must be a JSON object")
		return
	}

	var e *envelope.Envelope
	if schemaVersion, ok := probe["schemaVersion"]; ok && schemaVersion == envelope.SchemaVersion {
		e = &envelope.Envelope{}
		if err := envelope.Unmarshal(body, e); err != nil {
			metrics.RecordIngestRejected("invalid_envelope")
			writeError(w, http.StatusBadRequest, "malformed envelope: "+err.Error())
			return
		}
		if err := envelope.Validate(e); err != nil {
			metrics.RecordIngestRejected("invalid_envelope")
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	} else {
		var partial partialEnvelope
		if err := json.Unmarshal(body, &partial); err != nil {
			metrics.RecordIngestRejected("invalid_envelope")
			writeError(w, http.StatusBadRequest, "malformed partial envelope: "+err.Error())
			return
		}
		if partial.Type == "" || partial.Data == nil {
			metrics.RecordIngestRejected("invalid_envelope")
			writeError(w, http.StatusBadRequest, "type and data are required")
			return
		}

		ctx := envelope.Context{
			App:           stringOr(partial.App, s.defaults.App),
			AppRoot:       stringOr(partial.AppRoot, s.defaults.AppRoot),
			Source:        envelope.Source(stringOr(partial.Source, string(envelope.SourceCLI))),
			CorrelationID: partial.CorrelationID,
		}
		var err error
		e, err = envelope.CreateEvent(partial.Type, partial.Data, ctx)
		if err != nil {
			metrics.RecordIngestRejected("invalid_envelope")
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	s.publish(e)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"ok": true, "id": e.ID})
}

// handleQuery implements GET /events.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	q := parseQuery(r)
	writeJSON(w, http.StatusOK, s.store.Query(q))
}

// publish stores and broadcasts e. It does not signal the playback queue;
// voice playback is driven only by /voice/notify.
func (s *Server) publish(e *envelope.Envelope) {
	s.store.Push(e)
	s.hub.Publish(e)
}

func decodeObjectBody(r *http.Request) (map[string]interface{}, error) {
	body, err := readLimitedBody(r)
	if err != nil {
		return nil, err
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errInvalidJSONBody
	}
	if payload == nil {
		return nil, errInvalidJSONBody
	}
	return payload, nil
}

// readLimitedBody reads the body as already bounded by requestSizeLimit's
// http.MaxBytesReader; an overflow surfaces as *http.MaxBytesError so the
// caller can answer 413 instead of a generic 400.
func readLimitedBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, tooLarge
		}
		return nil, errInvalidJSONBody
	}
	return body, nil
}

// writeBodyError answers 413 for an oversized body, 400 for anything else.
func writeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "request body exceeds 1 MiB limit")
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

func stringOr(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

var errInvalidJSONBody = &jsonBodyError{}

type jsonBodyError struct{}

func (*jsonBodyError) Error() string { return "body must be a JSON object" }
