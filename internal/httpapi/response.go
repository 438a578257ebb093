package httpapi

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/devloop-tools/eventbus/internal/logging"
)

// writeJSON encodes v as the response body with the given status code.
// Encode failures cannot be surfaced to the client once headers are sent,
// so they are only logged.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn().Err(err).Msg("failed to encode response body")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
