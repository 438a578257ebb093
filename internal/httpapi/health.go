package httpapi

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status        string       `json:"status"`
	Nonce         string       `json:"nonce"`
	UptimeS       int64        `json:"uptime_s"`
	Events        healthEvents `json:"events"`
	PersistErrors int64        `json:"persistErrors"`
	WSClients     int          `json:"wsClients"`
	Version       string       `json:"version"`
	Voice         healthVoice  `json:"voice"`
}

type healthEvents struct {
	Total int            `json:"total"`
	Types map[string]int `json:"types"`
}

type healthVoice struct {
	Mode       string `json:"mode"`
	QueueDepth int    `json:"queueDepth"`
	IsPlaying  bool   `json:"isPlaying"`
}

// handleHealth implements GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	mode := "disabled"
	queueDepth := 0
	isPlaying := false
	if s.voiceOn {
		mode = "enabled"
		queueDepth = s.queue.Depth()
		isPlaying = s.queue.IsPlaying()
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Nonce:   s.nonce,
		UptimeS: int64(time.Since(s.startedAt).Seconds()),
		Events: healthEvents{
			Total: s.store.Size(),
			Types: s.store.TypeCounts(),
		},
		PersistErrors: s.store.PersistErrors(),
		WSClients:     s.hub.GetClientCount(),
		Version:       Version,
		Voice: healthVoice{
			Mode:       mode,
			QueueDepth: queueDepth,
			IsPlaying:  isPlaying,
		},
	})
}
