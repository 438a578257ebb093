package httpapi

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/devloop-tools/eventbus/internal/playback"
)

type voiceNotifyRequest struct {
	AgentType string `json:"agentType"`
	Phase     string `json:"phase"`
}

// handleVoiceNotify implements POST /voice/notify.
func (s *Server) handleVoiceNotify(w http.ResponseWriter, r *http.Request) {
	body, err := readLimitedBody(r)
	if err != nil {
		writeBodyError(w, err)
		return
	}

	var req voiceNotifyRequest
	if err := json.Unmarshal(body, &req); err != nil || req.AgentType == "" || req.Phase == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"queued": false, "reason": "invalid_body"})
		return
	}

	if !s.voiceOn {
		writeJSON(w, http.StatusOK, map[string]interface{}{"queued": false, "reason": "voice_disabled"})
		return
	}

	clip, ok := s.voice.Resolve(req.AgentType, req.Phase)
	if !ok {
		reason := "not_cached"
		if !s.voice.KnowsAgent(req.AgentType) {
			reason = "unknown_agent"
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"queued": false, "reason": reason})
		return
	}

	s.queue.Enqueue(playback.Item{
		FilePath:   clip.File,
		Label:      clip.Label,
		EnqueuedAt: time.Now(),
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{"queued": true, "label": clip.Label, "text": clip.Text})
}
