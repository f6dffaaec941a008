package api

import (
	"encoding/json"
	"net/http"

	"github.com/nerrad567/gray-logic-cloudbridge/internal/auth"
	"github.com/nerrad567/gray-logic-cloudbridge/internal/cloud"
)

// webhookTokenHeader carries the shared webhook secret.
const webhookTokenHeader = "X-Webhook-Token"

// handleWebhook accepts push notifications from the device cloud and feeds
// them to the event bus.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if !auth.VerifySharedToken(r.Header.Get(webhookTokenHeader), s.secCfg.Webhook.Token) {
		writeUnauthorized(w, "invalid webhook token")
		return
	}

	var payload cloud.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	events, err := s.cloud.IngestWebhook(payload)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"accepted": true,
		"events":   len(events),
	})
}
