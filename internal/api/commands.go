package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-cloudbridge/internal/bridge"
	"github.com/nerrad567/gray-logic-cloudbridge/internal/history"
)

// commandRequest is the body of POST .../commands.
type commandRequest struct {
	Command string         `json:"command"`
	Params  map[string]any `json:"params,omitempty"`
}

// handleCommand executes an ecosystem command against the device cloud.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Command) == "" {
		writeBadRequest(w, "command is required")
		return
	}

	source := bridge.SourceAPI
	if claims := claimsFromContext(r.Context()); claims != nil && claims.Subject != "" {
		source = bridge.SourceAPI + ":" + claims.Subject
	}

	res := s.bridge.Execute(r.Context(), bridge.CommandRequest{
		Platform:         chi.URLParam(r, "platform"),
		PlatformDeviceID: chi.URLParam(r, "deviceId"),
		Command:          req.Command,
		Params:           req.Params,
		Source:           source,
	})
	if !res.Success {
		msg := "command failed"
		if res.Err != nil {
			msg = res.Err.Error()
		}
		if bridge.IsUnknownDevice(res.Err) {
			writeNotFound(w, msg)
			return
		}
		writeUnprocessable(w, msg)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"action":          string(res.Action),
		"cloud_device_id": res.CloudDeviceID,
	})
}

// handleListCommands pages through the command log.
func (s *Server) handleListCommands(w http.ResponseWriter, r *http.Request) {
	if s.commandLog == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "command log is not enabled")
		return
	}

	q := r.URL.Query()
	f := history.Filter{
		Platform:      q.Get("platform"),
		CloudDeviceID: q.Get("cloud_device_id"),
	}
	if v := q.Get("failed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeBadRequest(w, "failed must be a boolean")
			return
		}
		f.OnlyFailed = b
	}
	var err error
	if f.Limit, err = intParam(q.Get("limit")); err != nil {
		writeBadRequest(w, "limit must be a non-negative integer")
		return
	}
	if f.Offset, err = intParam(q.Get("offset")); err != nil {
		writeBadRequest(w, "offset must be a non-negative integer")
		return
	}

	res, err := s.commandLog.List(r.Context(), f)
	if err != nil {
		s.logger.Error("listing command log failed", "error", err)
		writeInternalError(w, "failed to list commands")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleSync reruns discovery and a full state sync.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	n, err := s.bridge.DiscoverAndSync(r.Context())
	if err != nil {
		writeInternalError(w, "sync interrupted")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": n})
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}
