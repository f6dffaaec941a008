package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// defaultStatisticsWindow is used when the caller omits from/to.
const defaultStatisticsWindow = 24 * time.Hour

// handleListDevices returns every registered cloud device with its
// per-ecosystem descriptors.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	devices := s.bridge.Devices()
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleGetDevice returns one cloud device.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	cloudID := chi.URLParam(r, "cloudId")
	descs, ok := s.bridge.Device(cloudID)
	if !ok {
		writeNotFound(w, "device not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cloud_device_id": cloudID,
		"platforms":       descs,
	})
}

// handleSyncDevice re-reads one device from the cloud and pushes its state
// to every ecosystem.
func (s *Server) handleSyncDevice(w http.ResponseWriter, r *http.Request) {
	cloudID := chi.URLParam(r, "cloudId")
	if _, ok := s.bridge.Device(cloudID); !ok {
		writeNotFound(w, "device not found")
		return
	}
	if !s.bridge.SyncDeviceStatus(r.Context(), cloudID) {
		writeBadGateway(w, "device status could not be read from the cloud")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"synced": true, "cloud_device_id": cloudID})
}

// handleDeviceStatistics proxies the cloud statistics endpoint.
// from and to accept RFC 3339 or unix milliseconds.
func (s *Server) handleDeviceStatistics(w http.ResponseWriter, r *http.Request) {
	cloudID := chi.URLParam(r, "cloudId")
	if _, ok := s.bridge.Device(cloudID); !ok {
		writeNotFound(w, "device not found")
		return
	}

	now := time.Now().UTC()
	to, err := parseTimeParam(r.URL.Query().Get("to"), now)
	if err != nil {
		writeBadRequest(w, "invalid to: "+err.Error())
		return
	}
	from, err := parseTimeParam(r.URL.Query().Get("from"), to.Add(-defaultStatisticsWindow))
	if err != nil {
		writeBadRequest(w, "invalid from: "+err.Error())
		return
	}
	if !from.Before(to) {
		writeBadRequest(w, "from must be before to")
		return
	}

	raw := s.cloud.GetStatistics(r.Context(), cloudID, from, to)
	if raw == nil {
		writeBadGateway(w, "statistics unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cloud_device_id": cloudID,
		"from":            from.Format(time.RFC3339),
		"to":              to.Format(time.RFC3339),
		"statistics":      raw,
	})
}

func parseTimeParam(v string, def time.Time) (time.Time, error) {
	if v == "" {
		return def, nil
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
