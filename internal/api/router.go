package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/gray-logic-cloudbridge/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware())
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Unauthenticated
		r.Get("/health", s.handleHealth)
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
		r.Post("/webhooks/tuya", s.handleWebhook)

		// Read scope
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware(auth.ScopeRead))

			r.Get("/devices", s.handleListDevices)
			r.Get("/devices/{cloudId}", s.handleGetDevice)
			r.Get("/devices/{cloudId}/statistics", s.handleDeviceStatistics)
			r.Get("/commands", s.handleListCommands)
			r.Get("/ws", s.handleWebSocket)
		})

		// Control scope
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware(auth.ScopeControl))

			r.Post("/devices/{cloudId}/sync", s.handleSyncDevice)
			r.Post("/platforms/{platform}/devices/{deviceId}/commands", s.handleCommand)
			r.Post("/sync", s.handleSync)
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"version":           s.version,
		"devices":           s.bridge.DeviceCount(),
		"websocket_clients": s.hub.ClientCount(),
	})
}
