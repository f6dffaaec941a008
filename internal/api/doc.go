// Package api implements the HTTP API and WebSocket server of the cloud bridge.
//
// This package provides:
//   - Webhook ingestion for device cloud push notifications
//   - REST endpoints for registered devices, ecosystem commands and resyncs
//   - Command log and device statistics queries
//   - WebSocket hub streaming synced cover state to subscribed clients
//   - Prometheus exposition of the bridge's dedicated registry
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Security
//
// Everything except /health, /metrics and the webhook requires an HS256
// bearer token (see package auth). Commands and resyncs need the control
// scope. Browsers that cannot set headers on WebSocket upgrades may pass the
// token as the access_token query parameter on /ws.
//
// The webhook checks the X-Webhook-Token header when a token is configured.
package api
