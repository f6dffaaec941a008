// Package auth verifies callers of the bridge's HTTP surface.
//
// API clients present HS256 JWT access tokens carrying a scope:
//   - read: list devices, command history and statistics
//   - control: everything read allows, plus commands and resyncs
//
// Tokens are validated by signature and expiry only; the bridge keeps no
// user database. Operators mint tokens with `cloudbridge -issue-token`.
//
// Webhook deliveries from the device cloud carry a shared token compared in
// constant time.
package auth
