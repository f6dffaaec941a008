package cloud

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// RefreshMargin is the minimum remaining token life for a request to go out
// on the current token. At or inside the margin the session is renewed first.
const RefreshMargin = 60 * time.Second

// renewTimeout bounds a shared renewal, which outlives any single caller.
const renewTimeout = 30 * time.Second

// Token endpoint paths.
const (
	tokenPath         = "/v1.0/token?grant_type=1"
	refreshPathPrefix = "/v1.0/token/"
)

// Session is one access/refresh token pair and its expiry.
// It is replaced as a whole; fields are never updated individually.
type Session struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
	UID          string
}

// Remaining returns the token life left at now.
func (s Session) Remaining(now time.Time) time.Duration {
	return s.Expiry.Sub(now)
}

// tokenResult is the result object of both token endpoints.
type tokenResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpireTime   int64  `json:"expire_time"`
	UID          string `json:"uid"`
}

// SessionManager owns the live Session of one Client.
//
// State machine: unauthenticated -> authenticated -> (near expiry) ->
// refreshing -> authenticated. A failed refresh falls back to a full
// authentication. Concurrent callers that all see a near-expired token share
// a single renewal round trip.
//
// Known gap: a request already on the wire when the token crosses its expiry
// is not retried.
//
// Thread Safety: All methods are safe for concurrent use.
type SessionManager struct {
	tr     *transport
	logger Logger

	mu      sync.RWMutex
	session *Session

	flight singleflight.Group
}

func newSessionManager(tr *transport, logger Logger) *SessionManager {
	return &SessionManager{tr: tr, logger: logger}
}

// Current returns the stored session, if any.
func (m *SessionManager) Current() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return Session{}, false
	}
	return *m.session, true
}

// HasSession reports whether a session has been obtained. An expired
// session still counts; it is renewed on the next request.
func (m *SessionManager) HasSession() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session != nil
}

// NeedsRenewal reports whether the next request would renew the session.
func (m *SessionManager) NeedsRenewal() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return needsRenewal(m.session, m.tr.now())
}

// needsRenewal is true when there is no token or now >= expiry - RefreshMargin.
func needsRenewal(s *Session, now time.Time) bool {
	if s == nil || s.AccessToken == "" {
		return true
	}
	return !now.Before(s.Expiry.Add(-RefreshMargin))
}

// EnsureValid returns a session with more than RefreshMargin of life left,
// refreshing or authenticating first when needed.
//
// The renewal is shared by every caller that needs it and runs detached from
// their contexts, bounded by renewTimeout. A caller whose ctx ends stops
// waiting; the renewal carries on for the others.
//
// Parameters:
//   - ctx: Bounds how long this caller waits
//
// Returns:
//   - Session: A usable session
//   - error: ErrAuthFailed if no token could be obtained or ctx ended first
func (m *SessionManager) EnsureValid(ctx context.Context) (Session, error) {
	if s, ok := m.usable(); ok {
		return s, nil
	}

	ch := m.flight.DoChan("session", func() (any, error) {
		// Another caller may have renewed while we waited to enter.
		if s, ok := m.usable(); ok {
			return s, nil
		}
		renewCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), renewTimeout)
		defer cancel()
		if cur, ok := m.Current(); ok && cur.RefreshToken != "" {
			return m.Refresh(renewCtx)
		}
		return m.Authenticate(renewCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Session{}, res.Err
		}
		return res.Val.(Session), nil //nolint:forcetypeassert // flight only returns Session
	case <-ctx.Done():
		return Session{}, fmt.Errorf("%w: %w", ErrAuthFailed, ctx.Err())
	}
}

func (m *SessionManager) usable() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if needsRenewal(m.session, m.tr.now()) {
		return Session{}, false
	}
	return *m.session, true
}

// Authenticate obtains a fresh token pair.
// The string to sign is clientId + t + nonce.
//
// Returns:
//   - Session: The new session
//   - error: ErrAuthFailed wrapping the cause; callers must not continue without a session
func (m *SessionManager) Authenticate(ctx context.Context) (Session, error) {
	t := m.tr.timestamp()
	nonce := m.tr.nonce()
	sign := Sign(m.tr.secret, m.tr.clientID+t+nonce)

	res, err := m.tokenCall(ctx, http.MethodPost, tokenPath, sign, t, nonce)
	if err != nil {
		tokenTotal.WithLabelValues("authenticate", outcomeError).Inc()
		m.logger.Error("cloud authentication failed", "error", err)
		return Session{}, fmt.Errorf("%w: %w", ErrAuthFailed, err)
	}

	tokenTotal.WithLabelValues("authenticate", outcomeOK).Inc()
	s := m.store(res)
	m.logger.Info("cloud session established", "expires_in", s.Remaining(m.tr.now()).Round(time.Second))
	return s, nil
}

// Refresh renews the session with the stored refresh token.
// The string to sign is clientId + t + nonce + refreshToken. Any failure
// falls back to Authenticate, so only an authentication failure is returned.
func (m *SessionManager) Refresh(ctx context.Context) (Session, error) {
	cur, ok := m.Current()
	if !ok || cur.RefreshToken == "" {
		return m.Authenticate(ctx)
	}

	t := m.tr.timestamp()
	nonce := m.tr.nonce()
	sign := Sign(m.tr.secret, m.tr.clientID+t+nonce+cur.RefreshToken)

	res, err := m.tokenCall(ctx, http.MethodGet, refreshPathPrefix+cur.RefreshToken, sign, t, nonce)
	if err != nil {
		tokenTotal.WithLabelValues("refresh", outcomeError).Inc()
		m.logger.Warn("cloud token refresh failed, re-authenticating",
			"error", fmt.Errorf("%w: %w", ErrRefreshFailed, err))
		return m.Authenticate(ctx)
	}

	tokenTotal.WithLabelValues("refresh", outcomeOK).Inc()
	s := m.store(res)
	m.logger.Debug("cloud session refreshed", "expires_in", s.Remaining(m.tr.now()).Round(time.Second))
	return s, nil
}

// store replaces the live session with one built from a token result.
// Expiry is now + expire_time seconds.
func (m *SessionManager) store(res tokenResult) Session {
	s := Session{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		Expiry:       m.tr.now().Add(time.Duration(res.ExpireTime) * time.Second),
		UID:          res.UID,
	}

	m.mu.Lock()
	m.session = &s
	m.mu.Unlock()

	tokenExpiry.Set(float64(s.Expiry.Unix()))
	return s
}

// tokenCall issues a token endpoint request. These carry no access_token.
func (m *SessionManager) tokenCall(ctx context.Context, method, path, sign, t, nonce string) (tokenResult, error) {
	req, err := http.NewRequestWithContext(ctx, method, m.tr.baseURL+path, nil)
	if err != nil {
		return tokenResult{}, fmt.Errorf("building token request: %w", err)
	}
	setSignedHeaders(req, m.tr.clientID, "", sign, t, nonce)

	var res tokenResult
	if err := m.tr.send(req, &res); err != nil {
		return tokenResult{}, err
	}
	if res.AccessToken == "" {
		return tokenResult{}, fmt.Errorf("token response without access_token")
	}
	return res, nil
}
