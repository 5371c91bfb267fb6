package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrymomot/authkit/pkg/auth"
	"github.com/dmitrymomot/authkit/pkg/cookie"
)

// Manager issues and resolves cookie sessions. It is shared across
// requests; the per-request binding happens in ForRequest.
type Manager struct {
	cookies    *cookie.Manager
	cookieName string
	ttl        time.Duration
	now        func() time.Time
}

// Option configures a Manager during construction.
type Option func(*Manager)

// WithCookieName overrides the session cookie name.
func WithCookieName(name string) Option {
	return func(m *Manager) {
		m.cookieName = name
	}
}

// WithTTL sets the session lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.ttl = ttl
	}
}

// WithClock overrides the time source, used by tests to control expiry.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a session manager on top of the cookie manager.
func NewManager(cookies *cookie.Manager, opts ...Option) *Manager {
	m := &Manager{
		cookies:    cookies,
		cookieName: "session",
		ttl:        24 * time.Hour,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Current resolves the session carried by the request, enforcing expiry.
func (m *Manager) Current(r *http.Request) (*Session, error) {
	raw, err := m.cookies.GetEncrypted(r, m.cookieName)
	if err != nil {
		return nil, ErrNoSession
	}

	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, ErrNoSession
	}
	if s.Expired(m.now()) {
		return nil, ErrSessionExpired
	}
	return &s, nil
}

// ForRequest binds the manager to one request/response pair, producing the
// session establisher handed to the login orchestrator.
func (m *Manager) ForRequest(w http.ResponseWriter, r *http.Request) auth.SessionEstablisher {
	return &requestSession{manager: m, w: w}
}

type requestSession struct {
	manager *Manager
	w       http.ResponseWriter
}

func (rs *requestSession) Establish(_ context.Context, identity auth.Identity) error {
	now := rs.manager.now()
	payload, err := json.Marshal(Session{
		UserID:    identity.UserID,
		Email:     identity.Email,
		Role:      identity.Role,
		IssuedAt:  now,
		ExpiresAt: now.Add(rs.manager.ttl),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := rs.manager.cookies.SetEncrypted(rs.w, rs.manager.cookieName, string(payload),
		cookie.WithMaxAge(int(rs.manager.ttl.Seconds()))); err != nil {
		return fmt.Errorf("failed to write session cookie: %w", err)
	}
	return nil
}

func (rs *requestSession) Clear(context.Context) error {
	rs.manager.cookies.Delete(rs.w, rs.manager.cookieName)
	return nil
}

// Compile-time interface assertion
var _ auth.SessionEstablisher = (*requestSession)(nil)
