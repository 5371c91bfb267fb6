// Package session keeps the authenticated identity in an encrypted cookie.
// No server-side session state exists: the cookie is the session, bounded
// by its own expiry and the cookie manager's encryption keys.
package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNoSession      = errors.New("session.not_found")
	ErrSessionExpired = errors.New("session.expired")
)

// Session is the payload stored in the session cookie.
type Session struct {
	UserID    uuid.UUID `json:"uid"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// Expired reports whether the session is past its expiry at the given time.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
