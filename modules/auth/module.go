// Package auth exposes the authentication flows over a JSON HTTP API.
package auth

import (
	"io"
	"log/slog"

	"github.com/dmitrymomot/authkit/pkg/cookie"
	"github.com/dmitrymomot/authkit/pkg/session"

	authsvc "github.com/dmitrymomot/authkit/pkg/auth"
)

// Module bundles the authentication services behind one router.
type Module struct {
	registration *authsvc.RegistrationService
	verification *authsvc.VerificationService
	login        *authsvc.LoginService
	recovery     *authsvc.RecoveryService
	oauth        *authsvc.OAuthService
	profile      *authsvc.ProfileService
	sessions     *session.Manager
	cookies      *cookie.Manager
	logger       *slog.Logger
}

// Option configures a Module during construction.
type Option func(*Module)

// WithLogger sets a custom logger for the HTTP layer.
func WithLogger(l *slog.Logger) Option {
	return func(m *Module) {
		m.logger = l
	}
}

// NewModule wires the services into the HTTP module.
func NewModule(
	registration *authsvc.RegistrationService,
	verification *authsvc.VerificationService,
	login *authsvc.LoginService,
	recovery *authsvc.RecoveryService,
	oauth *authsvc.OAuthService,
	profile *authsvc.ProfileService,
	sessions *session.Manager,
	cookies *cookie.Manager,
	opts ...Option,
) *Module {
	m := &Module{
		registration: registration,
		verification: verification,
		login:        login,
		recovery:     recovery,
		oauth:        oauth,
		profile:      profile,
		sessions:     sessions,
		cookies:      cookies,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}
