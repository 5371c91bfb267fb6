package auth

import (
	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/authkit/pkg/session"
)

// Router mounts the authentication endpoints.
func (m *Module) Router() chi.Router {
	r := chi.NewRouter()

	r.Post("/register", m.handleRegister)
	r.Post("/login", m.handleLogin)
	r.Post("/logout", m.handleLogout)
	r.Get("/confirm", m.handleConfirmEmail)
	r.With(m.sessions.Middleware(), session.RequireAuth).Get("/profile", m.handleProfile)

	r.Route("/password", func(r chi.Router) {
		r.Post("/forgot", m.handleForgotPassword)
		r.Post("/reset", m.handleResetPassword)
	})

	r.Route("/oauth/{provider}", func(r chi.Router) {
		r.Get("/", m.handleOAuthConnect)
		r.Get("/callback", m.handleOAuthCallback)
	})

	return r
}
