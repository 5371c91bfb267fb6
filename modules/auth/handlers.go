package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/authkit/pkg/cookie"
	"github.com/dmitrymomot/authkit/pkg/session"

	authsvc "github.com/dmitrymomot/authkit/pkg/auth"
)

const (
	stateCookieName = "oauth_state"
	stateCookieTTL  = 600 // seconds
)

var errMalformedBody = errors.New("malformed request body")

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errMalformedBody
	}
	return nil
}

func (m *Module) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsvc.RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		m.respondJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Error: err.Error()})
		return
	}

	msg, err := m.registration.Register(r.Context(), req)
	if err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respondJSON(w, http.StatusCreated, messageResponse{Status: "success", Message: msg})
}

func (m *Module) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsvc.LoginRequest
	if err := decodeBody(r, &req); err != nil {
		m.respondJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Error: err.Error()})
		return
	}

	result, err := m.login.Login(r.Context(), m.sessions.ForRequest(w, r), req)
	if err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respondJSON(w, http.StatusOK, result)
}

func (m *Module) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := m.login.Logout(r.Context(), m.sessions.ForRequest(w, r)); err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respondMessage(w, authsvc.MsgLoggedOut)
}

func (m *Module) handleConfirmEmail(w http.ResponseWriter, r *http.Request) {
	tokenValue := r.URL.Query().Get("token")
	if tokenValue == "" {
		m.respondJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Error: "missing token"})
		return
	}

	msg, err := m.verification.ConfirmEmail(r.Context(), tokenValue)
	if err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respondMessage(w, msg)
}

type profileResponse struct {
	Username         string            `json:"username"`
	Email            string            `json:"email"`
	Role             string            `json:"role"`
	Verified         bool              `json:"verified"`
	TwoFactorEnabled bool              `json:"two_factor_enabled"`
	AuthMethod       string            `json:"auth_method"`
	AvatarURL        string            `json:"avatar_url,omitempty"`
	Accounts         []accountResponse `json:"accounts"`
}

type accountResponse struct {
	Provider string `json:"provider"`
}

func (m *Module) handleProfile(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		m.respondJSON(w, http.StatusUnauthorized, errorResponse{Status: "error", Error: "unauthorized"})
		return
	}

	user, err := m.profile.Profile(r.Context(), sess.UserID)
	if err != nil {
		m.respondError(w, r, err)
		return
	}

	accounts := make([]accountResponse, 0, len(user.Accounts))
	for _, a := range user.Accounts {
		accounts = append(accounts, accountResponse{Provider: a.Provider})
	}
	m.respondJSON(w, http.StatusOK, profileResponse{
		Username:         user.Username,
		Email:            user.Email,
		Role:             user.Role.Name,
		Verified:         user.Verified,
		TwoFactorEnabled: user.TwoFactorEnabled,
		AuthMethod:       user.AuthMethod,
		AvatarURL:        user.AvatarURL,
		Accounts:         accounts,
	})
}

func (m *Module) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeBody(r, &req); err != nil {
		m.respondJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Error: err.Error()})
		return
	}

	msg, err := m.recovery.RequestReset(r.Context(), req.Email)
	if err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respondMessage(w, msg)
}

func (m *Module) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := decodeBody(r, &req); err != nil {
		m.respondJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Error: err.Error()})
		return
	}

	msg, err := m.recovery.ResetPassword(r.Context(), req.Token, req.NewPassword)
	if err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respondMessage(w, msg)
}

func (m *Module) handleOAuthConnect(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")

	state := uuid.NewString()
	url, err := m.oauth.AuthorizationURL(provider, state)
	if err != nil {
		m.respondError(w, r, err)
		return
	}

	// the state round-trips through a signed cookie and is checked on callback
	m.cookies.SetSigned(w, stateCookieName, state, cookie.WithMaxAge(stateCookieTTL))
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

func (m *Module) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")

	state, err := m.cookies.GetSigned(r, stateCookieName)
	if err != nil || state == "" || state != r.URL.Query().Get("state") {
		m.respondJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Error: "state mismatch"})
		return
	}
	m.cookies.Delete(w, stateCookieName)

	identity, err := m.oauth.Callback(r.Context(), provider, r.URL.Query().Get("code"))
	if err != nil {
		m.respondError(w, r, err)
		return
	}

	result, err := m.login.LoginOAuth(r.Context(), m.sessions.ForRequest(w, r), *identity)
	if err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respondJSON(w, http.StatusOK, result)
}
