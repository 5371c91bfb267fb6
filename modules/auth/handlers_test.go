package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	authmod "github.com/dmitrymomot/authkit/modules/auth"
	authsvc "github.com/dmitrymomot/authkit/pkg/auth"
	"github.com/dmitrymomot/authkit/pkg/cookie"
	"github.com/dmitrymomot/authkit/pkg/session"
	"github.com/dmitrymomot/authkit/pkg/token"
	"github.com/dmitrymomot/authkit/pkg/token/memory"
)

// memStorage is a minimal in-memory auth storage for HTTP-level tests.
type memStorage struct {
	mu    sync.Mutex
	users map[string]*authsvc.User
	role  authsvc.Role
}

func newMemStorage() *memStorage {
	return &memStorage{
		users: make(map[string]*authsvc.User),
		role:  authsvc.Role{ID: uuid.New(), Name: authsvc.DefaultRoleName},
	}
}

func (s *memStorage) CreateUser(_ context.Context, user *authsvc.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return &authsvc.ConstraintViolationError{Constraint: authsvc.ConstraintUsersEmailKey}
		}
		if u.Username == user.Username {
			return &authsvc.ConstraintViolationError{Constraint: authsvc.ConstraintUsersUsernameKey}
		}
	}
	user.ID = uuid.New()
	cp := *user
	s.users[user.Email] = &cp
	return nil
}

func (s *memStorage) GetUserByID(_ context.Context, id uuid.UUID) (*authsvc.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, authsvc.ErrUserNotFound
}

func (s *memStorage) GetUserByEmail(_ context.Context, email string) (*authsvc.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[email]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, authsvc.ErrUserNotFound
}

func (s *memStorage) UpdateUserVerified(_ context.Context, id uuid.UUID, verified bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			u.Verified = verified
			return nil
		}
	}
	return authsvc.ErrUserNotFound
}

func (s *memStorage) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			u.PasswordHash = hash
			return nil
		}
	}
	return authsvc.ErrUserNotFound
}

func (s *memStorage) GetDefaultRole(_ context.Context) (*authsvc.Role, error) {
	cp := s.role
	return &cp, nil
}

// inboxMailer records the last token per address and kind.
type inboxMailer struct {
	mu           sync.Mutex
	verification map[string]string
	resets       map[string]string
}

func newInboxMailer() *inboxMailer {
	return &inboxMailer{verification: map[string]string{}, resets: map[string]string{}}
}

func (m *inboxMailer) SendVerificationEmail(_ context.Context, to, tokenValue string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verification[to] = tokenValue
	return nil
}

func (m *inboxMailer) SendTwoFactorCode(_ context.Context, to, code string) error { return nil }

func (m *inboxMailer) SendPasswordResetEmail(_ context.Context, to, tokenValue string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets[to] = tokenValue
	return nil
}

type fixture struct {
	server  *httptest.Server
	mailer  *inboxMailer
	client  *http.Client
	storage *memStorage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	storage := newMemStorage()
	mailer := newInboxMailer()
	tokens := token.NewService(memory.New())
	cookies, err := cookie.New([]string{"0123456789abcdef0123456789abcdef"})
	require.NoError(t, err)
	sessions := session.NewManager(cookies)

	verification := authsvc.NewVerificationService(storage, tokens, mailer)
	twoFactor := authsvc.NewTwoFactorService(tokens, mailer)
	registration := authsvc.NewRegistrationService(storage, verification, authsvc.WithBcryptCost(bcrypt.MinCost))
	login := authsvc.NewLoginService(storage, authsvc.NewBcryptVerifier(storage), verification, twoFactor)
	recovery := authsvc.NewRecoveryService(storage, tokens, mailer, authsvc.WithRecoveryBcryptCost(bcrypt.MinCost))
	oauth := authsvc.NewOAuthService(storage, nil)
	profile := authsvc.NewProfileService(storage)

	module := authmod.NewModule(registration, verification, login, recovery, oauth, profile, sessions, cookies)
	server := httptest.NewServer(module.Router())
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &fixture{
		server:  server,
		mailer:  mailer,
		client:  &http.Client{Jar: jar},
		storage: storage,
	}
}

func (f *fixture) postJSON(t *testing.T, path, body string) *http.Response {
	t.Helper()
	resp, err := f.client.Post(f.server.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (f *fixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := f.client.Get(f.server.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

type apiMessage struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func TestRegisterLoginFlow(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	resp := f.postJSON(t, "/register", `{"username":"alice","email":"alice@example.com","password":"Sup3r-secret"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, authsvc.MsgRegistered, decode[apiMessage](t, resp).Message)

	// login before confirmation is gated
	resp = f.postJSON(t, "/login", `{"email":"alice@example.com","password":"Sup3r-secret"}`)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	tokenValue := f.mailer.verification["alice@example.com"]
	require.NotEmpty(t, tokenValue)

	resp = f.get(t, "/confirm?token="+tokenValue)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, authsvc.MsgEmailConfirmed, decode[apiMessage](t, resp).Message)

	resp = f.postJSON(t, "/login", `{"email":"alice@example.com","password":"Sup3r-secret"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, authsvc.MsgLoginSuccessful, decode[apiMessage](t, resp).Message)

	// confirmation link stays idempotent
	resp = f.get(t, "/confirm?token="+tokenValue)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, authsvc.MsgEmailAlreadyConfirmed, decode[apiMessage](t, resp).Message)

	resp = f.postJSON(t, "/logout", `{}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProfile(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	t.Run("requires a session", func(t *testing.T) {
		resp := f.get(t, "/profile")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("serves the logged-in user's account", func(t *testing.T) {
		resp := f.postJSON(t, "/register", `{"username":"alice","email":"alice@example.com","password":"Sup3r-secret"}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		resp = f.get(t, "/confirm?token="+f.mailer.verification["alice@example.com"])
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = f.postJSON(t, "/login", `{"email":"alice@example.com","password":"Sup3r-secret"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = f.get(t, "/profile")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		profile := decode[struct {
			Username   string `json:"username"`
			Email      string `json:"email"`
			Role       string `json:"role"`
			Verified   bool   `json:"verified"`
			AuthMethod string `json:"auth_method"`
		}](t, resp)
		assert.Equal(t, "alice", profile.Username)
		assert.Equal(t, "alice@example.com", profile.Email)
		assert.Equal(t, authsvc.DefaultRoleName, profile.Role)
		assert.True(t, profile.Verified)
		assert.Equal(t, authsvc.MethodCredentials, profile.AuthMethod)
	})

	t.Run("logout revokes access", func(t *testing.T) {
		resp := f.postJSON(t, "/logout", `{}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = f.get(t, "/profile")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestPasswordRecoveryFlow(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	resp := f.postJSON(t, "/register", `{"username":"alice","email":"alice@example.com","password":"Sup3r-secret"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.postJSON(t, "/password/forgot", `{"email":"alice@example.com"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, authsvc.MsgResetTokenSent, decode[apiMessage](t, resp).Message)

	tokenValue := f.mailer.resets["alice@example.com"]
	require.NotEmpty(t, tokenValue)

	resp = f.postJSON(t, "/password/reset", `{"token":"`+tokenValue+`","new_password":"N3w-secret-pass"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, authsvc.MsgPasswordChanged, decode[apiMessage](t, resp).Message)

	// spent token
	resp = f.postJSON(t, "/password/reset", `{"token":"`+tokenValue+`","new_password":"An0ther-secret"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRequestValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	t.Run("malformed body", func(t *testing.T) {
		resp := f.postJSON(t, "/register", `{not json`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("validation failure carries field details", func(t *testing.T) {
		resp := f.postJSON(t, "/register", `{"username":"x","email":"nope","password":"short"}`)
		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

		body := decode[struct {
			Fields map[string]string `json:"fields"`
		}](t, resp)
		assert.Contains(t, body.Fields, "username")
		assert.Contains(t, body.Fields, "email")
		assert.Contains(t, body.Fields, "password")
	})

	t.Run("duplicate registration conflicts", func(t *testing.T) {
		resp := f.postJSON(t, "/register", `{"username":"bob","email":"bob@example.com","password":"Sup3r-secret"}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		resp = f.postJSON(t, "/register", `{"username":"bob","email":"bob2@example.com","password":"Sup3r-secret"}`)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("unknown oauth provider", func(t *testing.T) {
		resp := f.get(t, "/oauth/unknown")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("missing confirm token", func(t *testing.T) {
		resp := f.get(t, "/confirm")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
