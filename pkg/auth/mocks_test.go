package auth_test

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/authkit/pkg/auth"
)

// fakeStorage is an in-memory implementation of auth.UserStorage and
// auth.AccountStorage, keyed the way the real schema is keyed.
type fakeStorage struct {
	mu       sync.Mutex
	users    map[string]*auth.User // by email
	accounts map[string]*auth.ExternalAccount
	role     *auth.Role
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		users:    make(map[string]*auth.User),
		accounts: make(map[string]*auth.ExternalAccount),
		role:     &auth.Role{ID: uuid.New(), Name: auth.DefaultRoleName},
	}
}

func accountKey(id, provider string) string { return provider + ":" + id }

func (f *fakeStorage) CreateUser(_ context.Context, user *auth.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return &auth.ConstraintViolationError{Constraint: auth.ConstraintUsersEmailKey}
		}
		if u.Username == user.Username {
			return &auth.ConstraintViolationError{Constraint: auth.ConstraintUsersUsernameKey}
		}
	}
	user.ID = uuid.New()
	cp := *user
	f.users[user.Email] = &cp
	return nil
}

func (f *fakeStorage) GetUserByID(_ context.Context, id uuid.UUID) (*auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

func (f *fakeStorage) GetUserByEmail(_ context.Context, email string) (*auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStorage) UpdateUserVerified(_ context.Context, id uuid.UUID, verified bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			u.Verified = verified
			return nil
		}
	}
	return auth.ErrUserNotFound
}

func (f *fakeStorage) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			u.PasswordHash = hash
			return nil
		}
	}
	return auth.ErrUserNotFound
}

func (f *fakeStorage) GetDefaultRole(_ context.Context) (*auth.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.role == nil {
		return nil, auth.ErrUserNotFound
	}
	cp := *f.role
	return &cp, nil
}

func (f *fakeStorage) GetAccount(_ context.Context, id, provider string) (*auth.ExternalAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountKey(id, provider)]
	if !ok {
		return nil, auth.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStorage) CreateAccount(_ context.Context, account *auth.ExternalAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *account
	f.accounts[accountKey(account.ID, account.Provider)] = &cp
	return nil
}

func (f *fakeStorage) LinkAccount(_ context.Context, id, provider string, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountKey(id, provider)]
	if !ok || a.UserID != nil {
		return auth.ErrAccountNotFound
	}
	a.UserID = &userID
	return nil
}

func (f *fakeStorage) UpdateAccountTokens(_ context.Context, account *auth.ExternalAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountKey(account.ID, account.Provider)]
	if !ok {
		return auth.ErrAccountNotFound
	}
	a.AccessToken = account.AccessToken
	a.RefreshToken = account.RefreshToken
	a.ExpiresAt = account.ExpiresAt
	return nil
}

// outageStorage fails every user lookup with a backend error, simulating a
// database outage.
type outageStorage struct {
	*fakeStorage
	err error
}

func (o *outageStorage) GetUserByEmail(context.Context, string) (*auth.User, error) {
	return nil, o.err
}

// MockMailer records transactional email dispatch.
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendVerificationEmail(ctx context.Context, to, tokenValue string) error {
	args := m.Called(ctx, to, tokenValue)
	return args.Error(0)
}

func (m *MockMailer) SendTwoFactorCode(ctx context.Context, to, code string) error {
	args := m.Called(ctx, to, code)
	return args.Error(0)
}

func (m *MockMailer) SendPasswordResetEmail(ctx context.Context, to, tokenValue string) error {
	args := m.Called(ctx, to, tokenValue)
	return args.Error(0)
}

// capturingMailer keeps the last token value per email kind so flow tests
// can replay what the user would receive in their inbox.
type capturingMailer struct {
	mu           sync.Mutex
	verification map[string]string
	codes        map[string]string
	resets       map[string]string
}

func newCapturingMailer() *capturingMailer {
	return &capturingMailer{
		verification: make(map[string]string),
		codes:        make(map[string]string),
		resets:       make(map[string]string),
	}
}

func (m *capturingMailer) SendVerificationEmail(_ context.Context, to, tokenValue string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verification[to] = tokenValue
	return nil
}

func (m *capturingMailer) SendTwoFactorCode(_ context.Context, to, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[to] = code
	return nil
}

func (m *capturingMailer) SendPasswordResetEmail(_ context.Context, to, tokenValue string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets[to] = tokenValue
	return nil
}

func (m *capturingMailer) lastVerification(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verification[to]
}

func (m *capturingMailer) lastCode(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[to]
}

func (m *capturingMailer) lastReset(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets[to]
}

// MockSession records session establishment and teardown.
type MockSession struct {
	mock.Mock
}

func (m *MockSession) Establish(ctx context.Context, identity auth.Identity) error {
	args := m.Called(ctx, identity)
	return args.Error(0)
}

func (m *MockSession) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockProvider is a scripted OAuth provider.
type MockProvider struct {
	mock.Mock
	name string
}

func (m *MockProvider) Name() string { return m.name }

func (m *MockProvider) AuthURL(state string) string {
	args := m.Called(state)
	return args.String(0)
}

func (m *MockProvider) Exchange(ctx context.Context, code string) (*auth.ExternalIdentity, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.ExternalIdentity), args.Error(1)
}

var (
	_ auth.UserStorage        = (*fakeStorage)(nil)
	_ auth.AccountStorage     = (*fakeStorage)(nil)
	_ auth.Mailer             = (*MockMailer)(nil)
	_ auth.Mailer             = (*capturingMailer)(nil)
	_ auth.SessionEstablisher = (*MockSession)(nil)
	_ auth.Provider           = (*MockProvider)(nil)
)
