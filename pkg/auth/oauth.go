package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authkit/pkg/logger"
	"github.com/dmitrymomot/authkit/pkg/sanitizer"
)

// ExternalIdentity is the profile an OAuth provider returns after a
// successful code exchange, together with the issued tokens.
type ExternalIdentity struct {
	ID           string
	Name         string
	Email        string
	AvatarURL    string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Provider is one configured OAuth provider. AuthURL builds the consent
// redirect for the given anti-forgery state; Exchange trades an
// authorization code for the external identity.
type Provider interface {
	Name() string
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*ExternalIdentity, error)
}

// OAuthService reconciles external identities against local users and
// accounts. Providers are registered at construction; an unknown provider
// name yields ErrProviderNotFound.
type OAuthService struct {
	users     UserStorage
	accounts  AccountStorage
	providers map[string]Provider
	logger    *slog.Logger
}

// OAuthOption configures an OAuthService during construction.
type OAuthOption func(*OAuthService)

// WithOAuthLogger sets a custom logger for the service.
func WithOAuthLogger(l *slog.Logger) OAuthOption {
	return func(s *OAuthService) {
		s.logger = l
	}
}

// WithProvider registers an OAuth provider under its own name.
func WithProvider(p Provider) OAuthOption {
	return func(s *OAuthService) {
		s.providers[p.Name()] = p
	}
}

// NewOAuthService creates an OAuth reconciliation service.
func NewOAuthService(users UserStorage, accounts AccountStorage, opts ...OAuthOption) *OAuthService {
	s := &OAuthService{
		users:     users,
		accounts:  accounts,
		providers: make(map[string]Provider),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AuthorizationURL returns the provider's consent redirect for the given
// state.
func (s *OAuthService) AuthorizationURL(providerName, state string) (string, error) {
	p, ok := s.providers[providerName]
	if !ok {
		return "", ErrProviderNotFound
	}
	return p.AuthURL(state), nil
}

// Callback completes the OAuth flow: it exchanges the authorization code,
// then reconciles the external identity into a local user and a linked
// account. Three cases are handled:
//
//   - the account is already linked: refresh its tokens and log in the
//     linked user (the link is authoritative, not the profile email, which
//     may have changed provider-side since linking);
//   - the account exists but was never linked: resolve or create the user
//     by email and link it;
//   - the account is new: record it, resolve or create the user and link.
//
// The returned identity is ready for session establishment; OAuth logins
// bypass the verified-email and two-factor gates.
func (s *OAuthService) Callback(ctx context.Context, providerName, code string) (*Identity, error) {
	p, ok := s.providers[providerName]
	if !ok {
		return nil, ErrProviderNotFound
	}
	if code == "" {
		return nil, ErrMissingAuthCode
	}

	ext, err := p.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOAuthExchange, err)
	}

	account, err := s.accounts.GetAccount(ctx, ext.ID, providerName)
	switch {
	case err == nil:
		// known account, refresh provider tokens on every pass
		account.AccessToken = ext.AccessToken
		account.RefreshToken = ext.RefreshToken
		account.ExpiresAt = ext.ExpiresAt
		if err := s.accounts.UpdateAccountTokens(ctx, account); err != nil {
			return nil, fmt.Errorf("failed to update account tokens: %w", err)
		}
	case errors.Is(err, ErrAccountNotFound):
		account = &ExternalAccount{
			ID:           ext.ID,
			Provider:     providerName,
			AccessToken:  ext.AccessToken,
			RefreshToken: ext.RefreshToken,
			ExpiresAt:    ext.ExpiresAt,
		}
		if err := s.accounts.CreateAccount(ctx, account); err != nil {
			return nil, fmt.Errorf("failed to create external account: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to look up external account: %w", err)
	}

	var user *User
	if account.UserID != nil {
		user, err = s.users.GetUserByID(ctx, *account.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to load linked user: %w", err)
		}
	} else {
		user, err = s.resolveUser(ctx, providerName, ext)
		if err != nil {
			return nil, err
		}
		if err := s.accounts.LinkAccount(ctx, ext.ID, providerName, user.ID); err != nil {
			return nil, fmt.Errorf("failed to link external account: %w", err)
		}
		s.logger.InfoContext(ctx, "external account linked",
			logger.UserID(user.ID.String()),
			logger.Provider(providerName),
			logger.Component("oauth"),
		)
	}

	identity := IdentityOf(user)
	return &identity, nil
}

// resolveUser finds the local user owning the external identity's email, or
// creates one. OAuth-created users are verified from the start (the provider
// attested the address), carry no password hash and record the provider as
// their auth method.
func (s *OAuthService) resolveUser(ctx context.Context, providerName string, ext *ExternalIdentity) (*User, error) {
	emailAddr := sanitizer.NormalizeEmail(ext.Email)

	user, err := s.users.GetUserByEmail(ctx, emailAddr)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	role, err := s.users.GetDefaultRole(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: default role %q is not provisioned", ErrInternal, DefaultRoleName)
	}

	user = &User{
		Username:   s.usernameFor(ext, emailAddr),
		Email:      emailAddr,
		Role:       *role,
		Verified:   true,
		AuthMethod: providerName,
		AvatarURL:  ext.AvatarURL,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		var cv *ConstraintViolationError
		if errors.As(err, &cv) && cv.Constraint == ConstraintUsersUsernameKey {
			// username taken by an unrelated user, retry with a unique suffix
			user.Username = fmt.Sprintf("%s-%s", user.Username, uuid.NewString()[:8])
			if err := s.users.CreateUser(ctx, user); err != nil {
				return nil, fmt.Errorf("failed to create user: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "user created from external identity",
		logger.UserID(user.ID.String()),
		logger.Email(user.Email),
		logger.Provider(providerName),
		logger.Component("oauth"),
	)

	return user, nil
}

func (s *OAuthService) usernameFor(ext *ExternalIdentity, emailAddr string) string {
	if u := strings.ReplaceAll(sanitizer.NormalizeUsername(ext.Name), " ", "."); u != "" {
		return u
	}
	local, _, _ := strings.Cut(emailAddr, "@")
	return sanitizer.NormalizeUsername(local)
}
