package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dmitrymomot/authkit/pkg/logger"
	"github.com/dmitrymomot/authkit/pkg/sanitizer"
)

// Login outcome messages and statuses.
const (
	MsgLoginSuccessful = "Login successful"
	MsgLoggedOut       = "Logged out"

	StatusSuccess       = "success"
	StatusTwoFactorSent = "two_factor_sent"
)

// LoginRequest carries one login attempt. TwoFactorCode is empty on the
// first leg of a two-factor login and set on the second.
type LoginRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	TwoFactorCode string `json:"two_factor_code,omitempty"`
}

// LoginResult reports how a login attempt concluded. Status is
// StatusTwoFactorSent when the attempt is paused waiting for a code and
// StatusSuccess when a session was established.
type LoginResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// LoginService orchestrates credential login: account lookup, the
// verified-email gate, the two-factor gate, credential verification and
// session establishment, strictly in that order.
type LoginService struct {
	storage      UserStorage
	verifier     CredentialVerifier
	verification *VerificationService
	twoFactor    *TwoFactorService
	logger       *slog.Logger
}

// LoginOption configures a LoginService during construction.
type LoginOption func(*LoginService)

// WithLoginLogger sets a custom logger for the service.
func WithLoginLogger(l *slog.Logger) LoginOption {
	return func(s *LoginService) {
		s.logger = l
	}
}

// NewLoginService creates a login orchestrator.
func NewLoginService(
	storage UserStorage,
	verifier CredentialVerifier,
	verification *VerificationService,
	twoFactor *TwoFactorService,
	opts ...LoginOption,
) *LoginService {
	s := &LoginService{
		storage:      storage,
		verifier:     verifier,
		verification: verification,
		twoFactor:    twoFactor,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login runs one credential login attempt against the given session.
//
// Account state gates run before the password is checked: an unverified
// account gets a fresh verification token and ErrEmailNotVerified no matter
// what password was supplied, and a two-factor account without a code gets
// a fresh code and a paused StatusTwoFactorSent result. Only past both
// gates is the credential verified and a session established.
func (s *LoginService) Login(ctx context.Context, sess SessionEstablisher, req LoginRequest) (*LoginResult, error) {
	emailAddr := sanitizer.NormalizeEmail(req.Email)

	user, err := s.storage.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !user.Verified {
		if err := s.verification.SendVerificationToken(ctx, emailAddr); err != nil {
			s.logger.ErrorContext(ctx, "failed to re-issue verification token",
				logger.Email(emailAddr),
				logger.Error(err),
				logger.Component("login"),
			)
		}
		return nil, ErrEmailNotVerified
	}

	if user.TwoFactorEnabled {
		if req.TwoFactorCode == "" {
			if err := s.twoFactor.SendCode(ctx, emailAddr); err != nil {
				return nil, err
			}
			return &LoginResult{Status: StatusTwoFactorSent, Message: MsgTwoFactorSent}, nil
		}
		if err := s.twoFactor.ValidateCode(ctx, emailAddr, req.TwoFactorCode); err != nil {
			return nil, err
		}
	}

	identity, err := s.verifier.Verify(ctx, emailAddr, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to verify credentials: %w", err)
	}

	if err := sess.Establish(ctx, *identity); err != nil {
		return nil, fmt.Errorf("failed to establish session: %w", err)
	}

	s.logger.InfoContext(ctx, "login successful",
		logger.UserID(identity.UserID.String()),
		logger.Email(identity.Email),
		logger.Component("login"),
	)

	return &LoginResult{Status: StatusSuccess, Message: MsgLoginSuccessful}, nil
}

// LoginOAuth establishes a session for an identity already authenticated by
// an external provider. The verified-email and two-factor gates do not
// apply; the provider vouched for the identity.
func (s *LoginService) LoginOAuth(ctx context.Context, sess SessionEstablisher, identity Identity) (*LoginResult, error) {
	if err := sess.Establish(ctx, identity); err != nil {
		return nil, fmt.Errorf("failed to establish session: %w", err)
	}

	s.logger.InfoContext(ctx, "oauth login successful",
		logger.UserID(identity.UserID.String()),
		logger.Email(identity.Email),
		logger.Component("login"),
	)

	return &LoginResult{Status: StatusSuccess, Message: MsgLoginSuccessful}, nil
}

// Logout clears the current session. Clearing an absent session is not an
// error.
func (s *LoginService) Logout(ctx context.Context, sess SessionEstablisher) error {
	if err := sess.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
