package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/authkit/pkg/logger"
	"github.com/dmitrymomot/authkit/pkg/sanitizer"
	"github.com/dmitrymomot/authkit/pkg/validator"
)

// MsgRegistered is returned to callers after a successful registration.
const MsgRegistered = "Registration successful. Check your inbox to verify your email"

// RegisterRequest carries the raw registration input before sanitization.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegistrationService creates credential-based user accounts. New users
// start unverified; OAuth-initiated user creation lives in OAuthService and
// does not pass through here.
type RegistrationService struct {
	storage      UserStorage
	verification *VerificationService
	bcryptCost   int
	passwords    validator.PasswordStrengthConfig
	logger       *slog.Logger
}

// RegistrationOption configures a RegistrationService during construction.
type RegistrationOption func(*RegistrationService)

// WithRegistrationLogger sets a custom logger for the service.
func WithRegistrationLogger(l *slog.Logger) RegistrationOption {
	return func(s *RegistrationService) {
		s.logger = l
	}
}

// WithBcryptCost sets the bcrypt cost factor used for password hashing.
func WithBcryptCost(cost int) RegistrationOption {
	return func(s *RegistrationService) {
		s.bcryptCost = cost
	}
}

// WithPasswordStrength overrides the password strength requirements.
func WithPasswordStrength(cfg validator.PasswordStrengthConfig) RegistrationOption {
	return func(s *RegistrationService) {
		s.passwords = cfg
	}
}

// NewRegistrationService creates a registration service.
func NewRegistrationService(storage UserStorage, verification *VerificationService, opts ...RegistrationOption) *RegistrationService {
	s := &RegistrationService{
		storage:      storage,
		verification: verification,
		bcryptCost:   bcrypt.DefaultCost,
		passwords:    validator.DefaultPasswordStrength,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a new unverified user account and dispatches the email
// verification token. A failed dispatch does not fail the registration:
// the account exists and a later login attempt re-issues the token.
func (s *RegistrationService) Register(ctx context.Context, req RegisterRequest) (string, error) {
	username := sanitizer.NormalizeUsername(req.Username)
	emailAddr := sanitizer.NormalizeEmail(req.Email)

	if err := validator.Apply(
		validator.ValidUsername("username", username),
		validator.ValidEmail("email", emailAddr),
		validator.StrongPassword("password", req.Password, s.passwords),
	); err != nil {
		return "", err
	}

	role, err := s.storage.GetDefaultRole(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: default role %q is not provisioned", ErrInternal, DefaultRoleName)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		Username:     username,
		Email:        emailAddr,
		PasswordHash: string(hash),
		Role:         *role,
		Verified:     false,
		AuthMethod:   MethodCredentials,
	}
	if err := s.storage.CreateUser(ctx, user); err != nil {
		var cv *ConstraintViolationError
		if errors.As(err, &cv) {
			return "", mapConstraintErr(cv)
		}
		return "", fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered",
		logger.UserID(user.ID.String()),
		logger.Email(user.Email),
		logger.Component("registration"),
	)

	if err := s.verification.SendVerificationToken(ctx, emailAddr); err != nil {
		s.logger.ErrorContext(ctx, "failed to send verification token",
			logger.Email(emailAddr),
			logger.Error(err),
			logger.Component("registration"),
		)
	}

	return MsgRegistered, nil
}
