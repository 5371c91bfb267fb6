package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/authkit/pkg/logger"
	"github.com/dmitrymomot/authkit/pkg/sanitizer"
	"github.com/dmitrymomot/authkit/pkg/token"
	"github.com/dmitrymomot/authkit/pkg/validator"
)

// Password recovery outcome messages.
const (
	MsgResetTokenSent  = "Password reset token was successfully sent to your email"
	MsgPasswordChanged = "Password was successfully changed"
)

// RecoveryService handles the forgot-password flow: a reset token is mailed
// to the account's address and exchanged for a new password exactly once.
type RecoveryService struct {
	storage    UserStorage
	tokens     *token.Service
	mailer     Mailer
	tokenTTL   time.Duration
	bcryptCost int
	passwords  validator.PasswordStrengthConfig
	logger     *slog.Logger
}

// RecoveryOption configures a RecoveryService during construction.
type RecoveryOption func(*RecoveryService)

// WithRecoveryLogger sets a custom logger for the service.
func WithRecoveryLogger(l *slog.Logger) RecoveryOption {
	return func(s *RecoveryService) {
		s.logger = l
	}
}

// WithRecoveryTokenTTL sets the validity window for reset tokens.
func WithRecoveryTokenTTL(ttl time.Duration) RecoveryOption {
	return func(s *RecoveryService) {
		s.tokenTTL = ttl
	}
}

// WithRecoveryBcryptCost sets the bcrypt cost used when hashing the
// replacement password.
func WithRecoveryBcryptCost(cost int) RecoveryOption {
	return func(s *RecoveryService) {
		s.bcryptCost = cost
	}
}

// WithRecoveryPasswordStrength overrides the strength requirements applied
// to the replacement password.
func WithRecoveryPasswordStrength(cfg validator.PasswordStrengthConfig) RecoveryOption {
	return func(s *RecoveryService) {
		s.passwords = cfg
	}
}

// NewRecoveryService creates a password recovery service.
func NewRecoveryService(storage UserStorage, tokens *token.Service, mailer Mailer, opts ...RecoveryOption) *RecoveryService {
	s := &RecoveryService{
		storage:    storage,
		tokens:     tokens,
		mailer:     mailer,
		tokenTTL:   1 * time.Hour,
		bcryptCost: bcrypt.DefaultCost,
		passwords:  validator.DefaultPasswordStrength,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestReset issues a reset token for the account and mails it. The
// account must exist; requesting a reset for an unknown email returns
// ErrUserNotFound. A dispatch failure is fatal here since the token is
// useless if the email never arrives.
func (s *RecoveryService) RequestReset(ctx context.Context, emailAddr string) (string, error) {
	emailAddr = sanitizer.NormalizeEmail(emailAddr)

	if _, err := s.storage.GetUserByEmail(ctx, emailAddr); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("failed to look up user: %w", err)
	}

	t, err := s.tokens.Create(ctx, emailAddr, token.PurposePasswordReset, s.tokenTTL)
	if err != nil {
		return "", fmt.Errorf("failed to create password reset token: %w", err)
	}

	if err := s.mailer.SendPasswordResetEmail(ctx, emailAddr, t.Value); err != nil {
		return "", fmt.Errorf("failed to send password reset email: %w", err)
	}

	s.logger.InfoContext(ctx, "password reset requested",
		logger.Email(emailAddr),
		logger.Component("recovery"),
	)

	return MsgResetTokenSent, nil
}

// ResetPassword exchanges a valid reset token for a new password. The token
// is consumed on success; a second submission with the same token fails
// with ErrResetTokenNotFound.
func (s *RecoveryService) ResetPassword(ctx context.Context, tokenValue, newPassword string) (string, error) {
	t, err := s.tokens.ValidateByValue(ctx, tokenValue, token.PurposePasswordReset)
	if err != nil {
		return "", qualifyTokenErr(token.PurposePasswordReset, err)
	}

	if err := validator.Apply(
		validator.StrongPassword("password", newPassword, s.passwords),
	); err != nil {
		return "", err
	}

	user, err := s.storage.GetUserByEmail(ctx, t.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.storage.UpdatePasswordHash(ctx, user.ID, string(hash)); err != nil {
		return "", fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.tokens.Invalidate(ctx, *t); err != nil {
		return "", fmt.Errorf("failed to invalidate reset token: %w", err)
	}

	s.logger.InfoContext(ctx, "password changed",
		logger.UserID(user.ID.String()),
		logger.Email(user.Email),
		logger.Component("recovery"),
	)

	return MsgPasswordChanged, nil
}
