package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authkit/pkg/logger"
	"github.com/dmitrymomot/authkit/pkg/token"
)

// Confirmation outcome messages returned to callers.
const (
	MsgEmailConfirmed        = "Email confirmed successfully. You can now log in"
	MsgEmailAlreadyConfirmed = "Email already confirmed"
)

// VerificationStorage defines the storage operations required for email
// verification.
type VerificationStorage interface {
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUserVerified(ctx context.Context, id uuid.UUID, verified bool) error
}

// VerificationService issues verification tokens and confirms email
// addresses with them.
type VerificationService struct {
	storage  VerificationStorage
	tokens   *token.Service
	mailer   Mailer
	tokenTTL time.Duration
	logger   *slog.Logger
}

// VerificationOption configures a VerificationService during construction.
type VerificationOption func(*VerificationService)

// WithVerificationLogger sets a custom logger for the service.
func WithVerificationLogger(l *slog.Logger) VerificationOption {
	return func(s *VerificationService) {
		s.logger = l
	}
}

// WithVerificationTokenTTL sets the validity window for verification tokens.
func WithVerificationTokenTTL(ttl time.Duration) VerificationOption {
	return func(s *VerificationService) {
		s.tokenTTL = ttl
	}
}

// NewVerificationService creates an email verification service.
func NewVerificationService(storage VerificationStorage, tokens *token.Service, mailer Mailer, opts ...VerificationOption) *VerificationService {
	s := &VerificationService{
		storage:  storage,
		tokens:   tokens,
		mailer:   mailer,
		tokenTTL: 1 * time.Hour,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendVerificationToken issues a fresh verification token for the email,
// superseding any prior one, and dispatches the confirmation email. The
// token is persisted before dispatch is attempted, so a dispatch failure
// never loses the token.
func (s *VerificationService) SendVerificationToken(ctx context.Context, emailAddr string) error {
	t, err := s.tokens.Create(ctx, emailAddr, token.PurposeVerification, s.tokenTTL)
	if err != nil {
		return fmt.Errorf("failed to create verification token: %w", err)
	}

	if err := s.mailer.SendVerificationEmail(ctx, emailAddr, t.Value); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	return nil
}

// ConfirmEmail validates a verification token and marks the owning user
// verified. Confirming an already-verified user is not an error; the caller
// receives MsgEmailAlreadyConfirmed. Verification tokens are not consumed
// here - confirmation links stay idempotent until the token expires or is
// superseded.
func (s *VerificationService) ConfirmEmail(ctx context.Context, tokenValue string) (string, error) {
	t, err := s.tokens.ValidateByValue(ctx, tokenValue, token.PurposeVerification)
	if err != nil {
		return "", qualifyTokenErr(token.PurposeVerification, err)
	}

	user, err := s.storage.GetUserByEmail(ctx, t.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("failed to look up user: %w", err)
	}

	if user.Verified {
		return MsgEmailAlreadyConfirmed, nil
	}

	if err := s.storage.UpdateUserVerified(ctx, user.ID, true); err != nil {
		return "", fmt.Errorf("failed to update verification status: %w", err)
	}

	s.logger.InfoContext(ctx, "email confirmed",
		logger.UserID(user.ID.String()),
		logger.Email(user.Email),
		logger.Component("verification"),
	)

	return MsgEmailConfirmed, nil
}
