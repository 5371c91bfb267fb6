package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dmitrymomot/authkit/pkg/logger"
	"github.com/dmitrymomot/authkit/pkg/token"
)

// MsgTwoFactorSent is returned when a login is paused waiting for a code.
const MsgTwoFactorSent = "Two factor token was sent to your email"

// TwoFactorService issues and checks one-time login codes for accounts with
// two-factor authentication enabled.
type TwoFactorService struct {
	tokens   *token.Service
	mailer   Mailer
	tokenTTL time.Duration
	logger   *slog.Logger
}

// TwoFactorOption configures a TwoFactorService during construction.
type TwoFactorOption func(*TwoFactorService)

// WithTwoFactorLogger sets a custom logger for the service.
func WithTwoFactorLogger(l *slog.Logger) TwoFactorOption {
	return func(s *TwoFactorService) {
		s.logger = l
	}
}

// WithTwoFactorTokenTTL sets the validity window for login codes.
func WithTwoFactorTokenTTL(ttl time.Duration) TwoFactorOption {
	return func(s *TwoFactorService) {
		s.tokenTTL = ttl
	}
}

// NewTwoFactorService creates a two-factor code service.
func NewTwoFactorService(tokens *token.Service, mailer Mailer, opts ...TwoFactorOption) *TwoFactorService {
	s := &TwoFactorService{
		tokens:   tokens,
		mailer:   mailer,
		tokenTTL: 15 * time.Minute,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendCode issues a fresh one-time code for the email, superseding any
// outstanding one, and dispatches it. Unlike verification dispatch, a send
// failure here is fatal: the caller is mid-login and has no other way to
// obtain the code.
func (s *TwoFactorService) SendCode(ctx context.Context, emailAddr string) error {
	t, err := s.tokens.Create(ctx, emailAddr, token.PurposeTwoFactor, s.tokenTTL)
	if err != nil {
		return fmt.Errorf("failed to create two factor token: %w", err)
	}

	if err := s.mailer.SendTwoFactorCode(ctx, emailAddr, t.Value); err != nil {
		return fmt.Errorf("failed to send two factor code: %w", err)
	}

	s.logger.DebugContext(ctx, "two factor code sent",
		logger.Email(emailAddr),
		logger.Component("twofactor"),
	)
	return nil
}

// ValidateCode checks the submitted code against the live token for the
// email. A mismatch leaves the token in place so the user may retry until
// it expires; a match consumes it.
func (s *TwoFactorService) ValidateCode(ctx context.Context, emailAddr, code string) error {
	t, err := s.tokens.ValidateByEmail(ctx, emailAddr, token.PurposeTwoFactor)
	if err != nil {
		return qualifyTokenErr(token.PurposeTwoFactor, err)
	}

	if subtle.ConstantTimeCompare([]byte(t.Value), []byte(code)) != 1 {
		return ErrInvalidTwoFactorCode
	}

	if err := s.tokens.Invalidate(ctx, *t); err != nil {
		return fmt.Errorf("failed to invalidate two factor token: %w", err)
	}
	return nil
}
