package token

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dmitrymomot/authkit/pkg/logger"
)

// Service owns the token lifecycle: creation supersedes any live token for
// the same (email, purpose), validation checks expiry lazily, and
// invalidation deletes the record after successful use.
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Service during construction.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithClock overrides the time source, used by tests to control expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a token lifecycle service backed by the given store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create issues a new token for (email, purpose) valid for the given
// duration. Any prior token for the pair is deleted first, so its value can
// no longer validate. Under concurrent creation for the same pair both calls
// may succeed and the last insert wins; tokens are short-lived and
// single-user-initiated, so the window is accepted.
func (s *Service) Create(ctx context.Context, email string, purpose Purpose, validFor time.Duration) (*Token, error) {
	value, err := generateValue(purpose)
	if err != nil {
		return nil, err
	}

	if err := s.store.DeleteByEmail(ctx, email, purpose); err != nil {
		return nil, fmt.Errorf("failed to supersede existing token: %w", err)
	}

	t := Token{
		Email:     email,
		Value:     value,
		Purpose:   purpose,
		ExpiresAt: s.now().Add(validFor),
	}

	if err := s.store.Save(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to save token: %w", err)
	}

	s.logger.DebugContext(ctx, "token created",
		logger.Email(email),
		logger.Purpose(purpose),
		logger.Component("token"),
	)

	return &t, nil
}

// ValidateByValue looks a token up by (value, purpose). It returns
// ErrTokenNotFound when absent and ErrTokenExpired when past its expiry.
// The token is not consumed; callers invalidate it explicitly after
// inspecting it.
func (s *Service) ValidateByValue(ctx context.Context, value string, purpose Purpose) (*Token, error) {
	t, err := s.store.FindByValue(ctx, value, purpose)
	if err != nil {
		return nil, err
	}
	if t.Expired(s.now()) {
		return nil, ErrTokenExpired
	}
	return t, nil
}

// ValidateByEmail is ValidateByValue keyed by (email, purpose), used when
// the token value is supplied out-of-band and compared against the stored
// value (two-factor codes).
func (s *Service) ValidateByEmail(ctx context.Context, email string, purpose Purpose) (*Token, error) {
	t, err := s.store.FindByEmail(ctx, email, purpose)
	if err != nil {
		return nil, err
	}
	if t.Expired(s.now()) {
		return nil, ErrTokenExpired
	}
	return t, nil
}

// Invalidate deletes the token record. Idempotent; invoked after successful
// use.
func (s *Service) Invalidate(ctx context.Context, t Token) error {
	if err := s.store.Delete(ctx, t); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}
	return nil
}
