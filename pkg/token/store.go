package token

import "context"

// Store is the narrow persistence interface the lifecycle service runs on.
// Each call is assumed atomic; deletes are idempotent (zero-or-more rows).
// Lookups return ErrTokenNotFound when no token matches.
type Store interface {
	Save(ctx context.Context, t Token) error
	FindByValue(ctx context.Context, value string, purpose Purpose) (*Token, error)
	FindByEmail(ctx context.Context, email string, purpose Purpose) (*Token, error)
	DeleteByEmail(ctx context.Context, email string, purpose Purpose) error
	Delete(ctx context.Context, t Token) error
}
