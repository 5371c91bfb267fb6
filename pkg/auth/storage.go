package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Unique-constraint identifiers surfaced by the store on violation.
const (
	ConstraintUsersUsernameKey = "users_username_key"
	ConstraintUsersEmailKey    = "users_email_key"
)

// ConstraintViolationError is returned by storage implementations when a
// write violates a database constraint. Constraint carries the violated
// constraint's identity so callers can map it deterministically.
type ConstraintViolationError struct {
	Constraint string
	Err        error
}

func (e *ConstraintViolationError) Error() string {
	return fmt.Sprintf("constraint violation: %s", e.Constraint)
}

func (e *ConstraintViolationError) Unwrap() error { return e.Err }

// UserStorage defines the user persistence operations required by the
// authentication services. CreateUser surfaces unique violations as
// *ConstraintViolationError; lookups return ErrUserNotFound when no row
// matches.
type UserStorage interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUserVerified(ctx context.Context, id uuid.UUID, verified bool) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	GetDefaultRole(ctx context.Context) (*Role, error)
}

// AccountStorage defines persistence for external-identity linkages.
// GetAccount returns ErrAccountNotFound when no row matches; LinkAccount
// sets the owning user exactly once.
type AccountStorage interface {
	GetAccount(ctx context.Context, id, provider string) (*ExternalAccount, error)
	CreateAccount(ctx context.Context, account *ExternalAccount) error
	LinkAccount(ctx context.Context, id, provider string, userID uuid.UUID) error
	UpdateAccountTokens(ctx context.Context, account *ExternalAccount) error
}

// mapConstraintErr rewrites a storage constraint violation into the
// user-facing conflict error; unrecognized constraints are a service-level
// defect, not user input.
func mapConstraintErr(err *ConstraintViolationError) error {
	switch err.Constraint {
	case ConstraintUsersUsernameKey:
		return ErrUsernameExists
	case ConstraintUsersEmailKey:
		return ErrEmailExists
	default:
		return fmt.Errorf("%w: unmapped constraint violation %q", ErrInternal, err.Constraint)
	}
}
