package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

type bcryptVerifier struct {
	storage UserStorage
}

// NewBcryptVerifier creates a CredentialVerifier comparing bcrypt hashes
// stored alongside the user record. An empty stored hash (OAuth-only
// account) never verifies.
func NewBcryptVerifier(storage UserStorage) CredentialVerifier {
	return &bcryptVerifier{storage: storage}
}

func (v *bcryptVerifier) Verify(ctx context.Context, email, password string) (*Identity, error) {
	user, err := v.storage.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	identity := IdentityOf(user)
	return &identity, nil
}

// Compile-time interface assertion
var _ CredentialVerifier = (*bcryptVerifier)(nil)
