package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ProfileService serves the authenticated user's own account view.
type ProfileService struct {
	storage UserStorage
}

// NewProfileService creates a profile service.
func NewProfileService(storage UserStorage) *ProfileService {
	return &ProfileService{storage: storage}
}

// Profile loads the account owning the session identity, external account
// linkages included.
func (s *ProfileService) Profile(ctx context.Context, userID uuid.UUID) (*User, error) {
	user, err := s.storage.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}
