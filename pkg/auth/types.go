package auth

import (
	"time"

	"github.com/google/uuid"
)

// Authentication method identifiers used to track how users authenticate.
// OAuth-created users carry the provider name as their method.
const (
	MethodCredentials = "credentials"
	MethodGoogle      = "google"
	MethodGithub      = "github"
)

// DefaultRoleName is the role every new user is assigned at registration.
// Roles are reference data seeded by migration, not owned by this package.
const DefaultRoleName = "user"

// Role is a named authorization label referenced by User.
type Role struct {
	ID   uuid.UUID
	Name string
}

// User represents a user account in the authentication system.
// PasswordHash is the empty string for OAuth-only accounts.
type User struct {
	ID               uuid.UUID
	Username         string
	Email            string
	PasswordHash     string
	Role             Role
	Verified         bool
	TwoFactorEnabled bool
	AuthMethod       string
	AvatarURL        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Accounts         []ExternalAccount
}

// ExternalAccount is one external-identity linkage. ID is the
// provider-assigned identifier, not a surrogate key. UserID is nil for an
// account created before user creation completed; it transitions from nil
// to set exactly once.
type ExternalAccount struct {
	ID           string
	Provider     string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	UserID       *uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is the authenticated principal handed to session establishment.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

// IdentityOf derives the session identity for a user.
func IdentityOf(u *User) Identity {
	return Identity{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role.Name,
	}
}
