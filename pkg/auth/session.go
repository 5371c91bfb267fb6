package auth

import "context"

// SessionEstablisher records an authenticated identity against the current
// request's transport-level context. Implementations are bound to a single
// request; the orchestrator never touches process-wide session state.
type SessionEstablisher interface {
	Establish(ctx context.Context, identity Identity) error
	Clear(ctx context.Context) error
}

// CredentialVerifier checks a plaintext password against the stored
// credential material and returns the authenticated identity, or
// ErrInvalidCredentials.
type CredentialVerifier interface {
	Verify(ctx context.Context, email, password string) (*Identity, error)
}
