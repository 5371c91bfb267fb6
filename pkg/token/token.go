package token

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

// Purpose is the enumerated reason a token exists.
type Purpose string

const (
	PurposeVerification  Purpose = "verification"
	PurposeTwoFactor     Purpose = "two_factor"
	PurposePasswordReset Purpose = "password_reset"
)

// Valid reports whether p is one of the known purposes.
func (p Purpose) Valid() bool {
	switch p {
	case PurposeVerification, PurposeTwoFactor, PurposePasswordReset:
		return true
	}
	return false
}

func (p Purpose) String() string { return string(p) }

// Token is a single-use, time-bounded secret scoped by (email, purpose).
type Token struct {
	Email     string    `json:"email"`
	Value     string    `json:"value"`
	Purpose   Purpose   `json:"purpose"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the token is expired at the given instant.
func (t Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// generateValue produces a token value for the purpose. Two-factor codes are
// 6-digit numbers suited to manual entry and compared against user input;
// verification and reset tokens are opaque strings embedded in links and
// compared by direct lookup.
func generateValue(p Purpose) (string, error) {
	switch p {
	case PurposeTwoFactor:
		return numericCode()
	case PurposeVerification, PurposePasswordReset:
		return uuid.NewString(), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPurpose, p)
	}
}

// numericCode draws a uniform 6-digit code in [100000, 999999].
func numericCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate numeric code: %w", err)
	}
	return fmt.Sprintf("%06d", 100000+n.Int64()), nil
}
