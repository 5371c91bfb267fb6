package auth

import (
	"errors"

	"github.com/dmitrymomot/authkit/pkg/token"
)

// General authentication errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameExists     = errors.New("username already exists")
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("email or password is incorrect")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrInternal           = errors.New("internal service error")
)

// Two-factor errors
var (
	ErrInvalidTwoFactorCode = errors.New("two factor code is not valid")
)

// OAuth errors
var (
	ErrAccountNotFound  = errors.New("external account not found")
	ErrProviderNotFound = errors.New("oauth provider not found")
	ErrMissingAuthCode  = errors.New("missing authorization code")
	ErrOAuthExchange    = errors.New("failed to exchange authorization code")
)

// Purpose-qualified token errors. The generic token signals
// (token.ErrTokenNotFound, token.ErrTokenExpired) are always rewritten into
// one of these before leaving this package.
var (
	ErrVerificationTokenNotFound = errors.New("verification token not found")
	ErrVerificationTokenExpired  = errors.New("verification token has expired")
	ErrTwoFactorTokenNotFound    = errors.New("two factor token not found")
	ErrTwoFactorTokenExpired     = errors.New("two factor token has expired")
	ErrResetTokenNotFound        = errors.New("password reset token not found")
	ErrResetTokenExpired         = errors.New("password reset token has expired")
)

// qualifyTokenErr maps a generic token signal to its purpose-specific error.
// Total over (purpose, signal); any other error passes through unchanged.
func qualifyTokenErr(purpose token.Purpose, err error) error {
	switch {
	case errors.Is(err, token.ErrTokenNotFound):
		switch purpose {
		case token.PurposeVerification:
			return ErrVerificationTokenNotFound
		case token.PurposeTwoFactor:
			return ErrTwoFactorTokenNotFound
		case token.PurposePasswordReset:
			return ErrResetTokenNotFound
		}
	case errors.Is(err, token.ErrTokenExpired):
		switch purpose {
		case token.PurposeVerification:
			return ErrVerificationTokenExpired
		case token.PurposeTwoFactor:
			return ErrTwoFactorTokenExpired
		case token.PurposePasswordReset:
			return ErrResetTokenExpired
		}
	}
	return err
}
