package token

import "errors"

var (
	ErrTokenNotFound  = errors.New("token not found")
	ErrTokenExpired   = errors.New("token expired")
	ErrUnknownPurpose = errors.New("unknown token purpose")
)
