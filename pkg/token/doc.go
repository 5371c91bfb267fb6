// Package token manages single-use, time-bounded secrets scoped by
// (email, purpose). A token is issued for email verification, two-factor
// login, or password reset; at most one live token exists per
// (email, purpose) pair, creation superseding any prior token. Expiry is
// checked lazily at validation time, and tokens are deleted - never
// flagged - on successful use or superseding creation.
package token
